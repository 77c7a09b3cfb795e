package directory

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"remitroute/internal/domain"
)

// SQLiteDirectory persists provider links in SQLite. One row per link; a
// provider offering several corridors owns several rows.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLiteDirectory opens (or creates) a SQLite database at dbPath and
// runs the schema migration.
func NewSQLiteDirectory(dbPath string) (*SQLiteDirectory, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open directory db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate directory db: %w", err)
	}
	return &SQLiteDirectory{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS route_links (
			provider         TEXT NOT NULL,
			kind             TEXT NOT NULL,
			from_country     TEXT NOT NULL,
			to_country       TEXT NOT NULL,
			from_currency    TEXT NOT NULL,
			to_currency      TEXT NOT NULL,
			fee              REAL NOT NULL DEFAULT 0,
			exchange_rate    REAL NOT NULL DEFAULT 0,
			delivery_minutes REAL NOT NULL DEFAULT 0,
			success_rate     REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (provider, from_country, to_country, from_currency, to_currency)
		);
		CREATE INDEX IF NOT EXISTS idx_route_links_origin
			ON route_links (from_country, from_currency);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteDirectory) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces one link keyed by provider and corridor.
func (s *SQLiteDirectory) Upsert(ctx context.Context, link domain.RouteLink) error {
	if err := link.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_links
			(provider, kind, from_country, to_country, from_currency, to_currency,
			 fee, exchange_rate, delivery_minutes, success_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, from_country, to_country, from_currency, to_currency)
		DO UPDATE SET
			kind = excluded.kind,
			fee = excluded.fee,
			exchange_rate = excluded.exchange_rate,
			delivery_minutes = excluded.delivery_minutes,
			success_rate = excluded.success_rate`,
		link.Provider, string(link.Kind),
		string(link.FromCountry), string(link.ToCountry),
		string(link.FromCurrency), string(link.ToCurrency),
		link.Fee, link.ExchangeRate, link.DeliveryMinutes, link.SuccessRate,
	)
	return err
}

// Seed upserts a batch of links in one transaction.
func (s *SQLiteDirectory) Seed(ctx context.Context, links []domain.RouteLink) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed directory: %w", err)
	}
	for _, link := range links {
		if err := link.Validate(); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO route_links
				(provider, kind, from_country, to_country, from_currency, to_currency,
				 fee, exchange_rate, delivery_minutes, success_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (provider, from_country, to_country, from_currency, to_currency)
			DO UPDATE SET
				kind = excluded.kind,
				fee = excluded.fee,
				exchange_rate = excluded.exchange_rate,
				delivery_minutes = excluded.delivery_minutes,
				success_rate = excluded.success_rate`,
			link.Provider, string(link.Kind),
			string(link.FromCountry), string(link.ToCountry),
			string(link.FromCurrency), string(link.ToCurrency),
			link.Fee, link.ExchangeRate, link.DeliveryMinutes, link.SuccessRate,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("seed directory: %w", err)
		}
	}
	return tx.Commit()
}

// Count reports how many links the directory holds.
func (s *SQLiteDirectory) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM route_links").Scan(&n)
	return n, err
}

const linkColumns = `provider, kind, from_country, to_country, from_currency, to_currency,
	fee, exchange_rate, delivery_minutes, success_rate`

// DirectLinks returns links spanning the corridor exactly.
func (s *SQLiteDirectory) DirectLinks(ctx context.Context, corridor domain.Corridor) ([]domain.RouteLink, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+linkColumns+` FROM route_links
		WHERE from_country = ? AND to_country = ? AND from_currency = ? AND to_currency = ?
		ORDER BY provider`,
		string(corridor.FromCountry), string(corridor.ToCountry),
		string(corridor.FromCurrency), string(corridor.ToCurrency),
	)
	if err != nil {
		return nil, err
	}
	return collectLinks(rows)
}

// LinksFrom returns all links leaving country denominated in currency.
func (s *SQLiteDirectory) LinksFrom(ctx context.Context, country domain.Country, currency domain.Currency) ([]domain.RouteLink, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+linkColumns+` FROM route_links
		WHERE from_country = ? AND from_currency = ?
		ORDER BY provider`,
		string(country), string(currency),
	)
	if err != nil {
		return nil, err
	}
	return collectLinks(rows)
}

func collectLinks(rows *sql.Rows) ([]domain.RouteLink, error) {
	defer rows.Close()

	var links []domain.RouteLink
	for rows.Next() {
		var l domain.RouteLink
		var kind, fromCountry, toCountry, fromCurrency, toCurrency string
		if err := rows.Scan(&l.Provider, &kind, &fromCountry, &toCountry, &fromCurrency, &toCurrency,
			&l.Fee, &l.ExchangeRate, &l.DeliveryMinutes, &l.SuccessRate); err != nil {
			return nil, err
		}
		l.Kind = domain.ProviderKind(kind)
		l.FromCountry = domain.Country(fromCountry)
		l.ToCountry = domain.Country(toCountry)
		l.FromCurrency = domain.Currency(fromCurrency)
		l.ToCurrency = domain.Currency(toCurrency)
		links = append(links, l)
	}
	return links, rows.Err()
}
