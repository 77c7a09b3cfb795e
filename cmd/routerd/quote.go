package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"remitroute/internal/domain"
	"remitroute/internal/infra/config"
	"remitroute/internal/infra/logger"
)

// quoteFlags holds the parsed quote subcommand flags.
type quoteFlags struct {
	Amount       float64
	From         string
	To           string
	FromCurrency string
	ToCurrency   string
	Prioritize   string
	MaxFee       float64
	MaxDelivery  float64
	Provider     string
	IntentPath   string
}

// parseQuoteFlags accepts both "--flag value" and "--flag=value" forms.
// --config is consumed by configPath and skipped here.
func parseQuoteFlags(args []string) (quoteFlags, error) {
	var flags quoteFlags

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--config=") {
			continue
		}
		if arg == "--config" {
			i++
			continue
		}

		name, value := arg, ""
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			name, value = arg[:eq], arg[eq+1:]
		} else if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			value = args[i+1]
			i++
		}

		var err error
		switch name {
		case "--amount":
			flags.Amount, err = strconv.ParseFloat(value, 64)
		case "--from":
			flags.From = value
		case "--to":
			flags.To = value
		case "--from-currency":
			flags.FromCurrency = value
		case "--to-currency":
			flags.ToCurrency = value
		case "--prioritize":
			flags.Prioritize = value
		case "--max-fee":
			flags.MaxFee, err = strconv.ParseFloat(value, 64)
		case "--max-delivery-minutes":
			flags.MaxDelivery, err = strconv.ParseFloat(value, 64)
		case "--provider":
			flags.Provider = value
		case "--intent":
			flags.IntentPath = value
		default:
			return flags, fmt.Errorf("unknown flag: %s", name)
		}
		if err != nil {
			return flags, fmt.Errorf("%s: invalid value %q", name, value)
		}
	}
	return flags, nil
}

// buildIntent assembles a payment intent from flags, or decodes a full
// intent JSON when --intent is given.
func buildIntent(flags quoteFlags) (domain.PaymentIntent, error) {
	if flags.IntentPath != "" {
		return readIntent(flags.IntentPath)
	}

	intent := domain.PaymentIntent{
		Amount: flags.Amount,
		Corridor: domain.Corridor{
			FromCountry:  domain.Country(flags.From),
			ToCountry:    domain.Country(flags.To),
			FromCurrency: domain.Currency(flags.FromCurrency),
			ToCurrency:   domain.Currency(flags.ToCurrency),
		},
		Preferences: domain.PaymentPreferences{
			MaxFee:             flags.MaxFee,
			MaxDeliveryMinutes: flags.MaxDelivery,
			PreferredProvider:  flags.Provider,
		},
	}
	for _, p := range strings.Split(flags.Prioritize, ",") {
		switch strings.TrimSpace(strings.ToLower(p)) {
		case "cost":
			intent.Preferences.PrioritizeCost = true
		case "speed":
			intent.Preferences.PrioritizeSpeed = true
		case "reliability":
			intent.Preferences.PrioritizeReliability = true
		case "":
		default:
			return intent, fmt.Errorf("unknown prioritize dimension %q (want cost, speed or reliability)", strings.TrimSpace(p))
		}
	}
	return intent, nil
}

func readIntent(path string) (domain.PaymentIntent, error) {
	var intent domain.PaymentIntent

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return intent, fmt.Errorf("read intent: %w", err)
	}
	if err := json.Unmarshal(data, &intent); err != nil {
		return intent, fmt.Errorf("parse intent: %w", err)
	}
	return intent, nil
}

// runQuote optimizes one corridor and prints the result as indented JSON on
// stdout. Logs go to the configured logger so stdout stays parseable.
func runQuote() error {
	flags, err := parseQuoteFlags(os.Args[2:])
	if err != nil {
		return err
	}
	intent, err := buildIntent(flags)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comp, cleanup, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cleanup(shutdownCtx)
	}()

	res := comp.Agent.QuoteRoute(ctx, intent)
	if !res.Success {
		if res.ErrorCode != "" {
			return fmt.Errorf("%s [%s]", res.Message, res.ErrorCode)
		}
		return fmt.Errorf("%s (status %s)", res.Message, res.Status)
	}

	out, err := json.MarshalIndent(res.Payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
