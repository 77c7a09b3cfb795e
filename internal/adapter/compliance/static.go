// Package compliance implements the deny-list compliance gate applied to
// every candidate route.
package compliance

import (
	"context"
	"fmt"
	"strings"

	"remitroute/internal/domain"
)

// DenyLists hold the sanctioned entities a route must not touch.
type DenyLists struct {
	Countries []string // either corridor endpoint
	Corridors []string // "FROM:TO" country pairs
	Providers []string // any leg
}

// StaticChecker evaluates routes against configured deny-lists. A route is
// compliant only when no list matches; reasons name every match for audit
// logging.
type StaticChecker struct {
	countries map[string]bool
	corridors map[string]bool
	providers map[string]bool
}

// NewStaticChecker builds a checker from deny-lists. Country and corridor
// codes are uppercased; provider IDs are matched verbatim.
func NewStaticChecker(lists DenyLists) *StaticChecker {
	c := &StaticChecker{
		countries: make(map[string]bool, len(lists.Countries)),
		corridors: make(map[string]bool, len(lists.Corridors)),
		providers: make(map[string]bool, len(lists.Providers)),
	}
	for _, country := range lists.Countries {
		c.countries[strings.ToUpper(country)] = true
	}
	for _, corridor := range lists.Corridors {
		c.corridors[strings.ToUpper(corridor)] = true
	}
	for _, provider := range lists.Providers {
		c.providers[provider] = true
	}
	return c
}

// CheckRoute reports whether the route may carry funds between from and to,
// with one reason per deny-list match.
func (c *StaticChecker) CheckRoute(_ context.Context, route domain.CandidateRoute, from, to domain.Country) (bool, []string) {
	var reasons []string

	if c.countries[strings.ToUpper(string(from))] {
		reasons = append(reasons, fmt.Sprintf("origin country %s is blocked", from))
	}
	if c.countries[strings.ToUpper(string(to))] {
		reasons = append(reasons, fmt.Sprintf("destination country %s is blocked", to))
	}
	corridorKey := strings.ToUpper(string(from)) + ":" + strings.ToUpper(string(to))
	if c.corridors[corridorKey] {
		reasons = append(reasons, fmt.Sprintf("corridor %s is blocked", corridorKey))
	}
	for _, provider := range route.Providers {
		if c.providers[provider] {
			reasons = append(reasons, fmt.Sprintf("provider %s is blocked", provider))
		}
	}

	return len(reasons) == 0, reasons
}
