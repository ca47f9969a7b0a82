// Package scrapers runs one scrape of a marketplace page through a source
// profile, with retries and failure diagnostics.
package scrapers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrUnknownSource = errors.New("unknown source")

// Profile holds everything that differs between marketplaces. There is
// exactly one scrape routine; profiles only parameterize it.
type Profile struct {
	Name string
	// RenderWait is how long the site's client-side app needs to render.
	RenderWait time.Duration
	// Scroll is a JavaScript expression for window.scrollTo; empty skips it.
	Scroll          string
	Currencies      []string
	SoldOutKeywords []string
}

var profiles = map[string]Profile{
	"ticketmaster": {
		Name:       "Ticketmaster",
		RenderWait: 15 * time.Second,
		Scroll:     "document.body.scrollHeight",
		Currencies: []string{"USD", "GBP"},
		SoldOutKeywords: []string{
			"sold out",
			"no tickets available",
			"event has passed",
			"unavailable",
		},
	},
	"stubhub": {
		Name:       "StubHub",
		RenderWait: 10 * time.Second,
		Scroll:     "800",
		Currencies: []string{"USD", "GBP"},
		SoldOutKeywords: []string{
			"sold out",
			"no tickets available",
			"event has ended",
			"no longer available",
		},
	},
	"viagogo": {
		Name:       "Viagogo",
		RenderWait: 12 * time.Second,
		Scroll:     "document.body.scrollHeight",
		Currencies: []string{"USD", "GBP", "EUR"},
		SoldOutKeywords: []string{
			"sold out",
			"no tickets available",
			"event has ended",
			"no longer on sale",
			"view 0 listings",
			"showing 0 of 0",
		},
	},
}

// Lookup resolves a source name case-insensitively.
func Lookup(source string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(source))]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	return p, nil
}

// Sources lists the known source names in a stable order.
func Sources() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
