// Package currency holds the static registry of currencies a listing price
// can be quoted in.
package currency

import "regexp"

type Config struct {
	Code   string
	Symbol string
	// Pattern captures the numeric part, thousands separators included.
	Pattern *regexp.Regexp
}

var table = map[string]Config{
	"USD": {
		Code:    "USD",
		Symbol:  "$",
		Pattern: regexp.MustCompile(`\$\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	},
	"GBP": {
		Code:    "GBP",
		Symbol:  "£",
		Pattern: regexp.MustCompile(`£\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	},
	"EUR": {
		Code:    "EUR",
		Symbol:  "€",
		Pattern: regexp.MustCompile(`€\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	},
}

// Lookup returns the configuration for code.
func Lookup(code string) (Config, bool) {
	c, ok := table[code]
	return c, ok
}

// Symbols lists every registered currency symbol.
func Symbols() []string {
	return []string{"$", "£", "€"}
}
