// Package extract turns rendered page text into a price and an availability
// classification.
package extract

import (
	"strings"

	"ticket-hunter/pkg/currency"

	"github.com/shopspring/decimal"
)

const maxMatches = 10

// Policy picks the canonical price among the winning currency's matches.
type Policy string

const (
	// FirstMatch takes the first price in document order.
	FirstMatch Policy = "first"
	// LowestMatch takes the minimum of all matches.
	LowestMatch Policy = "lowest"
)

type Extraction struct {
	Price    decimal.NullDecimal
	Currency string
	// PriceText is the symbol-prefixed match the price was parsed from.
	PriceText string
	// Matches holds at most the first ten symbol-prefixed matches.
	Matches []string
}

// ExtractPrice tries codes in order and stops at the first currency with at
// least one match. No match at all is a valid result with an invalid Price.
func ExtractPrice(text string, codes []string) Extraction {
	return ExtractPriceWithPolicy(text, codes, FirstMatch)
}

func ExtractPriceWithPolicy(text string, codes []string, policy Policy) Extraction {
	for _, code := range codes {
		cfg, ok := currency.Lookup(code)
		if !ok {
			continue
		}

		found := cfg.Pattern.FindAllStringSubmatch(text, -1)
		if len(found) == 0 {
			continue
		}

		raw := make([]string, 0, len(found))
		for _, m := range found {
			raw = append(raw, m[1])
		}

		ex := Extraction{Currency: cfg.Code}
		for i, r := range raw {
			if i == maxMatches {
				break
			}
			ex.Matches = append(ex.Matches, cfg.Symbol+r)
		}

		chosen := pick(raw, policy)
		if chosen == "" {
			return ex
		}
		price, err := parseAmount(chosen)
		if err != nil {
			return ex
		}
		ex.Price = decimal.NewNullDecimal(price)
		ex.PriceText = cfg.Symbol + chosen
		return ex
	}

	return Extraction{}
}

func pick(raw []string, policy Policy) string {
	if policy != LowestMatch {
		return raw[0]
	}

	var best string
	var lowest decimal.Decimal
	for _, r := range raw {
		v, err := parseAmount(r)
		if err != nil {
			continue
		}
		if best == "" || v.LessThan(lowest) {
			best, lowest = r, v
		}
	}
	return best
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}
