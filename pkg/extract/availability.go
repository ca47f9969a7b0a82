package extract

import (
	"strings"

	"ticket-hunter/pkg/models"

	"github.com/shopspring/decimal"
)

// DefaultSoldOutKeywords applies when a source lists none of its own.
var DefaultSoldOutKeywords = []string{
	"sold out",
	"no tickets available",
	"event has passed",
	"event has ended",
	"unavailable",
	"no longer available",
	"no longer on sale",
}

// ClassifyAvailability reports sold_out whenever a keyword is present, even
// if a price was extracted: pages keep showing stale prices next to a
// sold-out banner.
func ClassifyAvailability(text string, price decimal.NullDecimal, keywords []string) models.Availability {
	if _, ok := SoldOutKeyword(text, keywords); ok {
		return models.SoldOut
	}
	if price.Valid {
		return models.Available
	}
	return models.Unknown
}

// SoldOutKeyword returns the first keyword found in text, case-insensitively.
func SoldOutKeyword(text string, keywords []string) (string, bool) {
	if len(keywords) == 0 {
		keywords = DefaultSoldOutKeywords
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return k, true
		}
	}
	return "", false
}
