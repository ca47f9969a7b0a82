package extract

import (
	"testing"

	"ticket-hunter/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPrice_CurrencyPriority(t *testing.T) {
	t.Run("falls through to GBP", func(t *testing.T) {
		ex := ExtractPrice("Tickets from £75.00 per seat", []string{"USD", "GBP"})

		require.True(t, ex.Price.Valid)
		assert.Equal(t, "GBP", ex.Currency)
		assert.True(t, ex.Price.Decimal.Equal(decimal.RequireFromString("75.00")))
		assert.Equal(t, "£75.00", ex.PriceText)
	})

	t.Run("USD wins over GBP", func(t *testing.T) {
		ex := ExtractPrice("£40.00 resale, $120.50 face value, £35.00", []string{"USD", "GBP"})

		require.True(t, ex.Price.Valid)
		assert.Equal(t, "USD", ex.Currency)
		assert.True(t, ex.Price.Decimal.Equal(decimal.RequireFromString("120.50")))
		assert.Equal(t, []string{"$120.50"}, ex.Matches)
	})

	t.Run("currency not in the profile is ignored", func(t *testing.T) {
		ex := ExtractPrice("€99.99", []string{"USD", "GBP"})
		assert.False(t, ex.Price.Valid)
		assert.Empty(t, ex.Currency)
	})

	t.Run("unknown codes are skipped", func(t *testing.T) {
		ex := ExtractPrice("€99.99", []string{"JPY", "EUR"})
		require.True(t, ex.Price.Valid)
		assert.Equal(t, "EUR", ex.Currency)
	})
}

func TestExtractPrice_NumericParsing(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		valid bool
	}{
		{"thousands separator", "$1,234.56", "1234.56", true},
		{"pounds", "£75.00", "75.00", true},
		{"euros", "€99.99", "99.99", true},
		{"whole amount", "$ 250", "250", true},
		{"no symbol", "1,234.56 dollars", "", false},
		{"symbol without digits", "$ and £ only", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := ExtractPrice(tt.text, []string{"USD", "GBP", "EUR"})
			require.Equal(t, tt.valid, ex.Price.Valid)
			if tt.valid {
				assert.True(t, ex.Price.Decimal.Equal(decimal.RequireFromString(tt.want)),
					"got %s", ex.Price.Decimal)
			}
		})
	}
}

func TestExtractPrice_FirstMatchInDocumentOrder(t *testing.T) {
	ex := ExtractPrice("$310.00 $95.00 $120.00", []string{"USD"})

	require.True(t, ex.Price.Valid)
	assert.True(t, ex.Price.Decimal.Equal(decimal.RequireFromString("310")))
	assert.Equal(t, []string{"$310.00", "$95.00", "$120.00"}, ex.Matches)
}

func TestExtractPriceWithPolicy_Lowest(t *testing.T) {
	ex := ExtractPriceWithPolicy("$310.00 $95.00 $120.00", []string{"USD"}, LowestMatch)

	require.True(t, ex.Price.Valid)
	assert.True(t, ex.Price.Decimal.Equal(decimal.RequireFromString("95")))
	assert.Equal(t, "$95.00", ex.PriceText)
}

func TestExtractPrice_MatchesCappedAtTen(t *testing.T) {
	text := ""
	for i := 1; i <= 15; i++ {
		text += " $" + decimal.NewFromInt(int64(i)).String() + ".00"
	}

	ex := ExtractPrice(text, []string{"USD"})

	assert.Len(t, ex.Matches, 10)
	assert.Equal(t, "$1.00", ex.Matches[0])
}

func TestClassifyAvailability(t *testing.T) {
	price := decimal.NewNullDecimal(decimal.RequireFromString("80"))
	keywords := []string{"sold out", "view 0 listings"}

	tests := []struct {
		name  string
		text  string
		price decimal.NullDecimal
		want  models.Availability
	}{
		{"sold out beats price", "Was $80.00 - SOLD OUT", price, models.SoldOut},
		{"site specific phrase", "View 0 Listings", decimal.NullDecimal{}, models.SoldOut},
		{"price without banner", "Now $80.00", price, models.Available},
		{"nothing", "Welcome", decimal.NullDecimal{}, models.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAvailability(tt.text, tt.price, keywords))
		})
	}
}

func TestClassifyAvailability_DefaultKeywords(t *testing.T) {
	got := ClassifyAvailability("This event has ended.", decimal.NullDecimal{}, nil)
	assert.Equal(t, models.SoldOut, got)
}
