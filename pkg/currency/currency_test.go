package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, code := range []string{"USD", "GBP", "EUR"} {
		c, ok := Lookup(code)
		require.True(t, ok, code)
		assert.Equal(t, code, c.Code)
		assert.Contains(t, Symbols(), c.Symbol)
	}

	_, ok := Lookup("JPY")
	assert.False(t, ok)
}

func TestPatternCapturesNumber(t *testing.T) {
	usd, _ := Lookup("USD")
	m := usd.Pattern.FindStringSubmatch("from $ 1,234.56 each")
	require.Len(t, m, 2)
	assert.Equal(t, "1,234.56", m[1])
}
