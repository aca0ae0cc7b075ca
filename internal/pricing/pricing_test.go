package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

var policy = Policy{DefaultCurrency: "IDR", Currencies: []string{"IDR", "USD"}}

func TestNormalize(t *testing.T) {
	out := Normalize(models.Prices{
		{Tier: "VIP", Currency: "usd", Amount: 10},
		{Tier: "", Currency: " idr ", Amount: 1000},
		{Tier: "vip", Currency: "IDR", Amount: 2000},
	})

	assert.Equal(t, models.Prices{
		{Tier: "standard", Currency: "IDR", Amount: 1000},
		{Tier: "vip", Currency: "IDR", Amount: 2000},
		{Tier: "vip", Currency: "USD", Amount: 10},
	}, out)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		prices  models.Prices
		wantErr string
	}{
		{name: "valid", prices: models.Prices{{Currency: "IDR", Amount: 50000}, {Currency: "usd", Amount: 300}}},
		{name: "empty", prices: nil, wantErr: "at least one price"},
		{name: "unknown currency", prices: models.Prices{{Currency: "IDR", Amount: 1}, {Currency: "XYZ", Amount: 1}}, wantErr: "unknown currency"},
		{name: "not enabled", prices: models.Prices{{Currency: "IDR", Amount: 1}, {Currency: "EUR", Amount: 1}}, wantErr: "not enabled"},
		{name: "negative", prices: models.Prices{{Currency: "IDR", Amount: -1}}, wantErr: "must not be negative"},
		{name: "duplicate pair", prices: models.Prices{{Currency: "IDR", Amount: 1}, {Tier: "standard", Currency: "idr", Amount: 2}}, wantErr: "duplicate price"},
		{name: "missing default", prices: models.Prices{{Currency: "USD", Amount: 1}}, wantErr: "a price in IDR is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Validate(tt.prices, policy)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Len(t, out, len(tt.prices))
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeCurrencies(t *testing.T) {
	out, err := NormalizeCurrencies([]string{"usd", "IDR", "USD"})
	require.NoError(t, err)
	assert.Equal(t, []string{"IDR", "USD"}, out)

	_, err = NormalizeCurrencies([]string{"dollars"})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestQuote(t *testing.T) {
	prices := models.Prices{
		{Tier: "standard", Currency: "IDR", Amount: 1000},
		{Tier: "vip", Currency: "IDR", Amount: 2500},
	}

	amount, err := Quote(prices, "vip", "idr")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), amount)

	amount, err = Quote(prices, "student", "IDR")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), amount)

	_, err = Quote(prices, "vip", "USD")
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "USD 1,234.50", Format(123450, "USD"))
	assert.Equal(t, "JPY 5,000", Format(5000, "JPY"))
}
