package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatesGetRate(t *testing.T) {
	rates := NewRates(map[string]map[string]float64{
		"USD": {
			"EUR": 0.92,
			"GBP": 0.79,
		},
	})

	tests := []struct {
		name     string
		from     string
		to       string
		want     float64
		wantErr  bool
	}{
		{
			name: "same_currency",
			from: "USD",
			to:   "USD",
			want: 1,
		},
		{
			name: "direct",
			from: "USD",
			to:   "EUR",
			want: 0.92,
		},
		{
			name: "reciprocal",
			from: "EUR",
			to:   "USD",
			want: 1 / 0.92,
		},
		{
			name: "intermediate",
			from: "EUR",
			to:   "GBP",
			want: 0.79 / 0.92,
		},
		{
			name:    "unknown_rate",
			from:    "USD",
			to:      "JPY",
			wantErr: true,
		},
		{
			name:    "malformed_code",
			from:    "dollars",
			to:      "USD",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rates.GetRate(tt.from, tt.to)
			if tt.wantErr {
				assert.Error(t, err, tt.name)
				return
			}
			assert.NoError(t, err, tt.name)
			assert.InDelta(t, tt.want, got, 1e-9, tt.name)
		})
	}
}

func TestConstantRates(t *testing.T) {
	rates := NewConstantRates()

	rate, err := rates.GetRate("USD", "USD")
	assert.NoError(t, err)
	assert.Equal(t, float64(1), rate)

	_, err = rates.GetRate("USD", "EUR")
	assert.Error(t, err)
	_, ok := err.(ConversionNotFoundError)
	assert.True(t, ok, "expected ConversionNotFoundError")

	assert.Nil(t, rates.GetRates())
}
