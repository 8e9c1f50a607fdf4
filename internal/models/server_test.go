package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestServer_DerivedPrices(t *testing.T) {
	tests := []struct {
		monthly string
		hourly  string
		daily   string
	}{
		{"720.00", "1.00", "24.00"},
		{"30.00", "0.04", "1.00"},
		{"15.00", "0.02", "0.50"},
		{"5.00", "0.01", "0.17"},
		{"10.50", "0.01", "0.35"},
		{"0.00", "0.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.monthly, func(t *testing.T) {
			s := &Server{Price: decimal.RequireFromString(tt.monthly)}
			assert.True(t, s.PricePerHour().Equal(decimal.RequireFromString(tt.hourly)),
				"hourly: got %s want %s", s.PricePerHour(), tt.hourly)
			assert.True(t, s.PricePerDay().Equal(decimal.RequireFromString(tt.daily)),
				"daily: got %s want %s", s.PricePerDay(), tt.daily)
		})
	}
}
