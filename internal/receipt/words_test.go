package receipt

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmountInWords(t *testing.T) {
	cases := []struct {
		amount string
		want   string
	}{
		{"0", "Rupees Zero Only"},
		{"0.001", "Rupees Zero Only"},
		{"1", "Rupees One Only"},
		{"15", "Rupees Fifteen Only"},
		{"40", "Rupees Forty Only"},
		{"99", "Rupees Ninety Nine Only"},
		{"100", "Rupees One Hundred Only"},
		{"1500", "Rupees One Thousand Five Hundred Only"},
		{"2500.00", "Rupees Two Thousand Five Hundred Only"},
		{"12345", "Rupees Twelve Thousand Three Hundred Forty Five Only"},
		{"100000", "Rupees One Lakh Only"},
		{"120000", "Rupees One Lakh Twenty Thousand Only"},
		{"9999999", "Rupees Ninety Nine Lakh Ninety Nine Thousand Nine Hundred Ninety Nine Only"},
		{"10000000", "Rupees One Crore Only"},
		{"123456789", "Rupees Twelve Crore Thirty Four Lakh Fifty Six Thousand Seven Hundred Eighty Nine Only"},
		{"12000000000", "Rupees One Thousand Two Hundred Crore Only"},
		{"1500.50", "Rupees One Thousand Five Hundred and Fifty Paise Only"},
		{"0.75", "Rupees Zero and Seventy Five Paise Only"},
		{"10.005", "Rupees Ten and One Paise Only"},
	}

	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			assert.Equal(t, tc.want, AmountInWords(decimal.RequireFromString(tc.amount)))
		})
	}
}
