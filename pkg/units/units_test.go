package units

import (
	"math/big"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTokenAmount(t *testing.T) {
	raw, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.5", ToTokenAmount(raw, ETHDecimals).String())

	usdc := big.NewInt(1234567890)
	assert.Equal(t, "1234.56789", ToTokenAmount(usdc, USDCDecimals).String())

	assert.True(t, ToTokenAmount(nil, ETHDecimals).IsZero())
}

func TestFromTokenAmountTruncates(t *testing.T) {
	d := decimal.RequireFromString("1.0000001")
	assert.Equal(t, "1000000", FromTokenAmount(d, USDCDecimals).String())

	neg := decimal.RequireFromString("-2.5")
	assert.Equal(t, "-2500000000000000000", FromTokenAmount(neg, ETHDecimals).String())
}

func TestParseTokenAmount(t *testing.T) {
	d, err := ParseTokenAmount("-2000000000000000000", OSQTHDecimals)
	require.NoError(t, err)
	assert.Equal(t, "-2", d.String())

	d, err = ParseTokenAmount("", USDCDecimals)
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseTokenAmount("1.5", USDCDecimals)
	assert.Error(t, err)
}

func TestSafeDiv(t *testing.T) {
	assert.True(t, SafeDiv(decimal.NewFromInt(5), decimal.Zero).IsZero())
	assert.Equal(t, "0.25", SafeDiv(decimal.NewFromInt(1), decimal.NewFromInt(4)).String())

	third := SafeDiv(decimal.NewFromInt(1), decimal.NewFromInt(3)).String()
	assert.Equal(t, "0."+strings.Repeat("3", int(DivisionScale)), third)
}

func TestStringifyDeps(t *testing.T) {
	type pair struct {
		A string `json:"a"`
		B int    `json:"b"`
	}

	key := StringifyDeps(decimal.RequireFromString("1200.50"), big.NewInt(7), "0xabc", nil, pair{A: "x", B: 2})
	assert.Equal(t, `[1200.5,7,"0xabc",null,{"a":"x","b":2}]`, key)

	assert.Equal(t, StringifyDeps(decimal.RequireFromString("1.0")), StringifyDeps(decimal.NewFromInt(1)))
	assert.NotEqual(t, StringifyDeps("1"), StringifyDeps(1))
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"999.999", "$1,000.00"},
		{"1234.5", "$1,234.50"},
		{"-1234567.891", "-$1,234,567.89"},
		{"100000", "$100,000.00"},
		{"-0.001", "$0.00"},
		{"-0.004999", "$0.00"},
		{"-0.005", "-$0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "20.00%", FormatPercent(decimal.RequireFromString("0.2")))
	assert.Equal(t, "-3.33%", FormatPercent(decimal.RequireFromString("-0.03333")))
}
