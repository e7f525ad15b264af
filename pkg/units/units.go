// Package units converts between on-chain integer token amounts and decimals and
// provides the small helpers shared by the PnL and payoff code.
package units

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Token decimals used by the squeeth contracts.
const (
	ETHDecimals   int32 = 18
	OSQTHDecimals int32 = 18
	USDCDecimals  int32 = 6
)

// DivisionScale is the number of fractional digits kept by every division.
const DivisionScale int32 = 78

// ToTokenAmount converts a base-unit integer into a token amount.
func ToTokenAmount(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// FromTokenAmount converts a token amount back into base units, truncating toward zero.
func FromTokenAmount(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// ParseTokenAmount parses a base-10 integer string of base units.
func ParseTokenAmount(s string, decimals int32) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid integer amount %q", s)
	}
	return ToTokenAmount(raw, decimals), nil
}

// SafeDiv returns a/b, or zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, DivisionScale)
}

// StringifyDeps renders its arguments as a stable string, suitable as a cache key.
func StringifyDeps(deps ...interface{}) string {
	parts := make([]string, len(deps))
	for i, dep := range deps {
		parts[i] = stringifyDep(dep)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func stringifyDep(dep interface{}) string {
	switch v := dep.(type) {
	case nil:
		return "null"
	case decimal.Decimal:
		return v.String()
	case *decimal.Decimal:
		if v == nil {
			return "null"
		}
		return v.String()
	case *big.Int:
		if v == nil {
			return "null"
		}
		return v.String()
	case string:
		return fmt.Sprintf("%q", v)
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return fmt.Sprint(v)
	case fmt.Stringer:
		return v.String()
	}
	b, err := json.Marshal(dep)
	if err != nil {
		return fmt.Sprintf("%#v", dep)
	}
	return string(b)
}

// FormatCurrency renders d as US dollars with thousands separators, e.g. -$1,234.56.
func FormatCurrency(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

// FormatPercent renders a ratio as a percentage with two decimals, e.g. 0.2 -> 20.00%.
func FormatPercent(ratio decimal.Decimal) string {
	return ratio.Shift(2).StringFixed(2) + "%"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
