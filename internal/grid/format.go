// Package grid implements the tabular data grid shared by the web dashboard
// and the terminal client: column model, sort/filter engine, column resize
// controller, pivot expansion and row rendering.
//
// Nothing in this package performs I/O. Rows arrive already fetched, or
// through a DataSource injected by the caller.
package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Formatter maps a raw cell value of a column to its display string.
type Formatter func(columnKey string, raw any) string

const (
	isoDate     = "2006-01-02"
	displayDate = "02-01-2006"
)

// Literal returns the canonical string of a raw value. Filters and popovers
// compare values through their literal; nil becomes "".
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		return x.String()
	case *decimal.Decimal:
		if x == nil {
			return ""
		}
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(isoDate)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// toFloat reports the numeric value of v. Strings are never numeric.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64(), true
	case *decimal.Decimal:
		if x == nil {
			return 0, false
		}
		return x.InexactFloat64(), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

// toDecimal converts numeric values, and numeric strings, to a decimal.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, false
		}
		return *x, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		return d, err == nil
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// FormatMoney renders an amount in Indian rupees with Indian digit grouping
// and two decimals, e.g. ₹1,23,456.70. A nil amount renders as ₹0.00 and a
// non-numeric value is returned as its literal.
func FormatMoney(v any) string {
	if v == nil {
		return formatINR(decimal.Zero)
	}
	d, ok := toDecimal(v)
	if !ok {
		return Literal(v)
	}
	return formatINR(d)
}

func formatINR(d decimal.Decimal) string {
	d = d.Round(2)
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	b.WriteString(groupIndian(whole))
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// groupIndian groups the last three digits, then pairs: 12345678 -> 1,23,45,678.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append(parts, head[len(head)-2:])
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append(parts, head)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(append(parts, tail), ",")
}

// FormatDate renders an ISO date (YYYY-MM-DD, optionally followed by a time)
// as DD-MM-YYYY. Anything else is returned as its literal.
func FormatDate(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(displayDate)
	}
	s := Literal(v)
	if len(s) < len(isoDate) {
		return s
	}
	t, err := time.Parse(isoDate, s[:len(isoDate)])
	if err != nil {
		return s
	}
	return t.Format(displayDate)
}

// DefaultHeader derives a header from a column key: "debit_amount" -> "Debit Amount".
func DefaultHeader(key string) string {
	// Casers carry state and cannot be shared between goroutines.
	return cases.Title(language.English).String(strings.NewReplacer("_", " ", "-", " ").Replace(key))
}
