package source

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Row is one source record keyed by column name. Absent columns and SQL
// NULLs both read as missing.
type Row map[string]any

func (r Row) Value(column string) (any, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Text returns the string form of the value. NaN floats count as missing.
func (r Row) Text(column string) (string, bool) {
	v, ok := r.Value(column)
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case [16]byte:
		return uuid.UUID(x).String(), true
	case float64:
		if math.IsNaN(x) {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		if math.IsNaN(float64(x)) {
			return "", false
		}
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// Float returns a numeric value as float64. NaN counts as missing.
func (r Row) Float(column string) (float64, bool) {
	v, ok := r.Value(column)
	if !ok {
		return 0, false
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case int16:
		f = float64(x)
	case int8:
		f = float64(x)
	case int:
		f = float64(x)
	case uint64:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint8:
		f = float64(x)
	case *big.Int:
		f, _ = new(big.Float).SetInt(x).Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case interface{ Float64() float64 }:
		// duckdb.Decimal
		f = x.Float64()
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Int returns a numeric value truncated toward zero.
func (r Row) Int(column string) (int64, bool) {
	v, ok := r.Value(column)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case int:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	}
	f, ok := r.Float(column)
	if !ok || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// Bool reads booleans, integer flags and "true"/"false" strings.
func (r Row) Bool(column string) (bool, bool) {
	v, ok := r.Value(column)
	if !ok {
		return false, false
	}
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, false
		}
		return b, true
	}
	if f, ok := r.Float(column); ok {
		return f != 0, true
	}
	return false, false
}
