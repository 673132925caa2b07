package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Row is a derived-state row keyed by column name.
type Row map[string]interface{}

func (r Row) Copy() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the column as a string. Byte slices are converted; nil is
// reported as absent.
func (r Row) String(col string) (string, bool) {
	switch v := r[col].(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

func (r Row) Time(col string) (time.Time, bool) {
	switch v := r[col].(type) {
	case time.Time:
		return v.UTC(), true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return v.UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	default:
		return time.Time{}, false
	}
}

func (r Row) Decimal(col string) (decimal.Decimal, bool) {
	switch v := r[col].(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint64:
		return decimal.NewFromUint64(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func (r Row) Uint64(col string) (uint64, bool) {
	switch v := r[col].(type) {
	case uint64:
		return v, true
	case *uint64:
		if v == nil {
			return 0, false
		}
		return *v, true
	case int64:
		return uint64(v), v >= 0
	case int:
		return uint64(v), v >= 0
	case int32:
		return uint64(v), v >= 0
	case []byte:
		n, err := strconv.ParseUint(string(v), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil
	default:
		d, ok := r.Decimal(col)
		if !ok || d.IsNegative() {
			return 0, false
		}
		return uint64(d.IntPart()), true
	}
}

func (r Row) Bool(col string) (bool, bool) {
	switch v := r[col].(type) {
	case bool:
		return v, true
	case *bool:
		if v == nil {
			return false, false
		}
		return *v, true
	default:
		return false, false
	}
}
