package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/shopspring/decimal"
)

type fieldSpec struct {
	name     string
	nullable bool
}

type ReferenceField struct {
	Field    string
	Table    string
	Nullable bool
}

// FieldValidator declares the typed fields of a derived-state row and
// normalizes rows against that declaration. Steps always run in the same
// order: references, timestamps, decimals, strings.
type FieldValidator struct {
	references []ReferenceField
	timestamps []fieldSpec
	decimals   []fieldSpec
	strings    []fieldSpec
	addresses  map[string]bool
}

func NewFieldValidator() *FieldValidator {
	return &FieldValidator{
		addresses: make(map[string]bool),
	}
}

func (fv *FieldValidator) AddReferenceField(field string, table string, nullable bool) *FieldValidator {
	fv.references = append(fv.references, ReferenceField{Field: field, Table: table, Nullable: nullable})
	return fv
}

func (fv *FieldValidator) AddTimestampField(field string, nullable bool) *FieldValidator {
	fv.timestamps = append(fv.timestamps, fieldSpec{name: field, nullable: nullable})
	return fv
}

func (fv *FieldValidator) AddDecimalField(field string, nullable bool) *FieldValidator {
	fv.decimals = append(fv.decimals, fieldSpec{name: field, nullable: nullable})
	return fv
}

func (fv *FieldValidator) AddStringField(field string, nullable bool) *FieldValidator {
	fv.strings = append(fv.strings, fieldSpec{name: field, nullable: nullable})
	return fv
}

// AddAddressField is a string field that must hold a hex address; the value
// is lowercased.
func (fv *FieldValidator) AddAddressField(field string, nullable bool) *FieldValidator {
	fv.addresses[field] = true
	return fv.AddStringField(field, nullable)
}

func (fv *FieldValidator) References() []ReferenceField {
	return fv.references
}

// Validate returns a normalized copy of row. On failure the input row is left
// untouched and the error is a *ValidationError or *ReferenceResolutionError.
func (fv *FieldValidator) Validate(ctx context.Context, row storage.Row, resolver *ReferenceResolver) (storage.Row, error) {
	out := row.Copy()

	for _, ref := range fv.references {
		v, present := out[ref.Field]
		if !present || v == nil {
			if ref.Nullable {
				out[ref.Field] = nil
				continue
			}
			return nil, &ValidationError{Field: ref.Field, Reason: "reference is required"}
		}
		id, ok := v.(string)
		if !ok || id == "" {
			return nil, &ValidationError{Field: ref.Field, Reason: fmt.Sprintf("reference must be a non-empty string, got %T", v)}
		}
		if resolver == nil {
			continue
		}
		if err := resolver.EnsureExists(ctx, ref.Table, id); err != nil {
			return nil, &ReferenceResolutionError{Field: ref.Field, Table: ref.Table, Id: id, Err: err}
		}
	}

	for _, f := range fv.timestamps {
		if err := coerceField(out, f, coerceTimestamp); err != nil {
			return nil, err
		}
	}
	for _, f := range fv.decimals {
		if err := coerceField(out, f, coerceDecimal); err != nil {
			return nil, err
		}
	}
	for _, f := range fv.strings {
		coerce := coerceString
		if fv.addresses[f.name] {
			coerce = coerceAddress
		}
		if err := coerceField(out, f, coerce); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func coerceField(row storage.Row, f fieldSpec, coerce func(v interface{}) (interface{}, error)) error {
	v, present := row[f.name]
	if !present || isNil(v) {
		if f.nullable {
			row[f.name] = nil
			return nil
		}
		return &ValidationError{Field: f.name, Reason: "value is required"}
	}
	coerced, err := coerce(v)
	if err != nil {
		return &ValidationError{Field: f.name, Reason: err.Error()}
	}
	row[f.name] = coerced
	return nil
}

func isNil(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *time.Time:
		return t == nil
	case *string:
		return t == nil
	case *uint64:
		return t == nil
	case *decimal.Decimal:
		return t == nil
	case *big.Int:
		return t == nil
	}
	return false
}

// coerceTimestamp accepts integer epoch seconds or time values; results are UTC.
func coerceTimestamp(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		return t.UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case int:
		return time.Unix(int64(t), 0).UTC(), nil
	case uint64:
		return time.Unix(int64(t), 0).UTC(), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return nil, fmt.Errorf("timestamp '%s' is not an integer epoch", t)
		}
		return time.Unix(n, 0).UTC(), nil
	default:
		return nil, fmt.Errorf("expected epoch seconds or timestamp, got %T", v)
	}
}

func coerceDecimal(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case *decimal.Decimal:
		return *t, nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case uint64:
		return decimal.NewFromUint64(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case *big.Int:
		return decimal.NewFromBigInt(t, 0), nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return nil, fmt.Errorf("'%s' is not numeric", t)
		}
		return d, nil
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not numeric", t)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("expected a numeric value, got %T", v)
	}
}

func coerceString(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case *string:
		return *t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	case int, int64, uint64:
		return fmt.Sprintf("%d", t), nil
	default:
		return nil, fmt.Errorf("expected a string, got %T", v)
	}
}

func coerceAddress(v interface{}) (interface{}, error) {
	s, err := coerceString(v)
	if err != nil {
		return nil, err
	}
	str := s.(string)
	if !isHexAddress(str) {
		return nil, fmt.Errorf("'%s' is not a hex address", str)
	}
	return NormalizeAddress(str), nil
}
