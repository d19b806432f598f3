package translator

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/planetf1/atlas-sub002/types/omrs"
)

// Properties projects a source attribute map onto the declared attributes.
// Attributes not declared are dropped, as are nil values and references to
// other entities (those travel as relationships). keep, when set, selects
// which declared attributes are carried.
func Properties(declared []omrs.TypeDefAttribute, values map[string]any, keep func(omrs.TypeDefAttribute) bool) (omrs.InstanceProperties, error) {
	props := make(omrs.InstanceProperties)
	for _, attr := range declared {
		if keep != nil && !keep(attr) {
			continue
		}
		if !carriesValue(attr.AttributeType) {
			continue
		}
		raw, ok := values[attr.Name]
		if !ok || raw == nil {
			continue
		}
		v, err := PropertyValue(attr.AttributeType, raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
		}
		props[attr.Name] = v
	}
	return props, nil
}

// carriesValue reports whether typ holds plain values rather than references
// to other entities.
func carriesValue(typ omrs.AttributeTypeDef) bool {
	if typ.Category == omrs.AttributeUnknown {
		return false
	}
	for _, elem := range typ.ElementTypes {
		if !carriesValue(elem) {
			return false
		}
	}
	return true
}

// PropertyValue types a raw source value according to its attribute type.
func PropertyValue(typ omrs.AttributeTypeDef, raw any) (omrs.InstancePropertyValue, error) {
	switch typ.Category {
	case omrs.AttributePrimitive:
		v, err := primitiveValue(typ.Primitive, raw)
		if err != nil {
			return omrs.InstancePropertyValue{}, err
		}
		return omrs.InstancePropertyValue{
			Category:  omrs.PropertyPrimitive,
			TypeName:  typ.Name,
			TypeGUID:  typ.GUID,
			Primitive: typ.Primitive,
			Value:     v,
		}, nil

	case omrs.AttributeEnum:
		symbol, ok := raw.(string)
		if !ok {
			return omrs.InstancePropertyValue{}, fmt.Errorf("enum %s expects a symbol, got %T", typ.Name, raw)
		}
		return omrs.InstancePropertyValue{
			Category: omrs.PropertyEnum,
			TypeName: typ.Name,
			TypeGUID: typ.GUID,
			Symbol:   symbol,
		}, nil

	case omrs.AttributeCollection:
		if typ.Collection == omrs.CollectionMap {
			return mapValue(typ, raw)
		}
		return arrayValue(typ, raw)

	default:
		return omrs.InstancePropertyValue{}, fmt.Errorf("type %s cannot carry a property value", typ.Name)
	}
}

func arrayValue(typ omrs.AttributeTypeDef, raw any) (omrs.InstancePropertyValue, error) {
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return omrs.InstancePropertyValue{}, fmt.Errorf("%s expects a list, got %T", typ.Name, raw)
	}
	if len(typ.ElementTypes) != 1 {
		return omrs.InstancePropertyValue{}, fmt.Errorf("%s has no element type", typ.Name)
	}

	elems := make([]omrs.InstancePropertyValue, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i).Interface()
		if item == nil {
			continue
		}
		v, err := PropertyValue(typ.ElementTypes[0], item)
		if err != nil {
			return omrs.InstancePropertyValue{}, fmt.Errorf("element %d: %w", i, err)
		}
		elems = append(elems, v)
	}
	return omrs.InstancePropertyValue{
		Category: omrs.PropertyArray,
		TypeName: typ.Name,
		Elements: elems,
	}, nil
}

func mapValue(typ omrs.AttributeTypeDef, raw any) (omrs.InstancePropertyValue, error) {
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return omrs.InstancePropertyValue{}, fmt.Errorf("%s expects a map with string keys, got %T", typ.Name, raw)
	}
	if len(typ.ElementTypes) != 2 {
		return omrs.InstancePropertyValue{}, fmt.Errorf("%s has no key and value types", typ.Name)
	}

	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	entries := make(map[string]omrs.InstancePropertyValue, len(keys))
	for _, k := range keys {
		item := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()
		if item == nil {
			continue
		}
		v, err := PropertyValue(typ.ElementTypes[1], item)
		if err != nil {
			return omrs.InstancePropertyValue{}, fmt.Errorf("key %q: %w", k, err)
		}
		entries[k] = v
	}
	return omrs.InstancePropertyValue{
		Category: omrs.PropertyMap,
		TypeName: typ.Name,
		Entries:  entries,
	}, nil
}

// primitiveValue checks the shape of raw and normalises it: integral kinds
// become int64, floating kinds float64, big numbers their decimal string,
// dates epoch milliseconds.
func primitiveValue(prim omrs.PrimitiveCategory, raw any) (any, error) {
	switch prim {
	case omrs.PrimitiveBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("boolean expected, got %T", raw)
		}
		return b, nil

	case omrs.PrimitiveString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("string expected, got %T", raw)
		}
		return s, nil

	case omrs.PrimitiveChar:
		s, ok := raw.(string)
		if !ok || utf8.RuneCountInString(s) != 1 {
			return nil, fmt.Errorf("single character expected, got %v", raw)
		}
		return s, nil

	case omrs.PrimitiveByte:
		return boundedInt(raw, math.MinInt8, math.MaxInt8)
	case omrs.PrimitiveShort:
		return boundedInt(raw, math.MinInt16, math.MaxInt16)
	case omrs.PrimitiveInt:
		return boundedInt(raw, math.MinInt32, math.MaxInt32)
	case omrs.PrimitiveLong:
		return boundedInt(raw, math.MinInt64, math.MaxInt64)

	case omrs.PrimitiveFloat, omrs.PrimitiveDouble:
		f, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("number expected, got %T", raw)
		}
		return f, nil

	case omrs.PrimitiveBigInteger:
		return bigIntegerValue(raw)

	case omrs.PrimitiveBigDecimal:
		if s, ok := raw.(string); ok {
			if _, ok := new(big.Float).SetString(s); !ok {
				return nil, fmt.Errorf("decimal expected, got %q", s)
			}
			return s, nil
		}
		if n, ok := raw.(json.Number); ok {
			return n.String(), nil
		}
		f, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("decimal expected, got %T", raw)
		}
		return big.NewFloat(f).Text('g', -1), nil

	case omrs.PrimitiveDate:
		if ts, ok := raw.(time.Time); ok {
			return ts.UnixMilli(), nil
		}
		return boundedInt(raw, math.MinInt64, math.MaxInt64)

	default:
		return nil, fmt.Errorf("unsupported primitive %s", prim)
	}
}

func boundedInt(raw any, lo, hi int64) (any, error) {
	var i int64
	switch v := raw.(type) {
	case int:
		i = int64(v)
	case int8:
		i = int64(v)
	case int16:
		i = int64(v)
	case int32:
		i = int64(v)
	case int64:
		i = v
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, fmt.Errorf("%d out of range", v)
		}
		i = int64(v)
	case uint8:
		i = int64(v)
	case uint16:
		i = int64(v)
	case uint32:
		i = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("%d out of range", v)
		}
		i = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("integer expected, got %s", v)
		}
		i = n
	case float64:
		n, err := floatToInt(v)
		if err != nil {
			return nil, err
		}
		i = n
	case float32:
		n, err := floatToInt(float64(v))
		if err != nil {
			return nil, err
		}
		i = n
	default:
		return nil, fmt.Errorf("integer expected, got %T", raw)
	}
	if i < lo || i > hi {
		return nil, fmt.Errorf("%d out of range [%d, %d]", i, lo, hi)
	}
	return i, nil
}

// floatToInt rejects fractions and anything outside [-2^63, 2^63). The
// upper bound is exclusive: float64(math.MaxInt64) rounds up to 2^63.
func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		return 0, fmt.Errorf("integer expected, got %v", f)
	}
	return int64(f), nil
}

// bigIntegerValue keeps arbitrary precision for strings and JSON numbers.
func bigIntegerValue(raw any) (any, error) {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case json.Number:
		text = v.String()
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("integer expected, got %v", v)
		}
		n, _ := big.NewFloat(v).Int(nil)
		return n.String(), nil
	default:
		i, err := boundedInt(raw, math.MinInt64, math.MaxInt64)
		if err != nil {
			return nil, err
		}
		return big.NewInt(i.(int64)).String(), nil
	}
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("integer expected, got %q", text)
	}
	return n.String(), nil
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
