package content

import (
	"fmt"
	"math"
	"regexp"
)

// Kind tags a decoded field value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	KindURL
	KindImage
	KindArray
)

// Value is the typed form of a single entry field value. Raw JSON data is
// decoded into this union during validation instead of being checked
// structurally as any-typed maps.
type Value struct {
	Kind  Kind
	Str   string
	Num   float64
	Bool  bool
	Ref   map[string]any // image reference object form
	Items []Value
}

var (
	urlRe = regexp.MustCompile(`(?i)^https?://[^\s/$.?#].[^\s]*$`)
	// ISO-8601 date, optionally with time and zone.
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}:\d{2}(\.\d{1,3})?(Z|[+-]\d{2}:\d{2})?)?$`)
)

func asNumber(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Decode converts a raw JSON value into a typed Value for the given field
// type. itemType is consulted only for arrays (empty means string).
func Decode(raw any, t FieldType, itemType FieldType) (Value, error) {
	switch t {
	case TypeString, TypeTextarea:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("must be a string")
		}
		return Value{Kind: KindString, Str: s}, nil
	case TypeNumber:
		n, ok := asNumber(raw)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return Value{}, fmt.Errorf("must be a number")
		}
		return Value{Kind: KindNumber, Num: n}, nil
	case TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("must be a boolean")
		}
		return Value{Kind: KindBool, Bool: b}, nil
	case TypeDate:
		s, ok := raw.(string)
		if !ok || !dateRe.MatchString(s) {
			return Value{}, fmt.Errorf("must be a valid date")
		}
		return Value{Kind: KindDate, Str: s}, nil
	case TypeURL:
		s, ok := raw.(string)
		if !ok || !urlRe.MatchString(s) {
			return Value{}, fmt.Errorf("must be a valid URL")
		}
		return Value{Kind: KindURL, Str: s}, nil
	case TypeImage:
		// An image is a media id/path string or a loose {id,url} object;
		// no deep shape check.
		switch v := raw.(type) {
		case string:
			return Value{Kind: KindImage, Str: v}, nil
		case map[string]any:
			return Value{Kind: KindImage, Ref: v}, nil
		}
		return Value{}, fmt.Errorf("must be a valid image reference")
	case TypeArray:
		items, ok := raw.([]any)
		if !ok {
			return Value{}, fmt.Errorf("must be an array")
		}
		it := itemType
		if it == "" {
			it = TypeString
		}
		out := Value{Kind: KindArray, Items: make([]Value, 0, len(items))}
		for i, item := range items {
			v, err := Decode(item, it, "")
			if err != nil {
				return Value{}, fmt.Errorf("[%d] %s", i, err)
			}
			out.Items = append(out.Items, v)
		}
		return out, nil
	}
	return Value{}, fmt.Errorf("has unknown type %q", t)
}
