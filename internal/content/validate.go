package content

import "fmt"

// Result is the outcome of validating entry data against a schema.
type Result struct {
	Valid  bool
	Errors []string
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	return false
}

// ValidateEntryData checks data against the schema, field by field in
// schema order. All errors are collected so the caller can surface them
// together instead of failing on the first one.
func ValidateEntryData(data map[string]any, schema Schema) Result {
	var errs []string

	for _, f := range schema.Fields {
		raw, present := data[f.Key]

		if f.Required && isEmpty(raw) {
			errs = append(errs, fmt.Sprintf("%s is required", f.Name))
			continue
		}

		// Empty optional values skip type validation.
		if !present || raw == nil {
			continue
		}
		if s, ok := raw.(string); ok && s == "" {
			continue
		}

		if f.Type == TypeArray {
			items, ok := raw.([]any)
			if !ok {
				errs = append(errs, fmt.Sprintf("%s must be an array", f.Name))
				continue
			}
			itemType := f.ArrayItemType
			if itemType == "" {
				itemType = TypeString
			}
			for i, item := range items {
				if _, err := Decode(item, itemType, ""); err != nil {
					errs = append(errs, fmt.Sprintf("%s[%d] %s", f.Name, i, err))
				}
			}
			continue
		}

		if _, err := Decode(raw, f.Type, ""); err != nil {
			errs = append(errs, fmt.Sprintf("%s %s", f.Name, err))
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// ApplyDefaults returns a copy of data with schema defaults filled in for
// fields that are missing or nil. Present values are never overwritten,
// falsy ones included.
func ApplyDefaults(data map[string]any, schema Schema) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, f := range schema.Fields {
		if f.DefaultValue == nil {
			continue
		}
		if v, ok := out[f.Key]; !ok || v == nil {
			out[f.Key] = f.DefaultValue
		}
	}
	return out
}
