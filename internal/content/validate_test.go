package content

import (
	"strings"
	"testing"
)

func articleSchema() Schema {
	return Schema{Fields: []Field{
		{ID: "f1", Name: "title", Key: "title", Type: TypeString, Required: true},
		{ID: "f2", Name: "views", Key: "views", Type: TypeNumber},
		{ID: "f3", Name: "tags", Key: "tags", Type: TypeArray, ArrayItemType: TypeString},
	}}
}

func TestValidateEntryData_CollectsAllErrors(t *testing.T) {
	res := ValidateEntryData(map[string]any{
		"views": "abc",
		"tags":  []any{"ok", float64(5)},
	}, articleSchema())

	if res.Valid {
		t.Fatalf("expected invalid result")
	}
	if len(res.Errors) < 3 {
		t.Fatalf("expected >=3 errors, got %v", res.Errors)
	}
	joined := strings.Join(res.Errors, "; ")
	for _, want := range []string{"title is required", "views must be a number", "tags[1] must be a string"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing error %q in %q", want, joined)
		}
	}
}

func TestValidateEntryData_EmptyOptionalSkipsTypeCheck(t *testing.T) {
	schema := Schema{Fields: []Field{
		{ID: "f1", Name: "homepage", Key: "homepage", Type: TypeURL},
		{ID: "f2", Name: "published", Key: "published", Type: TypeDate},
	}}
	res := ValidateEntryData(map[string]any{"homepage": "", "published": nil}, schema)
	if !res.Valid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
}

func TestValidateEntryData_RequiredEmptyStopsFieldValidation(t *testing.T) {
	schema := Schema{Fields: []Field{
		{ID: "f1", Name: "tags", Key: "tags", Type: TypeArray, Required: true},
	}}
	res := ValidateEntryData(map[string]any{"tags": []any{}}, schema)
	if res.Valid || len(res.Errors) != 1 || res.Errors[0] != "tags is required" {
		t.Fatalf("got %v", res.Errors)
	}
}

func TestValidateEntryData_TypeDispatch(t *testing.T) {
	cases := []struct {
		name  string
		field Field
		value any
		ok    bool
	}{
		{"string ok", Field{Name: "s", Key: "v", Type: TypeString}, "hi", true},
		{"textarea not string", Field{Name: "s", Key: "v", Type: TypeTextarea}, float64(1), false},
		{"bool ok", Field{Name: "b", Key: "v", Type: TypeBoolean}, true, true},
		{"bool not bool", Field{Name: "b", Key: "v", Type: TypeBoolean}, "true", false},
		{"date plain", Field{Name: "d", Key: "v", Type: TypeDate}, "2024-03-01", true},
		{"date with time", Field{Name: "d", Key: "v", Type: TypeDate}, "2024-03-01T10:30:00Z", true},
		{"date with offset", Field{Name: "d", Key: "v", Type: TypeDate}, "2024-03-01T10:30:00+02:00", true},
		{"date garbage", Field{Name: "d", Key: "v", Type: TypeDate}, "yesterday", false},
		{"url ok", Field{Name: "u", Key: "v", Type: TypeURL}, "https://example.com/a?b=c", true},
		{"url case-insensitive scheme", Field{Name: "u", Key: "v", Type: TypeURL}, "HTTP://example.com", true},
		{"url no scheme", Field{Name: "u", Key: "v", Type: TypeURL}, "example.com", false},
		{"image string", Field{Name: "i", Key: "v", Type: TypeImage}, "cms/uploads/x.png", true},
		{"image object", Field{Name: "i", Key: "v", Type: TypeImage}, map[string]any{"id": "1", "url": "x"}, true},
		{"image number", Field{Name: "i", Key: "v", Type: TypeImage}, float64(7), false},
		{"array default item type", Field{Name: "a", Key: "v", Type: TypeArray}, []any{"x", "y"}, true},
		{"array not array", Field{Name: "a", Key: "v", Type: TypeArray}, "x", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateEntryData(map[string]any{"v": tc.value}, Schema{Fields: []Field{tc.field}})
			if res.Valid != tc.ok {
				t.Fatalf("valid=%v, errors=%v", res.Valid, res.Errors)
			}
		})
	}
}

func TestApplyDefaults_PreservesFalsyValues(t *testing.T) {
	schema := Schema{Fields: []Field{
		{ID: "f1", Name: "count", Key: "count", Type: TypeNumber, DefaultValue: float64(5)},
	}}

	got := ApplyDefaults(map[string]any{"count": float64(0)}, schema)
	if got["count"] != float64(0) {
		t.Fatalf("explicit zero overwritten: %v", got["count"])
	}

	got = ApplyDefaults(map[string]any{}, schema)
	if got["count"] != float64(5) {
		t.Fatalf("default not applied: %v", got["count"])
	}
}

func TestApplyDefaults_DoesNotMutateInput(t *testing.T) {
	schema := Schema{Fields: []Field{
		{ID: "f1", Name: "count", Key: "count", Type: TypeNumber, DefaultValue: float64(5)},
	}}
	in := map[string]any{}
	_ = ApplyDefaults(in, schema)
	if len(in) != 0 {
		t.Fatalf("input mutated: %v", in)
	}
}
