package content

import "testing"

func baseSchema() Schema {
	return Schema{Fields: []Field{
		{ID: "a", Name: "Title", Key: "title", Type: TypeString, Required: true},
		{ID: "b", Name: "Views", Key: "views", Type: TypeNumber},
		{ID: "c", Name: "Tags", Key: "tags", Type: TypeArray, ArrayItemType: TypeString},
	}}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Blog Posts":     "blog-posts",
		"  Hello  World": "hello-world",
		"FAQ's & More!!": "faq-s-more",
		"already-fine":   "already-fine",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddField_RejectsDuplicateKey(t *testing.T) {
	s := baseSchema()
	if _, err := AddField(s, Field{Name: "Title 2", Key: "title", Type: TypeString}); err == nil {
		t.Fatalf("expected duplicate key error")
	}
	out, err := AddField(s, Field{Name: "Summary", Key: "summary", Type: TypeTextarea})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(out.Fields) != 4 || out.Fields[3].ID == "" {
		t.Fatalf("field not appended with generated id: %+v", out.Fields)
	}
	if len(s.Fields) != 3 {
		t.Fatalf("input schema mutated")
	}
}

func TestUpdateField_KeyCollision(t *testing.T) {
	s := baseSchema()
	key := "views"
	if _, err := UpdateField(s, "a", FieldUpdate{Key: &key}); err == nil {
		t.Fatalf("expected collision error")
	}
	// renaming a field's key to itself is fine
	same := "title"
	if _, err := UpdateField(s, "a", FieldUpdate{Key: &same}); err != nil {
		t.Fatalf("self rename rejected: %v", err)
	}
}

func TestUpdateField_PartialPatch(t *testing.T) {
	s := baseSchema()
	req := true
	out, err := UpdateField(s, "b", FieldUpdate{Required: &req, DefaultValue: float64(1), HasDefaultValue: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	f := out.Fields[1]
	if !f.Required || f.DefaultValue != float64(1) || f.Name != "Views" {
		t.Fatalf("patch applied wrong: %+v", f)
	}
}

func TestRemoveField(t *testing.T) {
	out := RemoveField(baseSchema(), "b")
	if len(out.Fields) != 2 || out.Fields[0].ID != "a" || out.Fields[1].ID != "c" {
		t.Fatalf("got %+v", out.Fields)
	}
	// unknown id is a no-op
	if got := RemoveField(baseSchema(), "nope"); len(got.Fields) != 3 {
		t.Fatalf("unknown id removed something")
	}
}

func TestReorderFields_AppendsUnnamedFields(t *testing.T) {
	out := ReorderFields(baseSchema(), []string{"c", "a"})
	ids := []string{out.Fields[0].ID, out.Fields[1].ID, out.Fields[2].ID}
	if ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Fatalf("order = %v", ids)
	}
	// ids not in the schema are ignored
	out = ReorderFields(baseSchema(), []string{"zz", "b"})
	if out.Fields[0].ID != "b" || len(out.Fields) != 3 {
		t.Fatalf("order = %+v", out.Fields)
	}
}

func TestReplaceSchema_RejectsDuplicateKeys(t *testing.T) {
	_, err := ReplaceSchema(Schema{Fields: []Field{
		{Name: "A", Key: "dup", Type: TypeString},
		{Name: "B", Key: "dup", Type: TypeNumber},
	}})
	if err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestReplaceSchema_AssignsMissingIDs(t *testing.T) {
	out, err := ReplaceSchema(Schema{Fields: []Field{
		{Name: "A", Key: "alpha", Type: TypeString},
		{ID: "keep", Name: "B", Key: "beta", Type: TypeNumber},
	}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if out.Fields[0].ID == "" || out.Fields[1].ID != "keep" {
		t.Fatalf("ids wrong: %+v", out.Fields)
	}
}

func TestSchemaValidate_KeyFormat(t *testing.T) {
	bad := Schema{Fields: []Field{{ID: "x", Name: "X", Key: "Not_Camel", Type: TypeString}}}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected camelCase error")
	}
	ok := Schema{Fields: []Field{{ID: "x", Name: "X", Key: "camelCase9", Type: TypeString}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}
