package content

import "fmt"

// FieldUpdate is a partial patch for an existing field. Nil pointers leave
// the attribute untouched. DefaultValue uses a presence flag since nil is
// a meaningful value for it.
type FieldUpdate struct {
	Name            *string
	Key             *string
	Type            *FieldType
	Required        *bool
	Description     *string
	DefaultValue    any
	HasDefaultValue bool
	ArrayItemType   *FieldType
}

// AddField appends a field to the schema, assigning it a generated id.
// Fails if the key is already taken.
func AddField(s Schema, f Field) (Schema, error) {
	if s.HasKey(f.Key, -1) {
		return s, fmt.Errorf("a field with key %q already exists", f.Key)
	}
	f.ID = NewFieldID()
	out := Schema{Fields: append(append([]Field(nil), s.Fields...), f)}
	if err := out.Validate(); err != nil {
		return s, err
	}
	return out, nil
}

// UpdateField patches the field with the given id. Renaming the key onto
// another field's key is rejected.
func UpdateField(s Schema, fieldID string, upd FieldUpdate) (Schema, error) {
	idx := s.FieldByID(fieldID)
	if idx < 0 {
		return s, fmt.Errorf("field not found")
	}
	if upd.Key != nil && s.HasKey(*upd.Key, idx) {
		return s, fmt.Errorf("a field with key %q already exists", *upd.Key)
	}

	fields := append([]Field(nil), s.Fields...)
	f := fields[idx]
	if upd.Name != nil {
		f.Name = *upd.Name
	}
	if upd.Key != nil {
		f.Key = *upd.Key
	}
	if upd.Type != nil {
		f.Type = *upd.Type
	}
	if upd.Required != nil {
		f.Required = *upd.Required
	}
	if upd.Description != nil {
		f.Description = *upd.Description
	}
	if upd.HasDefaultValue {
		f.DefaultValue = upd.DefaultValue
	}
	if upd.ArrayItemType != nil {
		f.ArrayItemType = *upd.ArrayItemType
	}
	fields[idx] = f

	out := Schema{Fields: fields}
	if err := out.Validate(); err != nil {
		return s, err
	}
	return out, nil
}

// RemoveField drops the field with the given id. Entry data stored under
// the removed key is left in place; validation simply ignores it.
func RemoveField(s Schema, fieldID string) Schema {
	fields := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.ID != fieldID {
			fields = append(fields, f)
		}
	}
	return Schema{Fields: fields}
}

// ReorderFields rebuilds the field list in the order given by fieldIDs.
// Fields not named in the list keep their original relative order at the
// end, so a stale reorder request cannot silently drop fields.
func ReorderFields(s Schema, fieldIDs []string) Schema {
	byID := make(map[string]Field, len(s.Fields))
	for _, f := range s.Fields {
		byID[f.ID] = f
	}
	named := make(map[string]bool, len(fieldIDs))
	fields := make([]Field, 0, len(s.Fields))
	for _, id := range fieldIDs {
		if f, ok := byID[id]; ok {
			fields = append(fields, f)
			named[id] = true
		}
	}
	for _, f := range s.Fields {
		if !named[f.ID] {
			fields = append(fields, f)
		}
	}
	return Schema{Fields: fields}
}

// ReplaceSchema validates a full incoming schema for bulk replacement,
// assigning ids to fields that arrive without one.
func ReplaceSchema(incoming Schema) (Schema, error) {
	fields := append([]Field(nil), incoming.Fields...)
	for i := range fields {
		if fields[i].ID == "" {
			fields[i].ID = NewFieldID()
		}
	}
	out := Schema{Fields: fields}
	if err := out.Validate(); err != nil {
		return Schema{}, err
	}
	return out, nil
}
