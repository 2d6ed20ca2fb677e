// Package content defines the dynamic collection schema model and the
// validation rules entry data is checked against.
package content

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FieldType enumerates the supported field types.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeTextarea FieldType = "textarea"
	TypeURL      FieldType = "url"
	TypeImage    FieldType = "image"
	TypeArray    FieldType = "array"
)

// ItemTypes lists types allowed as array item types (everything but array).
var itemTypes = map[FieldType]bool{
	TypeString: true, TypeNumber: true, TypeBoolean: true, TypeDate: true,
	TypeTextarea: true, TypeURL: true, TypeImage: true,
}

func validFieldType(t FieldType) bool {
	return itemTypes[t] || t == TypeArray
}

// Field is a single typed attribute definition within a collection schema.
type Field struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Key           string    `json:"key"`
	Type          FieldType `json:"type"`
	Required      bool      `json:"required"`
	Description   string    `json:"description,omitempty"`
	DefaultValue  any       `json:"defaultValue,omitempty"`
	ArrayItemType FieldType `json:"arrayItemType,omitempty"`
}

// Schema is the ordered field list owned by a collection. Schema changes
// replace the whole document atomically.
type Schema struct {
	Fields []Field `json:"fields"`
}

var keyRe = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)

// Validate checks structural invariants: camelCase keys, known types,
// unique keys, arrayItemType only meaningful on array fields.
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %q: name is required", f.Key)
		}
		if !keyRe.MatchString(f.Key) {
			return fmt.Errorf("field key %q must be camelCase", f.Key)
		}
		if seen[f.Key] {
			return fmt.Errorf("field key %q is duplicated", f.Key)
		}
		seen[f.Key] = true
		if !validFieldType(f.Type) {
			return fmt.Errorf("field %q: unknown type %q", f.Key, f.Type)
		}
		if f.Type == TypeArray && f.ArrayItemType != "" && !itemTypes[f.ArrayItemType] {
			return fmt.Errorf("field %q: invalid array item type %q", f.Key, f.ArrayItemType)
		}
	}
	return nil
}

// FieldByID returns the index of the field with the given id, or -1.
func (s Schema) FieldByID(id string) int {
	for i, f := range s.Fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// HasKey reports whether any field other than the one at skip uses key.
func (s Schema) HasKey(key string, skip int) bool {
	for i, f := range s.Fields {
		if i != skip && f.Key == key {
			return true
		}
	}
	return false
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the URL-safe slug for a collection name: lowercase,
// non-alphanumeric runs collapsed to "-", leading/trailing "-" trimmed.
func Slugify(name string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// NewFieldID generates a unique id for a schema field.
func NewFieldID() string {
	return "field_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + strconv.FormatInt(rand.Int63n(1<<47), 36)
}
