// Package registry tracks which fields of which entity types are diffed,
// and owns the text<->native conversion for each field kind.
package registry

import (
	"fmt"
	"strconv"
	"sync"
)

// NullLiteral is the textual placeholder for an absent value. A nullable
// field whose text form equals this literal coerces to nil. The literal is
// part of the stored delta format and must not change once deltas exist.
const NullLiteral = "<null>"

// Kind is the closed set of field value kinds. Each kind carries its own
// text-to-native parser; everything is diffed in text form.
type Kind int

const (
	KindText Kind = iota
	KindBool
	KindInt
	KindFloat
)

// String returns the kind name used in config files and CLI arguments.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses a kind name as written in config files and CLI arguments.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "text", "":
		return KindText, nil
	case "bool":
		return KindBool, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	}
	return KindText, fmt.Errorf("unknown field kind %q", s)
}

// Field describes one tracked field of an entity type.
type Field struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// Coerce converts a field's text representation back to its native value.
// Nullable fields map the null literal to nil; boolean fields map the
// true/false tokens; the remaining kinds go through their own parser.
func (f Field) Coerce(text string) (any, error) {
	if f.Nullable && text == NullLiteral {
		return nil, nil
	}
	switch f.Kind {
	case KindText:
		return text, nil
	case KindBool:
		switch text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("field %s: %q is not a boolean token", f.Name, text)
	case KindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return n, nil
	case KindFloat:
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return n, nil
	}
	return nil, fmt.Errorf("field %s: unsupported kind %v", f.Name, f.Kind)
}

// Format renders a native value into the text representation used for
// diffing. Format and Field.Coerce round-trip for every supported kind.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return NullLiteral
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Registry holds the ordered tracked-field sets per entity type.
// Registration order is the display order for rendered diffs.
type Registry struct {
	mu    sync.RWMutex
	types map[string][]Field
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{types: make(map[string][]Field)}
}

// Register declares the tracked fields for an entity type, replacing any
// previous registration for that type.
func (r *Registry) Register(typeName string, fields ...Field) error {
	if typeName == "" {
		return fmt.Errorf("entity type name must not be empty")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("type %s: field name must not be empty", typeName)
		}
		if seen[f.Name] {
			return fmt.Errorf("type %s: duplicate field %q", typeName, f.Name)
		}
		seen[f.Name] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typeName] = append([]Field(nil), fields...)
	return nil
}

// Tracked reports whether the entity type has any tracked fields.
func (r *Registry) Tracked(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types[typeName]) > 0
}

// Fields returns the tracked fields for an entity type in registration order.
func (r *Registry) Fields(typeName string) []Field {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Field(nil), r.types[typeName]...)
}

// Lookup finds a tracked field by entity type and field name.
func (r *Registry) Lookup(typeName, fieldName string) (Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.types[typeName] {
		if f.Name == fieldName {
			return f, true
		}
	}
	return Field{}, false
}

// Types returns the registered entity type names in unspecified order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}
