package reflser

import (
	"fmt"
	"slices"
)

// Table is a string-keyed map that remembers insertion order, so that
// encoded documents are stable and diffable.
//
// Values are one of: bool, int64, float64, string, []any (holding scalars
// or nested arrays), or *Table.
type Table struct {
	keys   []string
	values map[string]any
}

func NewTable() *Table {
	return &Table{values: make(map[string]any)}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.keys)
}

func (t *Table) Has(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t.values[key]
	return ok
}

func (t *Table) Get(key string) (any, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[key]
	return v, ok
}

// Table returns the nested table stored under key, or nil.
func (t *Table) Table(key string) *Table {
	v, _ := t.Get(key)
	sub, _ := v.(*Table)
	return sub
}

// Set adds or replaces a value. Replacing keeps the original position.
func (t *Table) Set(key string, value any) {
	if err := checkValue(value); err != nil {
		panic(fmt.Errorf("table key %q: %w", key, err))
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

func (t *Table) Delete(key string) {
	if _, ok := t.values[key]; !ok {
		return
	}
	delete(t.values, key)
	t.keys = slices.DeleteFunc(t.keys, func(k string) bool { return k == key })
}

func checkValue(v any) error {
	switch v := v.(type) {
	case bool, int64, float64, string:
		return nil
	case *Table:
		if v == nil {
			return fmt.Errorf("nil table")
		}
		return nil
	case []any:
		for _, item := range v {
			if _, ok := item.(*Table); ok {
				return fmt.Errorf("tables are not allowed inside arrays")
			}
			if err := checkValue(item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}

// Document is a set of sections, keyed by SectionKey, optionally
// associated with a file path. The path locates sidecar files and the
// repository-relative origin of objects read from the document.
type Document struct {
	Path     string
	Sections *Table

	// State is set by LoadDocument and SaveDocument; RolledBack means the
	// file was restored from its backup.
	State DocState
}

func NewDocument(path string) *Document {
	return &Document{Path: path, Sections: NewTable()}
}

// SectionKeys returns the document's section keys in order.
func (doc *Document) SectionKeys() []SectionKey {
	keys := doc.Sections.Keys()
	result := make([]SectionKey, len(keys))
	for i, k := range keys {
		result[i] = SectionKey(k)
	}
	return result
}

func (doc *Document) section(key SectionKey) (*Table, error) {
	v, ok := doc.Sections.Get(string(key))
	if !ok {
		return nil, objErrf(doc.Path, "", "", ErrNotFound, "no section %s", key)
	}
	sect, ok := v.(*Table)
	if !ok {
		return nil, objErrf(doc.Path, "", "", ErrTypeMismatch, "section %s is %s, wanted a table", key, describeValue(v))
	}
	return sect, nil
}

func describeValue(v any) string {
	switch v.(type) {
	case bool:
		return "a bool"
	case int64:
		return "an integer"
	case float64:
		return "a float"
	case string:
		return "a string"
	case []any:
		return "an array"
	case *Table:
		return "a table"
	default:
		return fmt.Sprintf("%T", v)
	}
}
