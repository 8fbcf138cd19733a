package reflser

import (
	"errors"
	"fmt"
	"sort"
)

type writeState struct {
	s   *Serializer
	doc *Document

	// entity is the full entity chain of the object being written, used
	// to name its sidecars.
	entity EntityID

	// origin is the repository-relative path of doc, if any.
	origin string
}

func (ws *writeState) nested(f *Field) *writeState {
	return &writeState{
		s:      ws.s,
		doc:    ws.doc,
		entity: ws.entity.Child(f.name),
		origin: ws.origin,
	}
}

// Write adds a section for obj to doc and returns its key. Geometry fields
// are stored as sidecars next to doc.Path.
//
// If orig is non-nil, only the fields that differ from it are written. When
// orig was read from another repository document, the section also records
// a reference to it, so that reading the section starts from orig. When orig
// was read from doc itself, it has no bearing on the result and obj is
// written in full.
func (s *Serializer) Write(doc *Document, obj, orig Object, id EntityID, attrs Attributes) (SectionKey, error) {
	if id == "" {
		id = rootEntityID
	}
	ws := &writeState{s: s, doc: doc, entity: id}
	ws.origin, _ = s.repoRelative(doc.Path)
	key, err := s.writeSection(ws, doc.Sections, obj, orig, id, attrs)
	return key, withContext(err, doc.Path, id)
}

func (s *Serializer) writeSection(ws *writeState, sections *Table, obj, orig Object, chain EntityID, attrs Attributes) (SectionKey, error) {
	if isNilObject(obj) {
		panic("reflser: writing a nil object")
	}
	ti := s.reg.TypeOf(obj)
	key, err := EncodeSectionKey(chain, ti.id)
	if err != nil {
		return "", err
	}
	if sections.Has(string(key)) {
		return "", objErrf("", chain, "", ErrMalformed, "section %s is already present", key)
	}
	if err := validateAttributes(attrs); err != nil {
		return "", objErrf("", chain, "", err, "")
	}

	var base Object
	var ref Origin
	if !isNilObject(orig) {
		if oti := s.reg.TypeOf(orig); oti != ti {
			return "", objErrf("", chain, "", ErrTypeMismatch, "original is %v, object is %v", oti, ti)
		}
		base = orig
		if o := *orig.Origin(); !o.IsZero() {
			if ws.origin != "" && o.Path == ws.origin {
				s.logger.Debug("reflser: original comes from the target document, writing in full", "doc", ws.origin, "entity", chain)
				base = nil
			} else {
				ref = o
			}
		} else if o.Detached() {
			s.logger.Debug("reflser: original was read outside of the repository, writing in full", "entity", chain)
			base = nil
		}
	}

	sect := NewTable()
	if !ref.IsZero() {
		sect.Set(originalKey, []any{ref.Path, string(ref.EntityID)})
	}
	for _, f := range ti.fields {
		if err := f.acc.write(ws, f, sect, obj, base); err != nil {
			return "", inField(err, f.name)
		}
	}
	for _, k := range sortedKeys(attrs) {
		sect.Set(attrPrefix+k, attrs[k])
	}
	sections.Set(string(key), sect)
	return key, nil
}

func validateAttributes(attrs Attributes) error {
	for k := range attrs {
		if k == "" {
			return fmt.Errorf("%w: empty attribute name", ErrMalformed)
		}
	}
	return nil
}

func sortedKeys(attrs Attributes) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// inField prefixes the field of an *ObjectError with name, or wraps err
// into an *ObjectError for that field.
func inField(err error, name string) error {
	var oe *ObjectError
	if errors.As(err, &oe) {
		if oe.Field == "" {
			oe.Field = name
		} else if oe.Field != name {
			oe.Field = name + "." + oe.Field
		}
		return err
	}
	return &ObjectError{Field: name, Err: err}
}
