package reflser

import (
	"fmt"
	"path/filepath"
	"strings"
)

type readState struct {
	s   *Serializer
	doc *Document

	// entity is the full entity chain of the object being read, used to
	// find its sidecars.
	entity   EntityID
	inNested bool

	// visiting holds the documents and entities on the current original
	// reference chain.
	visiting map[string]bool
}

func (rs *readState) nested(f *Field, sub *Table) *readState {
	return &readState{
		s:        rs.s,
		doc:      &Document{Path: rs.doc.Path, Sections: sub},
		entity:   rs.entity.Child(f.name),
		inNested: true,
		visiting: rs.visiting,
	}
}

// Read reconstructs the object stored under entity id in doc. If its
// section references an original, the original is read first and the
// section's fields are applied on top of it.
//
// Objects read from a document under the repository root remember the
// document's repository-relative path and id as their Origin.
func (s *Serializer) Read(doc *Document, id EntityID) (Object, error) {
	if id == "" {
		id = rootEntityID
	}
	rs := &readState{s: s, doc: doc, entity: id, visiting: make(map[string]bool)}
	if rel, ok := s.repoRelative(doc.Path); ok {
		rs.visiting[visitKey(rel, id)] = true
	}
	obj, err := s.readObject(rs, id)
	return obj, withContext(err, doc.Path, id)
}

// Read is a typed version of Serializer.Read.
func Read[T Object](s *Serializer, doc *Document, id EntityID) (T, error) {
	var zero T
	obj, err := s.Read(doc, id)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, objErrf(doc.Path, id, "", ErrTypeMismatch, "got %v, wanted %T", s.reg.TypeOf(obj), zero)
	}
	return t, nil
}

func (s *Serializer) readObject(rs *readState, id EntityID) (Object, error) {
	key, err := Locate(rs.doc.Sections, id)
	if err != nil {
		return nil, objErrf("", id, "", err, "")
	}
	sect, err := rs.doc.section(key)
	if err != nil {
		return nil, err
	}
	_, typeID, err := DecodeSectionKey(key)
	if err != nil {
		return nil, err
	}
	ti, ok := s.reg.Type(typeID)
	if !ok {
		return nil, objErrf("", id, "", ErrUnknownType, "section %s", key)
	}

	var obj Object
	var hasOrig bool
	if v, ok := sect.Get(originalKey); ok {
		ref, err := parseOriginalRef(v)
		if err != nil {
			return nil, objErrf("", id, originalKey, err, "")
		}
		obj, err = s.readOriginal(rs, ref, ti)
		if err != nil {
			return nil, objErrf("", id, "", err, "reading original %v", ref)
		}
		hasOrig = true
	} else {
		obj = ti.New()
	}

	for _, k := range sect.Keys() {
		if isReservedKey(k) {
			continue
		}
		f := ti.Field(k)
		if f == nil {
			s.logger.Warn("reflser: unknown field", "doc", rs.doc.Path, "entity", rs.entity, "type", ti.name, "field", k)
			continue
		}
		v, _ := sect.Get(k)
		if err := f.acc.read(rs, f, obj, v); err != nil {
			return nil, inField(withContext(err, "", rs.entity), k)
		}
	}
	if err := rs.readSidecars(ti, obj, hasOrig); err != nil {
		return nil, err
	}

	if !rs.inNested {
		// Never keep the origin inherited from the original: it does not
		// include this document's deltas.
		if rel, ok := s.repoRelative(rs.doc.Path); ok {
			*obj.Origin() = Origin{Path: rel, EntityID: id}
		} else {
			*obj.Origin() = Origin{detached: rs.doc.Path != ""}
		}
	}
	if pd, ok := obj.(PostDeserializer); ok {
		if err := pd.PostDeserialize(); err != nil {
			return nil, objErrf("", rs.entity, "", err, "post-deserialize")
		}
	}
	return obj, nil
}

func (s *Serializer) readOriginal(rs *readState, ref Origin, ti *TypeInfo) (Object, error) {
	vk := visitKey(ref.Path, ref.EntityID)
	if rs.visiting[vk] {
		return nil, fmt.Errorf("%w: original reference cycle through %v", ErrMalformed, ref)
	}
	rs.visiting[vk] = true
	defer delete(rs.visiting, vk)

	path, err := s.repoPath(ref.Path)
	if err != nil {
		return nil, err
	}
	doc, err := s.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	ors := &readState{s: s, doc: doc, entity: ref.EntityID, visiting: rs.visiting}
	base, err := s.readObject(ors, ref.EntityID)
	if err != nil {
		return nil, withContext(err, path, ref.EntityID)
	}
	if bti := s.reg.TypeOf(base); bti != ti {
		return nil, fmt.Errorf("%w: original is %v, section is %v", ErrTypeMismatch, bti, ti)
	}
	return base, nil
}

func visitKey(rel string, id EntityID) string {
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel))) + "#" + string(id)
}

// parseOriginalRef decodes a "$original" value: [path, entityId].
func parseOriginalRef(v any) (Origin, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return Origin{}, fmt.Errorf("%w: original reference is %s, wanted [path, entityId]", ErrMalformed, describeValue(v))
	}
	path, ok1 := arr[0].(string)
	id, ok2 := arr[1].(string)
	if !ok1 || !ok2 || path == "" || id == "" {
		return Origin{}, fmt.Errorf("%w: original reference must hold two non-empty strings", ErrMalformed)
	}
	return Origin{Path: path, EntityID: EntityID(id)}, nil
}

// Attributes returns the custom attributes of the section addressed by id.
func (s *Serializer) Attributes(doc *Document, id EntityID) (Attributes, error) {
	if id == "" {
		id = rootEntityID
	}
	key, err := Locate(doc.Sections, id)
	if err != nil {
		return nil, objErrf(doc.Path, id, "", err, "")
	}
	sect, err := doc.section(key)
	if err != nil {
		return nil, err
	}
	return sectionAttributes(doc.Path, id, sect)
}

func sectionAttributes(path string, id EntityID, sect *Table) (Attributes, error) {
	var attrs Attributes
	for _, k := range sect.Keys() {
		name, ok := strings.CutPrefix(k, attrPrefix)
		if !ok {
			continue
		}
		v, _ := sect.Get(k)
		str, ok := v.(string)
		if !ok {
			return nil, objErrf(path, id, k, ErrTypeMismatch, "got %s, wanted a string", describeValue(v))
		}
		if attrs == nil {
			attrs = make(Attributes)
		}
		attrs[name] = str
	}
	return attrs, nil
}
