package reflser

import (
	"strings"
)

// Entry is one object of a multi-object document.
type Entry struct {
	Object Object

	// EntityID defaults to "0". It must not contain the separator.
	EntityID EntityID

	Attributes Attributes

	// Original, if set, is the object Object was derived from; see
	// Serializer.Write.
	Original Object
}

// WriteMultiple writes all entries into a new document at path, replacing
// any existing one. Entries are validated before anything is written:
// the same object or entity id must not appear twice, and entity ids must
// be single segments.
func (s *Serializer) WriteMultiple(path string, entries []Entry, backup bool) error {
	seenObjs := make(map[Object]int, len(entries))
	seenIDs := make(map[EntityID]int, len(entries))
	for i, e := range entries {
		id := e.EntityID
		if id == "" {
			id = rootEntityID
		}
		if isNilObject(e.Object) {
			return objErrf(path, id, "", ErrMalformed, "entry %d has no object", i)
		}
		if strings.IndexByte(string(id), Separator) >= 0 {
			return objErrf(path, id, "", ErrMalformed, "entity id of entry %d contains %q", i, Separator)
		}
		if prev, ok := seenIDs[id]; ok {
			return objErrf(path, id, "", ErrMalformed, "entries %d and %d use the same entity id", prev, i)
		}
		seenIDs[id] = i
		if prev, ok := seenObjs[e.Object]; ok {
			return objErrf(path, id, "", ErrMalformed, "entries %d and %d hold the same object", prev, i)
		}
		seenObjs[e.Object] = i
		if err := validateAttributes(e.Attributes); err != nil {
			return objErrf(path, id, "", err, "")
		}
	}

	doc := NewDocument(path)
	for _, e := range entries {
		if _, err := s.Write(doc, e.Object, e.Original, e.EntityID, e.Attributes); err != nil {
			return err
		}
	}
	if err := s.SaveDocument(doc, backup); err != nil {
		return err
	}
	s.logger.Debug("reflser: wrote document", "path", path, "entries", len(entries))
	return nil
}

// LoadedEntry is an object read from a multi-object document.
type LoadedEntry struct {
	Object     Object
	EntityID   EntityID
	Attributes Attributes
}

// ReadEntries reads every top-level section of doc, in document order.
func (s *Serializer) ReadEntries(doc *Document) ([]LoadedEntry, error) {
	var result []LoadedEntry
	for _, key := range doc.SectionKeys() {
		id, _, err := DecodeSectionKey(key)
		if err != nil {
			return nil, objErrf(doc.Path, "", "", err, "")
		}
		if id.IsNested() {
			continue
		}
		obj, err := s.Read(doc, id)
		if err != nil {
			return nil, err
		}
		attrs, err := s.Attributes(doc, id)
		if err != nil {
			return nil, err
		}
		result = append(result, LoadedEntry{obj, id, attrs})
	}
	return result, nil
}

// ReadMultiple reads the objects of every top-level section of doc.
func (s *Serializer) ReadMultiple(doc *Document) ([]Object, error) {
	entries, err := s.ReadEntries(doc)
	if err != nil {
		return nil, err
	}
	result := make([]Object, len(entries))
	for i, e := range entries {
		result[i] = e.Object
	}
	return result, nil
}

// ReadMultiple returns the top-level objects of doc that are of type T,
// skipping the others.
func ReadMultiple[T Object](s *Serializer, doc *Document) ([]T, error) {
	entries, err := s.ReadEntries(doc)
	if err != nil {
		return nil, err
	}
	var result []T
	for _, e := range entries {
		if t, ok := e.Object.(T); ok {
			result = append(result, t)
		}
	}
	return result, nil
}

// ReadFile loads the document at path and reads all of its top-level
// entries.
func (s *Serializer) ReadFile(path string) ([]LoadedEntry, error) {
	doc, err := s.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return s.ReadEntries(doc)
}
