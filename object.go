package reflser

// Object is a value that can be serialized. Embed Base to implement it.
type Object interface {
	// Origin returns the object's record of where it was last read from.
	// Must not return nil.
	Origin() *Origin
}

// Origin is the repository-relative document path and entity id an object
// was read from. When such an object is used as the original of a write
// into a different document, the origin becomes the section's
// original reference.
type Origin struct {
	Path     string
	EntityID EntityID

	detached bool
}

func (o Origin) IsZero() bool {
	return o.Path == ""
}

// Detached reports whether the object was read from a document file outside
// of the repository root. No original reference can point at such a
// document, so writes against a detached original are full writes.
func (o Origin) Detached() bool {
	return o.detached
}

func (o Origin) String() string {
	if o.IsZero() {
		return "<none>"
	}
	return o.Path + "#" + string(o.EntityID)
}

type Base struct {
	origin Origin
}

func (b *Base) Origin() *Origin {
	return &b.origin
}

// PostDeserializer is implemented by objects that need to recompute derived
// state after all fields have been read.
type PostDeserializer interface {
	PostDeserialize() error
}

// Attributes are custom string attributes stored alongside an object.
type Attributes map[string]string
