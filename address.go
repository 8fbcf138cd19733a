package reflser

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// Separator joins entity id segments, and the entity id chain with
	// the type id inside a section key.
	Separator = '.'

	rootEntityID EntityID = "0"
)

// EntityID is a chain of identifier segments joined by Separator, e.g.
// "parent.child". It distinguishes sibling objects in one document.
type EntityID string

// TypeID is the opaque identifier of a registered type.
type TypeID string

// SectionKey is the addressable unit of a document: EntityID + "." + TypeID.
type SectionKey string

func (id EntityID) String() string  { return string(id) }
func (id TypeID) String() string    { return string(id) }
func (k SectionKey) String() string { return string(k) }

// Segments splits the chain into its identifier segments.
func (id EntityID) Segments() []string {
	return strings.Split(string(id), string(Separator))
}

// Child appends a segment to the chain.
func (id EntityID) Child(seg string) EntityID {
	return id + EntityID(Separator) + EntityID(seg)
}

// IsNested reports whether the chain has more than one segment.
func (id EntityID) IsNested() bool {
	return strings.IndexByte(string(id), Separator) >= 0
}

// NewEntityID returns a fresh random single-segment entity id.
func NewEntityID() EntityID {
	u := uuid.New()
	return EntityID(strings.ReplaceAll(u.String(), "-", "")[:16])
}

var typeIDNamespace = uuid.MustParse("6f0d4f7e-3b1a-4d3e-9a7c-1f2e5c8b9d01")

// TypeIDFor derives a stable type id from a type name.
func TypeIDFor(name string) TypeID {
	return TypeID(uuid.NewSHA1(typeIDNamespace, []byte(name)).String())
}

func validateChain(id EntityID) error {
	for i, seg := range id.Segments() {
		if seg == "" {
			return fmt.Errorf("%w: entity id %q has an empty segment at position %d", ErrMalformed, id, i)
		}
	}
	return nil
}

func validateTypeID(id TypeID) error {
	if id == "" {
		return fmt.Errorf("%w: empty type id", ErrMalformed)
	}
	if strings.IndexByte(string(id), Separator) >= 0 {
		return fmt.Errorf("%w: type id %q contains %q", ErrMalformed, id, Separator)
	}
	return nil
}

// EncodeSectionKey joins an entity id chain and a type id. An empty chain
// becomes "0".
func EncodeSectionKey(chain EntityID, typeID TypeID) (SectionKey, error) {
	if chain == "" {
		chain = rootEntityID
	}
	if err := validateChain(chain); err != nil {
		return "", err
	}
	if err := validateTypeID(typeID); err != nil {
		return "", err
	}
	return SectionKey(string(chain) + string(Separator) + string(typeID)), nil
}

// DecodeSectionKey splits a section key at its last separator.
func DecodeSectionKey(key SectionKey) (EntityID, TypeID, error) {
	i := strings.LastIndexByte(string(key), Separator)
	if i < 0 {
		return "", "", fmt.Errorf("%w: section key %q has no separator", ErrMalformed, key)
	}
	chain, typeID := EntityID(key[:i]), TypeID(key[i+1:])
	if chain == "" {
		return "", "", fmt.Errorf("%w: section key %q has an empty entity id", ErrMalformed, key)
	}
	if typeID == "" {
		return "", "", fmt.Errorf("%w: section key %q has an empty type id", ErrMalformed, key)
	}
	return chain, typeID, nil
}

// chainMatches reports whether key addresses exactly the given chain.
// "10" matches "10.T" but neither "100.T" nor "10.5.T".
func chainMatches(key SectionKey, chain EntityID) bool {
	n := len(chain)
	if len(key) <= n+1 || string(key[:n]) != string(chain) || key[n] != Separator {
		return false
	}
	return strings.IndexByte(string(key[n+1:]), Separator) < 0
}

// Locate finds the section of the given chain among the table's keys.
func Locate(sections *Table, chain EntityID) (SectionKey, error) {
	if chain == "" {
		chain = rootEntityID
	}
	var found SectionKey
	for _, k := range sections.Keys() {
		key := SectionKey(k)
		if !chainMatches(key, chain) {
			continue
		}
		if found != "" {
			return "", fmt.Errorf("%w: %q and %q both address entity %q", ErrAmbiguous, found, key, chain)
		}
		found = key
	}
	if found == "" {
		return "", fmt.Errorf("%w: no section for entity %q", ErrNotFound, chain)
	}
	return found, nil
}

// TopLevel reports whether the key's chain is a single segment.
func TopLevel(key SectionKey) bool {
	chain, _, err := DecodeSectionKey(key)
	return err == nil && !chain.IsNested()
}
