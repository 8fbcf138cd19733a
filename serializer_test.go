package reflser

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSerializer_roundTrip(t *testing.T) {
	env := setup(t, Options{})
	s := env.s

	node := sampleNode()
	light := &Light{
		Intensity: 0.75,
		Color:     Vec3{1, 0.5, 0.25},
		UV:        Vec2{0.5, 1},
		Tint:      Vec4{1, 1, 1, 0.5},
		Ticks:     -1 << 40,
		Path:      []Vec3{{0, 0, 0}, {1, 2, 3}},
		Indices:   []int{3, 1, 2},
		Target:    &Node{Name: "target", Tags: []string{"x"}},
	}

	doc := NewDocument("")
	deepEqual(t, must(s.Write(doc, node, nil, "", nil)), SectionKey("0.node"))
	deepEqual(t, must(s.Write(doc, light, nil, "sun", nil)), SectionKey("sun.light"))

	gotNode := must(Read[*Node](s, doc, "0"))
	deepEqual(t, gotNode, node)

	gotLight := must(Read[*Light](s, doc, "sun"))
	deepEqual(t, gotLight.derived, float32(1.5))
	gotLight.derived = 0
	deepEqual(t, gotLight, light)

	_, err := Read[*Light](s, doc, "0")
	isErr(t, err, ErrTypeMismatch)
}

func TestSerializer_roundTripFormats(t *testing.T) {
	for _, ext := range []string{".yaml", ".json", ".msgpack"} {
		t.Run(ext, func(t *testing.T) {
			env := setup(t, Options{})
			s := env.s
			path := filepath.Join(env.root, "scene"+ext)

			node := sampleNode()
			node.Geo = sampleMesh()
			ensure(s.WriteMultiple(path, []Entry{{Object: node}}, false))

			doc := must(s.LoadDocument(path))
			got := must(Read[*Node](s, doc, ""))
			deepEqual(t, *got.Origin(), Origin{Path: "scene" + ext, EntityID: "0"})
			*got.Origin() = Origin{}
			deepEqual(t, got, node)
		})
	}
}

func TestSerializer_minimalDiff(t *testing.T) {
	env := setup(t, Options{})
	s := env.s

	orig := sampleNode()
	mod := sampleNode()
	mod.Scale = 2

	doc := NewDocument("")
	key := must(s.Write(doc, mod, orig, "", nil))
	sect := doc.Sections.Table(string(key))
	// nested objects are always written in full
	deepEqual(t, sect.Keys(), []string{"scale", "child"})

	// no nested object: exactly one field
	orig.Child, mod.Child = nil, nil
	doc = NewDocument("")
	key = must(s.Write(doc, mod, orig, "", nil))
	deepEqual(t, doc.Sections.Table(string(key)).Keys(), []string{"scale"})
	deepEqual(t, must2(doc.Sections.Table(string(key)).Get("scale")), any(2.0))
}

func TestSerializer_epsilon(t *testing.T) {
	env := setup(t, Options{Epsilon: 0.01})
	orig := &Node{Scale: 1, Position: Vec3{1, 2, 3}}
	mod := &Node{Scale: 1.001, Position: Vec3{1, 2.005, 3}}

	doc := NewDocument("")
	key := must(env.s.Write(doc, mod, orig, "", nil))
	deepEqual(t, doc.Sections.Table(string(key)).Len(), 0)

	mod.Position[0] = 1.5
	doc = NewDocument("")
	key = must(env.s.Write(doc, mod, orig, "", nil))
	deepEqual(t, doc.Sections.Table(string(key)).Keys(), []string{"position"})
}

func TestSerializer_idempotence(t *testing.T) {
	env := setup(t, Options{})
	for _, f := range []Format{YAML, JSON, MsgPack} {
		t.Run(f.String(), func(t *testing.T) {
			doc1, doc2 := NewDocument(""), NewDocument("")
			must(env.s.Write(doc1, sampleNode(), nil, "", Attributes{"b": "2", "a": "1"}))
			must(env.s.Write(doc2, sampleNode(), nil, "", Attributes{"a": "1", "b": "2"}))
			data1 := must(f.Encode(doc1.Sections))
			data2 := must(f.Encode(doc2.Sections))
			if !bytes.Equal(data1, data2) {
				t.Errorf("** documents differ:\n%s\nvs\n%s", data1, data2)
			}
		})
	}
}

func TestSerializer_nestedAddressing(t *testing.T) {
	env := setup(t, Options{})
	s := env.s

	doc := NewDocument("")
	key := must(s.Write(doc, sampleNode(), nil, "", nil))
	sub := doc.Sections.Table(string(key)).Table("child")
	if sub == nil {
		t.Fatalf("child is not a nested table")
	}
	deepEqual(t, sub.Keys(), []string{"0.node"})

	nested := &Document{Sections: sub}
	got := must(Read[*Node](s, nested, ""))
	deepEqual(t, got.Name, "lid")
	deepEqual(t, got.Scale, float32(0.5))
}

func TestSerializer_nestedTypeMismatch(t *testing.T) {
	env := setup(t, Options{})
	s := env.s

	doc := NewDocument("")
	key := must(s.Write(doc, &Light{Target: &Node{Name: "n"}}, nil, "", nil))
	// replace the nested node with a light
	sub := NewTable()
	must(s.Write(&Document{Sections: sub}, &Light{}, nil, "", nil))
	doc.Sections.Table(string(key)).Set("target", sub)

	_, err := s.Read(doc, "")
	isErr(t, err, ErrTypeMismatch)
	contains(t, err.Error(), "target")
}

func TestSerializer_chainDisambiguation(t *testing.T) {
	env := setup(t, Options{})
	s := env.s

	a := NewTable()
	a.Set("name", "A")
	b := NewTable()
	b.Set("name", "B")
	doc := NewDocument("")
	doc.Sections.Set("100.node", b)
	doc.Sections.Set("10.node", a)

	deepEqual(t, must(Read[*Node](s, doc, "10")).Name, "A")
	deepEqual(t, must(Read[*Node](s, doc, "100")).Name, "B")
	_, err := s.Read(doc, "1")
	isErr(t, err, ErrNotFound)
}

func TestSerializer_schemaDrift(t *testing.T) {
	env := setup(t, Options{})
	sect := NewTable()
	sect.Set("name", "old")
	sect.Set("legacy_field", int64(5))
	doc := NewDocument("")
	doc.Sections.Set("0.node", sect)

	got := must(Read[*Node](env.s, doc, ""))
	deepEqual(t, got.Name, "old")
	contains(t, env.log.String(), "unknown field")
	contains(t, env.log.String(), "legacy_field")
}

func TestSerializer_readErrors(t *testing.T) {
	env := setup(t, Options{})
	tests := []struct {
		name  string
		key   string
		field string
		value any
		err   error
	}{
		{"wrong category", "0.node", "name", int64(5), ErrTypeMismatch},
		{"out of range", "0.node", "layer", int64(1) << 40, ErrTypeMismatch},
		{"nested not a table", "0.node", "child", "x", ErrTypeMismatch},
		{"geometry in document", "0.node", "geo", "x", ErrTypeMismatch},
		{"unknown type", "0.spaceship", "name", "x", ErrUnknownType},
		{"bad original", "0.node", "$original", "x", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sect := NewTable()
			sect.Set(tt.field, tt.value)
			doc := NewDocument("")
			doc.Sections.Set(tt.key, sect)
			_, err := env.s.Read(doc, "")
			isErr(t, err, tt.err)

			var oe *ObjectError
			if !errors.As(err, &oe) {
				t.Fatalf("err = %T, wanted *ObjectError", err)
			}
			deepEqual(t, oe.EntityID, EntityID("0"))
		})
	}
}

func TestSerializer_sectionNotTable(t *testing.T) {
	env := setup(t, Options{})
	doc := NewDocument("")
	doc.Sections.Set("0.node", "oops")
	_, err := env.s.Read(doc, "")
	isErr(t, err, ErrTypeMismatch)
}

func TestSerializer_writeErrors(t *testing.T) {
	env := setup(t, Options{})
	s := env.s

	doc := NewDocument("")
	must(s.Write(doc, &Node{}, nil, "x", nil))
	_, err := s.Write(doc, &Node{}, nil, "x", nil)
	isErr(t, err, ErrMalformed)

	_, err = s.Write(doc, &Node{}, nil, "y", Attributes{"": "v"})
	isErr(t, err, ErrMalformed)

	_, err = s.Write(doc, &Node{}, &Light{}, "z", nil)
	isErr(t, err, ErrTypeMismatch)

	_, err = s.Write(doc, &Node{}, nil, "a..b", nil)
	isErr(t, err, ErrMalformed)

	// geometry needs a document path
	_, err = s.Write(doc, &Node{Geo: sampleMesh()}, nil, "g", nil)
	isErr(t, err, ErrMalformed)
	contains(t, err.Error(), "geo")

	expectPanic(t, "nil object", func() { s.Write(doc, (*Node)(nil), nil, "n", nil) })
}

func TestSerializer_attributes(t *testing.T) {
	env := setup(t, Options{})
	s := env.s

	doc := NewDocument("")
	key := must(s.Write(doc, &Node{Name: "n"}, nil, "", Attributes{"zeta": "1", "alpha": "two"}))
	keys := doc.Sections.Table(string(key)).Keys()
	deepEqual(t, keys[len(keys)-2:], []string{"$attr:alpha", "$attr:zeta"})
	deepEqual(t, must(s.Attributes(doc, "")), Attributes{"alpha": "two", "zeta": "1"})

	key = must(s.Write(doc, &Node{}, nil, "plain", nil))
	deepEqual(t, must(s.Attributes(doc, "plain")), Attributes(nil))

	doc.Sections.Table(string(key)).Set("$attr:bad", int64(1))
	_, err := s.Attributes(doc, "plain")
	isErr(t, err, ErrTypeMismatch)

	// attributes never reach fields
	got := must(Read[*Node](s, doc, ""))
	deepEqual(t, got.Name, "n")
}

func TestSerializer_geometrySidecars(t *testing.T) {
	env := setup(t, Options{})
	s := env.s
	path := filepath.Join(env.root, "props", "crate.yaml")

	node := sampleNode()
	node.Geo = sampleMesh()
	ensure(s.WriteMultiple(path, []Entry{{Object: node, EntityID: "crate"}}, false))
	deepEqual(t, env.sidecars.Writes(), 1)
	deepEqual(t, env.sidecars.Paths(), []string{filepath.Join(env.root, "props", "crate_geo", "crate.geo.bin")})

	doc := must(s.LoadDocument(path))
	got := must(Read[*Node](s, doc, "crate"))
	deepEqual(t, got.Geo, node.Geo)

	t.Run("unchanged geometry is not rewritten", func(t *testing.T) {
		before := env.sidecars.Writes()
		mod := must(Read[*Node](s, doc, "crate"))
		mod.Name = "renamed"
		other := filepath.Join(env.root, "props", "crate2.yaml")
		ensure(s.WriteMultiple(other, []Entry{{Object: mod, EntityID: "crate", Original: got}}, false))
		deepEqual(t, env.sidecars.Writes(), before)

		// and is inherited through the original reference
		got2 := must(Read[*Node](s, must(s.LoadDocument(other)), "crate"))
		deepEqual(t, got2.Name, "renamed")
		deepEqual(t, got2.Geo, node.Geo)
	})

	t.Run("changed geometry is rewritten", func(t *testing.T) {
		before := env.sidecars.Writes()
		mod := must(Read[*Node](s, doc, "crate"))
		mod.Geo.Positions[0] = Vec3{9, 9, 9}
		other := filepath.Join(env.root, "props", "crate3.yaml")
		ensure(s.WriteMultiple(other, []Entry{{Object: mod, EntityID: "crate", Original: got}}, false))
		deepEqual(t, env.sidecars.Writes(), before+1)

		got3 := must(Read[*Node](s, must(s.LoadDocument(other)), "crate"))
		deepEqual(t, got3.Geo.Positions[0], Vec3{9, 9, 9})
	})

	t.Run("empty geometry without original is skipped", func(t *testing.T) {
		before := env.sidecars.Writes()
		ensure(s.WriteMultiple(filepath.Join(env.root, "empty.yaml"), []Entry{{Object: &Node{}}}, false))
		deepEqual(t, env.sidecars.Writes(), before)
	})
}

func TestSerializer_clearedGeometryStaysCleared(t *testing.T) {
	for _, store := range []string{"mem", "files"} {
		t.Run(store, func(t *testing.T) {
			opt := Options{}
			if store == "files" {
				opt.Sidecars = FileSidecars{}
			}
			env := setup(t, opt)
			s := env.s
			path := filepath.Join(env.root, "crate.yaml")

			node := &Node{Name: "crate", Geo: sampleMesh()}
			ensure(s.WriteMultiple(path, []Entry{{Object: node}}, false))
			node.Geo = nil
			ensure(s.WriteMultiple(path, []Entry{{Object: node}}, false))

			got := must(Read[*Node](s, must(s.LoadDocument(path)), ""))
			isnil(t, got.Geo)
			if strings.Contains(env.log.String(), "missing sidecar") {
				t.Errorf("** unexpected warning: %s", env.log.String())
			}
		})
	}

	t.Run("no sidecar is created for a never-set field", func(t *testing.T) {
		env := setup(t, Options{})
		ensure(env.s.WriteMultiple(filepath.Join(env.root, "a.yaml"), []Entry{{Object: &Node{}}}, false))
		ensure(env.s.WriteMultiple(filepath.Join(env.root, "a.yaml"), []Entry{{Object: &Node{}}}, false))
		deepEqual(t, env.sidecars.Writes(), 0)
	})
}

func TestSerializer_missingSidecar(t *testing.T) {
	env := setup(t, Options{})
	s := env.s
	path := filepath.Join(env.root, "rig.yaml")

	rig := &Rig{Name: "r", Mesh: sampleMesh()}
	ensure(s.WriteMultiple(path, []Entry{{Object: rig}}, false))
	env.sidecars.Delete(path, SidecarKey{"0", "mesh"})

	got := must(Read[*Rig](s, must(s.LoadDocument(path)), ""))
	isnil(t, got.Mesh)
	contains(t, env.log.String(), "missing sidecar")
}

func TestSerializer_siblingGeometrySuppressesWarning(t *testing.T) {
	env := setup(t, Options{})
	s := env.s
	path := filepath.Join(env.root, "rig.yaml")

	rig := &Rig{Name: "r", Skin: &SkeletalMesh{
		Mesh:    *sampleMesh(),
		Joints:  [][4]uint16{{0, 1, 0, 0}, {1, 0, 0, 0}, {0, 0, 0, 0}},
		Weights: []Vec4{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}},
	}}
	ensure(s.WriteMultiple(path, []Entry{{Object: rig}}, false))
	deepEqual(t, env.sidecars.Writes(), 1)

	got := must(Read[*Rig](s, must(s.LoadDocument(path)), ""))
	deepEqual(t, got.Skin, rig.Skin)
	isnil(t, got.Mesh)
	if strings.Contains(env.log.String(), "missing sidecar") {
		t.Errorf("** unexpected warning: %s", env.log.String())
	}
}

func TestSerializer_nestedGeometry(t *testing.T) {
	env := setup(t, Options{})
	s := env.s
	path := filepath.Join(env.root, "scene.yaml")

	node := &Node{Name: "outer", Child: &Node{Name: "inner", Geo: sampleMesh()}}
	ensure(s.WriteMultiple(path, []Entry{{Object: node, EntityID: "n"}}, false))
	deepEqual(t, env.sidecars.Paths(), []string{filepath.Join(env.root, "scene_geo", "n.child.geo.bin")})

	got := must(Read[*Node](s, must(s.LoadDocument(path)), "n"))
	deepEqual(t, got.Child.Geo, node.Child.Geo)
	deepEqual(t, *got.Child.Origin(), Origin{})
}
