package reflser

import (
	"math"
	"strings"
	"testing"
)

func fieldNames(ti *TypeInfo) []string {
	var names []string
	for _, f := range ti.Fields() {
		names = append(names, f.Name())
	}
	return names
}

func TestRegisterStruct(t *testing.T) {
	reg := newTestRegistry()
	ti := reg.MustType("node")
	deepEqual(t, ti.Name(), "Node")
	deepEqual(t, reg.TypeOf(&Node{}), ti)

	// ordered by kind, then by name
	deepEqual(t, fieldNames(ti), []string{"visible", "layer", "flags", "serial", "scale", "name", "position", "tags", "child", "geo"})
	deepEqual(t, ti.Field("geo").Kind(), KindMesh)
	deepEqual(t, ti.Field("child").Kind(), KindObject)
	isnil(t, ti.Field("Cache"))
	deepEqual(t, len(ti.FieldsOfKind(KindMesh)), 1)
}

func TestDefineType(t *testing.T) {
	reg := newTestRegistry()
	ti := reg.MustType("light")
	deepEqual(t, ti.Name(), "Light")
	deepEqual(t, fieldNames(ti), []string{"ticks", "intensity", "uv", "color", "tint", "indices", "path", "target"})

	obj := ti.New()
	if _, ok := obj.(*Light); !ok {
		t.Fatalf("New() = %T, wanted *Light", obj)
	}
}

func TestDefineType_accessors(t *testing.T) {
	ti := newTestRegistry().MustType("light")
	l := &Light{}

	va := ti.Field("intensity").acc.(*valueAccessor[float32])
	va.set(l, 2.5)
	deepEqual(t, l.Intensity, float32(2.5))
	deepEqual(t, va.get(l), float32(2.5))

	target := &Node{Name: "t"}
	oa := ti.Field("target").acc.(*objectAccessor)
	ensure(oa.set(l, target))
	deepEqual(t, l.Target, target)
	deepEqual(t, oa.get(l), Object(target))
	isErr(t, oa.set(l, &Light{}), ErrTypeMismatch)

	type Prop struct {
		Base
		Shape *Mesh
		Skin  *SkeletalMesh
	}
	pti := DefineType(NewRegistry(), "prop", "", func(b *TypeBuilder[Prop]) {
		b.Mesh("shape", func(p *Prop) *Mesh { return p.Shape }, func(p *Prop, m *Mesh) { p.Shape = m })
		b.SkeletalMesh("skin", func(p *Prop) *SkeletalMesh { return p.Skin }, func(p *Prop, m *SkeletalMesh) { p.Skin = m })
	})
	p := &Prop{}
	ensure(pti.Field("shape").acc.(*geometryAccessor[Mesh]).load(p, encodeGeometry(sampleMesh())))
	deepEqual(t, p.Shape, sampleMesh())
	deepEqual(t, pti.Field("skin").acc.(*geometryAccessor[SkeletalMesh]).isEmpty(p), true)
}

func TestRegistry_defaultTypeID(t *testing.T) {
	type Thing struct {
		Base
		N int32
	}
	reg := NewRegistry()
	ti := RegisterStruct[Thing](reg, "", "")
	deepEqual(t, ti.Name(), "Thing")
	deepEqual(t, ti.ID(), TypeIDFor("Thing"))
	deepEqual(t, len(reg.Types()), 1)
}

func TestRegistry_lookupUnknown(t *testing.T) {
	reg := newTestRegistry()
	if _, ok := reg.Type("nope"); ok {
		t.Errorf("Type(nope) found a type")
	}
	expectPanic(t, "MustType", func() { reg.MustType("nope") })
	expectPanic(t, "TypeOf", func() {
		type Other struct{ Base }
		reg.TypeOf(&Other{})
	})
}

func TestRegistry_panics(t *testing.T) {
	type Plain struct{ N int32 }
	type Bad struct {
		Base
		C chan int
	}
	type Reserved struct {
		Base
		N int32 `reflser:"$n"`
	}
	type Dup struct {
		Base
		A int32 `reflser:"x"`
		B int32 `reflser:"x"`
	}
	type Dotted struct{ Base }
	type DottedField struct {
		Base
		N int32 `reflser:"child.geo"`
	}

	expectPanic(t, "duplicate id", func() {
		reg := newTestRegistry()
		type Another struct{ Base }
		RegisterStruct[Another](reg, "node", "")
	})
	expectPanic(t, "duplicate Go type", func() {
		reg := newTestRegistry()
		RegisterStruct[Node](reg, "node2", "")
	})
	expectPanic(t, "not an Object", func() { RegisterStruct[Plain](NewRegistry(), "", "") })
	expectPanic(t, "unsupported field", func() { RegisterStruct[Bad](NewRegistry(), "", "") })
	expectPanic(t, "reserved name", func() { RegisterStruct[Reserved](NewRegistry(), "", "") })
	expectPanic(t, "duplicate field", func() { RegisterStruct[Dup](NewRegistry(), "", "") })
	expectPanic(t, "dotted id", func() { RegisterStruct[Dotted](NewRegistry(), "a.b", "") })
	expectPanic(t, "dotted field name", func() { RegisterStruct[DottedField](NewRegistry(), "", "") })
	expectPanic(t, "dotted field name via builder", func() {
		DefineType(NewRegistry(), "dotted", "", func(b *TypeBuilder[Dotted]) {
			b.Int32("a.b", func(*Dotted) int32 { return 0 }, func(*Dotted, int32) {})
		})
	})
}

func expectPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: no panic", name)
		}
	}()
	f()
}

func TestRegisterStruct_embeddedAndNamedTypes(t *testing.T) {
	type Level int32
	type Common struct {
		Title string `reflser:"title"`
	}
	type Fancy struct {
		Base
		Common
		Level Level    `reflser:"level"`
		Names []string `reflser:"names"`
		skip  int32
	}
	reg := NewRegistry()
	ti := RegisterStruct[Fancy](reg, "fancy", "")
	deepEqual(t, fieldNames(ti), []string{"level", "title", "names"})

	s := New(reg, Options{Sidecars: NewMemSidecars()})
	doc := NewDocument("")
	obj := &Fancy{Common: Common{Title: "t"}, Level: 5, Names: []string{"a"}}
	must(s.Write(doc, obj, nil, "", nil))
	got := must(Read[*Fancy](s, doc, ""))
	deepEqual(t, got, obj)
	_ = obj.skip
}

func TestCategories_decode(t *testing.T) {
	t.Run("int32 range", func(t *testing.T) {
		_, err := int32Category.decode(int64(math.MaxInt32 + 1))
		isErr(t, err, ErrTypeMismatch)
		deepEqual(t, must(int32Category.decode(int64(-5))), int32(-5))
	})
	t.Run("uint32 negative", func(t *testing.T) {
		_, err := uint32Category.decode(int64(-1))
		isErr(t, err, ErrTypeMismatch)
	})
	t.Run("uint64 above int64", func(t *testing.T) {
		v := uint64(math.MaxUint64)
		enc := uint64Category.encode(v)
		deepEqual(t, enc, any("18446744073709551615"))
		deepEqual(t, must(uint64Category.decode(enc)), v)
		deepEqual(t, uint64Category.encode(42), any(int64(42)))
		_, err := uint64Category.decode("abc")
		isErr(t, err, ErrTypeMismatch)
	})
	t.Run("float accepts integers", func(t *testing.T) {
		deepEqual(t, must(float32Category.decode(int64(3))), float32(3))
		_, err := float32Category.decode("3")
		isErr(t, err, ErrTypeMismatch)
	})
	t.Run("vector arity", func(t *testing.T) {
		_, err := vec3Category.decode([]any{1.0, 2.0})
		isErr(t, err, ErrTypeMismatch)
		deepEqual(t, must(vec2Category.decode([]any{1.0, int64(2)})), Vec2{1, 2})
	})
	t.Run("empty lists", func(t *testing.T) {
		deepEqual(t, must(intListCategory.decode([]any{})), []int(nil))
		deepEqual(t, must(stringListCategory.decode([]any{})), []string(nil))
		deepEqual(t, must(vec3ListCategory.decode([]any{})), []Vec3(nil))
	})
	t.Run("wrong category", func(t *testing.T) {
		_, err := boolCategory.decode("true")
		isErr(t, err, ErrTypeMismatch)
		_, err = stringCategory.decode(int64(1))
		isErr(t, err, ErrTypeMismatch)
		_, err = stringListCategory.decode([]any{"a", int64(1)})
		isErr(t, err, ErrTypeMismatch)
		if err != nil && !strings.Contains(err.Error(), "got an integer") {
			t.Errorf("err = %q, wanted description of the stored value", err)
		}
	})
}

func TestCategories_equal(t *testing.T) {
	const eps = 1e-6
	if !float32Category.equal(1, 1+1e-7, eps) {
		t.Errorf("float32 difference below epsilon is unequal")
	}
	if float32Category.equal(1, 1.001, eps) {
		t.Errorf("float32 difference above epsilon is equal")
	}
	if !vec3Category.equal(Vec3{1, 2, 3}, Vec3{1, 2, 3 + 1e-7}, eps) {
		t.Errorf("vec3 difference below epsilon is unequal")
	}
	if vec3ListCategory.equal([]Vec3{{1, 2, 3}}, []Vec3{{1, 2, 3}, {4, 5, 6}}, eps) {
		t.Errorf("vec3 lists of different lengths are equal")
	}
	if !intListCategory.equal(nil, []int{}, eps) {
		t.Errorf("nil and empty int lists are unequal")
	}
}
