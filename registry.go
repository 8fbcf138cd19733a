package reflser

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Registry maps type ids to constructors and reflected fields. It is built
// once at startup and passed explicitly to a Serializer; it must not be
// modified after the first Serializer call.
type Registry struct {
	types    []*TypeInfo
	byID     map[TypeID]*TypeInfo
	byGoType map[reflect.Type]*TypeInfo
}

func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[TypeID]*TypeInfo),
		byGoType: make(map[reflect.Type]*TypeInfo),
	}
}

// TypeInfo describes a registered type.
type TypeInfo struct {
	id      TypeID
	name    string
	ptrType reflect.Type
	newFn   func() Object

	fields       []*Field
	fieldsByName map[string]*Field
}

func (ti *TypeInfo) ID() TypeID           { return ti.id }
func (ti *TypeInfo) Name() string         { return ti.name }
func (ti *TypeInfo) GoType() reflect.Type { return ti.ptrType }
func (ti *TypeInfo) String() string       { return ti.name + "(" + string(ti.id) + ")" }

// New constructs a fresh instance.
func (ti *TypeInfo) New() Object {
	return ti.newFn()
}

// Fields returns all fields in write order: by kind, then by name.
func (ti *TypeInfo) Fields() []*Field {
	return slices.Clone(ti.fields)
}

func (ti *TypeInfo) Field(name string) *Field {
	return ti.fieldsByName[name]
}

func (ti *TypeInfo) FieldsOfKind(kind Kind) []*Field {
	var result []*Field
	for _, f := range ti.fields {
		if f.kind == kind {
			result = append(result, f)
		}
	}
	return result
}

func (ti *TypeInfo) addField(f *Field) {
	if f.name == "" {
		panic(fmt.Errorf("%v: empty field name", ti))
	}
	if isReservedKey(f.name) {
		panic(fmt.Errorf("%v: field name %q uses a reserved prefix", ti, f.name))
	}
	if strings.IndexByte(f.name, Separator) >= 0 {
		panic(fmt.Errorf("%v: field name %q contains %q", ti, f.name, Separator))
	}
	if ti.fieldsByName[f.name] != nil {
		panic(fmt.Errorf("%v: duplicate field %q", ti, f.name))
	}
	ti.fieldsByName[f.name] = f
	ti.fields = append(ti.fields, f)
}

func (ti *TypeInfo) sortFields() {
	slices.SortStableFunc(ti.fields, func(a, b *Field) int {
		if c := cmp.Compare(a.kind, b.kind); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
}

// Types returns the registered types in registration order.
func (reg *Registry) Types() []*TypeInfo {
	return slices.Clone(reg.types)
}

func (reg *Registry) Type(id TypeID) (*TypeInfo, bool) {
	ti, ok := reg.byID[id]
	return ti, ok
}

// MustType is like Type, but panics for unknown type ids.
func (reg *Registry) MustType(id TypeID) *TypeInfo {
	ti := reg.byID[id]
	if ti == nil {
		panic(fmt.Errorf("%w: %q", ErrUnknownType, id))
	}
	return ti
}

// TypeOf returns the type of a registered object. Passing an object of an
// unregistered Go type is a programming error and panics.
func (reg *Registry) TypeOf(obj Object) *TypeInfo {
	rt := reflect.TypeOf(obj)
	ti := reg.byGoType[rt]
	if ti == nil {
		panic(fmt.Errorf("no type registered for %v", rt))
	}
	return ti
}

func (reg *Registry) add(ti *TypeInfo) {
	if err := validateTypeID(ti.id); err != nil {
		panic(fmt.Errorf("registering %s: %w", ti.name, err))
	}
	if prev := reg.byID[ti.id]; prev != nil {
		panic(fmt.Errorf("type id %s is already assigned to %s, cannot use it for %s", ti.id, prev.name, ti.name))
	}
	if prev := reg.byGoType[ti.ptrType]; prev != nil {
		panic(fmt.Errorf("Go type %v is already registered as %v", ti.ptrType, prev))
	}
	ti.sortFields()
	reg.types = append(reg.types, ti)
	reg.byID[ti.id] = ti
	reg.byGoType[ti.ptrType] = ti
}

func newTypeInfo[T any](id TypeID, name string) *TypeInfo {
	ptrType := reflect.TypeOf((**T)(nil)).Elem()
	if ptrType.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("%s: %v must be a struct", name, ptrType.Elem()))
	}
	if !ptrType.Implements(objectType) {
		panic(fmt.Sprintf("%s: %v does not implement reflser.Object (embed reflser.Base)", name, ptrType))
	}
	if name == "" {
		name = ptrType.Elem().Name()
	}
	if id == "" {
		id = TypeIDFor(name)
	}
	return &TypeInfo{
		id:           id,
		name:         name,
		ptrType:      ptrType,
		newFn:        func() Object { return any(new(T)).(Object) },
		fieldsByName: make(map[string]*Field),
	}
}

var objectType = reflect.TypeOf((*Object)(nil)).Elem()

// TypeBuilder declares the fields of a type registered with DefineType.
type TypeBuilder[T any] struct {
	ti *TypeInfo
}

// DefineType registers *T, whose fields are declared via accessor
// functions. An empty id is derived from the name with TypeIDFor, and an
// empty name defaults to the Go type name.
func DefineType[T any](reg *Registry, id TypeID, name string, f func(b *TypeBuilder[T])) *TypeInfo {
	ti := newTypeInfo[T](id, name)
	if f != nil {
		f(&TypeBuilder[T]{ti: ti})
	}
	reg.add(ti)
	return ti
}

func addValueField[T, V any](b *TypeBuilder[T], name string, cat *category[V], get func(*T) V, set func(*T, V)) {
	b.ti.addField(&Field{
		name: name,
		kind: cat.kind,
		acc: &valueAccessor[V]{
			cat: cat,
			get: func(obj Object) V { return get(any(obj).(*T)) },
			set: func(obj Object, v V) { set(any(obj).(*T), v) },
		},
	})
}

func (b *TypeBuilder[T]) Bool(name string, get func(*T) bool, set func(*T, bool)) {
	addValueField(b, name, boolCategory, get, set)
}

func (b *TypeBuilder[T]) Int32(name string, get func(*T) int32, set func(*T, int32)) {
	addValueField(b, name, int32Category, get, set)
}

func (b *TypeBuilder[T]) Uint32(name string, get func(*T) uint32, set func(*T, uint32)) {
	addValueField(b, name, uint32Category, get, set)
}

func (b *TypeBuilder[T]) Int64(name string, get func(*T) int64, set func(*T, int64)) {
	addValueField(b, name, int64Category, get, set)
}

func (b *TypeBuilder[T]) Uint64(name string, get func(*T) uint64, set func(*T, uint64)) {
	addValueField(b, name, uint64Category, get, set)
}

func (b *TypeBuilder[T]) Float32(name string, get func(*T) float32, set func(*T, float32)) {
	addValueField(b, name, float32Category, get, set)
}

func (b *TypeBuilder[T]) String(name string, get func(*T) string, set func(*T, string)) {
	addValueField(b, name, stringCategory, get, set)
}

func (b *TypeBuilder[T]) Vec2(name string, get func(*T) Vec2, set func(*T, Vec2)) {
	addValueField(b, name, vec2Category, get, set)
}

func (b *TypeBuilder[T]) Vec3(name string, get func(*T) Vec3, set func(*T, Vec3)) {
	addValueField(b, name, vec3Category, get, set)
}

func (b *TypeBuilder[T]) Vec4(name string, get func(*T) Vec4, set func(*T, Vec4)) {
	addValueField(b, name, vec4Category, get, set)
}

func (b *TypeBuilder[T]) IntList(name string, get func(*T) []int, set func(*T, []int)) {
	addValueField(b, name, intListCategory, get, set)
}

func (b *TypeBuilder[T]) StringList(name string, get func(*T) []string, set func(*T, []string)) {
	addValueField(b, name, stringListCategory, get, set)
}

func (b *TypeBuilder[T]) Vec3List(name string, get func(*T) []Vec3, set func(*T, []Vec3)) {
	addValueField(b, name, vec3ListCategory, get, set)
}

// Object declares a nested object field. The setter takes ownership of the
// freshly read object; it should return an error if the object is not of
// an acceptable type.
func (b *TypeBuilder[T]) Object(name string, get func(*T) Object, set func(*T, Object) error) {
	b.ti.addField(&Field{
		name: name,
		kind: KindObject,
		acc: &objectAccessor{
			get: func(obj Object) Object { return get(any(obj).(*T)) },
			set: func(obj Object, nested Object) error { return set(any(obj).(*T), nested) },
		},
	})
}

// Nested declares a nested object field of a specific type N, which is
// usually a pointer to a registered struct.
func Nested[T any, N Object](b *TypeBuilder[T], name string, get func(*T) N, set func(*T, N)) {
	b.Object(name, func(t *T) Object {
		n := get(t)
		if isNilObject(n) {
			return nil
		}
		return n
	}, func(t *T, nested Object) error {
		n, ok := nested.(N)
		if !ok {
			var zero N
			return fmt.Errorf("%w: nested object is %T, wanted %T", ErrTypeMismatch, nested, zero)
		}
		set(t, n)
		return nil
	})
}

func (b *TypeBuilder[T]) Mesh(name string, get func(*T) *Mesh, set func(*T, *Mesh)) {
	b.ti.addField(&Field{
		name: name,
		kind: KindMesh,
		acc: &geometryAccessor[Mesh]{
			get: func(obj Object) *Mesh { return get(any(obj).(*T)) },
			set: func(obj Object, g *Mesh) { set(any(obj).(*T), g) },
		},
	})
}

func (b *TypeBuilder[T]) SkeletalMesh(name string, get func(*T) *SkeletalMesh, set func(*T, *SkeletalMesh)) {
	b.ti.addField(&Field{
		name: name,
		kind: KindSkeletalMesh,
		acc: &geometryAccessor[SkeletalMesh]{
			get: func(obj Object) *SkeletalMesh { return get(any(obj).(*T)) },
			set: func(obj Object, g *SkeletalMesh) { set(any(obj).(*T), g) },
		},
	})
}
