package reflser

import (
	"fmt"
	"reflect"
)

// Field is a reflected field of a registered type.
type Field struct {
	name string
	kind Kind
	acc  accessor
}

func (f *Field) Name() string   { return f.name }
func (f *Field) Kind() Kind     { return f.kind }
func (f *Field) String() string { return f.name + " " + f.kind.String() }

// accessor is implemented by valueAccessor, objectAccessor and
// geometryAccessor only.
type accessor interface {
	write(ws *writeState, f *Field, sect *Table, obj, orig Object) error
	read(rs *readState, f *Field, obj Object, v any) error
}

// sidecarAccessor is implemented by accessors whose payload is stored
// outside of the document.
type sidecarAccessor interface {
	accessor
	isEmpty(obj Object) bool
	load(obj Object, data []byte) error
}

type valueAccessor[V any] struct {
	cat *category[V]
	get func(obj Object) V
	set func(obj Object, v V)
}

func (a *valueAccessor[V]) write(ws *writeState, f *Field, sect *Table, obj, orig Object) error {
	cur := a.get(obj)
	if orig != nil && a.cat.equal(a.get(orig), cur, ws.s.opt.Epsilon) {
		return nil
	}
	sect.Set(f.name, a.cat.encode(cur))
	return nil
}

func (a *valueAccessor[V]) read(rs *readState, f *Field, obj Object, v any) error {
	val, err := a.cat.decode(v)
	if err != nil {
		return err
	}
	a.set(obj, val)
	return nil
}

type objectAccessor struct {
	get func(obj Object) Object
	set func(obj Object, nested Object) error
}

// Nested objects are always written in full; there is no deep comparison
// with the original.
func (a *objectAccessor) write(ws *writeState, f *Field, sect *Table, obj, orig Object) error {
	nested := a.get(obj)
	if isNilObject(nested) {
		return nil
	}
	sub := NewTable()
	if _, err := ws.s.writeSection(ws.nested(f), sub, nested, nil, rootEntityID, nil); err != nil {
		return err
	}
	sect.Set(f.name, sub)
	return nil
}

func (a *objectAccessor) read(rs *readState, f *Field, obj Object, v any) error {
	sub, ok := v.(*Table)
	if !ok {
		return mismatch(v, "a nested document")
	}
	nested, err := rs.s.readObject(rs.nested(f, sub), rootEntityID)
	if err != nil {
		return err
	}
	return a.set(obj, nested)
}

type geometryAccessor[G geometry] struct {
	get func(obj Object) *G
	set func(obj Object, g *G)
}

func (a *geometryAccessor[G]) write(ws *writeState, f *Field, sect *Table, obj, orig Object) error {
	cur := a.get(obj)
	if cur == nil {
		cur = new(G)
	}
	data := encodeGeometry(cur)
	var origData []byte
	if orig != nil {
		og := a.get(orig)
		if og == nil {
			og = new(G)
		}
		origData = encodeGeometry(og)
	}
	return ws.writeSidecarIfChanged(f, data, isEmptyGeometry(cur), origData, orig != nil)
}

func (a *geometryAccessor[G]) read(rs *readState, f *Field, obj Object, v any) error {
	return fmt.Errorf("%w: %s data lives in sidecar files, not in the document", ErrTypeMismatch, f.kind)
}

func (a *geometryAccessor[G]) isEmpty(obj Object) bool {
	return isEmptyGeometry(a.get(obj))
}

func (a *geometryAccessor[G]) load(obj Object, data []byte) error {
	g, err := decodeGeometry[G](data)
	if err != nil {
		return err
	}
	if isEmptyGeometry(g) {
		g = nil
	}
	a.set(obj, g)
	return nil
}

func isNilObject(obj Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
