package reflser

import (
	"fmt"
	"reflect"
	"strings"
)

const structTag = "reflser"

var (
	baseType        = reflect.TypeOf((*Base)(nil)).Elem()
	vec2Type        = reflect.TypeOf((*Vec2)(nil)).Elem()
	vec3Type        = reflect.TypeOf((*Vec3)(nil)).Elem()
	vec4Type        = reflect.TypeOf((*Vec4)(nil)).Elem()
	meshPtrType     = reflect.TypeOf((**Mesh)(nil)).Elem()
	skelMeshPtrType = reflect.TypeOf((**SkeletalMesh)(nil)).Elem()
)

// RegisterStruct registers *T, deriving fields from the exported fields of
// T. The field name is taken from the `reflser:"name"` tag, defaulting to
// the Go field name; `reflser:"-"` skips a field. Embedded structs other
// than Base are flattened.
//
// Supported field types: bool, int32, uint32, int64, uint64, float32,
// string (and named types based on them), Vec2, Vec3, Vec4, []int,
// []string, []Vec3, *Mesh, *SkeletalMesh, and pointers or interfaces
// implementing Object for nested objects.
func RegisterStruct[T any](reg *Registry, id TypeID, name string) *TypeInfo {
	ti := newTypeInfo[T](id, name)
	enumerateStructFields(ti.ptrType.Elem(), nil, func(sf reflect.StructField, index []int, fieldName string) {
		acc, kind := reflectAccessor(sf.Type, index)
		if acc == nil {
			panic(fmt.Errorf("%v.%s: unsupported field type %v", ti.ptrType.Elem(), sf.Name, sf.Type))
		}
		ti.addField(&Field{name: fieldName, kind: kind, acc: acc})
	})
	reg.add(ti)
	return ti
}

func enumerateStructFields(typ reflect.Type, prefix []int, f func(sf reflect.StructField, index []int, name string)) {
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		index := append(append([]int(nil), prefix...), i)
		tag := sf.Tag.Get(structTag)
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if sf.Anonymous {
			if sf.Type == baseType {
				continue
			}
			if sf.Type.Kind() == reflect.Struct && name == "" {
				enumerateStructFields(sf.Type, index, f)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		f(sf, index, name)
	}
}

func reflectAccessor(typ reflect.Type, index []int) (accessor, Kind) {
	switch typ {
	case vec2Type:
		return reflectValueAccessor(vec2Category, index), KindVec2
	case vec3Type:
		return reflectValueAccessor(vec3Category, index), KindVec3
	case vec4Type:
		return reflectValueAccessor(vec4Category, index), KindVec4
	case meshPtrType:
		return reflectGeometryAccessor[Mesh](index), KindMesh
	case skelMeshPtrType:
		return reflectGeometryAccessor[SkeletalMesh](index), KindSkeletalMesh
	}

	switch typ.Kind() {
	case reflect.Bool:
		return reflectValueAccessor(boolCategory, index), KindBool
	case reflect.Int32:
		return reflectValueAccessor(int32Category, index), KindInt32
	case reflect.Uint32:
		return reflectValueAccessor(uint32Category, index), KindUint32
	case reflect.Int64:
		return reflectValueAccessor(int64Category, index), KindInt64
	case reflect.Uint64:
		return reflectValueAccessor(uint64Category, index), KindUint64
	case reflect.Float32:
		return reflectValueAccessor(float32Category, index), KindFloat32
	case reflect.String:
		return reflectValueAccessor(stringCategory, index), KindString
	case reflect.Slice:
		switch elem := typ.Elem(); {
		case elem.Kind() == reflect.Int:
			return reflectValueAccessor(intListCategory, index), KindIntList
		case elem.Kind() == reflect.String:
			return reflectValueAccessor(stringListCategory, index), KindStringList
		case elem == vec3Type:
			return reflectValueAccessor(vec3ListCategory, index), KindVec3List
		}
	case reflect.Ptr, reflect.Interface:
		if typ.Implements(objectType) {
			return reflectObjectAccessor(typ, index), KindObject
		}
	}
	return nil, 0
}

func fieldOf(obj Object, index []int) reflect.Value {
	return reflect.ValueOf(obj).Elem().FieldByIndex(index)
}

func reflectValueAccessor[V any](cat *category[V], index []int) accessor {
	vt := reflect.TypeOf((*V)(nil)).Elem()
	return &valueAccessor[V]{
		cat: cat,
		get: func(obj Object) V {
			return fieldOf(obj, index).Convert(vt).Interface().(V)
		},
		set: func(obj Object, v V) {
			fv := fieldOf(obj, index)
			fv.Set(reflect.ValueOf(v).Convert(fv.Type()))
		},
	}
}

func reflectGeometryAccessor[G geometry](index []int) accessor {
	return &geometryAccessor[G]{
		get: func(obj Object) *G {
			return fieldOf(obj, index).Interface().(*G)
		},
		set: func(obj Object, g *G) {
			fieldOf(obj, index).Set(reflect.ValueOf(g))
		},
	}
}

func reflectObjectAccessor(typ reflect.Type, index []int) accessor {
	return &objectAccessor{
		get: func(obj Object) Object {
			fv := fieldOf(obj, index)
			if fv.IsNil() {
				return nil
			}
			return fv.Interface().(Object)
		},
		set: func(obj Object, nested Object) error {
			nv := reflect.ValueOf(nested)
			if !nv.Type().AssignableTo(typ) {
				return fmt.Errorf("%w: nested object is %v, wanted %v", ErrTypeMismatch, nv.Type(), typ)
			}
			fieldOf(obj, index).Set(nv)
			return nil
		},
	}
}
