package reflser

import "fmt"

// Kind is a reflected field category. The declaration order is the order in
// which fields are written.
type Kind int

const (
	KindBool Kind = iota
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindString
	KindVec2
	KindVec3
	KindVec4
	KindIntList
	KindStringList
	KindVec3List
	KindObject
	KindMesh
	KindSkeletalMesh

	kindCount
)

var kindNames = [kindCount]string{
	KindBool:         "bool",
	KindInt32:        "int32",
	KindUint32:       "uint32",
	KindInt64:        "int64",
	KindUint64:       "uint64",
	KindFloat32:      "float32",
	KindString:       "string",
	KindVec2:         "vec2",
	KindVec3:         "vec3",
	KindVec4:         "vec4",
	KindIntList:      "[]int",
	KindStringList:   "[]string",
	KindVec3List:     "[]vec3",
	KindObject:       "object",
	KindMesh:         "mesh",
	KindSkeletalMesh: "skeletal_mesh",
}

func (k Kind) String() string {
	if k >= 0 && k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsGeometry reports whether fields of this kind live in sidecar files.
func (k Kind) IsGeometry() bool {
	return k == KindMesh || k == KindSkeletalMesh
}
