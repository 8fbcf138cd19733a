package reflser

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

type (
	Vec2 [2]float32
	Vec3 [3]float32
	Vec4 [4]float32
)

// Mesh is static triangle geometry. It is stored in a sidecar file rather
// than in the document.
type Mesh struct {
	Positions []Vec3   `msgpack:"p"`
	Normals   []Vec3   `msgpack:"n,omitempty"`
	UVs       []Vec2   `msgpack:"uv,omitempty"`
	Indices   []uint32 `msgpack:"i"`
}

func (m *Mesh) IsEmpty() bool {
	return m == nil || (len(m.Positions) == 0 && len(m.Indices) == 0)
}

// SkeletalMesh is a Mesh with per-vertex joint bindings.
type SkeletalMesh struct {
	Mesh    `msgpack:",inline"`
	Joints  [][4]uint16 `msgpack:"j"`
	Weights []Vec4      `msgpack:"w"`
}

func (m *SkeletalMesh) IsEmpty() bool {
	return m == nil || (m.Mesh.IsEmpty() && len(m.Joints) == 0)
}

// geometry constrains the payload types stored as sidecars.
type geometry interface {
	Mesh | SkeletalMesh
}

func isEmptyGeometry[G geometry](g *G) bool {
	switch g := any(g).(type) {
	case *Mesh:
		return g.IsEmpty()
	case *SkeletalMesh:
		return g.IsEmpty()
	default:
		panic("unreachable")
	}
}

const geometryFormatVer = 1

func encodeGeometry[G geometry](g *G) []byte {
	var buf bytes.Buffer
	buf.WriteByte(geometryFormatVer)
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(g)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode %T using MsgPack: %w", g, err))
	}
	return buf.Bytes()
}

func decodeGeometry[G geometry](data []byte) (*G, error) {
	if len(data) == 0 {
		return nil, dataErrf(data, 0, nil, "empty geometry payload")
	}
	if data[0] != geometryFormatVer {
		return nil, dataErrf(data, 0, nil, "unsupported geometry format version %d", data[0])
	}
	var r bytes.Reader
	r.Reset(data[1:])
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	g := new(G)
	err := dec.Decode(g)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, dataErrf(data, len(data)-r.Len(), err, "failed to decode msgpack into %T", g)
	}
	return g, nil
}
