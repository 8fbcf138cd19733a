package reflser

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
)

type (
	Node struct {
		Base
		Name     string   `reflser:"name"`
		Visible  bool     `reflser:"visible"`
		Layer    int32    `reflser:"layer"`
		Flags    uint32   `reflser:"flags"`
		Serial   uint64   `reflser:"serial"`
		Scale    float32  `reflser:"scale"`
		Position Vec3     `reflser:"position"`
		Tags     []string `reflser:"tags"`
		Child    *Node    `reflser:"child"`
		Geo      *Mesh    `reflser:"geo"`
		Cache    string   `reflser:"-"`
	}

	Light struct {
		Base
		Intensity float32
		Color     Vec3
		UV        Vec2
		Tint      Vec4
		Ticks     int64
		Path      []Vec3
		Indices   []int
		Target    *Node

		derived float32
	}

	Rig struct {
		Base
		Name string        `reflser:"name"`
		Mesh *Mesh         `reflser:"mesh"`
		Skin *SkeletalMesh `reflser:"skin"`
	}
)

func (l *Light) PostDeserialize() error {
	l.derived = l.Intensity * 2
	return nil
}

func newTestRegistry() *Registry {
	reg := NewRegistry()
	RegisterStruct[Node](reg, "node", "")
	DefineType(reg, "light", "Light", func(b *TypeBuilder[Light]) {
		b.Float32("intensity", func(l *Light) float32 { return l.Intensity }, func(l *Light, v float32) { l.Intensity = v })
		b.Vec3("color", func(l *Light) Vec3 { return l.Color }, func(l *Light, v Vec3) { l.Color = v })
		b.Vec2("uv", func(l *Light) Vec2 { return l.UV }, func(l *Light, v Vec2) { l.UV = v })
		b.Vec4("tint", func(l *Light) Vec4 { return l.Tint }, func(l *Light, v Vec4) { l.Tint = v })
		b.Int64("ticks", func(l *Light) int64 { return l.Ticks }, func(l *Light, v int64) { l.Ticks = v })
		b.Vec3List("path", func(l *Light) []Vec3 { return l.Path }, func(l *Light, v []Vec3) { l.Path = v })
		b.IntList("indices", func(l *Light) []int { return l.Indices }, func(l *Light, v []int) { l.Indices = v })
		Nested(b, "target", func(l *Light) *Node { return l.Target }, func(l *Light, v *Node) { l.Target = v })
	})
	RegisterStruct[Rig](reg, "rig", "")
	return reg
}

// logBuffer collects log output of a test serializer.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	s        *Serializer
	root     string
	sidecars *MemSidecars
	log      *logBuffer
}

func setup(t testing.TB, opt Options) *testEnv {
	t.Helper()
	env := &testEnv{
		root:     t.TempDir(),
		sidecars: NewMemSidecars(),
		log:      &logBuffer{},
	}
	if opt.RepositoryRoot == "" {
		opt.RepositoryRoot = env.root
	}
	if opt.Sidecars == nil {
		opt.Sidecars = env.sidecars
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.NewTextHandler(env.log, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	env.s = New(newTestRegistry(), opt)
	return env
}

func sampleNode() *Node {
	return &Node{
		Name:     "crate",
		Visible:  true,
		Layer:    -3,
		Flags:    7,
		Serial:   1<<63 + 5,
		Scale:    1.5,
		Position: Vec3{1, 2.25, -3},
		Tags:     []string{"wood", "prop"},
		Child: &Node{
			Name:  "lid",
			Scale: 0.5,
		},
	}
}

func sampleMesh() *Mesh {
	return &Mesh{
		Positions: []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 2},
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isnil[T any, P ~*T](t testing.TB, a P) {
	if a != nil {
		t.Helper()
		t.Errorf("** got &%v, wanted nil", *a)
	}
}

func isErr(t testing.TB, err, target error) {
	if !errors.Is(err, target) {
		t.Helper()
		t.Errorf("** got error %v, wanted %v", err, target)
	}
}

func contains(t testing.TB, s, sub string) {
	if !strings.Contains(s, sub) {
		t.Helper()
		t.Errorf("** got %q, wanted it to contain %q", s, sub)
	}
}
