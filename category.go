package reflser

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// category describes how values of one field kind are compared, and how they
// map to document values.
type category[V any] struct {
	kind   Kind
	equal  func(a, b V, eps float64) bool
	encode func(v V) any
	decode func(v any) (V, error)
}

func exactEqual[V comparable](a, b V, _ float64) bool { return a == b }

func nearlyEqual(a, b float32, eps float64) bool {
	if a == b {
		return true
	}
	return math.Abs(float64(a)-float64(b)) < eps
}

func vecEqual[V Vec2 | Vec3 | Vec4](a, b V, eps float64) bool {
	for i := 0; i < len(a); i++ {
		if !nearlyEqual(a[i], b[i], eps) {
			return false
		}
	}
	return true
}

func mismatch(v any, wanted string) error {
	return fmt.Errorf("%w: got %s, wanted %s", ErrTypeMismatch, describeValue(v), wanted)
}

func asInt(v any, lo, hi int64, wanted string) (int64, error) {
	i, ok := v.(int64)
	if !ok {
		return 0, mismatch(v, wanted)
	}
	if i < lo || i > hi {
		return 0, fmt.Errorf("%w: %d is out of range for %s", ErrTypeMismatch, i, wanted)
	}
	return i, nil
}

func asFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		// NaN and infinities in formats without literals for them
		switch v {
		case ".nan":
			return math.NaN(), nil
		case ".inf":
			return math.Inf(1), nil
		case "-.inf":
			return math.Inf(-1), nil
		}
	}
	return 0, mismatch(v, "a float")
}

func asFloats(v any, n int) ([]float32, error) {
	a, ok := v.([]any)
	if !ok {
		return nil, mismatch(v, fmt.Sprintf("an array of %d floats", n))
	}
	if len(a) != n {
		return nil, fmt.Errorf("%w: got %d components, wanted %d", ErrTypeMismatch, len(a), n)
	}
	result := make([]float32, n)
	for i, item := range a {
		f, err := asFloat(item)
		if err != nil {
			return nil, err
		}
		result[i] = float32(f)
	}
	return result, nil
}

func encodeFloats(fs []float32) []any {
	a := make([]any, len(fs))
	for i, f := range fs {
		a[i] = float64(f)
	}
	return a
}

var boolCategory = &category[bool]{
	kind:   KindBool,
	equal:  exactEqual[bool],
	encode: func(v bool) any { return v },
	decode: func(v any) (bool, error) {
		b, ok := v.(bool)
		if !ok {
			return false, mismatch(v, "a bool")
		}
		return b, nil
	},
}

var int32Category = &category[int32]{
	kind:   KindInt32,
	equal:  exactEqual[int32],
	encode: func(v int32) any { return int64(v) },
	decode: func(v any) (int32, error) {
		i, err := asInt(v, math.MinInt32, math.MaxInt32, "an int32")
		return int32(i), err
	},
}

var uint32Category = &category[uint32]{
	kind:   KindUint32,
	equal:  exactEqual[uint32],
	encode: func(v uint32) any { return int64(v) },
	decode: func(v any) (uint32, error) {
		i, err := asInt(v, 0, math.MaxUint32, "a uint32")
		return uint32(i), err
	},
}

var int64Category = &category[int64]{
	kind:   KindInt64,
	equal:  exactEqual[int64],
	encode: func(v int64) any { return v },
	decode: func(v any) (int64, error) {
		return asInt(v, math.MinInt64, math.MaxInt64, "an int64")
	},
}

// uint64 values above math.MaxInt64 are stored as decimal strings.
var uint64Category = &category[uint64]{
	kind:  KindUint64,
	equal: exactEqual[uint64],
	encode: func(v uint64) any {
		if v > math.MaxInt64 {
			return strconv.FormatUint(v, 10)
		}
		return int64(v)
	},
	decode: func(v any) (uint64, error) {
		switch v := v.(type) {
		case int64:
			if v < 0 {
				return 0, fmt.Errorf("%w: %d is out of range for a uint64", ErrTypeMismatch, v)
			}
			return uint64(v), nil
		case string:
			u, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q is not a uint64", ErrTypeMismatch, v)
			}
			return u, nil
		default:
			return 0, mismatch(v, "a uint64")
		}
	},
}

var float32Category = &category[float32]{
	kind:   KindFloat32,
	equal:  nearlyEqual,
	encode: func(v float32) any { return float64(v) },
	decode: func(v any) (float32, error) {
		f, err := asFloat(v)
		return float32(f), err
	},
}

var stringCategory = &category[string]{
	kind:   KindString,
	equal:  exactEqual[string],
	encode: func(v string) any { return v },
	decode: func(v any) (string, error) {
		s, ok := v.(string)
		if !ok {
			return "", mismatch(v, "a string")
		}
		return s, nil
	},
}

var vec2Category = &category[Vec2]{
	kind:   KindVec2,
	equal:  vecEqual[Vec2],
	encode: func(v Vec2) any { return encodeFloats(v[:]) },
	decode: func(v any) (Vec2, error) {
		fs, err := asFloats(v, 2)
		if err != nil {
			return Vec2{}, err
		}
		return Vec2(fs), nil
	},
}

var vec3Category = &category[Vec3]{
	kind:   KindVec3,
	equal:  vecEqual[Vec3],
	encode: func(v Vec3) any { return encodeFloats(v[:]) },
	decode: func(v any) (Vec3, error) {
		fs, err := asFloats(v, 3)
		if err != nil {
			return Vec3{}, err
		}
		return Vec3(fs), nil
	},
}

var vec4Category = &category[Vec4]{
	kind:   KindVec4,
	equal:  vecEqual[Vec4],
	encode: func(v Vec4) any { return encodeFloats(v[:]) },
	decode: func(v any) (Vec4, error) {
		fs, err := asFloats(v, 4)
		if err != nil {
			return Vec4{}, err
		}
		return Vec4(fs), nil
	},
}

var intListCategory = &category[[]int]{
	kind:  KindIntList,
	equal: func(a, b []int, _ float64) bool { return slices.Equal(a, b) },
	encode: func(v []int) any {
		a := make([]any, len(v))
		for i, item := range v {
			a[i] = int64(item)
		}
		return a
	},
	decode: func(v any) ([]int, error) {
		a, ok := v.([]any)
		if !ok {
			return nil, mismatch(v, "an array of integers")
		}
		if len(a) == 0 {
			return nil, nil
		}
		result := make([]int, len(a))
		for i, item := range a {
			n, err := asInt(item, math.MinInt, math.MaxInt, "an int")
			if err != nil {
				return nil, err
			}
			result[i] = int(n)
		}
		return result, nil
	},
}

var stringListCategory = &category[[]string]{
	kind:  KindStringList,
	equal: func(a, b []string, _ float64) bool { return slices.Equal(a, b) },
	encode: func(v []string) any {
		a := make([]any, len(v))
		for i, item := range v {
			a[i] = item
		}
		return a
	},
	decode: func(v any) ([]string, error) {
		a, ok := v.([]any)
		if !ok {
			return nil, mismatch(v, "an array of strings")
		}
		if len(a) == 0 {
			return nil, nil
		}
		result := make([]string, len(a))
		for i, item := range a {
			s, ok := item.(string)
			if !ok {
				return nil, mismatch(item, "a string")
			}
			result[i] = s
		}
		return result, nil
	},
}

var vec3ListCategory = &category[[]Vec3]{
	kind: KindVec3List,
	equal: func(a, b []Vec3, eps float64) bool {
		return slices.EqualFunc(a, b, func(x, y Vec3) bool { return vecEqual(x, y, eps) })
	},
	encode: func(v []Vec3) any {
		a := make([]any, len(v))
		for i, item := range v {
			a[i] = encodeFloats(item[:])
		}
		return a
	},
	decode: func(v any) ([]Vec3, error) {
		a, ok := v.([]any)
		if !ok {
			return nil, mismatch(v, "an array of vec3")
		}
		if len(a) == 0 {
			return nil, nil
		}
		result := make([]Vec3, len(a))
		for i, item := range a {
			fs, err := asFloats(item, 3)
			if err != nil {
				return nil, err
			}
			result[i] = Vec3(fs)
		}
		return result, nil
	},
}
