package reflser

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Format is an on-disk encoding of a document.
type Format int

const (
	YAML Format = iota
	JSON
	MsgPack

	defaultFormat = YAML
)

func (f Format) String() string {
	switch f {
	case YAML:
		return "yaml"
	case JSON:
		return "json"
	case MsgPack:
		return "msgpack"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat accepts a format name as printed by Format.String.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	case "msgpack", "mpk":
		return MsgPack, nil
	default:
		return 0, fmt.Errorf("unknown document format %q", s)
	}
}

// FormatOf picks a format by file extension, falling back to def.
func FormatOf(path string, def Format) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return def
	}
	if f, err := ParseFormat(ext); err == nil {
		return f
	}
	return def
}

func (f Format) Encode(t *Table) ([]byte, error) {
	switch f {
	case YAML:
		return encodeYAML(t)
	case JSON:
		var buf bytes.Buffer
		encodeJSONTable(&buf, t, "")
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case MsgPack:
		return encodeMsgPack(t)
	default:
		panic("unsupported format")
	}
}

func (f Format) Decode(data []byte) (*Table, error) {
	switch f {
	case YAML:
		return decodeYAML(data)
	case JSON:
		return decodeJSON(data)
	case MsgPack:
		return decodeMsgPack(data)
	default:
		panic("unsupported format")
	}
}

// formatFloat always produces a literal that reads back as a float.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ".nan"
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
