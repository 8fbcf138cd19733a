package reflser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

const jsonIndent = "  "

func encodeJSONTable(buf *bytes.Buffer, t *Table, indent string) {
	if t.Len() == 0 {
		buf.WriteString("{}")
		return
	}
	inner := indent + jsonIndent
	buf.WriteString("{\n")
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteString(",\n")
		}
		buf.WriteString(inner)
		encodeJSONString(buf, k)
		buf.WriteString(": ")
		encodeJSONValue(buf, t.values[k], inner)
	}
	buf.WriteByte('\n')
	buf.WriteString(indent)
	buf.WriteByte('}')
}

func encodeJSONValue(buf *bytes.Buffer, v any, indent string) {
	switch v := v.(type) {
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			// not representable as a JSON number
			encodeJSONString(buf, formatFloat(v))
		} else {
			buf.WriteString(formatFloat(v))
		}
	case string:
		encodeJSONString(buf, v)
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteString(", ")
			}
			encodeJSONValue(buf, item, indent)
		}
		buf.WriteByte(']')
	case *Table:
		encodeJSONTable(buf, v, indent)
	default:
		panic(fmt.Errorf("unsupported value type %T", v))
	}
}

func encodeJSONString(buf *bytes.Buffer, s string) {
	raw, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Errorf("failed to encode string to JSON: %w", err))
	}
	buf.Write(raw)
}

func decodeJSON(data []byte) (*Table, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return NewTable(), nil
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("%w: json: document root must be an object", ErrMalformed)
	}
	return decodeJSONObject(data)
}

func decodeJSONObject(data []byte) (*Table, error) {
	t := NewTable()
	err := jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return fmt.Errorf("key at offset %d: %w", offset, err)
		}
		if t.Has(k) {
			return fmt.Errorf("duplicate key %q", k)
		}
		v, err := decodeJSONValue(value, dataType)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		t.Set(k, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrMalformed, err)
	}
	return t, nil
}

func decodeJSONValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Number:
		if !bytes.ContainsAny(value, ".eE") {
			if i, err := jsonparser.ParseInt(value); err == nil {
				return i, nil
			}
			// too large for int64, keep the literal for uint64 fields
			return string(value), nil
		}
		return jsonparser.ParseFloat(value)
	case jsonparser.Object:
		return decodeJSONObject(value)
	case jsonparser.Array:
		a := []any{}
		var itemErr error
		_, err := jsonparser.ArrayEach(value, func(item []byte, itemType jsonparser.ValueType, offset int, err error) {
			if itemErr != nil {
				return
			}
			if err != nil {
				itemErr = err
				return
			}
			if itemType == jsonparser.Object {
				itemErr = fmt.Errorf("objects inside arrays are not supported (offset %d)", offset)
				return
			}
			v, err := decodeJSONValue(item, itemType)
			if err != nil {
				itemErr = err
				return
			}
			a = append(a, v)
		})
		if err != nil {
			return nil, err
		}
		if itemErr != nil {
			return nil, itemErr
		}
		return a, nil
	case jsonparser.Null:
		return nil, fmt.Errorf("null values are not supported")
	default:
		return nil, fmt.Errorf("unexpected value %s", strings.TrimSpace(string(value)))
	}
}
