package reflser

import (
	"bytes"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

func encodeMsgPack(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(&buf)
	if err := msgpackEncodeValue(enc, t); err != nil {
		return nil, fmt.Errorf("encoding msgpack: %w", err)
	}
	return buf.Bytes(), nil
}

func msgpackEncodeValue(enc *msgpack.Encoder, v any) error {
	switch v := v.(type) {
	case bool:
		return enc.EncodeBool(v)
	case int64:
		return enc.EncodeInt(v)
	case float64:
		return enc.EncodeFloat64(v)
	case string:
		return enc.EncodeString(v)
	case []any:
		if err := enc.EncodeArrayLen(len(v)); err != nil {
			return err
		}
		for _, item := range v {
			if err := msgpackEncodeValue(enc, item); err != nil {
				return err
			}
		}
		return nil
	case *Table:
		if err := enc.EncodeMapLen(v.Len()); err != nil {
			return err
		}
		for _, k := range v.keys {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := msgpackEncodeValue(enc, v.values[k]); err != nil {
				return err
			}
		}
		return nil
	default:
		panic(fmt.Errorf("unsupported value type %T", v))
	}
}

func decodeMsgPack(data []byte) (*Table, error) {
	if len(data) == 0 {
		return NewTable(), nil
	}
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.Reset(&r)

	c, err := dec.PeekCode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, dataErrf(data, 0, err, "msgpack"))
	}
	if !isMsgPackMap(c) {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, dataErrf(data, 0, nil, "msgpack: document root must be a map"))
	}
	v, err := msgpackDecodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, dataErrf(data, len(data)-r.Len(), err, "msgpack"))
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, dataErrf(data, len(data)-r.Len(), nil, "msgpack: %d trailing bytes", r.Len()))
	}
	return v.(*Table), nil
}

func isMsgPackMap(c byte) bool {
	return msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32
}

func isMsgPackArray(c byte) bool {
	return msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32
}

func msgpackDecodeValue(dec *msgpack.Decoder) (any, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}
	switch {
	case isMsgPackMap(c):
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		t := NewTable()
		for i := 0; i < n; i++ {
			k, err := dec.DecodeString()
			if err != nil {
				return nil, err
			}
			if t.Has(k) {
				return nil, fmt.Errorf("duplicate key %q", k)
			}
			v, err := msgpackDecodeValue(dec)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			t.Set(k, v)
		}
		return t, nil
	case isMsgPackArray(c):
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		a := make([]any, 0, max(n, 0))
		for i := 0; i < n; i++ {
			v, err := msgpackDecodeValue(dec)
			if err != nil {
				return nil, err
			}
			if _, ok := v.(*Table); ok {
				return nil, fmt.Errorf("maps inside arrays are not supported")
			}
			a = append(a, v)
		}
		return a, nil
	case c == msgpcode.Nil:
		return nil, fmt.Errorf("nil values are not supported")
	}

	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case bool, int64, float64, string:
		return v, nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", v)
		}
		return int64(v), nil
	default:
		return nil, fmt.Errorf("unsupported msgpack value of type %T", v)
	}
}
