package reflser

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

func encodeYAML(t *Table) ([]byte, error) {
	root := yamlTable(t)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func yamlTable(t *Table) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range t.keys {
		n.Content = append(n.Content, yamlScalar("!!str", k), yamlValue(t.values[k]))
	}
	return n
}

func yamlValue(v any) *yaml.Node {
	switch v := v.(type) {
	case bool:
		return yamlScalar("!!bool", strconv.FormatBool(v))
	case int64:
		return yamlScalar("!!int", strconv.FormatInt(v, 10))
	case float64:
		return yamlScalar("!!float", formatFloat(v))
	case string:
		return yamlScalar("!!str", v)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if isFlatArray(v) {
			n.Style = yaml.FlowStyle
		}
		for _, item := range v {
			n.Content = append(n.Content, yamlValue(item))
		}
		return n
	case *Table:
		return yamlTable(v)
	default:
		panic(fmt.Errorf("unsupported value type %T", v))
	}
}

func yamlScalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// isFlatArray reports whether an array holds only scalars; such arrays are
// printed inline, e.g. vectors as [1.0, 2.0, 3.0].
func isFlatArray(a []any) bool {
	for _, item := range a {
		switch item.(type) {
		case []any, *Table:
			return false
		}
	}
	return true
}

func decodeYAML(data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrMalformed, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NewTable(), nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: yaml: document root must be a mapping, got %s at line %d", ErrMalformed, root.ShortTag(), root.Line)
	}
	v, err := yamlDecodeNode(root)
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

func yamlDecodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return yamlDecodeNode(n.Alias)
	case yaml.MappingNode:
		t := NewTable()
		for i := 0; i+1 < len(n.Content); i += 2 {
			kn, vn := n.Content[i], n.Content[i+1]
			if kn.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: yaml: non-scalar key at line %d", ErrMalformed, kn.Line)
			}
			if t.Has(kn.Value) {
				return nil, fmt.Errorf("%w: yaml: duplicate key %q at line %d", ErrMalformed, kn.Value, kn.Line)
			}
			v, err := yamlDecodeNode(vn)
			if err != nil {
				return nil, err
			}
			t.Set(kn.Value, v)
		}
		return t, nil
	case yaml.SequenceNode:
		a := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := yamlDecodeNode(item)
			if err != nil {
				return nil, err
			}
			if _, ok := v.(*Table); ok {
				return nil, fmt.Errorf("%w: yaml: tables inside arrays are not supported (line %d)", ErrMalformed, item.Line)
			}
			a = append(a, v)
		}
		return a, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, fmt.Errorf("%w: yaml: line %d: %v", ErrMalformed, n.Line, err)
			}
			return b, nil
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				// too large for int64, keep the literal for uint64 fields
				return n.Value, nil
			}
			return i, nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return nil, fmt.Errorf("%w: yaml: line %d: %v", ErrMalformed, n.Line, err)
			}
			return f, nil
		case "!!null":
			return nil, fmt.Errorf("%w: yaml: null values are not supported (line %d)", ErrMalformed, n.Line)
		default:
			return n.Value, nil
		}
	default:
		return nil, fmt.Errorf("%w: yaml: unexpected node kind %d at line %d", ErrMalformed, n.Kind, n.Line)
	}
}
