package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrNotObject = errors.New("record is not a JSON object")

// Raw is an untyped API payload. Keys keep the order they were received in,
// nested objects are *Raw, arrays are []any and numbers are json.Number.
type Raw struct {
	keys   []string
	values map[string]any
}

func New() *Raw {
	return &Raw{values: make(map[string]any)}
}

// With sets a field and returns the record. It is meant for assembling
// records from sources other than JSON; existing keys keep their position.
func (r *Raw) With(key string, value any) *Raw {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
	return r
}

func (r *Raw) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Value returns the field or nil when it is absent.
func (r *Raw) Value(key string) any {
	v, _ := r.Get(key)
	return v
}

func (r *Raw) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Raw) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// String returns the field rendered as a string. Numbers and booleans are
// formatted, anything else yields "".
func (r *Raw) String(key string) string {
	switch v := r.Value(key).(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Object returns a nested object field.
func (r *Raw) Object(key string) *Raw {
	obj, _ := r.Value(key).(*Raw)
	return obj
}

// Objects returns the nested objects held in a sequence field. Elements that
// are not objects are skipped.
func (r *Raw) Objects(key string) []*Raw {
	return ObjectsOf(r.Value(key))
}

func ObjectsOf(v any) []*Raw {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]*Raw, 0, len(list))
	for _, el := range list {
		if obj, ok := el.(*Raw); ok {
			out = append(out, obj)
		}
	}
	return out
}

func Decode(data []byte) (*Raw, error) {
	return DecodeReader(bytes.NewReader(data))
}

func DecodeReader(r io.Reader) (*Raw, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}

	obj, ok := v.(*Raw)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// DecodeList decodes a JSON array of records. A top-level object is treated
// as a list of one.
func DecodeList(data []byte) ([]*Raw, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	switch t := v.(type) {
	case *Raw:
		return []*Raw{t}, nil
	case []any:
		return ObjectsOf(t), nil
	case nil:
		return nil, nil
	default:
		return nil, ErrNotObject
	}
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := New()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.With(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		list := make([]any, 0)
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

func (r *Raw) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

func (r *Raw) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Raw) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	if r == nil {
		return node, nil
	}
	for _, k := range r.keys {
		var val yaml.Node
		if err := val.Encode(YAMLValue(r.values[k])); err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", k, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &val)
	}
	return node, nil
}

// YAMLValue converts json.Number into a native number so it is emitted
// unquoted.
func YAMLValue(v any) any {
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, el := range list {
			out[i] = YAMLValue(el)
		}
		return out
	}

	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Record returns r itself, letting bare records stand in wherever a wrapped
// resource is expected.
func (r *Raw) Record() *Raw {
	return r
}

// Clone returns a shallow copy that can be amended with With without
// touching r.
func (r *Raw) Clone() *Raw {
	out := New()
	if r == nil {
		return out
	}
	out.keys = append(out.keys, r.keys...)
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}
