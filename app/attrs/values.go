package attrs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/blog-porter/app/record"
)

// Values is an ordered attribute set.
type Values struct {
	keys   []string
	values map[string]any
}

func NewValues() *Values {
	return &Values{values: make(map[string]any)}
}

func (v *Values) Set(key string, value any) {
	if _, ok := v.values[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.values[key] = value
}

func (v *Values) Get(key string) any {
	if v == nil {
		return nil
	}
	return v.values[key]
}

func (v *Values) Has(key string) bool {
	if v == nil {
		return false
	}
	_, ok := v.values[key]
	return ok
}

func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}

// Merge appends or overwrites every key of other.
func (v *Values) Merge(other *Values) {
	for _, k := range other.Keys() {
		v.Set(k, other.values[k])
	}
}

func (v *Values) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range v.Keys() {
		var val yaml.Node
		if err := val.Encode(record.YAMLValue(v.values[k])); err != nil {
			return nil, fmt.Errorf("failed to encode attribute %s: %w", k, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &val)
	}
	return node, nil
}

func (v *Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		val, err := json.Marshal(v.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode attribute %s: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
