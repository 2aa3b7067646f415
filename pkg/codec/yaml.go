package codec

import (
	"fmt"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"
)

// YAML writes state as a YAML document. Dates use YAML timestamps; yaml.v3
// reads those back as strings, so they are revived like JSON dates.
type YAML struct {
	cfg config
}

// NewYAML constructs the YAML codec.
func NewYAML(opts ...Option) *YAML {
	return &YAML{cfg: applyOptions(opts)}
}

// Encode serialises value with the same cycle markers as the JSON codec.
func (c *YAML) Encode(value any) ([]byte, error) {
	n := &normalizer{dates: func(t time.Time) any {
		if c.cfg.utc {
			return t.UTC()
		}
		return t
	}}
	tree, err := n.normalize(reflect.ValueOf(value), nil)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

// Decode parses a YAML mapping. An empty document decodes to an empty
// mapping.
func (c *YAML) Decode(data []byte) (map[string]any, error) {
	var out any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("codec: decode yaml: %w", err)
	}
	if out == nil {
		return map[string]any{}, nil
	}
	m, ok := revive(out).(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	return m, nil
}
