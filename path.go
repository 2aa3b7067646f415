package statebox

import (
	"reflect"
	"strings"
)

// Path addresses a nested location inside the state. The zero Path is the
// root and resolves to the whole state.
type Path struct {
	raw      string
	segments []string
}

// ParsePath splits a dotted path ("a.b.c") into segments. The empty string
// is the root path.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, nil
	}
	segments := strings.Split(raw, ".")
	for _, segment := range segments {
		if segment == "" {
			return Path{}, invalidPath(raw, "empty segment")
		}
	}
	return Path{raw: raw, segments: segments}, nil
}

// MustParsePath is like ParsePath but panics on malformed input.
func MustParsePath(raw string) Path {
	path, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return path
}

// IsRoot reports whether p addresses the whole state.
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

func (p Path) String() string {
	return p.raw
}

// Segments returns a copy of the parsed segments.
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Resolve descends through value following the path segments. Any map keyed
// by a string kind counts as a mapping. The boolean is false when a segment
// is missing or an intermediate value is not a mapping.
func (p Path) Resolve(value any) (any, bool) {
	current := value
	for _, segment := range p.segments {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	if p.IsRoot() && current == nil {
		return nil, false
	}
	return current, true
}

func child(value any, key string) (any, bool) {
	if node, ok := value.(map[string]any); ok {
		next, found := node[key]
		return next, found
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String || v.IsNil() {
		return nil, false
	}
	next := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key()))
	if !next.IsValid() || !next.CanInterface() {
		return nil, false
	}
	return next.Interface(), true
}
