// Package codec converts store state to and from the text written to
// storage.
package codec

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ErrNotMapping is returned by Decode when the payload is not an object.
var ErrNotMapping = errors.New("codec: payload is not a mapping")

// Codec serialises a state value and parses it back into a mapping.
type Codec interface {
	Encode(value any) ([]byte, error)
	Decode(data []byte) (map[string]any, error)
}

// Option configures the JSON and YAML codecs.
type Option func(*config)

type config struct {
	utc bool
}

// WithUTC normalises dates to UTC before encoding.
func WithUTC() Option {
	return func(cfg *config) {
		cfg.utc = true
	}
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// normalizer turns a state value into plain maps, slices and scalars. Values
// that are their own ancestors become "[Circular ~.path]" markers.
type normalizer struct {
	dates    func(time.Time) any
	ancestry []ancestor
}

type ancestor struct {
	ptr   uintptr
	depth int
}

func (n *normalizer) normalize(v reflect.Value, path []string) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Type() == timeType {
		if !v.CanInterface() {
			return nil, nil
		}
		return n.dates(v.Interface().(time.Time)), nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return n.normalize(v.Elem(), path)
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		if marker, ok := n.circular(v.Pointer(), path); ok {
			return marker, nil
		}
		n.enter(v.Pointer(), len(path))
		defer n.leave()
		return n.normalize(v.Elem(), path)
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		if marker, ok := n.circular(v.Pointer(), path); ok {
			return marker, nil
		}
		n.enter(v.Pointer(), len(path))
		defer n.leave()
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := mapKey(iter.Key())
			child, err := n.normalize(iter.Value(), append(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = child
		}
		return out, nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes(), nil
		}
		if v.Len() > 0 {
			if marker, ok := n.circular(v.Pointer(), path); ok {
				return marker, nil
			}
			n.enter(v.Pointer(), len(path))
			defer n.leave()
		}
		return n.sequence(v, path)
	case reflect.Array:
		return n.sequence(v, path)
	case reflect.Struct:
		return n.structure(v, path)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, fmt.Errorf("codec: unsupported value of kind %s at %q", v.Kind(), strings.Join(path, "."))
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		return v.String(), nil
	default:
		return nil, fmt.Errorf("codec: unsupported value of kind %s at %q", v.Kind(), strings.Join(path, "."))
	}
}

func (n *normalizer) sequence(v reflect.Value, path []string) (any, error) {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		child, err := n.normalize(v.Index(i), append(path, strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		out[i] = child
	}
	return out, nil
}

// structure maps exported fields using their json tag names.
func (n *normalizer) structure(v reflect.Value, path []string) (any, error) {
	rt := v.Type()
	out := make(map[string]any, v.NumField())
	for i := 0; i < v.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		omitEmpty := false
		if tag := field.Tag.Get("json"); tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				omitEmpty = omitEmpty || opt == "omitempty"
			}
		}
		fv := v.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		child, err := n.normalize(fv, append(path, name))
		if err != nil {
			return nil, err
		}
		out[name] = child
	}
	return out, nil
}

func (n *normalizer) circular(ptr uintptr, path []string) (string, bool) {
	for _, seen := range n.ancestry {
		if seen.ptr == ptr {
			return circularMarker(path[:seen.depth]), true
		}
	}
	return "", false
}

func (n *normalizer) enter(ptr uintptr, depth int) {
	n.ancestry = append(n.ancestry, ancestor{ptr: ptr, depth: depth})
}

func (n *normalizer) leave() {
	n.ancestry = n.ancestry[:len(n.ancestry)-1]
}

func circularMarker(path []string) string {
	if len(path) == 0 {
		return "[Circular ~]"
	}
	return "[Circular ~." + strings.Join(path, ".") + "]"
}

func mapKey(key reflect.Value) string {
	if key.Kind() == reflect.String {
		return key.String()
	}
	if key.CanInterface() {
		return fmt.Sprint(key.Interface())
	}
	return key.String()
}

var timeType = reflect.TypeOf(time.Time{})
