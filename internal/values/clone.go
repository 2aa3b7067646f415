package values

import (
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// Clone returns a deep copy of value. Mappings, sequences and pointers are
// copied recursively, preserving shared and cyclic references; dates are
// copied by value.
func Clone(value any) any {
	if value == nil {
		return nil
	}
	c := cloner{seen: map[ref]reflect.Value{}}
	cloned := c.clone(reflect.ValueOf(value))
	if !cloned.IsValid() {
		return nil
	}
	return cloned.Interface()
}

// CloneMap deep copies a state mapping. A nil input yields an empty map.
func CloneMap(src map[string]any) map[string]any {
	if src == nil {
		return map[string]any{}
	}
	return Clone(src).(map[string]any)
}

// ref identifies a pointer, map or slice header already copied. Slices that
// share a backing array but differ in length or type are distinct values.
type ref struct {
	ptr uintptr
	n   int
	typ reflect.Type
}

type cloner struct {
	seen map[ref]reflect.Value
}

func (c cloner) clone(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	if v.Type() == timeType {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := ref{ptr: v.Pointer(), typ: v.Type()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		clone := reflect.New(v.Type().Elem())
		c.seen[key] = clone
		clone.Elem().Set(c.clone(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := c.clone(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(elem)
		return out
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(c.clone(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := ref{ptr: v.Pointer(), typ: v.Type()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[key] = clone
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), c.clone(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		var key ref
		if v.Len() > 0 {
			key = ref{ptr: v.Pointer(), n: v.Len(), typ: v.Type()}
			if done, ok := c.seen[key]; ok {
				return done
			}
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		if v.Len() > 0 {
			c.seen[key] = clone
		}
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(c.clone(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(c.clone(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}
