package values

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNotSerializable marks values outside the storable variant set.
var ErrNotSerializable = errors.New("value is not serializable")

// InvalidValueError reports the first non-storable value found by Validate.
type InvalidValueError struct {
	Path string
	Kind reflect.Kind
}

func (e *InvalidValueError) Error() string {
	if e == nil {
		return "<nil>"
	}
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	return fmt.Sprintf("%s at %s: %v", e.Kind, path, ErrNotSerializable)
}

func (e *InvalidValueError) Unwrap() error {
	return ErrNotSerializable
}

// Validate walks value and fails on the first func, channel or unsafe
// pointer it finds, at any depth.
func Validate(value any) error {
	return validateValue(reflect.ValueOf(value), nil, map[uintptr]struct{}{})
}

func validateValue(v reflect.Value, path []string, seen map[uintptr]struct{}) error {
	if !v.IsValid() {
		return nil
	}
	if v.Type() == timeType {
		return nil
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return &InvalidValueError{Path: strings.Join(path, "."), Kind: v.Kind()}
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return validateValue(v.Elem(), path, seen)
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if _, ok := seen[v.Pointer()]; ok {
			return nil
		}
		seen[v.Pointer()] = struct{}{}
		return validateValue(v.Elem(), path, seen)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		if _, ok := seen[v.Pointer()]; ok {
			return nil
		}
		seen[v.Pointer()] = struct{}{}
		iter := v.MapRange()
		for iter.Next() {
			next := append(append([]string(nil), path...), fmt.Sprint(iter.Key().Interface()))
			if err := validateValue(iter.Value(), next, seen); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Len() > 0 {
			if _, ok := seen[v.Pointer()]; ok {
				return nil
			}
			seen[v.Pointer()] = struct{}{}
		}
		for i := 0; i < v.Len(); i++ {
			next := append(append([]string(nil), path...), fmt.Sprint(i))
			if err := validateValue(v.Index(i), next, seen); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			next := append(append([]string(nil), path...), t.Field(i).Name)
			if err := validateValue(v.Field(i), next, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
