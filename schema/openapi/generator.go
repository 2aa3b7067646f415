// Package openapi renders a store state as an OpenAPI document whose
// components section describes the state shape.
package openapi

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-statebox"
)

var timeType = reflect.TypeOf(time.Time{})

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI schema generator.
func NewGenerator(opts ...GeneratorOption) statebox.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option wires the OpenAPI generator into a store.
func Option(opts ...GeneratorOption) statebox.Option {
	return statebox.WithSchemaGenerator(NewGenerator(opts...))
}

func (g generator) Generate(value any) (statebox.SchemaDocument, error) {
	b := &builder{active: map[uintptr]bool{}}
	schema, err := b.build(reflect.ValueOf(value))
	if err != nil {
		return statebox.SchemaDocument{}, err
	}

	info := map[string]any{
		"title":   g.config.title,
		"version": g.config.version,
	}
	if g.config.description != "" {
		info["description"] = g.config.description
	}
	document := map[string]any{
		"openapi": g.config.openAPIVersion,
		"info":    info,
		"paths":   map[string]any{},
		"components": map[string]any{
			"schemas": map[string]any{
				g.config.component: schema,
			},
		},
	}
	return statebox.SchemaDocument{
		Format:   statebox.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}

// builder tracks the containers on the current descent so cyclic state
// terminates in an open object schema.
type builder struct {
	active map[uintptr]bool
}

func (b *builder) build(rv reflect.Value) (map[string]any, error) {
	if !rv.IsValid() {
		return map[string]any{"nullable": true}, nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return map[string]any{"nullable": true}, nil
		}
		if rv.Kind() == reflect.Pointer {
			if b.active[rv.Pointer()] {
				return map[string]any{"type": "object"}, nil
			}
			b.active[rv.Pointer()] = true
			defer delete(b.active, rv.Pointer())
		}
		return b.build(rv.Elem())
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Struct:
		if rv.Type() == timeType {
			return map[string]any{"type": "string", "format": "date-time"}, nil
		}
		return b.structure(rv)
	case reflect.Map:
		if rv.IsNil() {
			return map[string]any{"type": "object", "properties": map[string]any{}}, nil
		}
		if b.active[rv.Pointer()] {
			return map[string]any{"type": "object"}, nil
		}
		b.active[rv.Pointer()] = true
		defer delete(b.active, rv.Pointer())
		return b.mapping(rv)
	case reflect.Slice, reflect.Array:
		return b.sequence(rv)
	default:
		return map[string]any{
			"type":   "string",
			"format": fmt.Sprintf("go:%s", rv.Type().String()),
		}, nil
	}
}

func (b *builder) mapping(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rv.Type().Key())
	}
	names := make([]string, 0, rv.Len())
	for _, key := range rv.MapKeys() {
		names = append(names, key.String())
	}
	sort.Strings(names)

	properties := make(map[string]any, len(names))
	for _, name := range names {
		child, err := b.build(rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		properties[name] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

func (b *builder) structure(rv reflect.Value) (map[string]any, error) {
	rt := rv.Type()
	properties := map[string]any{}
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		child, err := b.build(rv.Field(i))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		properties[name] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

func (b *builder) sequence(rv reflect.Value) (map[string]any, error) {
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return map[string]any{"type": "string", "format": "byte"}, nil
	}
	items := map[string]any{}
	if rv.Len() > 0 {
		var err error
		items, err = b.build(rv.Index(0))
		if err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"type":  "array",
		"items": items,
	}, nil
}
