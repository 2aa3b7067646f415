package statebox

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePath(t *testing.T) {
	root, err := ParsePath("")
	if err != nil || !root.IsRoot() {
		t.Fatalf("expected root path, got %+v err=%v", root, err)
	}

	path, err := ParsePath("user.profile.name")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(path.Segments(), []string{"user", "profile", "name"}) {
		t.Fatalf("unexpected segments %v", path.Segments())
	}
	if path.String() != "user.profile.name" {
		t.Fatalf("unexpected string %q", path.String())
	}

	for _, raw := range []string{".", "a.", ".a", "a..b"} {
		if _, err := ParsePath(raw); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath for %q, got %v", raw, err)
		}
	}
}

func TestMustParsePathPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustParsePath("a..b")
}

type sizeName string

func TestPathResolve(t *testing.T) {
	state := map[string]any{
		"user":  map[string]any{"name": "ana", "tags": []any{"x"}},
		"empty": nil,
		"cfg":   map[string]string{"x": "1"},
		"sizes": map[sizeName]int{"small": 1},
		"nodes": map[string]map[string]int{"a": {"depth": 2}},
		"ids":   map[int]string{1: "one"},
	}
	cases := []struct {
		path  string
		want  any
		found bool
	}{
		{path: "user.name", want: "ana", found: true},
		{path: "user.tags", want: []any{"x"}, found: true},
		{path: "empty", want: nil, found: true},
		{path: "user.missing", found: false},
		{path: "user.name.length", found: false},
		{path: "user.tags.0", found: false},
		{path: "empty.child", found: false},
		{path: "cfg.x", want: "1", found: true},
		{path: "cfg.y", found: false},
		{path: "sizes.small", want: 1, found: true},
		{path: "nodes.a.depth", want: 2, found: true},
		{path: "ids.1", found: false},
	}
	for _, tc := range cases {
		got, ok := MustParsePath(tc.path).Resolve(state)
		if ok != tc.found {
			t.Fatalf("%s: expected found=%v, got %v", tc.path, tc.found, ok)
		}
		if ok && !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.path, tc.want, got)
		}
	}

	if _, ok := (Path{}).Resolve(nil); ok {
		t.Fatalf("expected root of nil state to be absent")
	}
	if got, ok := (Path{}).Resolve(state); !ok || !reflect.DeepEqual(got, state) {
		t.Fatalf("expected root to resolve to state")
	}
}

func TestTypedMapsAreReachableByPath(t *testing.T) {
	store := newTestStore(t)
	rec := &recorder{}
	mustWatch(t, store, "cfg.x", rec.handle)

	mustAssign(t, store, map[string]any{"cfg": map[string]string{"x": "1"}})
	mustAssign(t, store, map[string]any{"cfg": map[string]string{"x": "1", "y": "2"}})
	mustAssign(t, store, map[string]any{"cfg": map[string]string{"x": "3"}})

	if got := rec.snapshot(); !reflect.DeepEqual(got, []any{"1", "3"}) {
		t.Fatalf("expected emissions [1 3], got %v", got)
	}
	value, ok, err := store.Get("cfg.x")
	if err != nil || !ok || value != "3" {
		t.Fatalf("expected cfg.x=3, got %v %v %v", value, ok, err)
	}
}
