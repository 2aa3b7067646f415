package values

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestEqualNestedStructures(t *testing.T) {
	a := map[string]any{
		"user": map[string]any{"name": "ana", "tags": []any{"a", "b"}},
		"n":    1,
	}
	b := map[string]any{
		"user": map[string]any{"name": "ana", "tags": []any{"a", "b"}},
		"n":    1,
	}
	if !Equal(a, b) {
		t.Fatalf("expected structurally identical maps to be equal")
	}

	b["user"].(map[string]any)["tags"] = []any{"b", "a"}
	if Equal(a, b) {
		t.Fatalf("expected sequence order to matter")
	}
}

func TestEqualDatesByInstant(t *testing.T) {
	utc := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("plus2", 2*60*60))
	if !Equal(utc, local) {
		t.Fatalf("expected same instant in different zones to be equal")
	}
	if !Equal(map[string]any{"at": utc}, map[string]any{"at": local}) {
		t.Fatalf("expected nested dates to compare by instant")
	}
	if Equal(utc, utc.Add(time.Millisecond)) {
		t.Fatalf("expected different instants to differ")
	}
}

func TestEqualDistinguishesNilAndTypes(t *testing.T) {
	if Equal(nil, 0) || Equal(0, nil) {
		t.Fatalf("expected nil to differ from zero")
	}
	if !Equal(nil, nil) {
		t.Fatalf("expected nil to equal nil")
	}
	if Equal("1", 1) {
		t.Fatalf("expected string and int to differ")
	}
	if Equal(map[string]any{"a": nil}, map[string]any{}) {
		t.Fatalf("expected explicit nil key to differ from missing key")
	}
}

func TestEqualTypedCollections(t *testing.T) {
	if !Equal([]string{"a"}, []string{"a"}) {
		t.Fatalf("expected typed slices to compare element-wise")
	}
	if !Equal(map[string]int{"a": 1}, map[string]int{"a": 1}) {
		t.Fatalf("expected typed maps to compare key-wise")
	}
	if Equal(map[string]int{"a": 1}, map[string]int{"a": 2}) {
		t.Fatalf("expected typed maps with different values to differ")
	}
}

func TestCloneSharesNoMutableState(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	src := map[string]any{
		"nested": map[string]any{"list": []any{1, map[string]any{"x": "y"}}},
		"typed":  map[string][]int{"a": {1, 2}},
		"at":     at,
	}
	cloned := Clone(src).(map[string]any)
	if !Equal(src, cloned) {
		t.Fatalf("expected clone to equal source")
	}

	cloned["nested"].(map[string]any)["list"].([]any)[1].(map[string]any)["x"] = "z"
	cloned["typed"].(map[string][]int)["a"][0] = 99
	if src["nested"].(map[string]any)["list"].([]any)[1].(map[string]any)["x"] != "y" {
		t.Fatalf("mutating clone leaked into source map")
	}
	if src["typed"].(map[string][]int)["a"][0] != 1 {
		t.Fatalf("mutating clone leaked into source typed map")
	}
	if cloned["at"].(time.Time) != at {
		t.Fatalf("expected date to be copied")
	}
}

func TestCloneStructKeepsUnexportedFields(t *testing.T) {
	type inner struct {
		Name  string
		count int
	}
	src := &inner{Name: "a", count: 3}
	cloned := Clone(src).(*inner)
	if cloned == src {
		t.Fatalf("expected a new pointer")
	}
	if cloned.Name != "a" || cloned.count != 3 {
		t.Fatalf("unexpected clone %+v", cloned)
	}
}

func TestShallowMergeReplacesTopLevelKeys(t *testing.T) {
	base := map[string]any{
		"a": map[string]any{"x": 1, "y": 2},
		"b": 1,
	}
	merged := ShallowMerge(base, map[string]any{"a": map[string]any{"x": 5}})
	want := map[string]any{"a": map[string]any{"x": 5}, "b": 1}
	if !Equal(merged, want) {
		t.Fatalf("expected %v, got %v", want, merged)
	}
	if _, ok := base["a"].(map[string]any)["x"]; !ok || base["a"].(map[string]any)["x"] != 1 {
		t.Fatalf("merge must not mutate base")
	}
}

func TestKeysBuildsNilRecord(t *testing.T) {
	got := Keys(map[string]any{"a": 1, "b": "x"})
	if !reflect.DeepEqual(got, map[string]any{"a": nil, "b": nil}) {
		t.Fatalf("unexpected change record %v", got)
	}
}

func TestValidateRejectsCallables(t *testing.T) {
	cases := []struct {
		name  string
		value any
		path  string
	}{
		{name: "top level func", value: map[string]any{"fn": func() {}}, path: "fn"},
		{name: "nested func", value: map[string]any{"a": map[string]any{"b": []any{1, func() {}}}}, path: "a.b.1"},
		{name: "channel", value: map[string]any{"c": make(chan int)}, path: "c"},
		{name: "struct field", value: map[string]any{"s": struct{ Fn func() }{Fn: func() {}}}, path: "s.Fn"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.value)
			if !errors.Is(err, ErrNotSerializable) {
				t.Fatalf("expected ErrNotSerializable, got %v", err)
			}
			var invalid *InvalidValueError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidValueError, got %T", err)
			}
			if invalid.Path != tc.path {
				t.Fatalf("expected path %q, got %q", tc.path, invalid.Path)
			}
		})
	}
}

func TestValidateAcceptsStorableValues(t *testing.T) {
	cyclic := map[string]any{"name": "loop"}
	cyclic["self"] = cyclic
	values := []any{
		nil,
		map[string]any{"a": 1, "b": []any{"x", 2.5, true}, "at": time.Now()},
		cyclic,
		struct{ Name string }{Name: "ok"},
	}
	for _, value := range values {
		if err := Validate(value); err != nil {
			t.Fatalf("unexpected error for %T: %v", value, err)
		}
	}
}

func TestCloneAndEqualHandleCycles(t *testing.T) {
	src := map[string]any{"name": "root"}
	src["self"] = src
	src["list"] = []any{src}

	cloned := Clone(src).(map[string]any)
	self, ok := cloned["self"].(map[string]any)
	if !ok {
		t.Fatalf("expected cyclic entry to be cloned as a map, got %T", cloned["self"])
	}
	self["name"] = "changed"
	if cloned["name"] != "changed" {
		t.Fatalf("expected cycle to point back at the cloned root")
	}
	if src["name"] != "root" {
		t.Fatalf("expected source untouched by clone mutation")
	}

	other := map[string]any{"name": "root"}
	other["self"] = other
	other["list"] = []any{other}
	if !Equal(src, other) {
		t.Fatalf("expected structurally identical cyclic maps to be equal")
	}
}

func TestCloneSelfContainingSlice(t *testing.T) {
	src := make([]any, 2)
	src[0] = src
	src[1] = "tail"

	cloned := Clone(src).([]any)
	inner, ok := cloned[0].([]any)
	if !ok {
		t.Fatalf("expected cyclic element to be cloned as a slice, got %T", cloned[0])
	}
	if reflect.ValueOf(inner).Pointer() != reflect.ValueOf(cloned).Pointer() {
		t.Fatalf("expected cycle to point back at the cloned slice")
	}
	if reflect.ValueOf(cloned).Pointer() == reflect.ValueOf(src).Pointer() {
		t.Fatalf("expected a fresh backing array")
	}
	cloned[1] = "changed"
	if src[1] != "tail" {
		t.Fatalf("expected source untouched by clone mutation")
	}
}

func TestCloneKeepsSubslicesDistinct(t *testing.T) {
	backing := []any{"a", "b", "c"}
	src := map[string]any{"all": backing, "head": backing[:1]}

	cloned := Clone(src).(map[string]any)
	if got := cloned["head"].([]any); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected head subslice preserved, got %v", got)
	}
	if got := cloned["all"].([]any); len(got) != 3 || got[2] != "c" {
		t.Fatalf("expected full slice preserved, got %v", got)
	}
}
