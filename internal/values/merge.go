package values

// ShallowMerge returns a new mapping holding every key of base overridden by
// the keys of partial. Nested mappings in partial replace the base value
// wholesale; they are not merged recursively.
func ShallowMerge(base, partial map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(partial))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range partial {
		merged[key] = value
	}
	return merged
}

// Keys returns a change record naming every top-level key of src with a nil
// value.
func Keys(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for key := range src {
		out[key] = nil
	}
	return out
}
