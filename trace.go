package statebox

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-statebox/internal/values"
)

// Trace captures how a path evolved across the recorded history, newest
// entry first.
type Trace struct {
	Path    string       `json:"path"`
	Entries []Provenance `json:"entries"`
}

// Provenance is the value a traced path had in one snapshot.
type Provenance struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	Value  any    `json:"value,omitempty"`
	Found  bool   `json:"found"`
}

// Latest returns the newest entry where the path resolved.
func (t Trace) Latest() (Provenance, bool) {
	for _, entry := range t.Entries {
		if entry.Found {
			return entry, true
		}
	}
	return Provenance{}, false
}

// ResolveWithTrace resolves path against the current state and every history
// entry. The current state is reported with Source "current" and Index -1.
func (s *Store) ResolveWithTrace(path string) (Trace, error) {
	parsed, err := ParsePath(path)
	if err != nil {
		return Trace{}, err
	}
	s.mu.Lock()
	entries := s.history.list()
	current := s.cell.get(true)
	s.mu.Unlock()

	trace := Trace{Path: parsed.String(), Entries: make([]Provenance, 0, len(entries)+1)}
	trace.Entries = append(trace.Entries, provenance(parsed, "current", -1, current))
	for i := len(entries) - 1; i >= 0; i-- {
		trace.Entries = append(trace.Entries, provenance(parsed, fmt.Sprintf("history[%d]", i), i, entries[i]))
	}
	return trace, nil
}

func provenance(path Path, source string, index int, snapshot map[string]any) Provenance {
	value, ok := path.Resolve(snapshot)
	if ok {
		value = values.Clone(value)
	}
	return Provenance{Source: source, Index: index, Value: value, Found: ok}
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
