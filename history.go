package statebox

// history holds deep copies of past states, oldest first. Outside retaining
// mode it keeps at most one entry.
type history struct {
	retain  bool
	entries []map[string]any
}

func newHistory(retain bool) *history {
	return &history{retain: retain}
}

// push appends snapshot. Unless retaining, it replaces whatever was kept.
func (h *history) push(snapshot map[string]any) {
	if !h.retain {
		h.entries = []map[string]any{snapshot}
		return
	}
	h.entries = append(h.entries, snapshot)
}

func (h *history) clear() {
	h.entries = nil
}

func (h *history) list() []map[string]any {
	return h.entries
}

// latest returns the most recent entry, nil when empty.
func (h *history) latest() map[string]any {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[len(h.entries)-1]
}
