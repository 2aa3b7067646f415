package statebox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-statebox/pkg/activity"
	"github.com/goliatone/go-statebox/pkg/storage"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
history: true
slot: app-state
persist_local: true
activity:
  enabled: false
  channel: audit
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.History || cfg.Debug || cfg.Slot != "app-state" || !cfg.PersistLocal || cfg.PersistSession {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Activity.Enabled == nil || *cfg.Activity.Enabled || cfg.Activity.Channel != "audit" {
		t.Fatalf("unexpected activity config %+v", cfg.Activity)
	}
}

func TestParseConfigEmptyAndUnknown(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("expected empty document to parse, got %v", err)
	}
	if cfg.History || cfg.Slot != "" {
		t.Fatalf("expected zero config, got %+v", cfg)
	}

	if _, err := ParseConfig([]byte("histroy: true\n")); err == nil || !strings.Contains(err.Error(), "histroy") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadConfigAppliesToStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statebox.yaml")
	data := "debug: true\nslot: from-file\npersist_local: true\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	mem := storage.NewMemory()
	capture := &activity.CaptureHook{}
	store := newTestStore(t,
		WithLocalStorage(mem),
		WithActivityHooks(activity.Hooks{capture}),
		WithConfig(cfg),
	)
	mustAssign(t, store, map[string]any{"a": 1})
	mustAssign(t, store, map[string]any{"a": 2})

	if _, ok, _ := mem.GetItem(context.Background(), "from-file"); !ok {
		t.Fatalf("expected state persisted under the configured slot")
	}
	if got := len(store.GetHistory()); got != 2 {
		t.Fatalf("expected debug config to retain history, got %d entries", got)
	}
	if err := store.AssignState(map[string]any{"fn": func() {}}); err == nil {
		t.Fatalf("expected debug config to reject callables")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestConfigSelectsEvaluatorEngine(t *testing.T) {
	cfg, err := ParseConfig([]byte("evaluator: CEL\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	store := newTestStore(t, WithConfig(cfg))
	mustAssign(t, store, map[string]any{"count": 2})

	resp, err := store.Evaluate("count > 1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if resp.Value != true {
		t.Fatalf("expected true, got %#v", resp.Value)
	}
	evaluator, err := store.resolveEvaluator()
	if err != nil || evaluatorEngineName(evaluator) != EngineCEL {
		t.Fatalf("expected cel engine, got %v err=%v", evaluatorEngineName(evaluator), err)
	}

	if _, err := New(WithConfig(Config{Evaluator: "lua"})); !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("expected ErrUnknownEngine, got %v", err)
	}
}
