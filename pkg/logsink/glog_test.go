package logsink

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	statebox "github.com/goliatone/go-statebox"
)

var (
	_ statebox.Logger          = (*Glog)(nil)
	_ statebox.EvaluatorLogger = (*Glog)(nil)
)

func TestFormatEvent(t *testing.T) {
	line := FormatEvent(statebox.LogEvent{
		Kind:     "assign",
		StoreID:  "s1",
		Keys:     []string{"a", "b"},
		Duration: time.Millisecond,
	})
	assert.Equal(t, line, "[statebox][assign]store=s1 keys=a,b took=1ms")

	line = FormatEvent(statebox.LogEvent{
		Kind:           "panic",
		StoreID:        "s1",
		SubscriptionID: "sub",
		Label:          "header",
		Path:           "user.name",
		Err:            errors.New("boom"),
	})
	assert.Equal(t, line, "[statebox][panic]store=s1 sub=sub label=header path=user.name error = boom")
}

func TestFormatEvaluation(t *testing.T) {
	line := FormatEvaluation(statebox.EvaluatorLogEvent{
		Engine: "expr",
		Label:  "state",
		Expr:   "count > 1",
		Err:    errors.New("bad"),
	})
	assert.Equal(t, line, `[statebox][eval][expr]label=state expr="count > 1" error = bad`)
}

func TestGlogSinkWiresIntoStore(t *testing.T) {
	sink := New(2)
	store, err := statebox.New(statebox.WithLogger(sink), statebox.WithEvaluatorLogger(sink))
	assert.Equal(t, err, nil)
	defer store.Close()

	assert.Equal(t, store.AssignState(map[string]any{"count": 2}), nil)
	result, err := store.Evaluate("count > 1")
	assert.Equal(t, err, nil)
	assert.Equal(t, result.Value, true)
}
