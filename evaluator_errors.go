package statebox

import (
	"errors"
	"fmt"
)

const (
	phaseCompile  = "compile"
	phaseEvaluate = "evaluate"
)

// EvaluationError reports an expression that failed to compile or run.
// Label names the subscription or caller the expression belongs to.
type EvaluationError struct {
	Engine string
	Phase  string
	Expr   string
	Label  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("statebox: %s %s %q", e.Engine, e.Phase, e.Expr)
	if e.Label != "" {
		msg += " for " + e.Label
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func compileError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}
	return &EvaluationError{Engine: engine, Phase: phaseCompile, Expr: expr, Err: err}
}

func evaluateError(engine, expr, label string, err error) error {
	if err == nil {
		return nil
	}
	return &EvaluationError{Engine: engine, Phase: phaseEvaluate, Expr: expr, Label: label, Err: err}
}

// annotateEvaluationError fills the fields an engine could not know, such
// as the label, leaving the ones it set. Other errors are wrapped.
func annotateEvaluationError(engine, phase, expr, label string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Phase: phase, Expr: expr, Label: label, Err: err}
	}
	if evalErr.Engine == "" {
		evalErr.Engine = engine
	}
	if evalErr.Phase == "" {
		evalErr.Phase = phase
	}
	if evalErr.Expr == "" {
		evalErr.Expr = expr
	}
	if evalErr.Label == "" {
		evalErr.Label = label
	}
	return evalErr
}

var errEmptyExpression = errors.New("expression must not be empty")
