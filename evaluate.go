package statebox

import (
	"fmt"
	"time"
)

// Evaluate executes expr against the current state using the configured
// evaluator and wraps the result.
func (s *Store) Evaluate(expr string) (Response[any], error) {
	return s.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith executes expr using ctx. A nil ctx.Snapshot evaluates the
// current state; Previous and Change then default to the latest history
// entry and the last change record.
func (s *Store) EvaluateWith(ctx RuleContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("statebox: %w", errEmptyExpression)
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	if ctx.Snapshot == nil {
		s.mu.Lock()
		ctx.Snapshot = s.cell.get(true)
		if ctx.Previous == nil {
			ctx.Previous = s.history.latest()
		}
		if ctx.Change == nil {
			ctx.Change = s.change
		}
		s.mu.Unlock()
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = annotateEvaluationError(engine, phaseEvaluate, expr, ctx.label(), evalErr)
	s.cfg.evaluatorLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Label:    ctx.label(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

// resolveEvaluator returns the configured evaluator, building the engine
// chosen with WithEngine (expr by default) on first use.
func (s *Store) resolveEvaluator() (Evaluator, error) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	if s.cfg.evaluator != nil {
		return s.cfg.evaluator, nil
	}
	cache := s.cfg.programCache
	if cache == nil {
		cache = NewProgramCache()
	}
	opts := []EvaluatorOption{EvaluatorCache(cache)}
	if registry := s.cfg.functions; registry != nil {
		opts = append(opts, EvaluatorFunctions(registry))
	}
	evaluator, err := NewEvaluator(s.cfg.engine, opts...)
	if err != nil {
		return nil, err
	}
	s.cfg.evaluator = evaluator
	return evaluator, nil
}
