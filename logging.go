package statebox

import (
	"sort"
	"time"
)

const (
	kindAssign = "assign"
	kindClear  = "clear"
)

// LogEvent describes a mutation or a delivery decision.
type LogEvent struct {
	Kind           string
	StoreID        string
	SubscriptionID string
	Label          string
	Path           string
	Keys           []string
	Duration       time.Duration
	Err            error
}

// Logger records store events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// WithLogger attaches a logger to the store.
func WithLogger(logger Logger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

func (s *Store) logMutation(kind string, change map[string]any, duration time.Duration, err error) {
	s.cfg.logger.Log(LogEvent{
		Kind:     kind,
		StoreID:  s.id,
		Keys:     sortedKeys(change),
		Duration: duration,
		Err:      err,
	})
}

func (s *Store) logDelivery(sub *Subscription, kind string, err error) {
	s.cfg.logger.Log(LogEvent{
		Kind:           kind,
		StoreID:        s.id,
		SubscriptionID: sub.info.ID,
		Label:          sub.info.Label,
		Path:           sub.info.Path,
		Err:            err,
	})
}

// EvaluatorLogEvent describes an evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Label    string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// WithEvaluatorLogger attaches an evaluator logger to the store.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.evaluatorLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evaluatorLogger = logger
	}
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
