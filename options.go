package statebox

import (
	"github.com/goliatone/go-statebox/pkg/codec"
	"github.com/goliatone/go-statebox/pkg/storage"
)

// WithHistory keeps every pre-mutation snapshot instead of only the latest.
func WithHistory(enabled bool) Option {
	return func(cfg *storeConfig) {
		cfg.history = enabled
	}
}

// WithDebug scans partial updates for callables and keeps the full history.
func WithDebug(enabled bool) Option {
	return func(cfg *storeConfig) {
		cfg.debug = enabled
		if enabled {
			cfg.history = true
		}
	}
}

// WithExclusive makes New fail with ErrAlreadyInitialized while another
// exclusive store is open in the process.
func WithExclusive() Option {
	return func(cfg *storeConfig) {
		cfg.exclusive = true
	}
}

// WithSlot overrides the storage key the state is persisted under.
func WithSlot(slot string) Option {
	return func(cfg *storeConfig) {
		if slot != "" {
			cfg.slot = slot
		}
	}
}

// WithLocalStorage attaches the long-lived storage and enables writes to it.
func WithLocalStorage(store storage.Storage) Option {
	return func(cfg *storeConfig) {
		cfg.local = store
		cfg.persistLocal = store != nil
	}
}

// WithSessionStorage attaches the session-scoped storage and enables writes
// to it.
func WithSessionStorage(store storage.Storage) Option {
	return func(cfg *storeConfig) {
		cfg.session = store
		cfg.persistSession = store != nil
	}
}

// WithPersistence toggles writes to the attached storages.
func WithPersistence(local, session bool) Option {
	return func(cfg *storeConfig) {
		cfg.persistLocal = local
		cfg.persistSession = session
	}
}

// WithCodec replaces the JSON codec used for persistence.
func WithCodec(c codec.Codec) Option {
	return func(cfg *storeConfig) {
		if c != nil {
			cfg.codec = c
		}
	}
}

// WithPanicHandler is called when a subscription handler panics. The panic
// is recovered and logged either way.
func WithPanicHandler(handler PanicHandler) Option {
	return func(cfg *storeConfig) {
		cfg.panicHandler = handler
	}
}

// WithEvaluator configures the evaluator used by WithCondition and Evaluate.
// The expr evaluator is used when none is set.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = e
	}
}

// WithSchemaGenerator overrides the generator used by Schema.
func WithSchemaGenerator(generator SchemaGenerator) Option {
	return func(cfg *storeConfig) {
		cfg.schemaGenerator = generator
	}
}
