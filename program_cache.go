package statebox

import "github.com/puzpuzpuz/xsync/v3"

// ProgramCache stores compiled programs keyed by engine and expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryProgramCache is the in-process ProgramCache the default evaluator
// uses when none is configured. It is safe for concurrent use.
type MemoryProgramCache struct {
	programs *xsync.MapOf[string, any]
}

// NewProgramCache returns an empty MemoryProgramCache.
func NewProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{programs: xsync.NewMapOf[string, any]()}
}

func (c *MemoryProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *MemoryProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}

// Len reports the number of cached programs.
func (c *MemoryProgramCache) Len() int {
	return c.programs.Size()
}

// Reset drops every cached program.
func (c *MemoryProgramCache) Reset() {
	c.programs.Clear()
}

// WithProgramCache replaces the default evaluator's program cache.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *storeConfig) {
		cfg.programCache = cache
	}
}
