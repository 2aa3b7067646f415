package statebox

import (
	"time"

	"github.com/goliatone/go-statebox/pkg/activity"
	"github.com/goliatone/go-statebox/pkg/codec"
	"github.com/goliatone/go-statebox/pkg/storage"
)

// DefaultSlot is the storage key the serialized state is written under.
const DefaultSlot = "__rxbox"

// Handler receives values emitted by a subscription.
type Handler func(value any)

// PanicHandler is called when a subscription handler panics during delivery.
type PanicHandler func(info SubscriberInfo, value any, panicValue any)

// SubscriberInfo describes a live subscription for debugging.
type SubscriberInfo struct {
	ID          string    `json:"id"`
	Label       string    `json:"label,omitempty"`
	Path        string    `json:"path,omitempty"`
	Mode        string    `json:"mode"`
	ByReference bool      `json:"by_reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents an OpenAPI schema object.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Implementations must ensure Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator transforms a state value into a schema document. All
// implementations MUST be safe for concurrent use and handle nil inputs by
// returning an empty schema document.
type SchemaGenerator interface {
	Generate(value any) (SchemaDocument, error)
}

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression.
//
// Snapshot is the state under evaluation. Previous is the state before it
// and Change the partial that produced it; both may be nil, in which case
// changed() compares against an empty previous state.
type RuleContext struct {
	Snapshot any
	Previous map[string]any
	Change   map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Label    string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) label() string {
	if ctx.Label != "" {
		return ctx.Label
	}
	return "state"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	history         bool
	debug           bool
	exclusive       bool
	slot            string
	local           storage.Storage
	session         storage.Storage
	persistLocal    bool
	persistSession  bool
	codec           codec.Codec
	logger          Logger
	recorder        Recorder
	panicHandler    PanicHandler
	evaluator       Evaluator
	engine          string
	programCache    ProgramCache
	functions       *FunctionRegistry
	evaluatorLogger EvaluatorLogger
	schemaGenerator SchemaGenerator
	activityHooks   activity.Hooks
	activityConfig  activity.Config
	actorID         string
	tenantID        string
	err             error
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{
		slot:           DefaultSlot,
		activityConfig: activity.Config{Enabled: true, Channel: "state"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.codec == nil {
		cfg.codec = codec.NewJSON()
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.recorder == nil {
		cfg.recorder = noopRecorder{}
	}
	if cfg.evaluatorLogger == nil {
		cfg.evaluatorLogger = noopEvaluatorLogger{}
	}
	return cfg
}
