package statebox

import (
	"context"

	"github.com/goliatone/go-statebox/pkg/activity"
)

const (
	verbStateAssigned        = "state.assigned"
	verbStateCleared         = "state.cleared"
	verbHistoryCleared       = "history.cleared"
	verbSubscriptionCreated  = "subscription.created"
	verbSubscriptionDisposed = "subscription.disposed"

	kindActivity = "activity"
)

// WithActivityHooks attaches activity hooks notified after mutations and
// subscription lifecycle changes. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides the activity emission defaults.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *storeConfig) {
		cfg.activityConfig = config
	}
}

// WithActivityActor stamps every emitted event with the given actor and
// tenant identifiers.
func WithActivityActor(actorID, tenantID string) Option {
	return func(cfg *storeConfig) {
		cfg.actorID = actorID
		cfg.tenantID = tenantID
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (s *Store) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return activity.CloneHooks(s.cfg.activityHooks)
}

func (s *Store) emitStoreEvent(verb string, change map[string]any) {
	if !s.emitter.Enabled() {
		return
	}
	input := activity.StateEventInput{
		StoreID:  s.id,
		ActorID:  s.cfg.actorID,
		TenantID: s.cfg.tenantID,
		Change:   change,
	}
	var event activity.Event
	switch verb {
	case verbStateCleared:
		event = activity.BuildStateClearedEvent(input)
	case verbHistoryCleared:
		event = activity.BuildHistoryClearedEvent(input)
	default:
		event = activity.BuildStateAssignedEvent(input)
	}
	s.notify(event)
}

func (s *Store) emitSubscriptionEvent(verb string, info SubscriberInfo) {
	if !s.emitter.Enabled() {
		return
	}
	input := activity.SubscriptionEventInput{
		StoreID:        s.id,
		SubscriptionID: info.ID,
		Label:          info.Label,
		Path:           info.Path,
		Mode:           info.Mode,
	}
	event := activity.BuildSubscriptionCreatedEvent(input)
	if verb == verbSubscriptionDisposed {
		event = activity.BuildSubscriptionDisposedEvent(input)
	}
	event.ActorID = s.cfg.actorID
	event.TenantID = s.cfg.tenantID
	s.notify(event)
}

// notify forwards the event and logs hook failures; mutations never fail
// because of a hook.
func (s *Store) notify(event activity.Event) {
	if err := s.emitter.Emit(context.Background(), event); err != nil {
		s.cfg.logger.Log(LogEvent{
			Kind:    kindActivity,
			StoreID: s.id,
			Keys:    event.Keys,
			Err:     err,
		})
	}
}
