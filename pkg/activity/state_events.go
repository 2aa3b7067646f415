package activity

import (
	"sort"
	"strings"
	"time"
)

const (
	// ObjectTypeState is the object type of state mutation events.
	ObjectTypeState = "state"
	// ObjectTypeHistory is the object type of history events.
	ObjectTypeHistory = "state.history"
	// ObjectTypeSubscription is the object type of subscription events.
	ObjectTypeSubscription = "state.subscription"
)

// StateEventInput describes the common fields of store lifecycle events.
type StateEventInput struct {
	StoreID    string
	ActorID    string
	TenantID   string
	Channel    string
	Change     map[string]any
	Metadata   map[string]any
	OccurredAt time.Time
}

// SubscriptionEventInput describes a subscription lifecycle event.
type SubscriptionEventInput struct {
	StoreID        string
	SubscriptionID string
	Label          string
	Path           string
	Mode           string
	OccurredAt     time.Time
}

// BuildStateAssignedEvent constructs the event emitted after AssignState.
func BuildStateAssignedEvent(input StateEventInput) Event {
	return buildStateEvent("state.assigned", ObjectTypeState, input)
}

// BuildStateClearedEvent constructs the event emitted after ClearState.
func BuildStateClearedEvent(input StateEventInput) Event {
	return buildStateEvent("state.cleared", ObjectTypeState, input)
}

// BuildHistoryClearedEvent constructs the event emitted after ClearHistory.
func BuildHistoryClearedEvent(input StateEventInput) Event {
	return buildStateEvent("history.cleared", ObjectTypeHistory, input)
}

// BuildSubscriptionCreatedEvent constructs the event emitted by Watch and
// Select.
func BuildSubscriptionCreatedEvent(input SubscriptionEventInput) Event {
	return buildSubscriptionEvent("subscription.created", input)
}

// BuildSubscriptionDisposedEvent constructs the event emitted by Dispose.
func BuildSubscriptionDisposedEvent(input SubscriptionEventInput) Event {
	return buildSubscriptionEvent("subscription.disposed", input)
}

func buildStateEvent(verb, objectType string, input StateEventInput) Event {
	metadata := cloneMap(input.Metadata)
	keys := changedKeys(input.Change)
	if len(keys) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["keys"] = append([]string{}, keys...)
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID(input.StoreID, objectType),
		Channel:    strings.TrimSpace(input.Channel),
		Keys:       keys,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func buildSubscriptionEvent(verb string, input SubscriptionEventInput) Event {
	metadata := map[string]any{}
	if input.StoreID != "" {
		metadata["store_id"] = input.StoreID
	}
	if input.Label != "" {
		metadata["label"] = input.Label
	}
	if input.Path != "" {
		metadata["path"] = input.Path
	}
	if input.Mode != "" {
		metadata["mode"] = input.Mode
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectTypeSubscription,
		ObjectID:   objectID(input.SubscriptionID, ObjectTypeSubscription),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func changedKeys(change map[string]any) []string {
	if len(change) == 0 {
		return nil
	}
	keys := make([]string, 0, len(change))
	for key := range change {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func objectID(id, fallback string) string {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		return trimmed
	}
	return fallback
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
