package statebox

import (
	"github.com/goliatone/go-statebox/internal/hydrate"
)

// TypedHandler receives values decoded into T. Decoding failures are passed
// as err with the zero T.
type TypedHandler[T any] func(value T, err error)

// GetAs resolves path and decodes the value into T through its JSON form.
func GetAs[T any](s *Store, path string) (T, bool, error) {
	var zero T
	value, ok, err := s.Get(path)
	if err != nil || !ok {
		return zero, ok, err
	}
	decoded, err := hydrate.NewDecoder[T]().Decode(hydrate.Context{Path: path}, value)
	if err != nil {
		return zero, true, err
	}
	return decoded, true, nil
}

// WatchAs is Watch with values decoded into T.
func WatchAs[T any](s *Store, path string, handler TypedHandler[T], opts ...SubscribeOption) (*Subscription, error) {
	return s.Watch(path, typedHandler(path, opts, handler), opts...)
}

// SelectAs is Select with values decoded into T.
func SelectAs[T any](s *Store, path string, handler TypedHandler[T], opts ...SubscribeOption) (*Subscription, error) {
	return s.Select(path, typedHandler(path, opts, handler), opts...)
}

func typedHandler[T any](path string, opts []SubscribeOption, handler TypedHandler[T]) Handler {
	if handler == nil {
		return nil
	}
	cfg := subscribeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	decoder := hydrate.NewDecoder[T]()
	ctx := hydrate.Context{Path: path, Label: cfg.label}
	return func(value any) {
		decoded, err := decoder.Decode(ctx, value)
		handler(decoded, err)
	}
}
