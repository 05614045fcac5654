package meta

import "context"

// Observer instruments requests made through MakeRequest. StartRequest is called before
// the endpoint runs; the returned function receives the request outcome.
type Observer interface {
	StartRequest(ctx context.Context, kind string, verb Verb) (context.Context, func(error))
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ctx context.Context, kind string, verb Verb) (context.Context, func(error))

func (f ObserverFunc) StartRequest(ctx context.Context, kind string, verb Verb) (context.Context, func(error)) {
	return f(ctx, kind, verb)
}

type nopObserver struct{}

func (nopObserver) StartRequest(ctx context.Context, _ string, _ Verb) (context.Context, func(error)) {
	return ctx, func(error) {}
}
