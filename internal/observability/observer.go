package observability

import (
	"context"

	"github.com/sumandas0/entropic-model/pkg/meta"
)

// Chain fans a request out to several observers. Finish callbacks run in reverse order
// so that the first observer wraps all the others.
func Chain(observers ...meta.Observer) meta.Observer {
	return meta.ObserverFunc(func(ctx context.Context, kind string, verb meta.Verb) (context.Context, func(error)) {
		finishers := make([]func(error), 0, len(observers))
		for _, observer := range observers {
			if observer == nil {
				continue
			}
			var finish func(error)
			ctx, finish = observer.StartRequest(ctx, kind, verb)
			finishers = append(finishers, finish)
		}

		return ctx, func(err error) {
			for i := len(finishers) - 1; i >= 0; i-- {
				finishers[i](err)
			}
		}
	})
}

// StartRequest makes Logger a meta.Observer. Completed requests are logged at debug
// level and failures at warn.
func (l *Logger) StartRequest(ctx context.Context, kind string, verb meta.Verb) (context.Context, func(error)) {
	logger := l.WithContext(ctx).With().
		Str("kind", kind).
		Str("verb", string(verb)).
		Logger()

	return ctx, func(err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("request failed")
			return
		}
		logger.Debug().Msg("request completed")
	}
}
