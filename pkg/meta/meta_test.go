package meta_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sumandas0/entropic-model/pkg/meta"
	"github.com/sumandas0/entropic-model/pkg/utils"
)

type mockObserver struct {
	mock.Mock
}

func (o *mockObserver) StartRequest(ctx context.Context, kind string, verb meta.Verb) (context.Context, func(error)) {
	o.Called(kind, verb)
	return ctx, func(err error) {
		o.MethodCalled("Finish", err)
	}
}

func newQuietMeta(opts ...meta.Option) *meta.Meta {
	return meta.NewMeta("Book", append([]meta.Option{meta.WithLogger(zerolog.Nop())}, opts...)...)
}

func TestNewMeta(t *testing.T) {
	m := newQuietMeta()

	assert.False(t, m.Busy())
	assert.NotEqual(t, uuid.Nil, m.UID())
	assert.Equal(t, "Book", m.Kind())
	assert.Equal(t, 0, m.Listeners("anything"))
	assert.Equal(t, "<Book #"+m.UID().String()+">", m.String())

	assert.Equal(t, "Meta", meta.NewMeta("").Kind())
}

func TestMeta_UniqueIdentity(t *testing.T) {
	seen := make(map[uuid.UUID]struct{})
	for i := 0; i < 100; i++ {
		m := newQuietMeta()
		_, dup := seen[m.UID()]
		require.False(t, dup, "identifier reused")
		seen[m.UID()] = struct{}{}
	}
}

func TestMeta_CreateMeta(t *testing.T) {
	m := newQuietMeta()
	before := m.UID()
	m.SetBusy(true)
	m.On("test", func(args ...any) {})

	m.CreateMeta()

	assert.False(t, m.Busy())
	assert.NotEqual(t, before, m.UID())
	assert.Equal(t, 0, m.Listeners("test"))
}

func TestMeta_OnEmit(t *testing.T) {
	m := newQuietMeta()
	var calls []string

	first := func(args ...any) { calls = append(calls, "first:"+args[0].(string)) }
	m.On("saved", first)
	m.On("saved", func(args ...any) { calls = append(calls, "second") })
	m.On("saved", first)
	m.On("other", func(args ...any) { calls = append(calls, "other") })

	m.Emit("saved", "a", 1)

	assert.Equal(t, []string{"first:a", "second", "first:a"}, calls)
	assert.Equal(t, 3, m.Listeners("saved"))
}

func TestMeta_EmitWithoutHandlers(t *testing.T) {
	m := newQuietMeta()
	assert.NotPanics(t, func() { m.Emit("nobody-listens", 1, 2, 3) })
}

func TestMeta_EmitDoesNotShortCircuit(t *testing.T) {
	m := newQuietMeta()
	count := 0
	m.On("e", func(args ...any) { count++ })
	m.On("e", func(args ...any) { count++ })

	m.Emit("e", false)

	assert.Equal(t, 2, count)
}

func TestMeta_HandlerRegisteredDuringEmit(t *testing.T) {
	m := newQuietMeta()
	late := 0
	m.On("e", func(args ...any) {
		m.On("e", func(args ...any) { late++ })
	})

	m.Emit("e")
	assert.Equal(t, 0, late)

	m.Emit("e")
	assert.Equal(t, 1, late)
}

func TestMeta_DoWithLoading(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		m := newQuietMeta()
		var busyInside bool
		fn := func(ctx context.Context, payload any) (*meta.Response, error) {
			busyInside = m.Busy()
			return &meta.Response{Data: map[string]any{"echo": payload}}, nil
		}

		resp, err := m.DoWithLoading(ctx, fn, "hello")
		require.NoError(t, err)
		assert.True(t, busyInside)
		assert.False(t, m.Busy())
		assert.Equal(t, "hello", resp.Data["echo"])
	})

	t.Run("failure is returned, not raised", func(t *testing.T) {
		var buf bytes.Buffer
		m := meta.NewMeta("Book", meta.WithLogger(zerolog.New(&buf)))
		reason := errors.New("boom")

		resp, err := m.DoWithLoading(ctx, func(ctx context.Context, payload any) (*meta.Response, error) {
			return nil, reason
		}, nil)

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, reason)
		assert.False(t, m.Busy())
		assert.Contains(t, buf.String(), "request failed")
		assert.Contains(t, buf.String(), "boom")
	})

	t.Run("panic is recovered", func(t *testing.T) {
		m := newQuietMeta()

		resp, err := m.DoWithLoading(ctx, func(ctx context.Context, payload any) (*meta.Response, error) {
			panic("transport exploded")
		}, nil)

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, utils.ErrRequestPanicked)
		assert.False(t, m.Busy())
	})
}

func TestMeta_MakeRequestWithoutEndpoint(t *testing.T) {
	observer := &mockObserver{}
	m := newQuietMeta(meta.WithObserver(observer))

	resp, err := m.MakeRequest(context.Background(), meta.VerbFetch, "payload", nil)

	assert.NoError(t, err)
	assert.Nil(t, resp)
	assert.False(t, m.Busy())
	observer.AssertNotCalled(t, "StartRequest", mock.Anything, mock.Anything)
}

func TestMeta_MakeRequestObserved(t *testing.T) {
	reason := errors.New("unavailable")
	observer := &mockObserver{}
	observer.On("StartRequest", "Book", meta.VerbUpdate).Return()
	observer.On("Finish", reason).Return()

	m := newQuietMeta(
		meta.WithObserver(observer),
		meta.WithEndpoints(meta.Endpoints{
			Update: func(ctx context.Context, payload any) (*meta.Response, error) {
				return nil, reason
			},
		}),
	)

	_, err := m.Update(context.Background(), nil)

	assert.ErrorIs(t, err, reason)
	observer.AssertExpectations(t)
}

func TestMeta_Verbs(t *testing.T) {
	ctx := context.Background()
	called := make(map[meta.Verb]any)
	endpoint := func(verb meta.Verb) meta.Endpoint {
		return func(ctx context.Context, payload any) (*meta.Response, error) {
			called[verb] = payload
			return &meta.Response{Status: 200}, nil
		}
	}

	m := newQuietMeta(meta.WithEndpoints(meta.Endpoints{
		Fetch:              endpoint(meta.VerbFetch),
		Create:             endpoint(meta.VerbCreate),
		Read:               endpoint(meta.VerbRead),
		Update:             endpoint(meta.VerbUpdate),
		Delete:             endpoint(meta.VerbDelete),
		BulkDelete:         endpoint(meta.VerbBulkDelete),
		BulkCreateOrUpdate: endpoint(meta.VerbBulkCreateOrUpdate),
	}))

	verbs := map[meta.Verb]func(context.Context, any) (*meta.Response, error){
		meta.VerbFetch:              m.Fetch,
		meta.VerbCreate:             m.Create,
		meta.VerbRead:               m.Read,
		meta.VerbUpdate:             m.Update,
		meta.VerbDelete:             m.Delete,
		meta.VerbBulkDelete:         m.BulkDelete,
		meta.VerbBulkCreateOrUpdate: m.BulkCreateOrUpdate,
	}
	require.Len(t, verbs, len(meta.Verbs))

	for verb, call := range verbs {
		t.Run(string(verb), func(t *testing.T) {
			resp, err := call(ctx, string(verb)+"-payload")
			require.NoError(t, err)
			assert.Equal(t, 200, resp.Status)
			assert.Equal(t, string(verb)+"-payload", called[verb])
		})
	}
}

func TestMeta_VerbsWithEmptyTable(t *testing.T) {
	m := newQuietMeta()
	for _, verb := range meta.Verbs {
		resp, err := m.Request(context.Background(), verb, nil)
		assert.NoError(t, err, verb)
		assert.Nil(t, resp, verb)
	}
}

func TestEndpoints_Merge(t *testing.T) {
	base := func(ctx context.Context, payload any) (*meta.Response, error) {
		return &meta.Response{Status: 1}, nil
	}
	over := func(ctx context.Context, payload any) (*meta.Response, error) {
		return &meta.Response{Status: 2}, nil
	}

	merged := meta.Endpoints{Fetch: base, Create: base}.Merge(meta.Endpoints{Create: over})

	fetched, _ := merged.Fetch(context.Background(), nil)
	created, _ := merged.Create(context.Background(), nil)
	assert.Equal(t, 1, fetched.Status)
	assert.Equal(t, 2, created.Status)
	assert.Nil(t, merged.Lookup(meta.VerbDelete))
	assert.Nil(t, merged.Lookup(meta.Verb("unknown")))
}

func TestMeta_CopySharesListeners(t *testing.T) {
	m := newQuietMeta()
	c := m.Copy()
	fired := 0
	c.On("e", func(args ...any) { fired++ })

	m.Emit("e")

	assert.Equal(t, m.UID(), c.UID())
	assert.Equal(t, 1, fired)
}
