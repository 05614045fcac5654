// Package meta provides the identity, event and request core shared by models and
// collections.
//
// Every instance gets a random identifier when it is created and again whenever it is
// re-initialized. The identifier is only meant for equality and lookup. A Meta also
// carries a named-event registry and an endpoint table through which the CRUD verbs are
// dispatched while an advisory busy flag is held.
package meta

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultKind = "Meta"

// Meta is the base record embedded by models and collections.
//
// The busy flag is advisory: overlapping requests against one instance overwrite each
// other's transitions and the last writer wins.
type Meta struct {
	uid       uuid.UUID
	kind      string
	busy      atomic.Bool
	listeners *registry
	endpoints Endpoints
	logger    zerolog.Logger
	observer  Observer
}

// Option configures a Meta at construction.
type Option func(*Meta)

// WithEndpoints installs the endpoint table used by the CRUD verbs.
func WithEndpoints(endpoints Endpoints) Option {
	return func(m *Meta) {
		m.endpoints = endpoints
	}
}

// WithLogger sets the logger used to report swallowed request failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Meta) {
		m.logger = logger
	}
}

// WithObserver attaches request instrumentation.
func WithObserver(observer Observer) Option {
	return func(m *Meta) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// NewMeta creates a Meta tagged with kind.
func NewMeta(kind string, opts ...Option) *Meta {
	if kind == "" {
		kind = defaultKind
	}
	m := &Meta{
		kind:     kind,
		logger:   log.Logger,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.CreateMeta()
	return m
}

// CreateMeta resets the busy flag, assigns a fresh identifier and drops every listener.
func (m *Meta) CreateMeta() {
	m.busy.Store(false)
	m.uid = uuid.New()
	m.listeners = newRegistry()
}

// UID returns the instance identifier.
func (m *Meta) UID() uuid.UUID {
	return m.uid
}

// Kind returns the type discriminant set by the concrete model or collection.
func (m *Meta) Kind() string {
	return m.kind
}

// SetKind replaces the type discriminant.
func (m *Meta) SetKind(kind string) {
	if kind != "" {
		m.kind = kind
	}
}

// Busy reports whether a request is currently in flight on this instance.
func (m *Meta) Busy() bool {
	return m.busy.Load()
}

// SetBusy overrides the busy flag.
func (m *Meta) SetBusy(busy bool) {
	m.busy.Store(busy)
}

// Logger returns the instance logger enriched with kind and uid.
func (m *Meta) Logger() *zerolog.Logger {
	logger := m.logger.With().
		Str("kind", m.kind).
		Str("uid", m.uid.String()).
		Logger()
	return &logger
}

func (m *Meta) String() string {
	return fmt.Sprintf("<%s #%s>", m.kind, m.uid)
}

// Copy returns a shallow copy: same identifier, same endpoint table and a shared listener
// registry, so handlers registered on either copy fire for both.
func (m *Meta) Copy() *Meta {
	c := &Meta{
		uid:       m.uid,
		kind:      m.kind,
		listeners: m.listeners,
		endpoints: m.endpoints,
		logger:    m.logger,
		observer:  m.observer,
	}
	c.busy.Store(m.busy.Load())
	return c
}
