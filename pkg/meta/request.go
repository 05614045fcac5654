package meta

import (
	"context"
	"fmt"

	"github.com/sumandas0/entropic-model/pkg/utils"
)

// Verb names one entry of the endpoint table.
type Verb string

const (
	VerbFetch              Verb = "fetch"
	VerbCreate             Verb = "create"
	VerbRead               Verb = "read"
	VerbUpdate             Verb = "update"
	VerbDelete             Verb = "delete"
	VerbBulkDelete         Verb = "bulkDelete"
	VerbBulkCreateOrUpdate Verb = "bulkCreateOrUpdate"
)

// Verbs lists every verb in table order.
var Verbs = []Verb{
	VerbFetch,
	VerbCreate,
	VerbRead,
	VerbUpdate,
	VerbDelete,
	VerbBulkDelete,
	VerbBulkCreateOrUpdate,
}

// Response is what an endpoint hands back. Data is the flat mapping a model merges into
// its fields after a fetch; Items carries list payloads.
type Response struct {
	Status int              `json:"status"`
	Data   map[string]any   `json:"data,omitempty"`
	Items  []map[string]any `json:"items,omitempty"`
	Raw    []byte           `json:"-"`
}

// Endpoint is an injected transport function.
type Endpoint func(ctx context.Context, payload any) (*Response, error)

// Endpoints is the overridable verb table. A nil entry turns its verb into a no-op that
// returns a nil response.
type Endpoints struct {
	Fetch              Endpoint
	Create             Endpoint
	Read               Endpoint
	Update             Endpoint
	Delete             Endpoint
	BulkDelete         Endpoint
	BulkCreateOrUpdate Endpoint
}

// Lookup returns the endpoint registered for verb, or nil.
func (e Endpoints) Lookup(verb Verb) Endpoint {
	switch verb {
	case VerbFetch:
		return e.Fetch
	case VerbCreate:
		return e.Create
	case VerbRead:
		return e.Read
	case VerbUpdate:
		return e.Update
	case VerbDelete:
		return e.Delete
	case VerbBulkDelete:
		return e.BulkDelete
	case VerbBulkCreateOrUpdate:
		return e.BulkCreateOrUpdate
	default:
		return nil
	}
}

// Merge returns a copy of e where every non-nil entry of override wins.
func (e Endpoints) Merge(override Endpoints) Endpoints {
	pick := func(base, over Endpoint) Endpoint {
		if over != nil {
			return over
		}
		return base
	}
	return Endpoints{
		Fetch:              pick(e.Fetch, override.Fetch),
		Create:             pick(e.Create, override.Create),
		Read:               pick(e.Read, override.Read),
		Update:             pick(e.Update, override.Update),
		Delete:             pick(e.Delete, override.Delete),
		BulkDelete:         pick(e.BulkDelete, override.BulkDelete),
		BulkCreateOrUpdate: pick(e.BulkCreateOrUpdate, override.BulkCreateOrUpdate),
	}
}

// Endpoints returns the installed table.
func (m *Meta) Endpoints() Endpoints {
	return m.endpoints
}

// SetEndpoints replaces the table.
func (m *Meta) SetEndpoints(endpoints Endpoints) {
	m.endpoints = endpoints
}

// DoWithLoading holds the busy flag while fn runs and releases it on every outcome.
// A failure of fn is logged and handed back as the error result; a panic inside fn is
// recovered into an error so that the flag is still released.
func (m *Meta) DoWithLoading(ctx context.Context, fn Endpoint, payload any) (resp *Response, err error) {
	if fn == nil {
		return nil, nil
	}

	m.busy.Store(true)
	defer m.busy.Store(false)
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = utils.NewAppError(utils.CodeInternal, "request panicked",
				fmt.Errorf("%w: %v", utils.ErrRequestPanicked, r))
		}
		if err != nil {
			m.Logger().Error().Err(err).Msg("request failed")
		}
	}()

	return fn(ctx, payload)
}

// MakeRequest dispatches payload to fn under the busy flag. A nil fn yields a nil
// response with no side effects.
func (m *Meta) MakeRequest(ctx context.Context, verb Verb, payload any, fn Endpoint) (*Response, error) {
	if fn == nil {
		return nil, nil
	}

	ctx, finish := m.observer.StartRequest(ctx, m.kind, verb)
	resp, err := m.DoWithLoading(ctx, fn, payload)
	finish(err)

	return resp, err
}

// Request dispatches payload to the endpoint registered for verb.
func (m *Meta) Request(ctx context.Context, verb Verb, payload any) (*Response, error) {
	return m.MakeRequest(ctx, verb, payload, m.endpoints.Lookup(verb))
}

func (m *Meta) Fetch(ctx context.Context, payload any) (*Response, error) {
	return m.Request(ctx, VerbFetch, payload)
}

func (m *Meta) Create(ctx context.Context, payload any) (*Response, error) {
	return m.Request(ctx, VerbCreate, payload)
}

func (m *Meta) Read(ctx context.Context, payload any) (*Response, error) {
	return m.Request(ctx, VerbRead, payload)
}

func (m *Meta) Update(ctx context.Context, payload any) (*Response, error) {
	return m.Request(ctx, VerbUpdate, payload)
}

func (m *Meta) Delete(ctx context.Context, payload any) (*Response, error) {
	return m.Request(ctx, VerbDelete, payload)
}

func (m *Meta) BulkDelete(ctx context.Context, payload any) (*Response, error) {
	return m.Request(ctx, VerbBulkDelete, payload)
}

func (m *Meta) BulkCreateOrUpdate(ctx context.Context, payload any) (*Response, error) {
	return m.Request(ctx, VerbBulkCreateOrUpdate, payload)
}
