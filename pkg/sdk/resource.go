package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cast"

	"github.com/sumandas0/entropic-model/pkg/meta"
	"github.com/sumandas0/entropic-model/pkg/model"
)

// Request is the explicit payload form accepted by every resource verb. Verbs also
// accept a model, model.Attributes or map[string]any, whose "id" entry is used as the
// identifier and whose entries form the body.
type Request struct {
	ID    string
	Query url.Values
	Body  any
}

// ResourceService maps the verbs of a model or collection onto one REST resource.
type ResourceService struct {
	client *Client
	name   string
}

func (s *ResourceService) Name() string {
	return s.name
}

// Endpoints returns the verb table for the resource.
func (s *ResourceService) Endpoints() meta.Endpoints {
	return meta.Endpoints{
		Fetch:              s.Fetch,
		Create:             s.Create,
		Read:               s.Read,
		Update:             s.Update,
		Delete:             s.Delete,
		BulkDelete:         s.BulkDelete,
		BulkCreateOrUpdate: s.BulkCreateOrUpdate,
	}
}

// Fetch gets one record by id, or the list when the payload carries no id.
func (s *ResourceService) Fetch(ctx context.Context, payload any) (*meta.Response, error) {
	return s.get(ctx, meta.VerbFetch, payload)
}

// Read behaves like Fetch. Collections use it to load their members.
func (s *ResourceService) Read(ctx context.Context, payload any) (*meta.Response, error) {
	return s.get(ctx, meta.VerbRead, payload)
}

func (s *ResourceService) get(ctx context.Context, verb meta.Verb, payload any) (*meta.Response, error) {
	req := parsePayload(payload)
	path := s.collectionPath()
	if req.ID != "" {
		path = s.itemPath(req.ID)
	}
	return s.client.call(ctx, s.endpoint(verb), http.MethodGet, path, req.Query, nil)
}

func (s *ResourceService) Create(ctx context.Context, payload any) (*meta.Response, error) {
	req := parsePayload(payload)
	return s.client.call(ctx, s.endpoint(meta.VerbCreate), http.MethodPost, s.collectionPath(), req.Query, req.Body)
}

func (s *ResourceService) Update(ctx context.Context, payload any) (*meta.Response, error) {
	req := parsePayload(payload)
	if req.ID == "" {
		return nil, missingID(meta.VerbUpdate)
	}
	return s.client.call(ctx, s.endpoint(meta.VerbUpdate), http.MethodPatch, s.itemPath(req.ID), req.Query, req.Body)
}

func (s *ResourceService) Delete(ctx context.Context, payload any) (*meta.Response, error) {
	req := parsePayload(payload)
	if req.ID == "" {
		return nil, missingID(meta.VerbDelete)
	}
	return s.client.call(ctx, s.endpoint(meta.VerbDelete), http.MethodDelete, s.itemPath(req.ID), req.Query, nil)
}

// BulkDelete posts the payload body to /{name}/bulk-delete. A []string payload is sent
// as {"ids": [...]}.
func (s *ResourceService) BulkDelete(ctx context.Context, payload any) (*meta.Response, error) {
	if ids, ok := payload.([]string); ok {
		payload = &Request{Body: map[string]any{"ids": ids}}
	}
	req := parsePayload(payload)
	return s.client.call(ctx, s.endpoint(meta.VerbBulkDelete), http.MethodPost, s.collectionPath()+"/bulk-delete", req.Query, req.Body)
}

// BulkCreateOrUpdate puts the payload body to /{name}/bulk. Slices of records are sent
// as they are.
func (s *ResourceService) BulkCreateOrUpdate(ctx context.Context, payload any) (*meta.Response, error) {
	req := parsePayload(payload)
	return s.client.call(ctx, s.endpoint(meta.VerbBulkCreateOrUpdate), http.MethodPut, s.collectionPath()+"/bulk", req.Query, req.Body)
}

func (s *ResourceService) collectionPath() string {
	return fmt.Sprintf("%s/%s", apiV1BasePath, url.PathEscape(s.name))
}

func (s *ResourceService) itemPath(id string) string {
	return fmt.Sprintf("%s/%s", s.collectionPath(), url.PathEscape(id))
}

func (s *ResourceService) endpoint(verb meta.Verb) string {
	return s.name + "." + string(verb)
}

func missingID(verb meta.Verb) error {
	return &APIError{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf("%s requires an id", verb),
	}
}

type attributer interface {
	Attributes() model.Attributes
}

func parsePayload(payload any) Request {
	switch p := payload.(type) {
	case nil:
		return Request{}
	case *Request:
		if p == nil {
			return Request{}
		}
		return *p
	case Request:
		return p
	case string:
		return Request{ID: p}
	case model.Attributes:
		return recordRequest(p)
	case map[string]any:
		return recordRequest(p)
	case attributer:
		return recordRequest(p.Attributes())
	default:
		return Request{Body: payload}
	}
}

func recordRequest(record map[string]any) Request {
	req := Request{Body: record}
	if id, ok := record["id"]; ok && id != nil {
		req.ID = cast.ToString(id)
	}
	return req
}
