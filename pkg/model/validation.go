package model

import (
	"context"
	"fmt"
	"sort"

	"github.com/sumandas0/entropic-model/pkg/meta"
	"github.com/sumandas0/entropic-model/pkg/utils"
)

// Rule checks one field. It returns "" when the field is valid and the error message
// otherwise.
type Rule func() string

// Rules maps field names to their rule.
type Rules map[string]Rule

// Validation returns the rule table of the definition for vctx.
func (m *Model) Validation(vctx any) Rules {
	rules := m.def.Validation(m, vctx)
	if rules == nil {
		return Rules{}
	}
	return rules
}

// Validate forgets previous results and evaluates every rule in field-name order. Each
// ruled field ends up with "" or its message. A table holding a nil rule is rejected as a
// whole: the errors stay empty and Validate reports false.
func (m *Model) Validate(vctx any) bool {
	m.errors = make(map[string]string)
	rules := m.Validation(vctx)

	fields := make([]string, 0, len(rules))
	for field, rule := range rules {
		if rule == nil {
			m.Logger().Warn().Str("field", field).Msg("validation rule is nil, aborting validation")
			return false
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	valid := true
	for _, field := range fields {
		msg := rules[field]()
		m.errors[field] = msg
		if msg != "" {
			valid = false
		}
	}
	return valid
}

// IsValid reports whether no tracked field carries an error message.
func (m *Model) IsValid() bool {
	for _, msg := range m.errors {
		if msg != "" {
			return false
		}
	}
	return true
}

// Errors returns a copy of the per-field error messages.
func (m *Model) Errors() map[string]string {
	errs := make(map[string]string, len(m.errors))
	for field, msg := range m.errors {
		errs[field] = msg
	}
	return errs
}

// Error returns the message recorded for field and whether field was checked at all.
func (m *Model) Error(field string) (string, bool) {
	msg, ok := m.errors[field]
	return msg, ok
}

// SetError records msg for field without running any rule.
func (m *Model) SetError(field, msg string) {
	m.errors[field] = msg
}

// ClearError marks field as valid if it currently carries a message.
func (m *Model) ClearError(field string) {
	if m.errors[field] == "" {
		return
	}
	m.errors[field] = ""
}

// ClearErrors marks the named fields as valid, or every tracked field when none are named.
// Fields that were never checked stay unchecked.
func (m *Model) ClearErrors(fields ...string) {
	if len(fields) == 0 {
		for field := range m.errors {
			m.errors[field] = ""
		}
		return
	}
	for _, field := range fields {
		if _, ok := m.errors[field]; ok {
			m.errors[field] = ""
		}
	}
}

// ValidateAndMakeRequest validates the model and, when it is valid, calls fn with payload
// while holding the busy flag. An invalid model or a nil fn yields a nil response without
// contacting the transport. A failing fn yields its error and releases the flag.
func (m *Model) ValidateAndMakeRequest(ctx context.Context, payload, vctx any, fn meta.Endpoint) (resp *meta.Response, err error) {
	if !m.Validate(vctx) {
		return nil, nil
	}
	if fn == nil {
		return nil, nil
	}

	m.SetBusy(true)
	defer m.SetBusy(false)
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = utils.NewAppError(utils.CodeInternal, "request panicked",
				fmt.Errorf("%w: %v", utils.ErrRequestPanicked, r))
		}
	}()

	resp, err = fn(ctx, payload)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (m *Model) ValidateAndFetch(ctx context.Context, payload, vctx any) (*meta.Response, error) {
	return m.ValidateAndMakeRequest(ctx, payload, vctx, m.Fetch)
}

func (m *Model) ValidateAndCreate(ctx context.Context, payload, vctx any) (*meta.Response, error) {
	return m.ValidateAndMakeRequest(ctx, payload, vctx, m.Create)
}

func (m *Model) ValidateAndRead(ctx context.Context, payload, vctx any) (*meta.Response, error) {
	return m.ValidateAndMakeRequest(ctx, payload, vctx, m.Read)
}

func (m *Model) ValidateAndUpdate(ctx context.Context, payload, vctx any) (*meta.Response, error) {
	return m.ValidateAndMakeRequest(ctx, payload, vctx, m.Update)
}

func (m *Model) ValidateAndDelete(ctx context.Context, payload, vctx any) (*meta.Response, error) {
	return m.ValidateAndMakeRequest(ctx, payload, vctx, m.Delete)
}

// Fetch calls the fetch endpoint and merges the response data into the fields, then
// emits meta.EventAfterFetch with the full response. On failure the fields are left
// untouched and no event fires.
func (m *Model) Fetch(ctx context.Context, payload any) (*meta.Response, error) {
	resp, err := m.Meta.Fetch(ctx, payload)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}

	if resp.Data != nil {
		m.Set(resp.Data)
	}
	m.Emit(meta.EventAfterFetch, resp)
	return resp, nil
}
