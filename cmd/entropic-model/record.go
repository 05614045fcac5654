package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sumandas0/entropic-model/pkg/model"
)

// recordDefinition describes the schemaless records handled by the CLI. Rules map a
// field to a validator tag expression.
type recordDefinition struct {
	model.Hooks

	kind  string
	rules map[string]string
}

func (d recordDefinition) Kind() string {
	if d.kind == "" {
		return "Record"
	}
	return d.kind
}

func (d recordDefinition) Validation(m *model.Model, vctx any) model.Rules {
	rules := make(model.Rules, len(d.rules))
	for field, tag := range d.rules {
		rules[field] = model.TagRule(m, field, tag, nil)
	}
	return rules
}

// parsePairs splits key=value flags. Later pairs override earlier ones.
func parsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

// attributesOf returns the field bags of models. Plain maps keep the indented output of
// printJSON, which does not re-indent a model's own encoding.
func attributesOf(models []*model.Model) []model.Attributes {
	out := make([]model.Attributes, 0, len(models))
	for _, m := range models {
		out = append(out, m.Attributes())
	}
	return out
}

type validationReport struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

func reportFor(m *model.Model) validationReport {
	report := validationReport{Valid: m.IsValid()}
	fields := make([]string, 0)
	for field, msg := range m.Errors() {
		if msg != "" {
			fields = append(fields, field)
		}
	}
	if len(fields) == 0 {
		return report
	}
	sort.Strings(fields)
	report.Errors = make(map[string]string, len(fields))
	for _, field := range fields {
		msg, _ := m.Error(field)
		report.Errors[field] = msg
	}
	return report
}
