package model

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/sumandas0/entropic-model/pkg/meta"
	"github.com/sumandas0/entropic-model/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MarshalJSON encodes the data fields. Identity, busy flag and errors are not part of the
// encoding.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(m.fields))
}

// FromJSON builds a model from a JSON object. An empty input yields the default state.
func FromJSON(def Definition, data []byte, opts ...meta.Option) (*Model, error) {
	if len(data) == 0 {
		return New(def, nil, opts...), nil
	}

	var attrs Attributes
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, utils.NewAppError(utils.CodeInvalidInput, "invalid model json", err)
	}
	return New(def, attrs, opts...), nil
}
