package model

import (
	"time"

	"github.com/spf13/cast"
)

// GetString returns the field under key converted to a string, or "" when it is absent
// or cannot be converted.
func (m *Model) GetString(key string) string {
	return cast.ToString(m.fields[key])
}

func (m *Model) GetInt(key string) int {
	return cast.ToInt(m.fields[key])
}

func (m *Model) GetFloat(key string) float64 {
	return cast.ToFloat64(m.fields[key])
}

func (m *Model) GetBool(key string) bool {
	return cast.ToBool(m.fields[key])
}

// GetTime converts the field under key with cast's layouts, accepting RFC 3339 strings
// and unix timestamps among others.
func (m *Model) GetTime(key string) time.Time {
	return cast.ToTime(m.fields[key])
}

// GetStringSlice converts the field under key to a slice of strings.
func (m *Model) GetStringSlice(key string) []string {
	return cast.ToStringSlice(m.fields[key])
}

// GetStringMap converts the field under key to a nested attribute map.
func (m *Model) GetStringMap(key string) map[string]any {
	return cast.ToStringMap(m.fields[key])
}

// Value returns the field under key asserted to T. The second result is false when the
// field is missing or holds another type.
func Value[T any](m *Model, key string) (T, bool) {
	var zero T
	raw, ok := m.fields[key]
	if !ok {
		return zero, false
	}
	value, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return value, true
}
