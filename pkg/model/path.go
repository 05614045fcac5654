package model

import (
	"reflect"
	"strconv"
	"strings"
)

// Get reads a nested value by path and falls back to defaultValue when any segment is
// missing. Paths use dots for map keys and brackets or dots for slice indexes, e.g.
// "author.books[0].title" or "author.books.0.title".
func (m *Model) Get(path string, defaultValue any) any {
	segments := splitPath(path)
	if len(segments) == 0 {
		return defaultValue
	}

	var current any = map[string]any(m.fields)
	for _, segment := range segments {
		next, ok := step(current, segment)
		if !ok {
			return defaultValue
		}
		current = next
	}
	if current == nil {
		return defaultValue
	}
	return current
}

func splitPath(path string) []string {
	var segments []string
	for _, part := range strings.Split(path, ".") {
		for part != "" {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				segments = append(segments, part)
				break
			}
			if open > 0 {
				segments = append(segments, part[:open])
			}
			end := strings.IndexByte(part[open:], ']')
			if end < 0 {
				segments = append(segments, part[open+1:])
				break
			}
			segments = append(segments, part[open+1:open+end])
			part = part[open+end+1:]
		}
	}
	return segments
}

type fieldReader interface {
	Field(key string) (any, bool)
}

func step(current any, segment string) (any, bool) {
	switch v := current.(type) {
	case nil:
		return nil, false
	case map[string]any:
		value, ok := v[segment]
		return value, ok
	case Attributes:
		value, ok := v[segment]
		return value, ok
	case fieldReader:
		return v.Field(segment)
	}

	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		value := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, false
		}
		return value.Interface(), true
	case reflect.Slice, reflect.Array:
		index, err := strconv.Atoi(segment)
		if err != nil || index < 0 || index >= rv.Len() {
			return nil, false
		}
		return rv.Index(index).Interface(), true
	case reflect.Struct:
		field := rv.FieldByName(segment)
		if !field.IsValid() || !field.CanInterface() {
			return nil, false
		}
		return field.Interface(), true
	default:
		return nil, false
	}
}
