package security

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

type SanitizerConfig struct {
	Enabled         bool `yaml:"enabled" mapstructure:"enabled"`
	MaxStringLength int  `yaml:"max_string_length" mapstructure:"max_string_length"`
	MaxArrayLength  int  `yaml:"max_array_length" mapstructure:"max_array_length"`
	MaxObjectDepth  int  `yaml:"max_object_depth" mapstructure:"max_object_depth"`
	StrictMode      bool `yaml:"strict_mode" mapstructure:"strict_mode"`
	AllowHTML       bool `yaml:"allow_html" mapstructure:"allow_html"`
}

// InputSanitizer cleans model attributes before they are sent to a remote endpoint.
// Markup is stripped with bluemonday, or reduced to user-generated-content tags when
// AllowHTML is set. In strict mode oversize input is rejected instead of truncated.
type InputSanitizer struct {
	config     SanitizerConfig
	htmlPolicy *bluemonday.Policy
}

func NewInputSanitizer(config SanitizerConfig) *InputSanitizer {
	sanitizer := &InputSanitizer{
		config: config,
	}

	if config.Enabled {
		if config.AllowHTML {
			sanitizer.htmlPolicy = bluemonday.UGCPolicy()
		} else {
			sanitizer.htmlPolicy = bluemonday.StrictPolicy()
		}
	}

	return sanitizer
}

func (is *InputSanitizer) SanitizeString(input string) (string, error) {
	if !is.config.Enabled {
		return input, nil
	}

	if is.config.MaxStringLength > 0 && len(input) > is.config.MaxStringLength {
		if is.config.StrictMode {
			return "", fmt.Errorf("string length exceeds maximum allowed length of %d", is.config.MaxStringLength)
		}
		input = input[:is.config.MaxStringLength]
	}

	if !utf8.ValidString(input) {
		if is.config.StrictMode {
			return "", fmt.Errorf("invalid UTF-8 string")
		}
		input = strings.ToValidUTF8(input, "")
	}

	input = strings.ReplaceAll(input, "\x00", "")
	input = is.htmlPolicy.Sanitize(input)

	return strings.TrimSpace(input), nil
}

func (is *InputSanitizer) SanitizeValue(value any) (any, error) {
	return is.sanitizeValueWithDepth(value, 0)
}

// SanitizeAttributes cleans every value of attrs and returns a new map.
func (is *InputSanitizer) SanitizeAttributes(attrs map[string]any) (map[string]any, error) {
	if !is.config.Enabled || attrs == nil {
		return attrs, nil
	}
	return is.sanitizeObject(attrs, 0)
}

func (is *InputSanitizer) sanitizeValueWithDepth(value any, depth int) (any, error) {
	if !is.config.Enabled {
		return value, nil
	}

	if is.config.MaxObjectDepth > 0 && depth > is.config.MaxObjectDepth {
		if is.config.StrictMode {
			return nil, fmt.Errorf("object depth exceeds maximum allowed depth of %d", is.config.MaxObjectDepth)
		}
		return nil, nil
	}

	switch v := value.(type) {
	case string:
		return is.SanitizeString(v)
	case []any:
		return is.sanitizeArray(v, depth)
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return is.sanitizeArray(items, depth)
	case map[string]any:
		return is.sanitizeObject(v, depth)
	default:
		return v, nil
	}
}

func (is *InputSanitizer) sanitizeArray(arr []any, depth int) ([]any, error) {
	if is.config.MaxArrayLength > 0 && len(arr) > is.config.MaxArrayLength {
		if is.config.StrictMode {
			return nil, fmt.Errorf("array length exceeds maximum allowed length of %d", is.config.MaxArrayLength)
		}
		arr = arr[:is.config.MaxArrayLength]
	}

	sanitized := make([]any, 0, len(arr))
	for _, item := range arr {
		sanitizedItem, err := is.sanitizeValueWithDepth(item, depth+1)
		if err != nil {
			return nil, err
		}
		sanitized = append(sanitized, sanitizedItem)
	}

	return sanitized, nil
}

func (is *InputSanitizer) sanitizeObject(obj map[string]any, depth int) (map[string]any, error) {
	sanitized := make(map[string]any, len(obj))

	for key, value := range obj {
		sanitizedValue, err := is.sanitizeValueWithDepth(value, depth+1)
		if err != nil {
			return nil, fmt.Errorf("invalid value for key '%s': %w", key, err)
		}
		sanitized[key] = sanitizedValue
	}

	return sanitized, nil
}

func (is *InputSanitizer) IsEnabled() bool {
	return is.config.Enabled
}
