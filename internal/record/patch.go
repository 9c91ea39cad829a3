package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

var ErrInvalidValue = errors.New("invalid_value")

const dateLayout = "2006-01-02"

// ParseID accepts snowflake ids as JSON strings or numbers.
func ParseID(v any) (snowflake.ID, error) {
	var (
		id  snowflake.ID
		err error
	)
	switch typed := v.(type) {
	case snowflake.ID:
		id = typed
	case string:
		id, err = snowflake.ParseString(strings.TrimSpace(typed))
	case float64:
		id = snowflake.ID(int64(typed))
	case int64:
		id = snowflake.ID(typed)
	case int:
		id = snowflake.ID(typed)
	case json.Number:
		id, err = snowflake.ParseString(typed.String())
	default:
		err = ErrInvalidValue
	}
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %v", ErrInvalidValue, v)
	}
	return id, nil
}

// ParseOptionalID is ParseID that maps nil and "" to a nil pointer.
func ParseOptionalID(v any) (*snowflake.ID, error) {
	if isNull(v) {
		return nil, nil
	}
	id, err := ParseID(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ParseFloat accepts JSON numbers and numeric strings.
func ParseFloat(v any) (float64, error) {
	switch typed := v.(type) {
	case float64:
		return typed, nil
	case float32:
		return float64(typed), nil
	case int:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case json.Number:
		return typed.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: number %q", ErrInvalidValue, typed)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: number %v", ErrInvalidValue, v)
	}
}

func ParseOptionalFloat(v any) (*float64, error) {
	if isNull(v) {
		return nil, nil
	}
	f, err := ParseFloat(v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseOptionalTime accepts RFC 3339 timestamps and plain dates.
func ParseOptionalTime(v any) (*time.Time, error) {
	if isNull(v) {
		return nil, nil
	}
	raw, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: time %v", ErrInvalidValue, v)
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, dateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: time %q", ErrInvalidValue, raw)
}

// ParseOptionalString trims v and maps nil and blank strings to nil.
func ParseOptionalString(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: string %v", ErrInvalidValue, v)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	return &raw, nil
}

// ParseObject accepts JSON objects; nil clears the value.
func ParseObject(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil, fmt.Errorf("%w: object %v", ErrInvalidValue, v)
	}
	return m, nil
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
