package attrs

import (
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/blog-porter/app/record"
)

// Transform coerces a raw field value. It receives nil for absent fields.
type Transform func(value any) (any, error)

type Field struct {
	Source    string
	Target    string
	Transform Transform
}

// Map is an ordered list of field mappings.
type Map []Field

type ConversionError struct {
	Field string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert field %s: %v", e.Field, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Apply maps raw into attribute values in map order. Missing fields map to
// nil; transform failures are returned as *ConversionError.
func (m Map) Apply(raw *record.Raw) (*Values, error) {
	out := NewValues()
	for _, f := range m {
		v := raw.Value(f.Source)
		if f.Transform != nil {
			converted, err := f.Transform(v)
			if err != nil {
				return nil, &ConversionError{Field: f.Source, Err: err}
			}
			v = converted
		}
		out.Set(f.Target, v)
	}
	return out, nil
}

// Time parses string values with the first matching layout.
func Time(layouts ...string) Transform {
	return func(value any) (any, error) {
		if value == nil {
			return nil, nil
		}

		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected date string, got %T", value)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}

		var lastErr error
		for _, layout := range layouts {
			t, err := time.Parse(layout, s)
			if err == nil {
				return t, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("unparsable date %q: %w", s, lastErr)
	}
}

// Names collects the given key of every object in a list, e.g. the names of
// a tag list. Absent or mis-shaped values yield an empty list.
func Names(key string) Transform {
	return func(value any) (any, error) {
		names := make([]string, 0)
		for _, obj := range record.ObjectsOf(value) {
			if name := obj.String(key); name != "" {
				names = append(names, name)
			}
		}
		return names, nil
	}
}
