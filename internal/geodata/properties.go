package geodata

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrMissingProperty is returned when a required feature property is absent.
	ErrMissingProperty = eris.New("geodata: missing property")
	// ErrInvalidProperty is returned when a property has the wrong type or range.
	ErrInvalidProperty = eris.New("geodata: invalid property")
)

// idString renders an identifier property. Numbers use their shortest
// decimal form so 12 and "12" join.
func idString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		if f, err := t.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func floatProp(props map[string]any, key string) (float64, error) {
	v, ok := props[key]
	if !ok || v == nil {
		return 0, eris.Wrapf(ErrMissingProperty, "%s", key)
	}
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, eris.Wrapf(ErrInvalidProperty, "%s=%q", key, t.String())
		}
		return f, nil
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, eris.Wrapf(ErrInvalidProperty, "%s=%q", key, t)
		}
		return f, nil
	default:
		return 0, eris.Wrapf(ErrInvalidProperty, "%s has type %T", key, v)
	}
}

// countLimit is 2^63. float64(math.MaxInt64) rounds up to it, so counts must
// stay strictly below.
const countLimit = 1 << 63

// validCount reports whether f converts to a non-negative int64 exactly.
func validCount(f float64) bool {
	return f >= 0 && f < countLimit && f == math.Trunc(f)
}

// countProp reads a non-negative whole number.
func countProp(props map[string]any, key string) (int64, error) {
	f, err := floatProp(props, key)
	if err != nil {
		return 0, err
	}
	if !validCount(f) {
		return 0, eris.Wrapf(ErrInvalidProperty, "%s=%v is not a non-negative integer", key, f)
	}
	return int64(f), nil
}

func stringProp(props map[string]any, key string) (string, error) {
	v, ok := props[key]
	if !ok || v == nil {
		return "", eris.Wrapf(ErrMissingProperty, "%s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", eris.Wrapf(ErrInvalidProperty, "%s has type %T", key, v)
	}
	return s, nil
}
