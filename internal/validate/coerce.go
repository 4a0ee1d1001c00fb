package validate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/northharbor/sage/internal/model"
	"github.com/northharbor/sage/internal/registry"
)

// Coerce validates a typed value — as produced by the extractor's JSON —
// against the field's type and range, returning the canonical stored form.
// Strings are delegated to the string validator.
func Coerce(spec *registry.FieldSpec, value any) (any, error) {
	if s, ok := value.(string); ok {
		return Value(spec, s)
	}

	switch spec.Type {
	case registry.TypeName, registry.TypeText, registry.TypeFreeText:
		return nil, eris.Errorf("expected text for %s", spec.FriendlyName)

	case registry.TypeYear:
		n, ok := numeric(value)
		if !ok {
			return nil, eris.Errorf("expected a year for %s", spec.FriendlyName)
		}
		return Value(spec, fmt.Sprintf("%d", int(n)))

	case registry.TypeMoney:
		n, ok := numeric(value)
		if !ok {
			return nil, eris.Errorf("expected an amount for %s", spec.FriendlyName)
		}
		if n < 0 {
			return nil, eris.New("That amount is negative. Please enter a positive number.")
		}
		return n, nil

	case registry.TypePercent:
		n, ok := numeric(value)
		if !ok || n < 0 {
			return nil, eris.Errorf("expected a percentage for %s", spec.FriendlyName)
		}
		if n > 100 {
			n = 100
		}
		return n, nil

	case registry.TypeSuccessRate:
		n, ok := numeric(value)
		if !ok {
			return nil, eris.Errorf("expected a percentage for %s", spec.FriendlyName)
		}
		if n > 0 && n <= 1 {
			n *= 100
		}
		if n < 60 {
			n = 60
		}
		if n > 99 {
			n = 99
		}
		return n, nil

	case registry.TypeInteger:
		n, ok := numeric(value)
		if !ok || n != float64(int(n)) {
			return nil, eris.Errorf("expected a whole number for %s", spec.FriendlyName)
		}
		v := int(n)
		if v < int(spec.Min) || v > int(spec.Max) {
			return nil, eris.Errorf("That value should be between %d and %d.", int(spec.Min), int(spec.Max))
		}
		return v, nil

	case registry.TypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, eris.Errorf("expected yes or no for %s", spec.FriendlyName)

	case registry.TypeAgeRange:
		return coerceAgeRange(spec, value)
	}
	return nil, eris.Errorf("no validator for field type %q", spec.Type)
}

func coerceAgeRange(spec *registry.FieldSpec, value any) (any, error) {
	switch v := value.(type) {
	case model.NumericRange:
		return validRange(v)
	case map[string]any:
		lo, loOK := numeric(v["min"])
		hi, hiOK := numeric(v["max"])
		if loOK && hiOK {
			return validRange(model.NumericRange{Min: lo, Max: hi})
		}
	default:
		if n, ok := numeric(value); ok {
			return validRange(model.NumericRange{Min: float64(int(n)), Max: float64(int(n))})
		}
	}
	return nil, eris.Errorf("expected an age or range for %s", spec.FriendlyName)
}

func validRange(r model.NumericRange) (any, error) {
	if r.Min > r.Max {
		return nil, eris.New(`I read the range backwards. Please share retirement ages from lower to higher, like "62 to 67."`)
	}
	if r.Min < 40 || r.Max > 80 {
		return nil, eris.New("Please use a realistic retirement age range between 40 and 80.")
	}
	return r, nil
}

func numeric(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// CurrentYearWindow reports the valid birth-year bounds, exposed for tests
// that pin the boundary conditions.
func CurrentYearWindow() (int, int) {
	return 1900, time.Now().UTC().Year()
}
