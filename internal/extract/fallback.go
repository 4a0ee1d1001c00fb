package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/northharbor/sage/internal/model"
	"github.com/northharbor/sage/internal/registry"
	"github.com/northharbor/sage/internal/validate"
)

// Deterministic fallback extraction for the free-text path. When the
// extractor under-reports confidence — or returns nothing at all — but the
// target field is unambiguous from the immediately preceding question and
// the message contains a single clean match for that field's type, the
// fallback supplies the value with a per-type confidence at or above the
// router threshold.

var (
	namePrefixRe = regexp.MustCompile(`(?i)^(?:my name is|i am|i'm)\s+`)
	nameTokenRe  = regexp.MustCompile(`^[A-Za-z][A-Za-z'-]*$`)
	birthYearRe  = regexp.MustCompile(`\b(\d{4})\b`)
	ageRangeRe   = regexp.MustCompile(`(\d{2})\D+(\d{2})`)
)

const maxReasonableAge = 110

var affirmativeTokens = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "yup": true,
	"sure": true, "correct": true, "true": true,
}

var negativeTokens = map[string]bool{
	"no": true, "n": true, "nope": true, "nah": true, "false": true, "none": true,
}

// Affirmative reports whether the message is a bare confirmation.
func Affirmative(message string) bool {
	norm := strings.ToLower(strings.Join(strings.Fields(message), " "))
	return affirmativeTokens[norm] || norm == "right" || norm == "that is right"
}

// Negative reports whether the message is a bare decline.
func Negative(message string) bool {
	norm := strings.ToLower(strings.Join(strings.Fields(message), " "))
	return negativeTokens[norm] || norm == "nothing" || norm == "nothing else" ||
		norm == "skip" || norm == "no thanks" || norm == "not really"
}

// FallbackValue attempts a deterministic parse of message for the target
// field. It returns the typed value, a per-type confidence, and whether a
// clean match was found.
func FallbackValue(path, message string) (any, float64, bool) {
	if !registry.Known(path) {
		return nil, 0, false
	}
	spec := registry.Describe(path)

	switch spec.Type {
	case registry.TypeName:
		if name := fallbackName(message); name != "" {
			return name, 0.75, true
		}
	case registry.TypeYear:
		if year, ok := fallbackBirthYear(message); ok {
			return year, 0.85, true
		}
	case registry.TypeText:
		if path == "housing.status" {
			if status, ok := fallbackHousingStatus(message); ok {
				return status, 0.9, true
			}
			return nil, 0, false
		}
		if v, err := validate.Value(spec, message); err == nil {
			return v, 0.8, true
		}
	case registry.TypeBoolean:
		norm := strings.ToLower(strings.TrimSpace(message))
		if affirmativeTokens[norm] {
			return true, 0.95, true
		}
		if negativeTokens[norm] {
			return false, 0.95, true
		}
	case registry.TypeAgeRange:
		if window, ok := fallbackAgeRange(message); ok {
			return window, 0.85, true
		}
	case registry.TypeMoney, registry.TypePercent, registry.TypeSuccessRate:
		if v, err := validate.Value(spec, message); err == nil {
			return v, 0.85, true
		}
	case registry.TypeInteger:
		if n, ok := validate.Number(message); ok {
			v := int(n)
			if v >= int(spec.Min) && v <= int(spec.Max) {
				return v, 0.85, true
			}
		}
	}
	return nil, 0, false
}

// fallbackName handles clear two-to-four token names, stripping lead-ins
// like "my name is" and avoiding numeric or punctuation-heavy messages.
func fallbackName(message string) string {
	norm := strings.Join(strings.Fields(message), " ")
	norm = namePrefixRe.ReplaceAllString(norm, "")
	norm = strings.Trim(norm, " .,!?:;")
	if norm == "" || strings.ContainsAny(norm, "0123456789") {
		return ""
	}
	parts := strings.Split(norm, " ")
	if len(parts) < 2 || len(parts) > 4 {
		return ""
	}
	for i, p := range parts {
		if !nameTokenRe.MatchString(p) {
			return ""
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}

func fallbackBirthYear(message string) (int, bool) {
	m := birthYearRe.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	year, _ := strconv.Atoi(m[1])
	currentYear := time.Now().UTC().Year()
	if year < 1900 || year > currentYear || currentYear-year > maxReasonableAge {
		return 0, false
	}
	return year, true
}

func fallbackHousingStatus(message string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(message)) {
	case "rent", "renter", "renting":
		return "rent", true
	case "own", "owner", "owning":
		return "own", true
	}
	return "", false
}

func fallbackAgeRange(message string) (model.NumericRange, bool) {
	msg := strings.TrimSpace(message)
	if m := ageRangeRe.FindStringSubmatch(msg); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo >= 40 && hi <= 80 && lo <= hi {
			return model.NumericRange{Min: float64(lo), Max: float64(hi)}, true
		}
		return model.NumericRange{}, false
	}
	if n, ok := validate.Number(msg); ok {
		age := int(n)
		if age >= 40 && age <= 80 {
			return model.NumericRange{Min: float64(age), Max: float64(age)}, true
		}
	}
	return model.NumericRange{}, false
}
