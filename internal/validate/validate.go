// Package validate holds the deterministic per-type parsers the fast path
// and the client-side form share. Validation is pure and always re-run
// server-side: the client's pre-validated flag is a latency hint, never a
// trust boundary.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/northharbor/sage/internal/model"
	"github.com/northharbor/sage/internal/registry"
)

var (
	nameTokenRe = regexp.MustCompile(`^[A-Z][A-Za-z'-]*$`)
	yearRe      = regexp.MustCompile(`^\d{4}$`)
	numberRe    = regexp.MustCompile(`[-+]?\d+(?:,\d{3})*(?:\.\d+)?`)
	rangeRe     = regexp.MustCompile(`^(\d{2})\s*(?:-|to|–)\s*(\d{2})$`)
	wordTextRe  = regexp.MustCompile(`^[A-Za-z][A-Za-z .'-]{1,49}$`)
)

// booleanTokens is the fixed token set for boolean-style fields.
var booleanTokens = map[string]bool{
	"yes": true, "true": true,
	"no": false, "false": false,
}

// Normalize strips currency and percent decoration and collapses
// whitespace. All type parsers operate on its output.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "%", "")
	return strings.Join(strings.Fields(s), " ")
}

// Value validates raw against the field's type and range and coerces it to
// the typed representation stored in the schema. The returned error message
// is human-readable and safe to surface to the user.
func Value(spec *registry.FieldSpec, raw string) (any, error) {
	s := Normalize(raw)
	if s == "" {
		return nil, eris.Errorf("I need %s there — the answer came through empty.", spec.FriendlyName)
	}

	switch spec.Type {
	case registry.TypeName:
		return parseName(s)
	case registry.TypeYear:
		return parseYear(s)
	case registry.TypeMoney:
		return parseMoney(s)
	case registry.TypePercent:
		return parsePercent(s, 0, 100)
	case registry.TypeSuccessRate:
		return parseSuccessRate(s)
	case registry.TypeAgeRange:
		return parseAgeRange(s)
	case registry.TypeInteger:
		return parseExactInteger(s, int(spec.Min), int(spec.Max), spec.FriendlyName)
	case registry.TypeBoolean:
		return parseBoolean(s)
	case registry.TypeText:
		return parseWordText(s)
	case registry.TypeFreeText:
		return strings.TrimSpace(raw), nil
	}
	return nil, eris.Errorf("no validator for field type %q", spec.Type)
}

func parseName(s string) (any, error) {
	parts := strings.Split(s, " ")
	if len(parts) < 2 || len(parts) > 4 {
		return nil, eris.New(`I need your full name (first and last) so I can match records correctly. For example: "Bob Jones."`)
	}
	for _, p := range parts {
		if !nameTokenRe.MatchString(p) {
			return nil, eris.New("I couldn't quite read that as a full name. Please share first and last name.")
		}
	}
	return s, nil
}

func parseYear(s string) (any, error) {
	currentYear := time.Now().UTC().Year()
	if !yearRe.MatchString(s) {
		return nil, eris.New(`I need a 4-digit birth year so I can calculate age-based projections. For example: "1982."`)
	}
	year, _ := strconv.Atoi(s)
	if year > currentYear {
		return nil, eris.Errorf("%d looks like a future year. Please share your actual birth year (for example, 1982).", year)
	}
	if year < 1900 {
		return nil, eris.Errorf("%d seems too early to be correct. Please enter a realistic 4-digit birth year between 1900 and %d.", year, currentYear)
	}
	return year, nil
}

func parseMoney(s string) (any, error) {
	n, ok := firstNumber(s)
	if !ok {
		return nil, eris.New(`I need a numeric amount for that field. You can enter values like "185000" or "$185,000."`)
	}
	if n < 0 {
		return nil, eris.New("That amount is negative. Please enter a positive number.")
	}
	return n, nil
}

func parsePercent(s string, lo, hi float64) (any, error) {
	n, ok := firstNumber(s)
	if !ok {
		return nil, eris.New(`I need a percentage for that value. You can reply with something like "6%" or "3".`)
	}
	if n < 0 {
		return nil, eris.New("Please enter a positive percentage.")
	}
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	return n, nil
}

// parseSuccessRate accepts "95", "95%", or ratio form "0.95" and clamps the
// percent value to [60,99].
func parseSuccessRate(s string) (any, error) {
	n, ok := firstNumber(s)
	if !ok {
		return nil, eris.New(`I need a percentage for that value. You can reply with something like "95%" or "0.95".`)
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
}

func parseAgeRange(s string) (any, error) {
	if m := rangeRe.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo > hi {
			return nil, eris.New(`I read the range backwards. Please share retirement ages from lower to higher, like "62 to 67."`)
		}
		if lo < 40 || hi > 80 {
			return nil, eris.New("Please use a realistic retirement age range between 40 and 80.")
		}
		return model.NumericRange{Min: float64(lo), Max: float64(hi)}, nil
	}
	age, err := strconv.Atoi(s)
	if err != nil {
		return nil, eris.New(`I need a retirement age or range, like "65" or "65 to 67."`)
	}
	if age < 40 || age > 80 {
		return nil, eris.New("Please use a realistic retirement age between 40 and 80.")
	}
	return model.NumericRange{Min: float64(age), Max: float64(age)}, nil
}

// parseExactInteger requires a canonical integer string: no leading zeros,
// no decoration remnants. Bounds are inclusive.
func parseExactInteger(s string, lo, hi int, friendly string) (any, error) {
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return nil, eris.Errorf("I need a whole number between %d and %d for %s.", lo, hi, friendly)
	}
	if n < lo || n > hi {
		return nil, eris.Errorf("That value should be between %d and %d.", lo, hi)
	}
	return n, nil
}

func parseBoolean(s string) (any, error) {
	v, ok := booleanTokens[strings.ToLower(s)]
	if !ok {
		return nil, eris.New(`Please answer "yes" or "no."`)
	}
	return v, nil
}

func parseWordText(s string) (any, error) {
	if strings.ContainsAny(s, "0123456789") {
		return nil, eris.New("That looks like it includes numbers. Please answer in words.")
	}
	if !wordTextRe.MatchString(s) {
		return nil, eris.New(`I need a short answer in words there (for example, "Washington" or "Seattle").`)
	}
	return s, nil
}

// firstNumber extracts the first numeric token, tolerating thousands
// separators.
func firstNumber(s string) (float64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Number exposes the numeric token scanner for fallback extraction.
func Number(raw string) (float64, bool) {
	return firstNumber(Normalize(raw))
}
