package interview

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/northharbor/sage/internal/validate"
)

var (
	birthYearRe = regexp.MustCompile(`\b(\d{4})\b`)
	ageRangeRe  = regexp.MustCompile(`(\d{2})\s*(?:-|to|–)\s*(\d{2})`)
)

const (
	minBirthYear     = 1900
	maxReasonableAge = 110
)

// invalidFeedback explains why an answer could not be used for the target
// field, in terms a client can act on. Returns "" when no field-specific
// guidance exists.
func invalidFeedback(targetField, message string) string {
	text := strings.TrimSpace(message)
	if targetField == "" || text == "" {
		return ""
	}

	switch targetField {
	case "client.name":
		if len(strings.Fields(text)) < 2 {
			return "Thanks — I need your full name (first and last) so I can match records " +
				"correctly. For example: \"Bob Jones.\""
		}
		return "I couldn't quite read that as a full name. Please share first and last name."

	case "client.birth_year":
		currentYear := time.Now().UTC().Year()
		if m := birthYearRe.FindStringSubmatch(text); m != nil {
			year := mustAtoi(m[1])
			switch {
			case year > currentYear:
				return fmt.Sprintf("%d looks like a future year. Please share your actual birth year "+
					"(for example, 1982).", year)
			case year < minBirthYear:
				return fmt.Sprintf("%d seems too early to be correct. Please enter a realistic 4-digit "+
					"birth year between %d and %d.", year, minBirthYear, currentYear)
			case currentYear-year > maxReasonableAge:
				return "That birth year would imply an age over 110, which is usually a typo. " +
					"Please double-check the year."
			}
		}
		return "I need a 4-digit birth year so I can calculate age-based projections. " +
			"For example: \"1982.\""

	case "income.current_gross_annual",
		"retirement_philosophy.legacy_goal_total_real",
		"accounts.retirement_balance",
		"spending.retirement_monthly_real",
		"social_security.combined_at_67_monthly",
		"social_security.combined_at_70_monthly",
		"monte_carlo.legacy_floor":
		if n, ok := validate.Number(text); ok && n < 0 {
			return "That amount is negative. Please enter a positive number."
		}
		return "I need a numeric amount for that field. You can enter values like " +
			"\"185000\" or \"$185,000.\""

	case "retirement_philosophy.success_probability_target",
		"monte_carlo.required_success_rate",
		"accounts.savings_rate_percent":
		if n, ok := validate.Number(text); ok && n > 100 {
			return "That value is too large for a percentage. Please use something like " +
				"\"15%\" or \"95%.\""
		}
		return "I need a percentage for that value. You can reply with something like " +
			"\"15%\" or \"95%.\""

	case "client.retirement_window":
		if m := ageRangeRe.FindStringSubmatch(text); m != nil {
			lo, hi := mustAtoi(m[1]), mustAtoi(m[2])
			if lo > hi {
				return "I read the range backwards. Please share retirement ages from lower to " +
					"higher, like \"62 to 67.\""
			}
			if lo < 40 || hi > 80 {
				return "Please use a realistic retirement age range between 40 and 80."
			}
		} else if n, ok := validate.Number(text); ok && (n < 40 || n > 80) {
			return "Please use a realistic retirement age between 40 and 80."
		}
		return "I need a retirement age or range, like \"65\" or \"65 to 67.\""

	case "location.state", "location.city":
		if strings.ContainsFunc(text, unicode.IsDigit) {
			return "That looks like it includes numbers. Please enter a city/state name in words."
		}
		return "I need a place name there (for example, \"Washington\" or \"Seattle\")."

	case "housing.status":
		return "Please answer with \"rent\" or \"own.\""

	case "accounts.investment_strategy_id":
		return "Please share a strategy label like \"conservative,\" \"moderate,\" " +
			"or \"aggressive.\""

	case "social_security.claiming_preference":
		if n, ok := validate.Number(text); ok && (n < 62 || n > 70) {
			return "Claiming age should be between 62 and 70."
		}
		return "Please provide a claiming age between 62 and 70 (for example, \"67\")."

	case "monte_carlo.horizon_age":
		if n, ok := validate.Number(text); ok && (n < 80 || n > 120) {
			return "Projection horizon age is usually between 80 and 120."
		}
		return "Please provide an age for the projection horizon, usually between 80 and 120."

	case "accounts.has_employer_plan":
		return "Please answer \"yes\" or \"no\" for whether you have an employer retirement plan."

	case "accounts.employer_match_percent", "accounts.employee_contribution_percent":
		if n, ok := validate.Number(text); ok {
			if n > 100 {
				return "That percentage is above 100%. Please enter a realistic percentage."
			}
			if n < 0 {
				return "Please enter a positive percentage."
			}
		}
		return "Please enter a percentage, like \"6%\" or \"3\"."
	}

	return ""
}

func mustAtoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
