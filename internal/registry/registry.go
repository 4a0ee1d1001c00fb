// Package registry is the static catalog of every collectible plan field:
// path, data type, valid range, priority tier, and question template. The
// policy engine walks it in tier order; the validator reads type and bounds
// from it.
package registry

import (
	"fmt"

	"github.com/northharbor/sage/internal/model"
)

// FieldType drives deterministic validation and fallback parsing.
type FieldType string

const (
	TypeName        FieldType = "name"         // 2-4 capitalized words
	TypeYear        FieldType = "year"         // 4 digits within [1900, current year]
	TypeMoney       FieldType = "money"        // non-negative amount
	TypePercent     FieldType = "percent"      // numeric, clamped to [0,100]
	TypeSuccessRate FieldType = "success_rate" // numeric, clamped to [60,99]
	TypeAgeRange    FieldType = "age_range"    // single age or "A to B" within [40,80]
	TypeInteger     FieldType = "integer"      // exact integer parse within [Min,Max]
	TypeBoolean     FieldType = "boolean"      // fixed token set
	TypeText        FieldType = "text"         // short word text, no digits
	TypeFreeText    FieldType = "free_text"    // unconstrained narrative
)

// FieldSpec describes one collectible field.
type FieldSpec struct {
	Path         string
	FriendlyName string
	Type         FieldType
	Min          float64
	Max          float64
	Tier         int
	Required     bool
	Question     string

	// SkipWhen gates the field behind a prior answer; when it returns true
	// the policy engine never asks for this field.
	SkipWhen func(*model.PlanSchema) bool `json:"-"`
}

// group clusters fields that are asked together, in tier order.
type group struct {
	name     string
	tier     int
	required bool
	paths    []string
}

var groups = []group{
	{"identity", 1, true, []string{"client.name", "client.birth_year"}},
	{"location", 2, true, []string{"location.state", "location.city"}},
	{"income", 3, true, []string{"income.current_gross_annual"}},
	{"retirement_goals", 4, true, []string{
		"retirement_philosophy.success_probability_target",
		"retirement_philosophy.legacy_goal_total_real",
		"client.retirement_window",
	}},
	{"accounts", 5, true, []string{
		"accounts.retirement_balance",
		"accounts.has_employer_plan",
		"accounts.employer_match_percent",
		"accounts.employee_contribution_percent",
	}},
	{"spending", 6, true, []string{"spending.retirement_monthly_real"}},
	{"social_security", 7, true, []string{
		"social_security.combined_at_67_monthly",
		"social_security.combined_at_70_monthly",
	}},
	{"monte_carlo_params", 8, true, []string{
		"monte_carlo.required_success_rate",
		"monte_carlo.horizon_age",
		"monte_carlo.legacy_floor",
	}},
	{"housing_details", 9, false, []string{"housing.status"}},
	{"investment_strategy", 10, false, []string{"accounts.investment_strategy_id"}},
	{"social_security_claiming", 11, false, []string{"social_security.claiming_preference"}},
	{"additional_considerations", 12, false, []string{"additional_considerations"}},
}

// skipEmployerMatch gates match and contribution questions behind an
// explicit "no employer plan" answer.
func skipEmployerMatch(s *model.PlanSchema) bool {
	f := s.Field("accounts.has_employer_plan")
	if f == nil || !f.Collected() {
		return false
	}
	has, ok := f.Value.(bool)
	return ok && !has
}

var specs = map[string]*FieldSpec{
	"client.name": {
		Path: "client.name", FriendlyName: "your name", Type: TypeName,
		Question: "Great to meet you. What should I call you?",
	},
	"client.birth_year": {
		Path: "client.birth_year", FriendlyName: "your birth year", Type: TypeYear,
		Question: "What year were you born?",
	},
	"location.state": {
		Path: "location.state", FriendlyName: "your state", Type: TypeText,
		Question: "Which state are you currently living in?",
	},
	"location.city": {
		Path: "location.city", FriendlyName: "your city", Type: TypeText,
		Question: "And what city are you in?",
	},
	"income.current_gross_annual": {
		Path: "income.current_gross_annual", FriendlyName: "your annual income", Type: TypeMoney,
		Question: "Could you share your current gross annual income?",
	},
	"retirement_philosophy.success_probability_target": {
		Path: "retirement_philosophy.success_probability_target", FriendlyName: "your success target",
		Type: TypeSuccessRate, Min: 60, Max: 99,
		Question: "What level of plan success would help you feel comfortable? (for example, 90% or 95%)",
	},
	"retirement_philosophy.legacy_goal_total_real": {
		Path: "retirement_philosophy.legacy_goal_total_real", FriendlyName: "your legacy goal", Type: TypeMoney,
		Question: "Would you like to leave a specific amount behind as a legacy (in today's dollars)?",
	},
	"client.retirement_window": {
		Path: "client.retirement_window", FriendlyName: "your retirement age range",
		Type: TypeAgeRange, Min: 40, Max: 80,
		Question: "What retirement age are you aiming for? A single age or a range (like 62 to 67) both work.",
	},
	"accounts.retirement_balance": {
		Path: "accounts.retirement_balance", FriendlyName: "your retirement balance", Type: TypeMoney,
		Question: "About how much do you currently have saved across retirement accounts?",
	},
	"accounts.has_employer_plan": {
		Path: "accounts.has_employer_plan", FriendlyName: "whether you have an employer retirement plan", Type: TypeBoolean,
		Question: "Does your employer offer a retirement savings plan like a 401(k)?",
	},
	"accounts.employer_match_percent": {
		Path: "accounts.employer_match_percent", FriendlyName: "your employer match percentage",
		Type: TypePercent, Max: 100, SkipWhen: skipEmployerMatch,
		Question: "How much does your employer match? For example, if they match 50% up to 6%, that is effectively 3%.",
	},
	"accounts.employee_contribution_percent": {
		Path: "accounts.employee_contribution_percent", FriendlyName: "your contribution percentage",
		Type: TypePercent, Max: 100, SkipWhen: skipEmployerMatch,
		Question: "What percent of your income are you currently contributing?",
	},
	"accounts.savings_rate_percent": {
		Path: "accounts.savings_rate_percent", FriendlyName: "your savings rate",
		Type: TypePercent, Max: 100,
		Question: "Overall, what percent of your income are you saving for retirement?",
	},
	"spending.retirement_monthly_real": {
		Path: "spending.retirement_monthly_real", FriendlyName: "your monthly retirement spending", Type: TypeMoney,
		Question: "Roughly how much do you expect to spend each month in retirement (in today's dollars)?",
	},
	"social_security.combined_at_67_monthly": {
		Path: "social_security.combined_at_67_monthly", FriendlyName: "your Social Security estimate at age 67", Type: TypeMoney,
		Question: "What do you expect your combined monthly Social Security to be at age 67?",
	},
	"social_security.combined_at_70_monthly": {
		Path: "social_security.combined_at_70_monthly", FriendlyName: "your Social Security estimate at age 70", Type: TypeMoney,
		Question: "And what would that monthly Social Security amount be at age 70?",
	},
	"monte_carlo.required_success_rate": {
		Path: "monte_carlo.required_success_rate", FriendlyName: "your minimum success rate",
		Type: TypeSuccessRate, Min: 60, Max: 99,
		Question: "What minimum success rate would you consider acceptable for your plan?",
	},
	"monte_carlo.horizon_age": {
		Path: "monte_carlo.horizon_age", FriendlyName: "your planning horizon age",
		Type: TypeInteger, Min: 80, Max: 120,
		Question: "Up to what age should we model your plan? (for example, 95)",
	},
	"monte_carlo.legacy_floor": {
		Path: "monte_carlo.legacy_floor", FriendlyName: "your minimum ending balance target", Type: TypeMoney,
		Question: "At the end of the plan horizon, what minimum balance would you like to preserve?",
	},
	"housing.status": {
		Path: "housing.status", FriendlyName: "your housing status", Type: TypeText,
		Question: "Do you currently rent or own your home?",
	},
	"accounts.investment_strategy_id": {
		Path: "accounts.investment_strategy_id", FriendlyName: "your investment strategy", Type: TypeText,
		Question: "How would you describe your investment style today (for example: conservative, moderate, or aggressive)?",
	},
	"social_security.claiming_preference": {
		Path: "social_security.claiming_preference", FriendlyName: "your Social Security claiming age",
		Type: TypeInteger, Min: 62, Max: 70,
		Question: "At what age are you planning to claim Social Security? For most people, full retirement age is around 67 (claiming range: 62-70).",
	},
	"additional_considerations": {
		Path: "additional_considerations", FriendlyName: "anything else affecting your plan", Type: TypeFreeText,
		Question: "Before we wrap up: is there anything else going on — planned moves, family support, health considerations — that should factor into your plan? (It's fine to say no.)",
	},
}

var (
	requiredPaths []string
	optionalPaths []string
)

func init() {
	for _, g := range groups {
		for _, p := range g.paths {
			spec, ok := specs[p]
			if !ok {
				panic(fmt.Sprintf("registry: group %q references unknown field %q", g.name, p))
			}
			spec.Tier = g.tier
			spec.Required = g.required
			if g.required {
				requiredPaths = append(requiredPaths, p)
			} else {
				optionalPaths = append(optionalPaths, p)
			}
		}
	}
}

// Describe returns the spec for a field path. Unknown paths are a
// programmer error and panic.
func Describe(path string) *FieldSpec {
	spec, ok := specs[path]
	if !ok {
		panic(fmt.Sprintf("registry: unknown field path %q", path))
	}
	return spec
}

// Known reports whether path is a registered collectible field.
func Known(path string) bool {
	_, ok := specs[path]
	return ok
}

// RequiredPaths returns required field paths in priority order.
func RequiredPaths() []string {
	out := make([]string, len(requiredPaths))
	copy(out, requiredPaths)
	return out
}

// OptionalPaths returns optional field paths in priority order.
func OptionalPaths() []string {
	out := make([]string, len(optionalPaths))
	copy(out, optionalPaths)
	return out
}

// FriendlyName returns a human label for a path, tolerating unknown paths.
func FriendlyName(path string) string {
	if spec, ok := specs[path]; ok {
		return spec.FriendlyName
	}
	return "that value"
}
