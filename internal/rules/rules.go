// Package rules holds the cross-field consistency battery. Every rule is a
// pure function over the schema; the full battery runs after each turn and
// the complete active set replaces whatever was shown before. Warnings are
// advisory only — they never block progression and never alter the schema.
package rules

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/northharbor/sage/internal/model"
)

type rule func(*model.PlanSchema) *model.Warning

var battery = []rule{
	checkSSBenefitsIncrease,
	checkCannotRetireInPast,
	checkHorizonPastRetirement,
	checkFullMatchCapture,
	checkSpendingVsIncome,
	checkLegacyVsBalance,
}

var usd = message.NewPrinter(language.AmericanEnglish)

// Check runs the full battery and returns the active warning set.
func Check(s *model.PlanSchema) []model.Warning {
	var warnings []model.Warning
	for _, r := range battery {
		if w := r(s); w != nil {
			warnings = append(warnings, *w)
		}
	}
	return warnings
}

func checkSSBenefitsIncrease(s *model.PlanSchema) *model.Warning {
	at67, ok67 := s.NumberAt("social_security.combined_at_67_monthly")
	at70, ok70 := s.NumberAt("social_security.combined_at_70_monthly")
	if !ok67 || !ok70 || at70 >= at67 {
		return nil
	}
	return &model.Warning{
		RuleID: "ss_benefits_increase",
		Fields: []string{
			"social_security.combined_at_67_monthly",
			"social_security.combined_at_70_monthly",
		},
		Message: usd.Sprintf(
			"Social Security benefits typically increase with delayed claiming. "+
				"Your estimate at 70 ($%.0f/mo) is lower than at 67 ($%.0f/mo).",
			at70, at67),
		Suggestion: "Double-check these values — you may have them reversed.",
	}
}

func checkCannotRetireInPast(s *model.PlanSchema) *model.Warning {
	birthYear, okYear := s.NumberAt("client.birth_year")
	window, okWin := s.RangeAt("client.retirement_window")
	if !okYear || !okWin {
		return nil
	}
	retireYear := int(birthYear) + int(window.Min)
	currentYear := time.Now().UTC().Year()
	if retireYear > currentYear {
		return nil
	}
	return &model.Warning{
		RuleID: "cannot_retire_in_past",
		Fields: []string{"client.birth_year", "client.retirement_window"},
		Message: fmt.Sprintf(
			"Your earliest retirement age (%d) with birth year %d means you'd retire in %d, which is in the past.",
			int(window.Min), int(birthYear), retireYear),
		Suggestion: "Update your retirement age or birth year.",
	}
}

func checkHorizonPastRetirement(s *model.PlanSchema) *model.Warning {
	horizon, okHorizon := s.NumberAt("monte_carlo.horizon_age")
	window, okWin := s.RangeAt("client.retirement_window")
	if !okHorizon || !okWin || horizon > window.Max {
		return nil
	}
	return &model.Warning{
		RuleID: "horizon_past_retirement",
		Fields: []string{"monte_carlo.horizon_age", "client.retirement_window"},
		Message: fmt.Sprintf(
			"Your planning horizon (%.0f) doesn't extend past your latest retirement age (%.0f). "+
				"This may underestimate long-term needs.",
			horizon, window.Max),
		Suggestion: fmt.Sprintf("Consider setting horizon to at least age %d.", int(window.Max)+5),
	}
}

func checkFullMatchCapture(s *model.PlanSchema) *model.Warning {
	contrib, okContrib := s.NumberAt("accounts.employee_contribution_percent")
	match, okMatch := s.NumberAt("accounts.employer_match_percent")
	if !okContrib || !okMatch || match <= 0 || contrib >= 2*match {
		return nil
	}
	return &model.Warning{
		RuleID: "full_match_capture",
		Fields: []string{
			"accounts.employee_contribution_percent",
			"accounts.employer_match_percent",
		},
		Message: fmt.Sprintf(
			"Your contribution (%.0f%%) may not capture your full employer match (%.0f%%). "+
				"You may need at least %.0f%% to maximize the match.",
			contrib, match, 2*match),
		Suggestion: "Consider increasing your contribution to capture the full match.",
	}
}

func checkSpendingVsIncome(s *model.PlanSchema) *model.Warning {
	spending, okSpend := s.NumberAt("spending.retirement_monthly_real")
	income, okIncome := s.NumberAt("income.current_gross_annual")
	if !okSpend || !okIncome || income <= 0 {
		return nil
	}
	monthlyIncome := income / 12
	if spending <= monthlyIncome {
		return nil
	}
	return &model.Warning{
		RuleID: "spending_vs_income",
		Fields: []string{
			"spending.retirement_monthly_real",
			"income.current_gross_annual",
		},
		Message: usd.Sprintf(
			"Your planned retirement spending ($%.0f/mo) exceeds your current monthly gross income ($%.0f/mo).",
			spending, monthlyIncome),
		Suggestion: "This is unusual — verify your spending target is realistic.",
	}
}

func checkLegacyVsBalance(s *model.PlanSchema) *model.Warning {
	legacy, okLegacy := s.NumberAt("retirement_philosophy.legacy_goal_total_real")
	balance, okBalance := s.NumberAt("accounts.retirement_balance")
	if !okLegacy || !okBalance || legacy <= 0 || balance <= 0 || legacy <= 10*balance {
		return nil
	}
	return &model.Warning{
		RuleID: "legacy_vs_balance",
		Fields: []string{
			"retirement_philosophy.legacy_goal_total_real",
			"accounts.retirement_balance",
		},
		Message: usd.Sprintf(
			"Your legacy goal ($%.0f) is more than 10x your current balance ($%.0f).",
			legacy, balance),
		Suggestion: "This is ambitious — consider whether this goal is realistic.",
	}
}
