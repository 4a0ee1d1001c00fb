package model

import (
	"encoding/json"
	"time"
)

// PlanStatus tracks the plan's coarse intake lifecycle.
type PlanStatus string

const (
	StatusIntakeInProgress PlanStatus = "intake_in_progress"
	StatusIntakeComplete   PlanStatus = "intake_complete"
)

// ClientProfile holds primary client demographics.
type ClientProfile struct {
	Name             ProvenanceField `json:"name"`
	BirthYear        ProvenanceField `json:"birth_year"`
	RetirementWindow ProvenanceField `json:"retirement_window"`
}

// LocationProfile holds geographic and tax-related location info.
type LocationProfile struct {
	State ProvenanceField `json:"state"`
	City  ProvenanceField `json:"city"`
}

// IncomeProfile holds current income figures.
type IncomeProfile struct {
	CurrentGrossAnnual ProvenanceField `json:"current_gross_annual"`
}

// RetirementPhilosophy holds goals and preferences for retirement planning.
type RetirementPhilosophy struct {
	SuccessProbabilityTarget ProvenanceField `json:"success_probability_target"`
	LegacyGoalTotalReal      ProvenanceField `json:"legacy_goal_total_real"`
}

// AccountsProfile holds retirement account details.
type AccountsProfile struct {
	RetirementBalance          ProvenanceField `json:"retirement_balance"`
	HasEmployerPlan            ProvenanceField `json:"has_employer_plan"`
	EmployerMatchPercent       ProvenanceField `json:"employer_match_percent"`
	EmployeeContributionPct    ProvenanceField `json:"employee_contribution_percent"`
	SavingsRatePercent         ProvenanceField `json:"savings_rate_percent"`
	InvestmentStrategyID       ProvenanceField `json:"investment_strategy_id"`
}

// HousingProfile holds the client's housing situation.
type HousingProfile struct {
	Status ProvenanceField `json:"status"`
}

// SpendingProfile holds spending targets.
type SpendingProfile struct {
	RetirementMonthlyReal ProvenanceField `json:"retirement_monthly_real"`
}

// SocialSecurityProfile holds benefit estimates and claiming strategy.
type SocialSecurityProfile struct {
	CombinedAt67Monthly ProvenanceField `json:"combined_at_67_monthly"`
	CombinedAt70Monthly ProvenanceField `json:"combined_at_70_monthly"`
	ClaimingPreference  ProvenanceField `json:"claiming_preference"`
}

// MonteCarloConfig holds simulation parameters handed to the projection engine.
type MonteCarloConfig struct {
	RequiredSuccessRate ProvenanceField `json:"required_success_rate"`
	HorizonAge          ProvenanceField `json:"horizon_age"`
	LegacyFloor         ProvenanceField `json:"legacy_floor"`
}

// PlanSchema is the canonical plan document built up by the interview.
// It is always a valid instance of its type even when incomplete: every
// leaf defaults to a placeholder with SourceDefault, never to a type error.
type PlanSchema struct {
	SchemaVersion string     `json:"schema_version"`
	Version       int        `json:"version"`
	PlanID        string     `json:"plan_id"`
	OwnerID       string     `json:"owner_id"`
	Status        PlanStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Client                   ClientProfile         `json:"client"`
	Location                 LocationProfile       `json:"location"`
	Income                   IncomeProfile         `json:"income"`
	RetirementPhilosophy     RetirementPhilosophy  `json:"retirement_philosophy"`
	Accounts                 AccountsProfile       `json:"accounts"`
	Housing                  HousingProfile        `json:"housing"`
	Spending                 SpendingProfile       `json:"spending"`
	SocialSecurity           SocialSecurityProfile `json:"social_security"`
	MonteCarlo               MonteCarloConfig      `json:"monte_carlo"`
	AdditionalConsiderations ProvenanceField       `json:"additional_considerations"`
}

// NewPlanSchema builds a fresh schema with every leaf defaulted.
func NewPlanSchema(planID, ownerID string) *PlanSchema {
	now := time.Now().UTC()
	return &PlanSchema{
		SchemaVersion: "1.0",
		Version:       1,
		PlanID:        planID,
		OwnerID:       ownerID,
		Status:        StatusIntakeInProgress,
		CreatedAt:     now,
		UpdatedAt:     now,
		Client: ClientProfile{
			Name:             DefaultField(nil),
			BirthYear:        DefaultField(0),
			RetirementWindow: DefaultField(NumericRange{Min: 65, Max: 67}),
		},
		Location: LocationProfile{
			State: DefaultField(nil),
			City:  DefaultField(nil),
		},
		Income: IncomeProfile{
			CurrentGrossAnnual: DefaultField(float64(0)),
		},
		RetirementPhilosophy: RetirementPhilosophy{
			SuccessProbabilityTarget: DefaultField(float64(95)),
			LegacyGoalTotalReal:      DefaultField(float64(0)),
		},
		Accounts: AccountsProfile{
			RetirementBalance:       DefaultField(float64(0)),
			HasEmployerPlan:         DefaultField(nil),
			EmployerMatchPercent:    DefaultField(float64(0)),
			EmployeeContributionPct: DefaultField(float64(0)),
			SavingsRatePercent:      DefaultField(float64(0)),
			InvestmentStrategyID:    DefaultField(nil),
		},
		Housing: HousingProfile{
			Status: DefaultField(nil),
		},
		Spending: SpendingProfile{
			RetirementMonthlyReal: DefaultField(float64(0)),
		},
		SocialSecurity: SocialSecurityProfile{
			CombinedAt67Monthly: DefaultField(float64(0)),
			CombinedAt70Monthly: DefaultField(float64(0)),
			ClaimingPreference:  DefaultField(0),
		},
		MonteCarlo: MonteCarloConfig{
			RequiredSuccessRate: DefaultField(float64(95)),
			HorizonAge:          DefaultField(95),
			LegacyFloor:         DefaultField(float64(0)),
		},
		AdditionalConsiderations: DefaultField(nil),
	}
}

// Field resolves a dot-delimited path to the leaf ProvenanceField, or nil
// for an unknown path. Pointers are into the schema itself, so writes
// through the result mutate the schema.
func (s *PlanSchema) Field(path string) *ProvenanceField {
	switch path {
	case "client.name":
		return &s.Client.Name
	case "client.birth_year":
		return &s.Client.BirthYear
	case "client.retirement_window":
		return &s.Client.RetirementWindow
	case "location.state":
		return &s.Location.State
	case "location.city":
		return &s.Location.City
	case "income.current_gross_annual":
		return &s.Income.CurrentGrossAnnual
	case "retirement_philosophy.success_probability_target":
		return &s.RetirementPhilosophy.SuccessProbabilityTarget
	case "retirement_philosophy.legacy_goal_total_real":
		return &s.RetirementPhilosophy.LegacyGoalTotalReal
	case "accounts.retirement_balance":
		return &s.Accounts.RetirementBalance
	case "accounts.has_employer_plan":
		return &s.Accounts.HasEmployerPlan
	case "accounts.employer_match_percent":
		return &s.Accounts.EmployerMatchPercent
	case "accounts.employee_contribution_percent":
		return &s.Accounts.EmployeeContributionPct
	case "accounts.savings_rate_percent":
		return &s.Accounts.SavingsRatePercent
	case "accounts.investment_strategy_id":
		return &s.Accounts.InvestmentStrategyID
	case "housing.status":
		return &s.Housing.Status
	case "spending.retirement_monthly_real":
		return &s.Spending.RetirementMonthlyReal
	case "social_security.combined_at_67_monthly":
		return &s.SocialSecurity.CombinedAt67Monthly
	case "social_security.combined_at_70_monthly":
		return &s.SocialSecurity.CombinedAt70Monthly
	case "social_security.claiming_preference":
		return &s.SocialSecurity.ClaimingPreference
	case "monte_carlo.required_success_rate":
		return &s.MonteCarlo.RequiredSuccessRate
	case "monte_carlo.horizon_age":
		return &s.MonteCarlo.HorizonAge
	case "monte_carlo.legacy_floor":
		return &s.MonteCarlo.LegacyFloor
	case "additional_considerations":
		return &s.AdditionalConsiderations
	}
	return nil
}

// NumberAt returns the field's value coerced to float64, with ok=false when
// the field is uncollected or not numeric. JSON round trips turn ints into
// float64, so both are handled.
func (s *PlanSchema) NumberAt(path string) (float64, bool) {
	f := s.Field(path)
	if f == nil || !f.Collected() {
		return 0, false
	}
	switch v := f.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	}
	return 0, false
}

// RangeAt returns the field's value as a NumericRange. Values that arrived
// through JSON persistence decode as map[string]any.
func (s *PlanSchema) RangeAt(path string) (NumericRange, bool) {
	f := s.Field(path)
	if f == nil || !f.Collected() {
		return NumericRange{}, false
	}
	switch v := f.Value.(type) {
	case NumericRange:
		return v, true
	case map[string]any:
		lo, loOK := asFloat(v["min"])
		hi, hiOK := asFloat(v["max"])
		if loOK && hiOK {
			return NumericRange{Min: lo, Max: hi}, true
		}
	}
	return NumericRange{}, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Clone returns a deep copy of the schema. Leaf values are either scalars
// or small value types, so a struct copy is sufficient except for map-typed
// values restored from persistence, which are re-copied.
func (s *PlanSchema) Clone() *PlanSchema {
	dup := *s
	for _, path := range allLeafPaths {
		src := s.Field(path)
		dst := dup.Field(path)
		if m, ok := src.Value.(map[string]any); ok {
			cp := make(map[string]any, len(m))
			for k, v := range m {
				cp[k] = v
			}
			dst.Value = cp
		}
	}
	return &dup
}

// allLeafPaths enumerates every ProvenanceField leaf in the schema.
var allLeafPaths = []string{
	"client.name",
	"client.birth_year",
	"client.retirement_window",
	"location.state",
	"location.city",
	"income.current_gross_annual",
	"retirement_philosophy.success_probability_target",
	"retirement_philosophy.legacy_goal_total_real",
	"accounts.retirement_balance",
	"accounts.has_employer_plan",
	"accounts.employer_match_percent",
	"accounts.employee_contribution_percent",
	"accounts.savings_rate_percent",
	"accounts.investment_strategy_id",
	"housing.status",
	"spending.retirement_monthly_real",
	"social_security.combined_at_67_monthly",
	"social_security.combined_at_70_monthly",
	"social_security.claiming_preference",
	"monte_carlo.required_success_rate",
	"monte_carlo.horizon_age",
	"monte_carlo.legacy_floor",
	"additional_considerations",
}

// LeafPaths returns every leaf path in declaration order.
func LeafPaths() []string {
	out := make([]string, len(allLeafPaths))
	copy(out, allLeafPaths)
	return out
}
