// Package policy selects the next interview question from schema
// completeness alone. A field counts as collected the moment its source
// leaves "default", regardless of confidence — confidence is carried for
// downstream auditing only, never to re-ask a question. That keeps the
// interview free of confirmation loops.
package policy

import (
	"fmt"

	"github.com/northharbor/sage/internal/model"
	"github.com/northharbor/sage/internal/registry"
)

// Decision is the outcome of next-question selection.
type Decision struct {
	Question      string   `json:"next_question,omitempty"`
	TargetField   string   `json:"target_field,omitempty"`
	MissingFields []string `json:"missing_fields"`
	Reason        string   `json:"reason"`
	Complete      bool     `json:"interview_complete"`
}

// MissingRequired returns required field paths not yet collected, in
// priority order, honoring skip predicates.
func MissingRequired(s *model.PlanSchema) []string {
	return missing(s, registry.RequiredPaths())
}

// MissingOptional returns optional field paths not yet collected.
func MissingOptional(s *model.PlanSchema) []string {
	return missing(s, registry.OptionalPaths())
}

func missing(s *model.PlanSchema, paths []string) []string {
	var out []string
	for _, path := range paths {
		spec := registry.Describe(path)
		if spec.SkipWhen != nil && spec.SkipWhen(s) {
			continue
		}
		if f := s.Field(path); f != nil && !f.Collected() {
			out = append(out, path)
		}
	}
	return out
}

// SelectNext scans required fields in registry priority order, then
// optional fields, and targets the first uncollected one. When nothing
// remains the interview is complete.
func SelectNext(s *model.PlanSchema) Decision {
	if req := MissingRequired(s); len(req) > 0 {
		target := req[0]
		return Decision{
			Question:      questionFor(s, target),
			TargetField:   target,
			MissingFields: req,
			Reason:        fmt.Sprintf("required field %q uncollected", target),
		}
	}

	if opt := MissingOptional(s); len(opt) > 0 {
		target := opt[0]
		return Decision{
			Question:      questionFor(s, target),
			TargetField:   target,
			MissingFields: []string{},
			Reason:        "optional enrichment",
		}
	}

	return Decision{
		MissingFields: []string{},
		Reason:        "interview complete",
		Complete:      true,
	}
}

// questionFor returns the field's question template, contextualized for the
// contribution question when the employer match is already known.
func questionFor(s *model.PlanSchema, path string) string {
	if path == "accounts.employee_contribution_percent" {
		if match, ok := s.NumberAt("accounts.employer_match_percent"); ok && match > 0 {
			return fmt.Sprintf(
				"What percentage of your income do you contribute to your retirement plan? "+
					"Your employer matches up to %.0f%%. Contributing at least %.0f%% captures the full match.",
				match, 2*match)
		}
	}
	return registry.QuestionFor(path)
}
