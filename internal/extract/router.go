package extract

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/northharbor/sage/internal/model"
	"github.com/northharbor/sage/internal/registry"
	"github.com/northharbor/sage/internal/validate"
)

// DefaultConfidenceThreshold is the floor below which free-text proposals
// are checked against the deterministic fallback pass.
const DefaultConfidenceThreshold = 0.7

// Input is one user turn as seen by the router.
type Input struct {
	Message string
	// FieldPath plus Validated selects the fast path. The validator is
	// always re-run server-side.
	FieldPath string
	Validated bool
	// TargetField is the field the immediately preceding question asked
	// for; it disambiguates fallback extraction on the free-text path.
	TargetField string
	History     []model.Message
	// Source overrides the provenance recorded for applied patches;
	// corrections pass SourceCorrection. Zero value keeps per-path sources.
	Source model.Source
}

// Applied records one successful field application.
type Applied struct {
	Path       string       `json:"path"`
	Value      any          `json:"value"`
	Confidence float64      `json:"confidence"`
	Source     model.Source `json:"source"`
}

// Rejected records one proposal that failed validation. Rejections are
// reported, never silently dropped.
type Rejected struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the outcome of routing a single turn.
type Result struct {
	Applied  []Applied
	Rejected []Rejected
	// UsedFastPath is true when the turn completed without an extractor
	// round trip.
	UsedFastPath bool
}

// Router decides per turn between the deterministic fast path and the
// model-backed free-text path, then applies patches to the schema. Each
// successful application mutates exactly one ProvenanceField.
type Router struct {
	extractor Extractor
	threshold float64
}

// NewRouter builds a Router. A threshold of 0 selects the default.
func NewRouter(extractor Extractor, threshold float64) *Router {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Router{extractor: extractor, threshold: threshold}
}

// Route processes one turn against the schema.
func (r *Router) Route(ctx context.Context, schema *model.PlanSchema, in Input) Result {
	if in.FieldPath != "" && in.Validated && registry.Known(in.FieldPath) {
		res, ok := r.fastPath(schema, in)
		if ok {
			return res
		}
		// Validator disagreed with the client; degrade to free text
		// rather than erroring.
		zap.L().Debug("fast path revalidation failed, falling back to free text",
			zap.String("field", in.FieldPath))
	}
	return r.freeTextPath(ctx, schema, in)
}

func (r *Router) fastPath(schema *model.PlanSchema, in Input) (Result, bool) {
	spec := registry.Describe(in.FieldPath)
	value, err := validate.Value(spec, in.Message)
	if err != nil {
		return Result{}, false
	}
	source := model.SourceDeterministic
	if in.Source != "" {
		source = in.Source
	}
	applied := applyPatch(schema, in.FieldPath, value, 1.0, source)
	return Result{Applied: []Applied{applied}, UsedFastPath: true}, true
}

func (r *Router) freeTextPath(ctx context.Context, schema *model.PlanSchema, in Input) Result {
	var result Result

	proposals, err := r.extractor.Extract(ctx, in.Message, Context{
		History:     in.History,
		Schema:      schema,
		TargetField: in.TargetField,
	})
	if err != nil {
		// Extractor failure or timeout degrades to zero proposals; the
		// policy engine re-asks the same target next turn.
		zap.L().Warn("extractor call failed, proceeding with zero proposals",
			zap.String("target_field", in.TargetField),
			zap.Error(err))
		proposals = nil
	}

	for _, p := range proposals {
		if !registry.Known(p.FieldPath) {
			result.Rejected = append(result.Rejected, Rejected{
				Path: p.FieldPath, Reason: "unknown field path",
			})
			continue
		}
		spec := registry.Describe(p.FieldPath)
		value, cerr := validate.Coerce(spec, p.Value)
		if cerr != nil {
			result.Rejected = append(result.Rejected, Rejected{
				Path: p.FieldPath, Reason: cerr.Error(),
			})
			continue
		}

		confidence := p.Confidence
		if confidence < r.threshold && p.FieldPath == in.TargetField {
			if _, _, ok := FallbackValue(p.FieldPath, in.Message); ok {
				confidence = r.threshold
			}
		}

		source := model.SourceLLM
		if in.Source != "" {
			source = in.Source
		}
		result.Applied = append(result.Applied, applyPatch(schema, p.FieldPath, value, confidence, source))
	}

	// When the model produced nothing usable for the active target, try the
	// deterministic fallback pass directly against the message.
	if len(result.Applied) == 0 && in.TargetField != "" {
		if value, confidence, ok := FallbackValue(in.TargetField, in.Message); ok {
			source := model.SourceLLM
			if in.Source != "" {
				source = in.Source
			}
			result.Applied = append(result.Applied, applyPatch(schema, in.TargetField, value, confidence, source))
		}
	}

	return result
}

// applyPatch mutates exactly one field. Re-submitting an identical value
// leaves the field's existing provenance intact.
func applyPatch(schema *model.PlanSchema, path string, value any, confidence float64, source model.Source) Applied {
	field := schema.Field(path)
	if field.Collected() && valuesEqual(field.Value, value) {
		return Applied{Path: path, Value: field.Value, Confidence: field.Confidence, Source: field.Source}
	}
	field.Set(value, confidence, source)
	return Applied{Path: path, Value: value, Confidence: confidence, Source: source}
}

func valuesEqual(a, b any) bool {
	if na, ok := asNumber(a); ok {
		if nb, ok := asNumber(b); ok {
			return na == nb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
