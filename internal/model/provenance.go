package model

import "time"

// Source identifies how a field value was derived.
type Source string

const (
	// SourceDefault marks a field that has never been collected.
	SourceDefault Source = "default"
	// SourceDeterministic marks a value applied via the validated fast path.
	SourceDeterministic Source = "deterministic"
	// SourceLLM marks a value extracted from free text by the model.
	SourceLLM Source = "llm"
	// SourceCorrection marks a value applied by a retroactive edit.
	SourceCorrection Source = "correction"
)

// ProvenanceField wraps a collected value with confidence and origin.
// Zero confidence together with SourceDefault means "not yet collected";
// any other combination means collected, even when the value itself is a
// placeholder like false or 0.
type ProvenanceField struct {
	Value      any       `json:"value"`
	Confidence float64   `json:"confidence"`
	Source     Source    `json:"source"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
}

// DefaultField returns an uncollected field holding the given placeholder.
func DefaultField(placeholder any) ProvenanceField {
	return ProvenanceField{Value: placeholder, Confidence: 0, Source: SourceDefault}
}

// Collected reports whether the field has been answered, by any route.
func (f ProvenanceField) Collected() bool {
	return !(f.Confidence == 0 && f.Source == SourceDefault)
}

// Set overwrites the field in place, stamping the current time.
func (f *ProvenanceField) Set(value any, confidence float64, source Source) {
	f.Value = value
	f.Confidence = confidence
	f.Source = source
	f.Timestamp = time.Now().UTC()
}

// NumericRange is a min/max pair such as a retirement age window.
type NumericRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
