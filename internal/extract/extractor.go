// Package extract routes each interview turn through either the
// zero-latency deterministic fast path or the model-backed free-text path,
// and applies the resulting field patches to the plan schema.
package extract

import (
	"context"

	"github.com/northharbor/sage/internal/model"
)

// Proposal is one candidate field update from the free-text extractor.
type Proposal struct {
	FieldPath  string  `json:"field_path"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Context carries the conversational state the extractor may condition on.
type Context struct {
	History     []model.Message
	Schema      *model.PlanSchema
	TargetField string
}

// Extractor converts a free-text user message into zero or more field
// proposals. Implementations may fail or time out; callers treat any error
// as zero proposals.
type Extractor interface {
	Extract(ctx context.Context, message string, ec Context) ([]Proposal, error)
}

// Summarizer condenses an open-ended narrative answer before it is
// committed, used once at interview completion.
type Summarizer interface {
	Summarize(ctx context.Context, freeText string) (string, error)
}

// StubExtractor returns fixed proposals, decoupling router and policy tests
// from model behavior.
type StubExtractor struct {
	Proposals []Proposal
	Err       error

	// Calls counts invocations so tests can assert the fast path made none.
	Calls int
}

func (s *StubExtractor) Extract(_ context.Context, _ string, _ Context) ([]Proposal, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Proposals, nil
}

// StubSummarizer echoes a fixed summary.
type StubSummarizer struct {
	Summary string
	Err     error
}

func (s *StubSummarizer) Summarize(_ context.Context, freeText string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Summary != "" {
		return s.Summary, nil
	}
	return freeText, nil
}
