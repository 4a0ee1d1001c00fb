package extract

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/northharbor/sage/internal/model"
	"github.com/northharbor/sage/internal/resilience"
	"github.com/northharbor/sage/pkg/anthropic"
)

const extractorSystemPrompt = `You are the Sage retirement planning data extractor. Given the user's
natural language response, extract structured data updates.

You MUST respond with ONLY valid JSON matching this schema:
{"proposals": [{"field_path": "...", "value": ..., "confidence": 0.0-1.0}]}

Rules:
- Use dot-delimited paths matching the plan schema
- Never invent fields not in the schema
- Set confidence < 1.0 if the user's statement was ambiguous
- For numeric values, extract raw numbers (no formatting)
- For age ranges, use {"min": N, "max": N}
- If the user says something irrelevant or you cannot extract data, return an empty proposals array

Valid field paths:
  client.name, client.birth_year, client.retirement_window
  location.state, location.city
  income.current_gross_annual
  retirement_philosophy.success_probability_target, retirement_philosophy.legacy_goal_total_real
  accounts.retirement_balance, accounts.has_employer_plan, accounts.employer_match_percent,
  accounts.employee_contribution_percent, accounts.savings_rate_percent, accounts.investment_strategy_id
  housing.status
  spending.retirement_monthly_real
  social_security.combined_at_67_monthly, social_security.combined_at_70_monthly,
  social_security.claiming_preference
  monte_carlo.required_success_rate, monte_carlo.horizon_age, monte_carlo.legacy_floor`

const summarizerSystemPrompt = `You are the Sage retirement planning assistant. The user has shared
additional life circumstances that may affect their retirement plan.

Your task:
1. Summarize their input in 2-3 concise sentences.
2. Focus on: what events are planned, approximate timing, and estimated financial impact.
3. Use plain, conversational language.
4. Do NOT add advice or recommendations — just demonstrate understanding.
5. If the input is vague, summarize what you can and note what's unclear.

Return ONLY the summary text, no JSON or markdown formatting.`

// historyWindow bounds how many recent live messages ride along as context.
const historyWindow = 12

// LLMExtractor implements Extractor and Summarizer against the Anthropic
// API with a bounded per-call timeout and a shared rate limiter.
type LLMExtractor struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	retry   resilience.Config
}

// NewLLMExtractor builds an extractor. requestsPerMinute caps the call
// rate across all sessions sharing this instance.
func NewLLMExtractor(client anthropic.Client, modelID string, timeout time.Duration, requestsPerMinute int) *LLMExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &LLMExtractor{
		client:  client,
		model:   modelID,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), requestsPerMinute),
		retry:   resilience.DefaultConfig(),
	}
}

// complete wraps one completion call with the shared limiter and retry on
// transient API failures. The per-call timeout bounds all attempts together
// so a retried turn cannot hang the conversation.
func (e *LLMExtractor) complete(ctx context.Context, op string, req anthropic.CompletionRequest) (*anthropic.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrapf(err, "%s: rate limit wait", op)
	}

	var resp *anthropic.Completion
	err := resilience.Do(ctx, e.retry, op, func(ctx context.Context) error {
		var cerr error
		resp, cerr = e.client.Complete(ctx, req)
		return cerr
	})
	if err != nil {
		return nil, eris.Wrapf(err, "%s: completion", op)
	}
	resp.Usage.LogCost(resp.Model, op)
	return resp, nil
}

type proposalEnvelope struct {
	Proposals []Proposal `json:"proposals"`
}

// Extract sends the message plus recent conversation context to the model
// and parses the JSON proposal envelope.
func (e *LLMExtractor) Extract(ctx context.Context, msg string, ec Context) ([]Proposal, error) {
	turns := contextTurns(ec)
	turns = append(turns, anthropic.Turn{Role: "user", Content: msg})

	temp := 0.1
	resp, err := e.complete(ctx, "extract", anthropic.CompletionRequest{
		Model:       e.model,
		MaxTokens:   1024,
		System:      extractorSystemPrompt + "\n\n" + schemaContext(ec.Schema),
		CacheSystem: true,
		Turns:       turns,
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}

	var envelope proposalEnvelope
	if err := json.Unmarshal([]byte(stripFences(resp.Text)), &envelope); err != nil {
		return nil, eris.Wrap(err, "extract: parse proposals")
	}
	return envelope.Proposals, nil
}

// Summarize condenses a free-text additional-considerations answer.
func (e *LLMExtractor) Summarize(ctx context.Context, freeText string) (string, error) {
	resp, err := e.complete(ctx, "summarize", anthropic.CompletionRequest{
		Model:     e.model,
		MaxTokens: 512,
		System:    summarizerSystemPrompt,
		Turns:     []anthropic.Turn{{Role: "user", Content: freeText}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// contextTurns maps recent live history into completion turns. Superseded
// messages are excluded upstream and must never reach the model.
func contextTurns(ec Context) []anthropic.Turn {
	history := ec.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	turns := make([]anthropic.Turn, 0, len(history)+1)
	for _, m := range history {
		turns = append(turns, anthropic.Turn{Role: string(m.Role), Content: m.Content})
	}
	return turns
}

func schemaContext(schema *model.PlanSchema) string {
	if schema == nil {
		return ""
	}
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return ""
	}
	return "Current plan state (fields already collected):\n" + string(raw)
}

// stripFences removes a markdown code fence the model sometimes wraps
// around its JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
