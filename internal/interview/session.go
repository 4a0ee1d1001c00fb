// Package interview drives the conversational field-collection loop: one
// turn in, patches applied, rules re-checked, next question out. The engine
// owns no persistence of its own and no model calls of its own; storage and
// extraction are injected.
package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/northharbor/sage/internal/extract"
	"github.com/northharbor/sage/internal/model"
	"github.com/northharbor/sage/internal/policy"
	"github.com/northharbor/sage/internal/registry"
	"github.com/northharbor/sage/internal/rules"
	"github.com/northharbor/sage/internal/store"
)

// ErrStaleTurn signals an out-of-order turn; the caller already processed a
// newer message for this session and this one must be discarded.
var ErrStaleTurn = eris.New("interview: stale turn")

const considerationsPath = "additional_considerations"

// linkedFields maps a source path to a target path holding the same
// concept; collecting the source fills the target.
var linkedFields = [][2]string{
	{"retirement_philosophy.success_probability_target", "monte_carlo.required_success_rate"},
}

// Options tunes engine behavior.
type Options struct {
	// RetryConflict re-applies this turn's patches against a freshly
	// loaded plan once when the optimistic save loses a race. When false
	// the conflict surfaces to the caller.
	RetryConflict bool
}

// Engine runs interview turns. It is stateless between calls; all state
// lives in the store. Callers must serialize turns per session (see
// Manager).
type Engine struct {
	store      store.Store
	router     *extract.Router
	summarizer extract.Summarizer
	opts       Options
}

// NewEngine builds an Engine.
func NewEngine(st store.Store, router *extract.Router, summarizer extract.Summarizer, opts Options) *Engine {
	return &Engine{store: st, router: router, summarizer: summarizer, opts: opts}
}

// StartResult is the outcome of starting or resuming an interview.
type StartResult struct {
	SessionID        string          `json:"session_id"`
	PlanID           string          `json:"plan_id"`
	AssistantMessage string          `json:"assistant_message"`
	Decision         policy.Decision `json:"policy_decision"`
	Phase            model.Phase     `json:"phase"`
	Resumed          bool            `json:"resumed"`
	History          []model.Message `json:"history"`
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	SessionID        string             `json:"session_id"`
	PlanID           string             `json:"plan_id"`
	AssistantMessage string             `json:"assistant_message"`
	Applied          []extract.Applied  `json:"applied"`
	Rejected         []extract.Rejected `json:"rejected"`
	Warnings         []model.Warning    `json:"warnings"`
	Decision         policy.Decision    `json:"policy_decision"`
	Phase            model.Phase        `json:"phase"`
	Turn             int                `json:"turn"`
}

// Start begins a fresh interview, or resumes the latest session for planID
// when one is given.
func (e *Engine) Start(ctx context.Context, ownerID, planID string) (*StartResult, error) {
	if planID != "" {
		return e.resume(ctx, planID)
	}

	plan := model.NewPlanSchema(uuid.NewString(), ownerID)
	sess := &model.Session{
		ID:     uuid.NewString(),
		PlanID: plan.PlanID,
		Phase:  model.PhaseInterviewing,
	}

	decision := policy.SelectNext(plan)
	message := registry.WelcomeMessage()
	if decision.Question != "" {
		message += "\n\n" + decision.Question
	}
	sess.TargetField = decision.TargetField
	sess.Append(model.Message{Role: model.RoleAssistant, Content: message, FieldPath: decision.TargetField})

	if err := e.store.SavePlan(ctx, plan); err != nil {
		return nil, eris.Wrap(err, "interview: save new plan")
	}
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, eris.Wrap(err, "interview: save new session")
	}

	zap.L().Info("interview started",
		zap.String("session_id", sess.ID),
		zap.String("plan_id", plan.PlanID))

	return &StartResult{
		SessionID:        sess.ID,
		PlanID:           plan.PlanID,
		AssistantMessage: message,
		Decision:         decision,
		Phase:            sess.Phase,
		History:          sess.History,
	}, nil
}

func (e *Engine) resume(ctx context.Context, planID string) (*StartResult, error) {
	plan, err := e.store.LoadPlan(ctx, planID)
	if err != nil {
		return nil, eris.Wrapf(err, "interview: resume plan %s", planID)
	}

	sess, err := e.store.SessionForPlan(ctx, planID)
	if eris.Is(err, store.ErrNotFound) {
		sess = &model.Session{
			ID:     uuid.NewString(),
			PlanID: planID,
			Phase:  model.PhaseInterviewing,
		}
		err = nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "interview: resume session for plan %s", planID)
	}

	decision := policy.SelectNext(plan)
	var message string
	if decision.Complete {
		message = registry.ResumedCompleteMessage()
	} else {
		message = registry.ResumeMessage(decision.Question)
	}
	sess.TargetField = decision.TargetField
	sess.Append(model.Message{Role: model.RoleAssistant, Content: message, FieldPath: decision.TargetField})

	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, eris.Wrap(err, "interview: save resumed session")
	}

	zap.L().Info("interview resumed",
		zap.String("session_id", sess.ID),
		zap.String("plan_id", planID),
		zap.Bool("complete", decision.Complete))

	return &StartResult{
		SessionID:        sess.ID,
		PlanID:           planID,
		AssistantMessage: message,
		Decision:         decision,
		Phase:            sess.Phase,
		Resumed:          true,
		History:          sess.History,
	}, nil
}

// RespondInput is one user turn as received from the boundary.
type RespondInput struct {
	SessionID string
	Message   string
	// FieldPath plus Validated requests the deterministic fast path.
	FieldPath string
	Validated bool
	// Turn, when positive, must be exactly one past the session's last
	// accepted turn; anything else is discarded as stale.
	Turn int
}

// Respond processes one user turn end to end: route, patch, re-check
// rules, pick the next question, persist.
func (e *Engine) Respond(ctx context.Context, in RespondInput) (*TurnResult, error) {
	sess, err := e.store.LoadSession(ctx, in.SessionID)
	if err != nil {
		return nil, eris.Wrapf(err, "interview: load session %s", in.SessionID)
	}
	if in.Turn > 0 && in.Turn != sess.Turn+1 {
		return nil, eris.Wrapf(ErrStaleTurn, "got turn %d, session at %d", in.Turn, sess.Turn)
	}

	plan, err := e.store.LoadPlan(ctx, sess.PlanID)
	if err != nil {
		return nil, eris.Wrapf(err, "interview: load plan %s", sess.PlanID)
	}

	if sess.PendingSummary != "" {
		return e.resolveSummary(ctx, sess, plan, in.Message)
	}

	sess.Append(model.Message{Role: model.RoleUser, Content: in.Message, FieldPath: sess.TargetField})

	// The considerations answer always goes through summarize-and-confirm.
	// Only an explicit pre-validated submission naming the field itself (a
	// review UI writing the final text directly) may commit verbatim.
	if sess.TargetField == considerationsPath && !(in.Validated && in.FieldPath == considerationsPath) {
		return e.collectConsiderations(ctx, sess, plan, in.Message)
	}

	nameWasNew := !plan.Field("client.name").Collected()

	res := e.router.Route(ctx, plan, extract.Input{
		Message:     in.Message,
		FieldPath:   in.FieldPath,
		Validated:   in.Validated,
		TargetField: sess.TargetField,
		History:     sess.LiveHistory(),
	})

	// A bare "yes" against a question that shows a suggested default
	// confirms the default as collected. Fields without a real suggested
	// default have nothing to confirm.
	if len(res.Applied) == 0 && sess.TargetField != "" && extract.Affirmative(in.Message) {
		if f := plan.Field(sess.TargetField); confirmableDefault(f) {
			f.Set(f.Value, 1.0, model.SourceDeterministic)
			res.Applied = append(res.Applied, extract.Applied{
				Path: sess.TargetField, Value: f.Value, Confidence: 1.0, Source: model.SourceDeterministic,
			})
		}
	}

	syncLinkedFields(plan)

	return e.finishTurn(ctx, sess, plan, res, in.Message, nameWasNew)
}

// collectConsiderations handles the open-ended final question: a decline
// commits an empty value, anything else is condensed by the summarizer and
// held for explicit confirmation.
func (e *Engine) collectConsiderations(ctx context.Context, sess *model.Session, plan *model.PlanSchema, message string) (*TurnResult, error) {
	if extract.Negative(message) {
		plan.Field(considerationsPath).Set("", 1.0, model.SourceDeterministic)
		res := extract.Result{Applied: []extract.Applied{{
			Path: considerationsPath, Value: "", Confidence: 1.0, Source: model.SourceDeterministic,
		}}}
		return e.finishTurn(ctx, sess, plan, res, message, false)
	}

	summary, err := e.summarizer.Summarize(ctx, message)
	if err != nil {
		zap.L().Warn("summarizer failed, keeping answer verbatim",
			zap.String("session_id", sess.ID), zap.Error(err))
		summary = strings.TrimSpace(message)
	}

	sess.PendingSummary = summary
	reply := fmt.Sprintf("Here's what I captured:\n\n%s\n\nDoes that look right?", summary)
	sess.Append(model.Message{Role: model.RoleAssistant, Content: reply, FieldPath: considerationsPath})
	sess.Turn++

	if err := e.saveSession(ctx, sess); err != nil {
		return nil, err
	}

	return &TurnResult{
		SessionID:        sess.ID,
		PlanID:           sess.PlanID,
		AssistantMessage: reply,
		Warnings:         sess.Warnings,
		Decision: policy.Decision{
			TargetField:   considerationsPath,
			MissingFields: []string{},
			Reason:        "awaiting summary confirmation",
		},
		Phase: sess.Phase,
		Turn:  sess.Turn,
	}, nil
}

// resolveSummary handles the turn after a summary was proposed: yes
// commits it, no discards and re-asks, anything else is a restatement and
// is summarized again.
func (e *Engine) resolveSummary(ctx context.Context, sess *model.Session, plan *model.PlanSchema, message string) (*TurnResult, error) {
	sess.Append(model.Message{Role: model.RoleUser, Content: message, FieldPath: considerationsPath})

	switch {
	case extract.Affirmative(message):
		summary := sess.PendingSummary
		sess.PendingSummary = ""
		plan.Field(considerationsPath).Set(summary, 1.0, model.SourceLLM)
		res := extract.Result{Applied: []extract.Applied{{
			Path: considerationsPath, Value: summary, Confidence: 1.0, Source: model.SourceLLM,
		}}}
		return e.finishTurn(ctx, sess, plan, res, message, false)

	case extract.Negative(message):
		sess.PendingSummary = ""
		reply := "No problem — tell me again in your own words, and I'll take another pass."
		sess.Append(model.Message{Role: model.RoleAssistant, Content: reply, FieldPath: considerationsPath})
		sess.Turn++
		if err := e.saveSession(ctx, sess); err != nil {
			return nil, err
		}
		return &TurnResult{
			SessionID:        sess.ID,
			PlanID:           sess.PlanID,
			AssistantMessage: reply,
			Warnings:         sess.Warnings,
			Decision: policy.Decision{
				TargetField:   considerationsPath,
				MissingFields: []string{},
				Reason:        "summary rejected, collecting restatement",
			},
			Phase: sess.Phase,
			Turn:  sess.Turn,
		}, nil

	default:
		// Treat anything else as a restatement.
		sess.PendingSummary = ""
		return e.collectConsiderations(ctx, sess, plan, message)
	}
}

// CorrectInput asks to replace an earlier answer for one field.
type CorrectInput struct {
	SessionID string
	FieldPath string
	Message   string
}

// Correct replaces an earlier answer. The original user message is marked
// superseded, never deleted, and the new answer is routed with the
// original question's field as context.
func (e *Engine) Correct(ctx context.Context, in CorrectInput) (*TurnResult, error) {
	if !registry.Known(in.FieldPath) {
		return nil, eris.Errorf("interview: unknown field path %q", in.FieldPath)
	}

	sess, err := e.store.LoadSession(ctx, in.SessionID)
	if err != nil {
		return nil, eris.Wrapf(err, "interview: load session %s", in.SessionID)
	}
	plan, err := e.store.LoadPlan(ctx, sess.PlanID)
	if err != nil {
		return nil, eris.Wrapf(err, "interview: load plan %s", sess.PlanID)
	}

	newIdx := sess.Append(model.Message{Role: model.RoleUser, Content: in.Message, FieldPath: in.FieldPath})
	if oldIdx, ok := lastUserMessageFor(sess, in.FieldPath, newIdx); ok {
		sess.Supersede(oldIdx, newIdx)
	}

	res := e.router.Route(ctx, plan, extract.Input{
		Message:     in.Message,
		FieldPath:   in.FieldPath,
		Validated:   true,
		TargetField: in.FieldPath,
		History:     sess.LiveHistory(),
		Source:      model.SourceCorrection,
	})

	syncLinkedFields(plan)
	sess.Warnings = rules.Check(plan)
	decision := policy.SelectNext(plan)
	sess.TargetField = decision.TargetField
	if decision.Complete {
		plan.Status = model.StatusIntakeComplete
	}

	var reply string
	if len(res.Applied) > 0 {
		reply = fmt.Sprintf("Got it — I've updated %s.", registry.FriendlyName(in.FieldPath))
		if decision.Complete {
			reply += " Everything else still looks complete."
		} else if decision.Question != "" {
			reply += "\n\n" + decision.Question
		}
	} else {
		feedback := invalidFeedback(in.FieldPath, in.Message)
		if feedback == "" {
			feedback = "I couldn't use that as a replacement value."
		}
		reply = feedback
	}
	sess.Append(model.Message{Role: model.RoleAssistant, Content: reply, FieldPath: decision.TargetField})
	sess.Turn++

	if err := e.savePlan(ctx, plan, res.Applied); err != nil {
		return nil, err
	}
	if err := e.saveSession(ctx, sess); err != nil {
		return nil, err
	}

	return &TurnResult{
		SessionID:        sess.ID,
		PlanID:           sess.PlanID,
		AssistantMessage: reply,
		Applied:          res.Applied,
		Rejected:         res.Rejected,
		Warnings:         sess.Warnings,
		Decision:         decision,
		Phase:            sess.Phase,
		Turn:             sess.Turn,
	}, nil
}

// AdvancePhase moves the session forward through the analysis lifecycle.
// Only forward transitions are legal.
func (e *Engine) AdvancePhase(ctx context.Context, sessionID string, to model.Phase) (*model.Session, error) {
	sess, err := e.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, eris.Wrapf(err, "interview: load session %s", sessionID)
	}
	if !legalTransition(sess.Phase, to) {
		return nil, eris.Errorf("interview: illegal phase transition %s -> %s", sess.Phase, to)
	}
	sess.Phase = to
	if err := e.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

var phaseOrder = map[model.Phase]int{
	model.PhaseInterviewing:     0,
	model.PhaseReadyForAnalysis: 1,
	model.PhaseRunningAnalysis:  2,
	model.PhaseResultsReady:     3,
}

func legalTransition(from, to model.Phase) bool {
	f, ok1 := phaseOrder[from]
	t, ok2 := phaseOrder[to]
	return ok1 && ok2 && t == f+1
}

// finishTurn runs the shared tail of every turn: rules, policy, reply
// assembly, persistence.
func (e *Engine) finishTurn(ctx context.Context, sess *model.Session, plan *model.PlanSchema, res extract.Result, userMessage string, nameWasNew bool) (*TurnResult, error) {
	sess.Warnings = rules.Check(plan)
	decision := policy.SelectNext(plan)
	sess.TargetField = decision.TargetField

	reply := e.assembleReply(plan, res, decision, userMessage, nameWasNew)
	sess.Append(model.Message{Role: model.RoleAssistant, Content: reply, FieldPath: decision.TargetField})
	sess.Turn++
	if decision.Complete {
		plan.Status = model.StatusIntakeComplete
		if sess.Phase == model.PhaseInterviewing {
			sess.Phase = model.PhaseReadyForAnalysis
		}
	}

	if err := e.savePlan(ctx, plan, res.Applied); err != nil {
		return nil, err
	}
	if err := e.saveSession(ctx, sess); err != nil {
		return nil, err
	}

	zap.L().Debug("turn processed",
		zap.String("session_id", sess.ID),
		zap.Int("turn", sess.Turn),
		zap.Int("applied", len(res.Applied)),
		zap.Int("rejected", len(res.Rejected)),
		zap.Bool("fast_path", res.UsedFastPath),
		zap.Bool("complete", decision.Complete))

	return &TurnResult{
		SessionID:        sess.ID,
		PlanID:           sess.PlanID,
		AssistantMessage: reply,
		Applied:          res.Applied,
		Rejected:         res.Rejected,
		Warnings:         sess.Warnings,
		Decision:         decision,
		Phase:            sess.Phase,
		Turn:             sess.Turn,
	}, nil
}

func (e *Engine) assembleReply(plan *model.PlanSchema, res extract.Result, decision policy.Decision, userMessage string, nameWasNew bool) string {
	if decision.Complete {
		return registry.CompletionMessage()
	}

	if len(res.Applied) > 0 {
		paths := make([]string, 0, len(res.Applied))
		for _, a := range res.Applied {
			paths = append(paths, a.Path)
		}
		name, _ := plan.Field("client.name").Value.(string)
		reply := registry.Acknowledgment(paths, name, nameWasNew)
		if decision.Question != "" {
			reply += "\n\n" + decision.Question
		}
		return reply
	}

	feedback := invalidFeedback(decision.TargetField, userMessage)
	switch {
	case feedback != "" && decision.Question != "":
		return feedback + "\n\n" + decision.Question
	case decision.Question != "" && len(res.Rejected) > 0:
		return "Thanks — I couldn't use that answer yet. " + decision.Question
	case decision.Question != "":
		return decision.Question
	default:
		return "Could you tell me a bit more?"
	}
}

// savePlan persists the plan, optionally absorbing one optimistic-version
// conflict by re-applying this turn's patches to the freshly stored copy.
func (e *Engine) savePlan(ctx context.Context, plan *model.PlanSchema, applied []extract.Applied) error {
	err := e.store.SavePlan(ctx, plan)
	if err == nil {
		return nil
	}
	if !eris.Is(err, store.ErrConflict) || !e.opts.RetryConflict {
		return eris.Wrap(err, "interview: save plan")
	}

	zap.L().Warn("plan version conflict, retrying once",
		zap.String("plan_id", plan.PlanID))

	fresh, lerr := e.store.LoadPlan(ctx, plan.PlanID)
	if lerr != nil {
		return eris.Wrap(lerr, "interview: reload plan after conflict")
	}
	for _, a := range applied {
		fresh.Field(a.Path).Set(a.Value, a.Confidence, a.Source)
	}
	syncLinkedFields(fresh)
	if plan.Status == model.StatusIntakeComplete {
		fresh.Status = model.StatusIntakeComplete
	}
	if serr := e.store.SavePlan(ctx, fresh); serr != nil {
		return eris.Wrap(serr, "interview: save plan after conflict retry")
	}
	*plan = *fresh
	return nil
}

func (e *Engine) saveSession(ctx context.Context, sess *model.Session) error {
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return eris.Wrap(err, "interview: save session")
	}
	return nil
}

// confirmableDefault reports whether an uncollected field carries a
// placeholder worth confirming with a bare "yes". Nil placeholders and
// zero amounts are stand-ins, not suggestions.
func confirmableDefault(f *model.ProvenanceField) bool {
	if f == nil || f.Value == nil {
		return false
	}
	switch v := f.Value.(type) {
	case int:
		return v != 0
	case float64:
		return v != 0
	}
	return true
}

// syncLinkedFields fills a linked target field from its collected source.
func syncLinkedFields(plan *model.PlanSchema) {
	for _, pair := range linkedFields {
		src, tgt := plan.Field(pair[0]), plan.Field(pair[1])
		if src == nil || tgt == nil {
			continue
		}
		if src.Collected() && !tgt.Collected() {
			tgt.Set(src.Value, src.Confidence, src.Source)
		}
	}
}

// lastUserMessageFor finds the most recent live user message attached to
// path, excluding the message at exceptIdx.
func lastUserMessageFor(sess *model.Session, path string, exceptIdx int) (int, bool) {
	for i := len(sess.History) - 1; i >= 0; i-- {
		if i == exceptIdx {
			continue
		}
		m := sess.History[i]
		if m.Role == model.RoleUser && m.FieldPath == path && !m.Superseded() {
			return i, true
		}
	}
	return 0, false
}
