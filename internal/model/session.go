package model

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the interview conversation. Messages are
// append-only: a corrected message is never deleted, only marked superseded
// via UpdatedByIndex, and the replacement records the original's index.
type Message struct {
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	FieldPath      string    `json:"field_path,omitempty"`
	OriginalIndex  *int      `json:"original_index,omitempty"`
	UpdatedByIndex *int      `json:"updated_by_index,omitempty"`
}

// Superseded reports whether a newer message replaces this one. Superseded
// messages must never be re-sent to the extractor.
func (m Message) Superseded() bool {
	return m.UpdatedByIndex != nil
}

// Phase is the coarse session lifecycle stage.
type Phase string

const (
	PhaseInterviewing     Phase = "interviewing"
	PhaseReadyForAnalysis Phase = "ready_for_analysis"
	PhaseRunningAnalysis  Phase = "running_analysis"
	PhaseResultsReady     Phase = "results_ready"
)

// Warning is an advisory cross-field consistency finding. The active set is
// recomputed in full every turn; consumers replace their list, never append.
type Warning struct {
	RuleID     string   `json:"rule_id"`
	Fields     []string `json:"fields"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion"`
}

// Session owns one interview's conversation state. The schema it builds is
// owned exclusively by the session for the session's lifetime; all turn
// processing is serialized by the interview manager.
type Session struct {
	ID        string    `json:"session_id"`
	PlanID    string    `json:"plan_id"`
	History   []Message `json:"history"`
	Phase     Phase     `json:"phase"`
	Warnings  []Warning `json:"warnings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// TargetField is the path the most recent assistant question asked for.
	TargetField string `json:"target_field,omitempty"`

	// Turn is a per-session sequence number, incremented on every accepted
	// user turn. Used to discard out-of-order stragglers.
	Turn int `json:"turn"`

	// PendingSummary holds a model-produced condensation of the
	// additional-considerations answer awaiting explicit user confirmation.
	PendingSummary string `json:"pending_summary,omitempty"`
}

// Append adds a message and returns its index.
func (s *Session) Append(m Message) int {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	s.History = append(s.History, m)
	return len(s.History) - 1
}

// Supersede marks message oldIdx as replaced by newIdx. Both indexes must
// be valid; out-of-range indexes are a programmer error and are ignored.
func (s *Session) Supersede(oldIdx, newIdx int) {
	if oldIdx < 0 || oldIdx >= len(s.History) || newIdx < 0 || newIdx >= len(s.History) {
		return
	}
	idx := newIdx
	s.History[oldIdx].UpdatedByIndex = &idx
	orig := oldIdx
	s.History[newIdx].OriginalIndex = &orig
}

// LiveHistory returns the conversation with superseded messages elided,
// suitable for extractor context.
func (s *Session) LiveHistory() []Message {
	out := make([]Message, 0, len(s.History))
	for _, m := range s.History {
		if m.Superseded() {
			continue
		}
		out = append(out, m)
	}
	return out
}
