package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/northharbor/sage/internal/interview"
	"github.com/northharbor/sage/internal/model"
	"github.com/northharbor/sage/internal/store"
)

type startRequest struct {
	OwnerID string `json:"owner_id,omitempty"`
	PlanID  string `json:"plan_id,omitempty"`
}

type historyEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type startResponse struct {
	SessionID         string         `json:"session_id"`
	PlanID            string         `json:"plan_id"`
	Message           string         `json:"message"`
	TargetField       *string        `json:"target_field"`
	InterviewComplete bool           `json:"interview_complete"`
	History           []historyEntry `json:"history"`
	IsResumed         bool           `json:"is_resumed"`
}

type respondRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	FieldPath string `json:"field_path,omitempty"`
	Validated bool   `json:"validated,omitempty"`
	Turn      int    `json:"turn,omitempty"`
}

type respondResponse struct {
	Message           string          `json:"message"`
	TargetField       *string         `json:"target_field"`
	AppliedFields     []string        `json:"applied_fields"`
	RejectedFields    []string        `json:"rejected_fields"`
	InterviewComplete bool            `json:"interview_complete"`
	MissingFields     []string        `json:"missing_fields"`
	Warnings          []model.Warning `json:"warnings"`
	Phase             model.Phase     `json:"phase"`
	Turn              int             `json:"turn"`
}

type correctRequest struct {
	SessionID string `json:"session_id"`
	FieldPath string `json:"field_path"`
	Message   string `json:"message"`
}

type phaseRequest struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"`
}

type patchFieldsRequest struct {
	Patches []store.FieldPatch `json:"patches"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode request"))
		return
	}

	res, err := s.manager.Start(r.Context(), req.OwnerID, req.PlanID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, startResponse{
		SessionID:         res.SessionID,
		PlanID:            res.PlanID,
		Message:           res.AssistantMessage,
		TargetField:       nullable(res.Decision.TargetField),
		InterviewComplete: res.Decision.Complete,
		History:           toHistory(res.History),
		IsResumed:         res.Resumed,
	})
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode request"))
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, eris.New("session_id and message are required"))
		return
	}

	res, err := s.manager.Respond(r.Context(), interview.RespondInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		FieldPath: req.FieldPath,
		Validated: req.Validated,
		Turn:      req.Turn,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRespondResponse(res))
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var req correctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode request"))
		return
	}
	if req.SessionID == "" || req.FieldPath == "" {
		writeError(w, http.StatusBadRequest, eris.New("session_id and field_path are required"))
		return
	}

	res, err := s.manager.Correct(r.Context(), interview.CorrectInput{
		SessionID: req.SessionID,
		FieldPath: req.FieldPath,
		Message:   req.Message,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRespondResponse(res))
}

func (s *Server) handlePhase(w http.ResponseWriter, r *http.Request) {
	var req phaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode request"))
		return
	}

	res, err := s.manager.AdvancePhase(r.Context(), req.SessionID, req.Phase)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRespondResponse(res))
}

func (s *Server) handlePatchFields(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	var req patchFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode request"))
		return
	}

	plan, err := s.store.UpdateFields(r.Context(), planID, req.Patches)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func toRespondResponse(res *interview.TurnResult) respondResponse {
	applied := make([]string, 0, len(res.Applied))
	for _, a := range res.Applied {
		applied = append(applied, a.Path)
	}
	rejected := make([]string, 0, len(res.Rejected))
	for _, rj := range res.Rejected {
		rejected = append(rejected, rj.Path)
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []model.Warning{}
	}
	missing := res.Decision.MissingFields
	if missing == nil {
		missing = []string{}
	}
	return respondResponse{
		Message:           res.AssistantMessage,
		TargetField:       nullable(res.Decision.TargetField),
		AppliedFields:     applied,
		RejectedFields:    rejected,
		InterviewComplete: res.Decision.Complete,
		MissingFields:     missing,
		Warnings:          warnings,
		Phase:             res.Phase,
		Turn:              res.Turn,
	}
}

func toHistory(messages []model.Message) []historyEntry {
	out := make([]historyEntry, 0, len(messages))
	for _, m := range messages {
		out = append(out, historyEntry{
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeEngineError maps engine and store errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case eris.Is(err, store.ErrConflict), eris.Is(err, interview.ErrStaleTurn):
		writeError(w, http.StatusConflict, err)
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}
