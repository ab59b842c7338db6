package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/Harshitk-cp/agentspeak/internal/agent"
	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/program"
	"github.com/Harshitk-cp/agentspeak/internal/service"
)

const (
	maxProgramBytes = 1 << 20
	maxStepsPerCall = 10000
)

type AgentHandler struct {
	svc *service.AgentService
}

func NewAgentHandler(svc *service.AgentService) *AgentHandler {
	return &AgentHandler{svc: svc}
}

type createAgentRequest struct {
	Name     string         `json:"name"`
	Program  string         `json:"program"`
	Metadata map[string]any `json:"metadata"`
}

type agentResponse struct {
	domain.Agent
	State *agent.Snapshot `json:"state,omitempty"`
}

// Create accepts either a JSON envelope or a raw YAML program body. For raw
// bodies the name comes from the ?name= query parameter.
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxProgramBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxProgramBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "program too large")
		return
	}

	req := createAgentRequest{Name: r.URL.Query().Get("name"), Program: string(body)}
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		req = createAgentRequest{}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Program == "" {
		writeError(w, http.StatusBadRequest, "program is required")
		return
	}

	a, err := h.svc.Create(r.Context(), req.Name, []byte(req.Program), req.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, program.ErrInvalidProgram):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrAgentConflict):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create agent")
		}
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": h.svc.List(r.Context())})
}

// GetByID returns the agent record together with a snapshot of its state.
func (h *AgentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := agentID(w, r)
	if !ok {
		return
	}

	a, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to get agent")
		return
	}
	snap, err := h.svc.Inspect(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to inspect agent")
		return
	}

	writeJSON(w, http.StatusOK, agentResponse{Agent: *a, State: &snap})
}

func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, err, "failed to delete agent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type literalRequest struct {
	Literal string `json:"literal"`
}

func (h *AgentHandler) AddPercept(w http.ResponseWriter, r *http.Request) {
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	var req literalRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.AddPercept(r.Context(), id, req.Literal); err != nil {
		h.fail(w, err, "failed to add percept")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *AgentHandler) RemovePercept(w http.ResponseWriter, r *http.Request) {
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	var req literalRequest
	if !decode(w, r, &req) {
		return
	}
	removed, err := h.svc.RemovePercept(r.Context(), id, req.Literal)
	if err != nil {
		h.fail(w, err, "failed to remove percept")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

type goalRequest struct {
	Goal string `json:"goal"`
}

func (h *AgentHandler) PostGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	var req goalRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.PostGoal(r.Context(), id, req.Goal); err != nil {
		h.fail(w, err, "failed to post goal")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *AgentHandler) DropGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	var req goalRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.svc.DropGoal(r.Context(), id, req.Goal)
	if err != nil {
		h.fail(w, err, "failed to drop goal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": n})
}

type stepRequest struct {
	Steps int `json:"steps"`
}

// Step runs the agent synchronously. An empty body runs a single step.
func (h *AgentHandler) Step(w http.ResponseWriter, r *http.Request) {
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	req := stepRequest{Steps: 1}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Steps <= 0 || req.Steps > maxStepsPerCall {
		writeError(w, http.StatusBadRequest, "steps must be between 1 and 10000")
		return
	}

	res, err := h.svc.Step(r.Context(), id, req.Steps)
	if err != nil {
		h.fail(w, err, "failed to step agent")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AgentHandler) fail(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidLiteral):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, msg)
	}
}
