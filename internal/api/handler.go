package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	app_errors "superchat/client/internal/errors"
	"superchat/client/internal/model"
	"superchat/client/internal/service"
)

// TriggerHandler serves the local loopback API that lets helper scripts
// and sibling processes drive the client: create sessions, inject
// messages, read the session list.
type TriggerHandler struct {
	sessions  *service.SessionStore
	stream    *service.StreamCoordinator
	workflows *service.WorkflowSelector
	ready     *service.Readiness
}

func NewTriggerHandler(sessions *service.SessionStore, stream *service.StreamCoordinator, workflows *service.WorkflowSelector, ready *service.Readiness) *TriggerHandler {
	return &TriggerHandler{
		sessions:  sessions,
		stream:    stream,
		workflows: workflows,
		ready:     ready,
	}
}

// HandleNewChat creates a fresh session and switches to the workflow the
// chat type names. Gated on readiness: a busy client drops the request.
func (h *TriggerHandler) HandleNewChat(w http.ResponseWriter, r *http.Request) {
	var req NewChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(req); err != nil {
		respondWithError(w, err)
		return
	}

	kind := model.QueryGeneric
	if req.ChatType == "superagent" {
		kind = model.QuerySuperAgent
	}

	sid, err := h.sessions.NewSession(r.Context())
	switch {
	case errors.Is(err, app_errors.ErrConflict):
		// The active session is still empty; reuse it instead of stacking
		// another blank one.
		sid = h.sessions.ActiveID()
	case err != nil:
		respondWithError(w, err)
		return
	}
	if _, err := h.workflows.Select(kind, model.QueryType{}); err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "created",
		"sid":    sid,
	})
}

// HandleChatHistory returns the session list, optionally filtered to one
// session by the sid query parameter.
func (h *TriggerHandler) HandleChatHistory(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.Sessions()

	rawSID := r.URL.Query().Get("sid")
	if rawSID == "" {
		respondWithJSON(w, http.StatusOK, sessions)
		return
	}

	sid, err := strconv.Atoi(rawSID)
	if err != nil {
		respondWithError(w, fmt.Errorf("%w: sid must be an integer", app_errors.ErrValidation))
		return
	}
	for _, s := range sessions {
		if s.ID == sid {
			respondWithJSON(w, http.StatusOK, s)
			return
		}
	}
	respondWithError(w, fmt.Errorf("%w: session %d", app_errors.ErrNotFound, sid))
}

// HandleExternalMessage injects a prompt into the active session as if the
// user had typed it.
func (h *TriggerHandler) HandleExternalMessage(w http.ResponseWriter, r *http.Request) {
	var req ExternalMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(req); err != nil {
		respondWithError(w, err)
		return
	}

	if err := h.stream.SendMessage(r.Context(), req.Message, -1); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, StatusResponse{Status: "dispatched"})
}
