package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stackforge-ai/stack-agent/internal/agent"
	"github.com/stackforge-ai/stack-agent/internal/middleware"
	"github.com/stackforge-ai/stack-agent/internal/model"
	"github.com/stackforge-ai/stack-agent/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	agent  *agent.Agent
	logger *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(ag *agent.Agent, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		agent:  ag,
		logger: log,
	}
}

// Send handles POST /api/v1/conversations/:id/messages
//
// The dialogue state decides how the text is treated: a fresh query when
// idle, a clarification answer while questions are pending. Use "new" as
// the id to start a conversation.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if conversationID == "new" {
		conversationID = ""
	} else if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.agent.Send(ctx, userID, conversationID, req.Content, req.Preferences)
	if err != nil {
		if errors.Is(err, agent.ErrConversationBusy) {
			writeError(w, http.StatusConflict, "a request is already in flight for this conversation")
			return
		}
		if errors.Is(err, agent.ErrConversationNotOwned) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("exchange failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "completion failed")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// ListTurns handles GET /api/v1/conversations/:id/turns
func (h *MessageHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turns, err := h.agent.Turns(conversationID, userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, model.ListTurnsResponse{
		Turns: turns,
		Total: len(turns),
	})
}
