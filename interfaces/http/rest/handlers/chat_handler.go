package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/services"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	"github.com/sjak1/rabbithole-backend/pkg/auth"
	"github.com/sjak1/rabbithole-backend/pkg/common"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
	"github.com/sjak1/rabbithole-backend/pkg/utils"
)

// ChatHandler handles the streaming completion endpoint
type ChatHandler struct {
	chat   *services.ChatService
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *services.ChatService, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		errors: errors,
		logger: logger,
	}
}

// ChatMessage is one conversation entry in a completion request
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest represents the request body for a streaming completion
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

// StreamCompletion handles POST /api/llm. Errors before the first delta are
// plain HTTP errors; afterwards everything arrives as SSE events, including
// failures.
func (h *ChatHandler) StreamCompletion(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ChatRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBody); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("streaming unsupported"))
		return
	}

	messages := make([]valueobjects.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, valueobjects.Message{
			Role:    valueobjects.Role(m.Role),
			Content: m.Content,
		})
	}

	stream, err := h.chat.StreamReply(r.Context(), userCtx.UserID, messages)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range stream.Events() {
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("Failed to marshal stream event", zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Client disconnected. Drain the stream so the producer is not
			// blocked on a full buffer; it stops on its own once it sees the
			// canceled request context. No credits are settled for a dropped
			// stream.
			h.logger.Debug("Client disconnected mid-stream",
				zap.String("userID", userCtx.UserID),
			)
			go func() {
				for range stream.Events() {
				}
			}()
			return
		}
		flusher.Flush()
	}
}
