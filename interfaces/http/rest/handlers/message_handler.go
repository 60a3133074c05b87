package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/services"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	"github.com/sjak1/rabbithole-backend/pkg/auth"
	"github.com/sjak1/rabbithole-backend/pkg/common"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
	"github.com/sjak1/rabbithole-backend/pkg/utils"
)

// MessageHandler handles message-log HTTP requests
type MessageHandler struct {
	branches *services.BranchService
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(branches *services.BranchService, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		branches: branches,
		errors:   errors,
		logger:   logger,
	}
}

// AppendMessageRequest represents the request body for appending a message.
// The entry arrives wrapped under a "message" key; that is the shape the
// frontend sends.
type AppendMessageRequest struct {
	Message struct {
		Role    string `json:"role" validate:"required,oneof=system user assistant"`
		Content string `json:"content" validate:"required"`
	} `json:"message"`
}

// GetMessages handles GET /messages/{branchId}
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := valueobjects.NewBranchIDFromString(chi.URLParam(r, "branchId"))
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid branch id"))
		return
	}

	branch, err := h.branches.Resolve(r.Context(), userCtx.UserID, id)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	messages := branch.Messages()
	if messages == nil {
		messages = valueobjects.MessageLog{}
	}
	common.RespondJSON(w, http.StatusOK, messages)
}

// AppendMessage handles POST /messages/{branchId}
func (h *MessageHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := valueobjects.NewBranchIDFromString(chi.URLParam(r, "branchId"))
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid branch id"))
		return
	}

	var req AppendMessageRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBody); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	msg, err := valueobjects.NewMessage(valueobjects.Role(req.Message.Role), req.Message.Content)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	branch, err := h.branches.AppendMessage(r.Context(), userCtx.UserID, id, msg)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	// The response is the updated log, not the branch; the frontend appends
	// it to its local state wholesale.
	messages := branch.Messages()
	if messages == nil {
		messages = valueobjects.MessageLog{}
	}
	common.RespondJSON(w, http.StatusOK, messages)
}
