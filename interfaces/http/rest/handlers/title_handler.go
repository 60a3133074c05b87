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
)

// TitleHandler handles title synthesis HTTP requests
type TitleHandler struct {
	titles *services.TitleSynthesizer
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewTitleHandler creates a new title handler
func NewTitleHandler(titles *services.TitleSynthesizer, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *TitleHandler {
	return &TitleHandler{
		titles: titles,
		errors: errors,
		logger: logger,
	}
}

// GenerateTitleResponse couples the renamed branch with the balance left
// after paying for the synthesis call.
type GenerateTitleResponse struct {
	UpdatedBranch    branchResponse `json:"updatedBranch"`
	RemainingCredits float64        `json:"remainingCredits"`
}

// GenerateTitle handles POST /title/generate/{branchId}
func (h *TitleHandler) GenerateTitle(w http.ResponseWriter, r *http.Request) {
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

	branch, balance, err := h.titles.Synthesize(r.Context(), userCtx.UserID, id)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, GenerateTitleResponse{
		UpdatedBranch:    toBranchResponse(branch),
		RemainingCredits: balance,
	})
}
