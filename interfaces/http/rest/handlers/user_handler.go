package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/services"
	"github.com/sjak1/rabbithole-backend/pkg/auth"
	"github.com/sjak1/rabbithole-backend/pkg/common"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

// UserHandler handles account HTTP requests
type UserHandler struct {
	ledger *services.CreditLedger
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(ledger *services.CreditLedger, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		ledger: ledger,
		errors: errors,
		logger: logger,
	}
}

// GetUser handles GET /api/user. Provisioning is lazy: the first call for a
// new user creates the account with the initial credit grant.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	account, err := h.ledger.EnsureAccount(r.Context(), userCtx.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toAccountResponse(account))
}
