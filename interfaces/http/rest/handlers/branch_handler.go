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

// BranchHandler handles branch-tree HTTP requests
type BranchHandler struct {
	branches *services.BranchService
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(branches *services.BranchService, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *BranchHandler {
	return &BranchHandler{
		branches: branches,
		errors:   errors,
		logger:   logger,
	}
}

// CreateBranchRequest represents the request body for creating a branch.
// The id is optional and client-supplied when present; the frontend
// generates ids up front for optimistic rendering.
type CreateBranchRequest struct {
	BranchID string `json:"branchId,omitempty" validate:"omitempty,max=128"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=200"`
	ParentID string `json:"parentId,omitempty" validate:"omitempty,max=128"`
}

// RelinkRequest represents the request body for reattaching a branch
type RelinkRequest struct {
	ChildID  string `json:"childId" validate:"required,max=128"`
	ParentID string `json:"parentId" validate:"required,max=128"`
}

// SetTitleRequest represents the request body for renaming a branch
type SetTitleRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// CreateBranch handles POST /branch
func (h *BranchHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateBranchRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBody); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	var id valueobjects.BranchID
	if req.BranchID != "" {
		id, err = valueobjects.NewBranchIDFromString(req.BranchID)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid branch id"))
			return
		}
	}

	var parentID *valueobjects.BranchID
	if req.ParentID != "" {
		pid, err := valueobjects.NewBranchIDFromString(req.ParentID)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid parent id"))
			return
		}
		parentID = &pid
	}

	branch, err := h.branches.Fork(r.Context(), userCtx.UserID, id, req.Name, parentID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, toBranchResponse(branch))
}

// ListBranches handles GET /branches
func (h *BranchHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	branches, err := h.branches.ListForOwner(r.Context(), userCtx.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toBranchResponses(branches))
}

// DeleteBranch handles DELETE /branch/{branchId}
func (h *BranchHandler) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := h.branchIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.branches.Remove(r.Context(), userCtx.UserID, id); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "Branch deleted"})
}

// GetParent handles GET /parent/{branchId}. Responds with the parent branch,
// or JSON null when the branch is a root.
func (h *BranchHandler) GetParent(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := h.branchIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	parent, err := h.branches.ParentOf(r.Context(), userCtx.UserID, id)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if parent == nil {
		common.RespondJSON(w, http.StatusOK, nil)
		return
	}

	common.RespondJSON(w, http.StatusOK, toBranchResponse(parent))
}

// Relink handles POST /parent/{branchId}. The body names the child and its
// new parent explicitly; the path parameter is the child for routing
// symmetry with GetParent.
func (h *BranchHandler) Relink(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RelinkRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBody); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	childID, err := valueobjects.NewBranchIDFromString(req.ChildID)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid child id"))
		return
	}
	parentID, err := valueobjects.NewBranchIDFromString(req.ParentID)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid parent id"))
		return
	}

	child, err := h.branches.Relink(r.Context(), userCtx.UserID, childID, parentID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toBranchResponse(child))
}

// SetTitle handles POST /title/{branchId}
func (h *BranchHandler) SetTitle(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := h.branchIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req SetTitleRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBody); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	branch, err := h.branches.Rename(r.Context(), userCtx.UserID, id, req.Title)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toBranchResponse(branch))
}

func (h *BranchHandler) branchIDParam(r *http.Request) (valueobjects.BranchID, error) {
	raw := chi.URLParam(r, "branchId")
	id, err := valueobjects.NewBranchIDFromString(raw)
	if err != nil {
		return valueobjects.BranchID{}, pkgerrors.NewValidationError("invalid branch id")
	}
	return id, nil
}
