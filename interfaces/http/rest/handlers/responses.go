package handlers

import (
	"github.com/sjak1/rabbithole-backend/domain/core/entities"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
)

// maxRequestBody caps every JSON request body. Message content is bounded
// well below this by the domain limits.
const maxRequestBody = 1 << 20

// branchResponse is the wire shape for a branch. parentId is JSON null for
// root branches; the frontend relies on that, not on field absence.
type branchResponse struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	UserID   string                 `json:"userId"`
	ParentID *string                `json:"parentId"`
	Messages []valueobjects.Message `json:"messages"`
}

func toBranchResponse(branch *entities.Branch) branchResponse {
	resp := branchResponse{
		ID:       branch.ID().String(),
		Name:     branch.Name(),
		UserID:   branch.OwnerID(),
		Messages: branch.Messages(),
	}
	if resp.Messages == nil {
		resp.Messages = []valueobjects.Message{}
	}
	if parentID := branch.ParentID(); parentID != nil {
		s := parentID.String()
		resp.ParentID = &s
	}
	return resp
}

func toBranchResponses(branches []*entities.Branch) []branchResponse {
	out := make([]branchResponse, 0, len(branches))
	for _, b := range branches {
		out = append(out, toBranchResponse(b))
	}
	return out
}

// accountResponse is the wire shape for the authenticated user.
type accountResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"displayName"`
	Credits     float64 `json:"credits"`
}

func toAccountResponse(account *entities.Account) accountResponse {
	return accountResponse{
		ID:          account.ID(),
		Email:       account.Email(),
		DisplayName: account.DisplayName(),
		Credits:     account.Credits(),
	}
}
