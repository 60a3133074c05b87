package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/domain/core/entities"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

const (
	// titlePrompt instructs the model to produce a short branch title.
	titlePrompt = "Summarize the following conversation in 5 words or less to be used as a title. Be concise and descriptive. Do not use quotes."

	// titleContextMessages caps how much of the log is sent for titling. The
	// opening exchange is enough to name a conversation.
	titleContextMessages = 4

	// fallbackTitle is used when the model returns nothing usable.
	fallbackTitle = "New Title"
)

// TitleSynthesizer derives a display name for a branch from the opening of
// its conversation. Synthesis is a metered completion like any other; the
// caller pays for it and gets the new balance back.
type TitleSynthesizer struct {
	branches *BranchService
	chat     *ChatService
	logger   *zap.Logger
}

// NewTitleSynthesizer creates a new title synthesizer
func NewTitleSynthesizer(branches *BranchService, chat *ChatService, logger *zap.Logger) *TitleSynthesizer {
	return &TitleSynthesizer{branches: branches, chat: chat, logger: logger}
}

// Synthesize generates a title for an owned branch, renames the branch to
// it, and returns the updated branch with the post-settlement balance.
// Branches with an empty log cannot be titled.
func (t *TitleSynthesizer) Synthesize(ctx context.Context, userID string, branchID valueobjects.BranchID) (*entities.Branch, float64, error) {
	branch, err := t.branches.Resolve(ctx, userID, branchID)
	if err != nil {
		return nil, 0, err
	}
	if branch.Messages().IsEmpty() {
		return nil, 0, pkgerrors.NewNotFoundError("branch with messages")
	}

	prompt := make([]valueobjects.Message, 0, titleContextMessages+1)
	prompt = append(prompt, valueobjects.Message{Role: valueobjects.RoleSystem, Content: titlePrompt})
	prompt = append(prompt, branch.Messages().Prefix(titleContextMessages)...)

	raw, balance, err := t.chat.CompleteMetered(ctx, userID, prompt)
	if err != nil {
		return nil, 0, err
	}

	title := sanitizeTitle(raw)

	updated, err := t.branches.Rename(ctx, userID, branchID, title)
	if err != nil {
		return nil, 0, err
	}

	t.logger.Info("Title synthesized",
		zap.String("branchID", branchID.String()),
		zap.String("title", title),
	)

	return updated, balance, nil
}

// sanitizeTitle strips every quote character the model tends to wrap titles
// in, despite being told not to, and falls back when nothing is left.
func sanitizeTitle(raw string) string {
	cleaned := strings.NewReplacer(`"`, "", `'`, "").Replace(raw)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return fallbackTitle
	}
	return cleaned
}
