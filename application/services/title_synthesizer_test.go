package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/domain/billing"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

func newTestTitleSynthesizer(t *testing.T, client *fakeCompletionClient) (*TitleSynthesizer, *BranchService) {
	t.Helper()
	branches := newFakeBranchRepo()
	accounts := newFakeAccountRepo()
	accounts.add(newTestAccount(t, testOwner, 5.0))
	ledger := NewCreditLedger(accounts, &fakeIdentity{}, &fakePublisher{}, 5.0, zap.NewNop())
	branchSvc := NewBranchService(branches, ledger, &fakePublisher{}, nil, zap.NewNop())
	chatSvc := NewChatService(client, ledger, testModel, nil, nil, zap.NewNop())
	return NewTitleSynthesizer(branchSvc, chatSvc, zap.NewNop()), branchSvc
}

func forkWithMessages(t *testing.T, svc *BranchService, n int) valueobjects.BranchID {
	t.Helper()
	branch := mustFork(t, svc, testOwner, "untitled", nil)
	for i := 0; i < n; i++ {
		_, err := svc.AppendMessage(context.Background(), testOwner, branch.ID(), userMessage(t, fmt.Sprintf("message %d", i)))
		require.NoError(t, err)
	}
	return branch.ID()
}

func TestSynthesizeRenamesBranch(t *testing.T) {
	client := &fakeCompletionClient{completion: &ports.Completion{
		Text:  "Planning a Road Trip",
		Usage: billing.UsageRecord{InputTokens: 1_000_000, OutputTokens: 1_000_000},
	}}
	synth, branchSvc := newTestTitleSynthesizer(t, client)
	id := forkWithMessages(t, branchSvc, 2)

	updated, balance, err := synth.Synthesize(context.Background(), testOwner, id)
	require.NoError(t, err)
	assert.Equal(t, "Planning a Road Trip", updated.Name())
	assert.InDelta(t, 4.25, balance, 1e-9)

	reloaded, err := branchSvc.Resolve(context.Background(), testOwner, id)
	require.NoError(t, err)
	assert.Equal(t, "Planning a Road Trip", reloaded.Name())
}

func TestSynthesizePromptUsesOpeningExchange(t *testing.T) {
	client := &fakeCompletionClient{completion: &ports.Completion{Text: "Title"}}
	synth, branchSvc := newTestTitleSynthesizer(t, client)
	id := forkWithMessages(t, branchSvc, 6)

	_, _, err := synth.Synthesize(context.Background(), testOwner, id)
	require.NoError(t, err)

	// System instruction plus the first four log messages; the rest of the
	// conversation is not sent.
	require.Len(t, client.gotMessages, 5)
	assert.Equal(t, valueobjects.RoleSystem, client.gotMessages[0].Role)
	assert.Contains(t, client.gotMessages[0].Content, "5 words or less")
	for i := 0; i < 4; i++ {
		assert.Equal(t, fmt.Sprintf("message %d", i), client.gotMessages[i+1].Content)
	}
}

func TestSynthesizeStripsQuotes(t *testing.T) {
	client := &fakeCompletionClient{completion: &ports.Completion{Text: ` "Bob's 'Big' Plan" `}}
	synth, branchSvc := newTestTitleSynthesizer(t, client)
	id := forkWithMessages(t, branchSvc, 1)

	updated, _, err := synth.Synthesize(context.Background(), testOwner, id)
	require.NoError(t, err)
	assert.Equal(t, "Bobs Big Plan", updated.Name())
}

func TestSynthesizeFallsBackOnEmptyOutput(t *testing.T) {
	client := &fakeCompletionClient{completion: &ports.Completion{Text: ` "''" `}}
	synth, branchSvc := newTestTitleSynthesizer(t, client)
	id := forkWithMessages(t, branchSvc, 1)

	updated, _, err := synth.Synthesize(context.Background(), testOwner, id)
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Name())
}

func TestSynthesizeRejectsEmptyLog(t *testing.T) {
	client := &fakeCompletionClient{completion: &ports.Completion{Text: "Title"}}
	synth, branchSvc := newTestTitleSynthesizer(t, client)
	branch := mustFork(t, branchSvc, testOwner, "empty", nil)

	_, _, err := synth.Synthesize(context.Background(), testOwner, branch.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Nil(t, client.gotMessages, "no completion is bought for an empty branch")
}

func TestSynthesizeRejectsForeignBranch(t *testing.T) {
	client := &fakeCompletionClient{completion: &ports.Completion{Text: "Title"}}
	synth, branchSvc := newTestTitleSynthesizer(t, client)
	id := forkWithMessages(t, branchSvc, 1)

	_, _, err := synth.Synthesize(context.Background(), "somebody_else", id)
	assert.True(t, pkgerrors.IsNotFound(err))
}
