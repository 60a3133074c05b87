package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
)

func TestNewBranch(t *testing.T) {
	t.Run("generates id when zero", func(t *testing.T) {
		branch, err := NewBranch(valueobjects.BranchID{}, "user_1", "my branch")
		require.NoError(t, err)
		assert.False(t, branch.ID().IsZero())
		assert.Equal(t, "my branch", branch.Name())
		assert.Nil(t, branch.ParentID())
		assert.True(t, branch.Messages().IsEmpty())
	})

	t.Run("keeps caller-supplied id", func(t *testing.T) {
		id := valueobjects.NewBranchID()
		branch, err := NewBranch(id, "user_1", "named")
		require.NoError(t, err)
		assert.True(t, branch.ID().Equals(id))
	})

	t.Run("defaults the name", func(t *testing.T) {
		branch, err := NewBranch(valueobjects.BranchID{}, "user_1", "")
		require.NoError(t, err)
		assert.Equal(t, DefaultBranchName, branch.Name())
	})

	t.Run("rejects empty owner", func(t *testing.T) {
		_, err := NewBranch(valueobjects.BranchID{}, "", "x")
		assert.Error(t, err)
	})

	t.Run("raises a creation event", func(t *testing.T) {
		branch, err := NewBranch(valueobjects.BranchID{}, "user_1", "x")
		require.NoError(t, err)
		assert.Len(t, branch.GetUncommittedEvents(), 1)

		branch.MarkEventsAsCommitted()
		assert.Empty(t, branch.GetUncommittedEvents())
	})
}

func TestBranchAppendMessage(t *testing.T) {
	branch, err := NewBranch(valueobjects.BranchID{}, "user_1", "x")
	require.NoError(t, err)

	first, _ := valueobjects.NewMessage(valueobjects.RoleUser, "hello")
	second, _ := valueobjects.NewMessage(valueobjects.RoleAssistant, "hi there")
	branch.AppendMessage(first)
	branch.AppendMessage(second)

	log := branch.Messages()
	require.Len(t, log, 2)
	assert.Equal(t, "hello", log[0].Content)
	assert.Equal(t, "hi there", log[1].Content)
}

func TestBranchRename(t *testing.T) {
	branch, err := NewBranch(valueobjects.BranchID{}, "user_1", "old")
	require.NoError(t, err)
	branch.MarkEventsAsCommitted()

	branch.Rename("new")
	assert.Equal(t, "new", branch.Name())
	assert.Len(t, branch.GetUncommittedEvents(), 1)

	// Renaming to the current name raises nothing.
	branch.MarkEventsAsCommitted()
	branch.Rename("new")
	assert.Empty(t, branch.GetUncommittedEvents())
}

func TestBranchParentPointer(t *testing.T) {
	branch, err := NewBranch(valueobjects.BranchID{}, "user_1", "child")
	require.NoError(t, err)

	parentID := valueobjects.NewBranchID()
	branch.SetParent(parentID)
	require.NotNil(t, branch.ParentID())
	assert.True(t, branch.ParentID().Equals(parentID))

	branch.ClearParent()
	assert.Nil(t, branch.ParentID())
}

func TestReconstructBranch(t *testing.T) {
	id := valueobjects.NewBranchID()
	created := time.Now().Add(-time.Hour)
	updated := time.Now()
	msg, _ := valueobjects.NewMessage(valueobjects.RoleUser, "hello")

	branch, err := ReconstructBranch(id, "user_1", "stored", nil, valueobjects.MessageLog{msg}, created, updated, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, branch.Version())
	assert.Equal(t, created, branch.CreatedAt())
	// Reconstruction raises no events.
	assert.Empty(t, branch.GetUncommittedEvents())

	t.Run("nil log becomes empty log", func(t *testing.T) {
		branch, err := ReconstructBranch(id, "user_1", "stored", nil, nil, created, updated, 1)
		require.NoError(t, err)
		assert.NotNil(t, branch.Messages())
		assert.True(t, branch.Messages().IsEmpty())
	})
}
