package events

import (
	"time"

	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
)

// SourceBackend identifies this service as the event source on the bus
const SourceBackend = "rabbithole.backend"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Branch Events

// BranchCreated is raised when a branch is forked
type BranchCreated struct {
	BaseEvent
	BranchID valueobjects.BranchID `json:"branch_id"`
	OwnerID  string                `json:"owner_id"`
	Name     string                `json:"name"`
}

// NewBranchCreated creates a BranchCreated event
func NewBranchCreated(branchID valueobjects.BranchID, ownerID, name string, timestamp time.Time) BranchCreated {
	return BranchCreated{
		BaseEvent: BaseEvent{
			AggregateID: branchID.String(),
			EventType:   "branch.created",
			Timestamp:   timestamp,
			Version:     1,
		},
		BranchID: branchID,
		OwnerID:  ownerID,
		Name:     name,
	}
}

// BranchRenamed is raised when a branch's display name changes, whether set
// manually or synthesized from the conversation
type BranchRenamed struct {
	BaseEvent
	BranchID valueobjects.BranchID `json:"branch_id"`
	OldName  string                `json:"old_name"`
	NewName  string                `json:"new_name"`
}

// NewBranchRenamed creates a BranchRenamed event
func NewBranchRenamed(branchID valueobjects.BranchID, oldName, newName string, timestamp time.Time) BranchRenamed {
	return BranchRenamed{
		BaseEvent: BaseEvent{
			AggregateID: branchID.String(),
			EventType:   "branch.renamed",
			Timestamp:   timestamp,
			Version:     1,
		},
		BranchID: branchID,
		OldName:  oldName,
		NewName:  newName,
	}
}

// BranchRelinked is raised when a branch is reattached under a new parent
type BranchRelinked struct {
	BaseEvent
	BranchID    valueobjects.BranchID `json:"branch_id"`
	NewParentID valueobjects.BranchID `json:"new_parent_id"`
}

// NewBranchRelinked creates a BranchRelinked event
func NewBranchRelinked(branchID, newParentID valueobjects.BranchID, timestamp time.Time) BranchRelinked {
	return BranchRelinked{
		BaseEvent: BaseEvent{
			AggregateID: branchID.String(),
			EventType:   "branch.relinked",
			Timestamp:   timestamp,
			Version:     1,
		},
		BranchID:    branchID,
		NewParentID: newParentID,
	}
}

// BranchDeleted is raised when a branch and its message log are removed
type BranchDeleted struct {
	BaseEvent
	BranchID valueobjects.BranchID `json:"branch_id"`
	OwnerID  string                `json:"owner_id"`
}

// NewBranchDeleted creates a BranchDeleted event
func NewBranchDeleted(branchID valueobjects.BranchID, ownerID string, timestamp time.Time) BranchDeleted {
	return BranchDeleted{
		BaseEvent: BaseEvent{
			AggregateID: branchID.String(),
			EventType:   "branch.deleted",
			Timestamp:   timestamp,
			Version:     1,
		},
		BranchID: branchID,
		OwnerID:  ownerID,
	}
}

// Message Events

// MessageAppended is raised when a message is appended to a branch's log.
// Carries only the role and resulting length, not the content.
type MessageAppended struct {
	BaseEvent
	BranchID  valueobjects.BranchID `json:"branch_id"`
	Role      string                `json:"role"`
	LogLength int                   `json:"log_length"`
}

// NewMessageAppended creates a MessageAppended event
func NewMessageAppended(branchID valueobjects.BranchID, role string, logLength int, timestamp time.Time) MessageAppended {
	return MessageAppended{
		BaseEvent: BaseEvent{
			AggregateID: branchID.String(),
			EventType:   "message.appended",
			Timestamp:   timestamp,
			Version:     1,
		},
		BranchID:  branchID,
		Role:      role,
		LogLength: logLength,
	}
}

// Billing Events

// CreditsSettled is raised after a completion's cost is deducted from a
// user's balance
type CreditsSettled struct {
	BaseEvent
	UserID     string  `json:"user_id"`
	Cost       float64 `json:"cost"`
	NewBalance float64 `json:"new_balance"`
}

// NewCreditsSettled creates a CreditsSettled event
func NewCreditsSettled(userID string, cost, newBalance float64, timestamp time.Time) CreditsSettled {
	return CreditsSettled{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "credits.settled",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:     userID,
		Cost:       cost,
		NewBalance: newBalance,
	}
}
