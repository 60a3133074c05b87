package entities

import (
	"time"

	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	"github.com/sjak1/rabbithole-backend/domain/events"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

// DefaultBranchName is used when a fork request carries no display name.
const DefaultBranchName = "New Branch"

// Branch is one node of a conversation tree. It owns an append-only message
// log and an optional parent pointer to another branch of the same owner.
// This is a rich domain model with encapsulated business logic
type Branch struct {
	// Private fields ensure encapsulation
	id        valueobjects.BranchID
	name      string
	ownerID   string
	parentID  *valueobjects.BranchID
	messages  valueobjects.MessageLog
	createdAt time.Time
	updatedAt time.Time
	version   int

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewBranch creates a new branch with an empty message log. The id may be
// caller-supplied (the frontend generates ids for optimistic rendering);
// pass a zero BranchID to have one generated.
func NewBranch(id valueobjects.BranchID, ownerID, name string) (*Branch, error) {
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("ownerID cannot be empty")
	}
	if id.IsZero() {
		id = valueobjects.NewBranchID()
	}
	if name == "" {
		name = DefaultBranchName
	}

	now := time.Now()
	branch := &Branch{
		id:        id,
		name:      name,
		ownerID:   ownerID,
		messages:  valueobjects.MessageLog{},
		createdAt: now,
		updatedAt: now,
		version:   1,
		events:    []events.DomainEvent{},
	}

	branch.addEvent(events.NewBranchCreated(id, ownerID, name, now))

	return branch, nil
}

// ReconstructBranch reconstructs a branch from repository data with preserved
// timestamps and version. No creation event is raised.
func ReconstructBranch(
	id valueobjects.BranchID,
	ownerID, name string,
	parentID *valueobjects.BranchID,
	messages valueobjects.MessageLog,
	createdAt, updatedAt time.Time,
	version int,
) (*Branch, error) {
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("ownerID cannot be empty")
	}
	if messages == nil {
		messages = valueobjects.MessageLog{}
	}

	return &Branch{
		id:        id,
		name:      name,
		ownerID:   ownerID,
		parentID:  parentID,
		messages:  messages,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
		events:    []events.DomainEvent{},
	}, nil
}

// ID returns the branch's unique identifier
func (b *Branch) ID() valueobjects.BranchID { return b.id }

// Name returns the branch's display name
func (b *Branch) Name() string { return b.name }

// OwnerID returns the identity-provider id of the owning user. Ownership
// never changes after creation.
func (b *Branch) OwnerID() string { return b.ownerID }

// ParentID returns the parent branch id, or nil for a root branch. The
// referenced branch may no longer exist; callers must tolerate that.
func (b *Branch) ParentID() *valueobjects.BranchID { return b.parentID }

// Messages returns the branch's message log
func (b *Branch) Messages() valueobjects.MessageLog { return b.messages }

// CreatedAt returns the creation timestamp
func (b *Branch) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last modification timestamp
func (b *Branch) UpdatedAt() time.Time { return b.updatedAt }

// Version returns the optimistic concurrency version
func (b *Branch) Version() int { return b.version }

// Rename overwrites the display name. Idempotent: renaming to the current
// name raises no event.
func (b *Branch) Rename(name string) {
	if name == b.name {
		return
	}
	old := b.name
	b.name = name
	b.touch()
	b.addEvent(events.NewBranchRenamed(b.id, old, name, b.updatedAt))
}

// SetParent reassigns the parent pointer. Existence and ownership of the new
// parent are checked by the application service, not here.
func (b *Branch) SetParent(parentID valueobjects.BranchID) {
	b.parentID = &parentID
	b.touch()
	b.addEvent(events.NewBranchRelinked(b.id, parentID, b.updatedAt))
}

// ClearParent detaches the branch from its parent, making it a root.
func (b *Branch) ClearParent() {
	b.parentID = nil
	b.touch()
}

// AppendMessage appends one message to the tail of the log. Prior order is
// preserved exactly; nothing is ever removed.
func (b *Branch) AppendMessage(msg valueobjects.Message) {
	b.messages = b.messages.Append(msg)
	b.touch()
	b.addEvent(events.NewMessageAppended(b.id, string(msg.Role), len(b.messages), b.updatedAt))
}

// GetUncommittedEvents returns events raised since load
func (b *Branch) GetUncommittedEvents() []events.DomainEvent {
	return b.events
}

// MarkEventsAsCommitted clears the uncommitted event list
func (b *Branch) MarkEventsAsCommitted() {
	b.events = []events.DomainEvent{}
}

func (b *Branch) addEvent(event events.DomainEvent) {
	b.events = append(b.events, event)
}

func (b *Branch) touch() {
	b.updatedAt = time.Now()
}
