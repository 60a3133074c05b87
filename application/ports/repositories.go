// Package ports defines the interfaces the application services depend on.
// Infrastructure supplies the implementations; services never see concrete
// clients, which keeps the concurrency behavior testable with fakes.
package ports

import (
	"context"

	"github.com/sjak1/rabbithole-backend/domain/billing"
	"github.com/sjak1/rabbithole-backend/domain/core/entities"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	"github.com/sjak1/rabbithole-backend/domain/events"
)

// BranchRepository is the persistence boundary for branches. All operations
// are single-entity; no multi-entity transactions are assumed.
type BranchRepository interface {
	// Get resolves a branch by id alone. Returns a NotFound error if absent.
	Get(ctx context.Context, id valueobjects.BranchID) (*entities.Branch, error)

	// Put persists the full branch, conditional on the stored version
	// matching the version the branch was loaded at. Returns a Conflict
	// error when another writer got there first.
	Put(ctx context.Context, branch *entities.Branch) error

	// Delete removes the branch and its message log. Returns a NotFound
	// error if absent.
	Delete(ctx context.Context, id valueobjects.BranchID) error

	// ListByOwner returns all branches owned by ownerID, in no guaranteed
	// order.
	ListByOwner(ctx context.Context, ownerID string) ([]*entities.Branch, error)
}

// AccountRepository is the persistence boundary for user accounts.
type AccountRepository interface {
	// Get resolves an account by user id. Returns a NotFound error if absent.
	Get(ctx context.Context, userID string) (*entities.Account, error)

	// Put persists a new account, conditional on no account existing for the
	// same user. Returns a Conflict error if one appeared concurrently.
	Put(ctx context.Context, account *entities.Account) error

	// Decrement atomically subtracts amount from the balance and returns the
	// resulting balance. The balance may go negative.
	Decrement(ctx context.Context, userID string, amount float64) (float64, error)
}

// Completion is a full non-streaming completion result.
type Completion struct {
	Text  string
	Usage billing.UsageRecord
}

// CompletionDelta is one increment of a streaming completion. Content may be
// empty on usage-only chunks; Usage is nil until the provider reports totals,
// and only the last reported value is authoritative.
type CompletionDelta struct {
	Content string
	Usage   *billing.UsageRecord
}

// CompletionStream yields deltas as they arrive. Next returns io.EOF when
// the stream is exhausted. Close must be called even if iteration ended
// early.
type CompletionStream interface {
	Next() (CompletionDelta, error)
	Close() error
}

// CompletionClient is the boundary to the language-model provider. The
// message sequence is passed through as-is; callers are responsible for any
// system preamble.
type CompletionClient interface {
	Complete(ctx context.Context, messages []valueobjects.Message) (*Completion, error)
	CompleteStreaming(ctx context.Context, messages []valueobjects.Message) (CompletionStream, error)
}

// Profile is the identity-provider view of a user, fetched only when an
// account is provisioned for a first-seen user.
type Profile struct {
	Email       string
	DisplayName string
}

// IdentityProvider resolves profile data for authenticated user ids.
type IdentityProvider interface {
	FetchProfile(ctx context.Context, userID string) (*Profile, error)
}

// EventPublisher publishes domain events to the event bus. Publishing is
// best-effort; request handling never fails on a publish error.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
