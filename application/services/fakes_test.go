package services

import (
	"context"
	"io"
	"sync"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/domain/core/entities"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	"github.com/sjak1/rabbithole-backend/domain/events"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

// fakeBranchRepo mimics the versioned Put semantics of the real repository:
// reads hand out copies, writes store a copy with a bumped version.
type fakeBranchRepo struct {
	mu       sync.Mutex
	branches map[string]*entities.Branch
	failPuts int
	putCalls int
}

func newFakeBranchRepo() *fakeBranchRepo {
	return &fakeBranchRepo{branches: make(map[string]*entities.Branch)}
}

func cloneBranch(b *entities.Branch, version int) *entities.Branch {
	clone, _ := entities.ReconstructBranch(
		b.ID(), b.OwnerID(), b.Name(), b.ParentID(), b.Messages(),
		b.CreatedAt(), b.UpdatedAt(), version,
	)
	return clone
}

func (r *fakeBranchRepo) Get(ctx context.Context, id valueobjects.BranchID) (*entities.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.branches[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("branch")
	}
	return cloneBranch(b, b.Version()), nil
}

func (r *fakeBranchRepo) Put(ctx context.Context, branch *entities.Branch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putCalls++
	if r.failPuts > 0 {
		r.failPuts--
		return pkgerrors.NewConflictError("branch was modified concurrently")
	}
	r.branches[branch.ID().String()] = cloneBranch(branch, branch.Version()+1)
	return nil
}

func (r *fakeBranchRepo) Delete(ctx context.Context, id valueobjects.BranchID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.branches[id.String()]; !ok {
		return pkgerrors.NewNotFoundError("branch")
	}
	delete(r.branches, id.String())
	return nil
}

func (r *fakeBranchRepo) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Branch
	for _, b := range r.branches {
		if b.OwnerID() == ownerID {
			out = append(out, cloneBranch(b, b.Version()))
		}
	}
	return out, nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*entities.Account

	// putConflict, when set, makes Put fail with a conflict after storing
	// this account, simulating a concurrent provisioner winning the race.
	putConflict *entities.Account
	decrements  []float64
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*entities.Account)}
}

func (r *fakeAccountRepo) add(account *entities.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID()] = account
}

func (r *fakeAccountRepo) Get(ctx context.Context, userID string) (*entities.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[userID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("account")
	}
	return account, nil
}

func (r *fakeAccountRepo) Put(ctx context.Context, account *entities.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putConflict != nil {
		r.accounts[r.putConflict.ID()] = r.putConflict
		return pkgerrors.NewConflictError("account already exists")
	}
	if _, ok := r.accounts[account.ID()]; ok {
		return pkgerrors.NewConflictError("account already exists")
	}
	r.accounts[account.ID()] = account
	return nil
}

func (r *fakeAccountRepo) Decrement(ctx context.Context, userID string, amount float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[userID]
	if !ok {
		return 0, pkgerrors.NewNotFoundError("account")
	}
	r.decrements = append(r.decrements, amount)
	updated, _ := entities.ReconstructAccount(
		account.ID(), account.Email(), account.DisplayName(),
		account.Credits()-amount, account.CreatedAt(), account.UpdatedAt(), account.Version(),
	)
	r.accounts[userID] = updated
	return updated.Credits(), nil
}

func (r *fakeAccountRepo) balance(userID string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[userID].Credits()
}

type fakeIdentity struct {
	profile *ports.Profile
	err     error
	calls   int
}

func (f *fakeIdentity) FetchProfile(ctx context.Context, userID string) (*ports.Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []events.DomainEvent
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, batch...)
	return nil
}

// scriptedStream yields a fixed sequence of deltas, then a terminal error
// (io.EOF for a clean end).
type scriptedStream struct {
	deltas   []ports.CompletionDelta
	terminal error
	idx      int
	closed   bool
}

func (s *scriptedStream) Next() (ports.CompletionDelta, error) {
	if s.idx < len(s.deltas) {
		d := s.deltas[s.idx]
		s.idx++
		return d, nil
	}
	if s.terminal != nil {
		return ports.CompletionDelta{}, s.terminal
	}
	return ports.CompletionDelta{}, io.EOF
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type fakeCompletionClient struct {
	completion  *ports.Completion
	completeErr error

	stream         *scriptedStream
	streamStartErr error

	gotMessages []valueobjects.Message
}

func (c *fakeCompletionClient) Complete(ctx context.Context, messages []valueobjects.Message) (*ports.Completion, error) {
	c.gotMessages = messages
	if c.completeErr != nil {
		return nil, c.completeErr
	}
	return c.completion, nil
}

func (c *fakeCompletionClient) CompleteStreaming(ctx context.Context, messages []valueobjects.Message) (ports.CompletionStream, error) {
	c.gotMessages = messages
	if c.streamStartErr != nil {
		return nil, c.streamStartErr
	}
	return c.stream, nil
}
