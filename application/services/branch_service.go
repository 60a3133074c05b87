package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/ports"
	domainconfig "github.com/sjak1/rabbithole-backend/domain/config"
	"github.com/sjak1/rabbithole-backend/domain/core/entities"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

// appendRetries bounds the optimistic-concurrency retry loop for message
// appends. Contention on a single branch is rare (one user, one tree), so a
// few attempts are plenty.
const appendRetries = 3

// BranchService implements the branch-tree operations: forking, relinking,
// renaming, removal, and message appends. All operations are owner-scoped;
// a branch owned by someone else behaves exactly like a missing one.
type BranchService struct {
	branches  ports.BranchRepository
	ledger    *CreditLedger
	publisher ports.EventPublisher
	limits    *domainconfig.DomainConfig
	logger    *zap.Logger
}

// NewBranchService creates a new branch service
func NewBranchService(
	branches ports.BranchRepository,
	ledger *CreditLedger,
	publisher ports.EventPublisher,
	limits *domainconfig.DomainConfig,
	logger *zap.Logger,
) *BranchService {
	if limits == nil {
		limits = domainconfig.DefaultDomainConfig()
	}
	return &BranchService{
		branches:  branches,
		ledger:    ledger,
		publisher: publisher,
		limits:    limits,
		logger:    logger,
	}
}

// Fork creates a new branch for ownerID. The id may be caller-supplied; a
// zero id is replaced with a generated one. When parentID is non-nil the
// parent must exist and belong to the same owner. Forking is also the first
// authenticated touch point for many users, so the account is provisioned
// here if it does not exist yet.
func (s *BranchService) Fork(
	ctx context.Context,
	ownerID string,
	id valueobjects.BranchID,
	name string,
	parentID *valueobjects.BranchID,
) (*entities.Branch, error) {
	if _, err := s.ledger.EnsureAccount(ctx, ownerID); err != nil {
		return nil, err
	}

	if len(name) > s.limits.MaxBranchNameLength {
		return nil, pkgerrors.NewValidationError("branch name exceeds maximum length")
	}
	existing, err := s.branches.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= s.limits.MaxBranchesPerOwner {
		return nil, pkgerrors.NewValidationError("branch limit reached for this account")
	}

	branch, err := entities.NewBranch(id, ownerID, name)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.resolveOwned(ctx, ownerID, *parentID)
		if err != nil {
			return nil, err
		}
		branch.SetParent(parent.ID())
	}

	if err := s.branches.Put(ctx, branch); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, branch)

	s.logger.Info("Branch forked",
		zap.String("branchID", branch.ID().String()),
		zap.String("ownerID", ownerID),
		zap.Bool("hasParent", parentID != nil),
	)

	return branch, nil
}

// Resolve returns the branch with the given id if it belongs to ownerID.
func (s *BranchService) Resolve(ctx context.Context, ownerID string, id valueobjects.BranchID) (*entities.Branch, error) {
	return s.resolveOwned(ctx, ownerID, id)
}

// ListForOwner returns every branch owned by ownerID.
func (s *BranchService) ListForOwner(ctx context.Context, ownerID string) ([]*entities.Branch, error) {
	return s.branches.ListByOwner(ctx, ownerID)
}

// Rename overwrites the display name of an owned branch and returns the
// updated branch.
func (s *BranchService) Rename(ctx context.Context, ownerID string, id valueobjects.BranchID, name string) (*entities.Branch, error) {
	if name == "" {
		return nil, pkgerrors.NewValidationError("title cannot be empty")
	}
	if len(name) > s.limits.MaxBranchNameLength {
		return nil, pkgerrors.NewValidationError("title exceeds maximum length")
	}

	branch, err := s.resolveOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	branch.Rename(name)
	if err := s.branches.Put(ctx, branch); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, branch)

	return branch, nil
}

// Relink moves childID under parentID. Both branches must exist and belong
// to ownerID, and the new parent must not be a descendant of the child; a
// relink that would close a cycle is rejected before anything is written.
func (s *BranchService) Relink(ctx context.Context, ownerID string, childID, parentID valueobjects.BranchID) (*entities.Branch, error) {
	if childID.Equals(parentID) {
		return nil, pkgerrors.NewValidationError("a branch cannot be its own parent")
	}

	child, err := s.resolveOwned(ctx, ownerID, childID)
	if err != nil {
		return nil, err
	}
	parent, err := s.resolveOwned(ctx, ownerID, parentID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNoCycle(ctx, ownerID, childID, parent); err != nil {
		return nil, err
	}

	child.SetParent(parent.ID())
	if err := s.branches.Put(ctx, child); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, child)

	s.logger.Info("Branch relinked",
		zap.String("childID", childID.String()),
		zap.String("parentID", parentID.String()),
	)

	return child, nil
}

// ParentOf returns the parent of an owned branch, or nil for a root branch.
// A dangling parent pointer (parent deleted since the link was made) is
// treated the same as having no parent.
func (s *BranchService) ParentOf(ctx context.Context, ownerID string, id valueobjects.BranchID) (*entities.Branch, error) {
	branch, err := s.resolveOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	parentID := branch.ParentID()
	if parentID == nil {
		return nil, nil
	}

	parent, err := s.resolveOwned(ctx, ownerID, *parentID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return parent, nil
}

// Remove deletes an owned branch. Children are not deleted; their parent
// pointers are cleared so they become roots of their own subtrees.
func (s *BranchService) Remove(ctx context.Context, ownerID string, id valueobjects.BranchID) error {
	branch, err := s.resolveOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	siblings, err := s.branches.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		pid := sibling.ParentID()
		if pid == nil || !pid.Equals(id) {
			continue
		}
		sibling.ClearParent()
		if err := s.branches.Put(ctx, sibling); err != nil {
			s.logger.Warn("Failed to detach child of deleted branch",
				zap.String("childID", sibling.ID().String()),
				zap.Error(err),
			)
		}
	}

	if err := s.branches.Delete(ctx, branch.ID()); err != nil {
		return err
	}

	s.logger.Info("Branch deleted",
		zap.String("branchID", id.String()),
		zap.String("ownerID", ownerID),
	)

	return nil
}

// AppendMessage appends one message to the tail of an owned branch's log.
// On a version conflict the branch is reloaded and the append retried, so
// two concurrent appends both land (in some order) instead of one being
// silently lost.
func (s *BranchService) AppendMessage(ctx context.Context, ownerID string, id valueobjects.BranchID, msg valueobjects.Message) (*entities.Branch, error) {
	if msg.Content == "" && !s.limits.AllowEmptyMessageContent {
		return nil, pkgerrors.NewValidationError("message content cannot be empty")
	}
	if len(msg.Content) > s.limits.MaxMessageContentLength {
		return nil, pkgerrors.NewValidationError("message content exceeds maximum length")
	}

	var lastErr error
	for attempt := 0; attempt < appendRetries; attempt++ {
		branch, err := s.resolveOwned(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		if len(branch.Messages()) >= s.limits.MaxMessagesPerBranch {
			return nil, pkgerrors.NewValidationError("message limit reached for this branch")
		}

		branch.AppendMessage(msg)
		if err := s.branches.Put(ctx, branch); err != nil {
			if pkgerrors.IsConflict(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		s.publishEvents(ctx, branch)
		return branch, nil
	}
	return nil, lastErr
}

// resolveOwned loads a branch and enforces ownership. A branch owned by a
// different user is reported as not found rather than forbidden, so the API
// does not leak which ids exist.
func (s *BranchService) resolveOwned(ctx context.Context, ownerID string, id valueobjects.BranchID) (*entities.Branch, error) {
	branch, err := s.branches.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if branch.OwnerID() != ownerID {
		return nil, pkgerrors.NewNotFoundError("branch")
	}
	return branch, nil
}

// ensureNoCycle walks ancestor pointers from the proposed parent upward and
// rejects the relink if childID appears on the path. The walk is bounded by
// the owner's branch count to survive pre-existing corrupt data.
func (s *BranchService) ensureNoCycle(ctx context.Context, ownerID string, childID valueobjects.BranchID, parent *entities.Branch) error {
	all, err := s.branches.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	byID := make(map[string]*entities.Branch, len(all))
	for _, b := range all {
		byID[b.ID().String()] = b
	}

	current := parent
	for steps := 0; steps <= len(all); steps++ {
		if current.ID().Equals(childID) {
			return pkgerrors.NewValidationError("relink would create a cycle")
		}
		pid := current.ParentID()
		if pid == nil {
			return nil
		}
		next, ok := byID[pid.String()]
		if !ok {
			// Dangling pointer terminates the path.
			return nil
		}
		current = next
	}
	return pkgerrors.NewValidationError("relink would create a cycle")
}

func (s *BranchService) publishEvents(ctx context.Context, branch *entities.Branch) {
	pending := branch.GetUncommittedEvents()
	if len(pending) == 0 || s.publisher == nil {
		branch.MarkEventsAsCommitted()
		return
	}
	if err := s.publisher.PublishBatch(ctx, pending); err != nil {
		s.logger.Warn("Failed to publish branch events",
			zap.String("branchID", branch.ID().String()),
			zap.Error(err),
		)
	}
	branch.MarkEventsAsCommitted()
}
