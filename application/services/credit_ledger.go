package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/domain/core/entities"
	"github.com/sjak1/rabbithole-backend/domain/events"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

// CreditLedger manages per-user prepaid balances: lazy account provisioning
// from identity-provider profile data, the pre-flight balance check, and the
// post-completion settlement.
//
// The check and the settlement are deliberately not linked transactionally:
// the balance is checked once before a completion starts and the actual cost
// is deducted only after the full response is known, so a user with barely
// positive credit can still receive one reply that costs more than their
// remaining balance. Overrun by one request is accepted billing policy.
type CreditLedger struct {
	accounts       ports.AccountRepository
	identity       ports.IdentityProvider
	publisher      ports.EventPublisher
	initialCredits float64
	logger         *zap.Logger
}

// NewCreditLedger creates a new credit ledger service
func NewCreditLedger(
	accounts ports.AccountRepository,
	identity ports.IdentityProvider,
	publisher ports.EventPublisher,
	initialCredits float64,
	logger *zap.Logger,
) *CreditLedger {
	return &CreditLedger{
		accounts:       accounts,
		identity:       identity,
		publisher:      publisher,
		initialCredits: initialCredits,
		logger:         logger,
	}
}

// EnsureAccount returns the account for userID, provisioning it from the
// identity provider on first-seen access.
func (l *CreditLedger) EnsureAccount(ctx context.Context, userID string) (*entities.Account, error) {
	account, err := l.accounts.Get(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !pkgerrors.IsNotFound(err) {
		return nil, err
	}

	profile, err := l.identity.FetchProfile(ctx, userID)
	if err != nil {
		return nil, pkgerrors.NewUpstreamError("identity provider", err)
	}

	account, err = entities.NewAccount(userID, profile.Email, profile.DisplayName, l.initialCredits)
	if err != nil {
		return nil, err
	}

	if err := l.accounts.Put(ctx, account); err != nil {
		// A concurrent request provisioned the same user; use its record.
		if pkgerrors.IsConflict(err) {
			return l.accounts.Get(ctx, userID)
		}
		return nil, err
	}

	l.logger.Info("Account provisioned",
		zap.String("userID", userID),
		zap.Float64("credits", l.initialCredits),
	)

	return account, nil
}

// RequireBalance loads the account and rejects with a Forbidden error when
// the balance is zero or negative. Any positive balance passes, including
// fractional amounts.
func (l *CreditLedger) RequireBalance(ctx context.Context, userID string) (*entities.Account, error) {
	account, err := l.accounts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.HasCredit() {
		return nil, pkgerrors.NewForbiddenError("Out of credits")
	}
	return account, nil
}

// Settle unconditionally decrements the balance by cost and returns the
// resulting balance, which may be negative.
func (l *CreditLedger) Settle(ctx context.Context, userID string, cost float64) (float64, error) {
	newBalance, err := l.accounts.Decrement(ctx, userID, cost)
	if err != nil {
		return 0, err
	}

	l.logger.Debug("Credits settled",
		zap.String("userID", userID),
		zap.Float64("cost", cost),
		zap.Float64("newBalance", newBalance),
	)

	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, events.NewCreditsSettled(userID, cost, newBalance, time.Now())); err != nil {
			l.logger.Warn("Failed to publish settlement event",
				zap.String("userID", userID),
				zap.Error(err),
			)
		}
	}

	return newBalance, nil
}
