package entities

import (
	"time"

	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

// Account mirrors an identity-provider user with a prepaid credit balance.
// Accounts are provisioned lazily on first authenticated access and are never
// deleted by this service. The balance may go negative: billing happens after
// the fact, the check before a request is not a hard cap.
type Account struct {
	id          string
	email       string
	displayName string
	credits     float64
	createdAt   time.Time
	updatedAt   time.Time
	version     int
}

// NewAccount creates an account from identity-provider profile data with an
// initial credit grant.
func NewAccount(id, email, displayName string, initialCredits float64) (*Account, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("account id cannot be empty")
	}
	now := time.Now()
	return &Account{
		id:          id,
		email:       email,
		displayName: displayName,
		credits:     initialCredits,
		createdAt:   now,
		updatedAt:   now,
		version:     1,
	}, nil
}

// ReconstructAccount reconstructs an account from repository data
func ReconstructAccount(id, email, displayName string, credits float64, createdAt, updatedAt time.Time, version int) (*Account, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("account id cannot be empty")
	}
	return &Account{
		id:          id,
		email:       email,
		displayName: displayName,
		credits:     credits,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		version:     version,
	}, nil
}

// ID returns the identity-provider-issued user id
func (a *Account) ID() string { return a.id }

// Email returns the account email
func (a *Account) Email() string { return a.email }

// DisplayName returns the account display name
func (a *Account) DisplayName() string { return a.displayName }

// Credits returns the current prepaid balance
func (a *Account) Credits() float64 { return a.credits }

// CreatedAt returns the creation timestamp
func (a *Account) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns the last modification timestamp
func (a *Account) UpdatedAt() time.Time { return a.updatedAt }

// Version returns the optimistic concurrency version
func (a *Account) Version() int { return a.version }

// HasCredit reports whether the account can start a new completion request.
// Any positive balance qualifies, including fractional amounts.
func (a *Account) HasCredit() bool {
	return a.credits > 0
}

// UpdateProfile refreshes the identity-provider mirrored fields
func (a *Account) UpdateProfile(email, displayName string) {
	a.email = email
	a.displayName = displayName
	a.updatedAt = time.Now()
}
