package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// BranchID is a value object representing a unique branch identifier
// Value objects are immutable and have no identity beyond their value
type BranchID struct {
	value string
}

// NewBranchID creates a new random BranchID
func NewBranchID() BranchID {
	return BranchID{value: uuid.New().String()}
}

// NewBranchIDFromString creates a BranchID from an existing string
func NewBranchIDFromString(id string) (BranchID, error) {
	if id == "" {
		return BranchID{}, errors.New("branch ID cannot be empty")
	}
	return BranchID{value: id}, nil
}

// String returns the string representation of the BranchID
func (id BranchID) String() string {
	return id.value
}

// Equals checks if two BranchIDs are equal
func (id BranchID) Equals(other BranchID) bool {
	return id.value == other.value
}

// IsZero checks if the BranchID is the zero value
func (id BranchID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id BranchID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *BranchID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("BranchID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
