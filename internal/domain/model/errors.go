package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so transports
// can map them without knowing individual sentinels.
var (
	// ErrInput marks malformed or unknown caller input.
	ErrInput = errors.New("invalid input")
	// ErrRule marks a well-formed request that a scheduling rule refuses.
	ErrRule = errors.New("rule violation")
	// ErrNotFound is combined with ErrInput for missing resources.
	ErrNotFound = errors.New("not found")
)

// Input errors.
var (
	ErrInvalidMonth        = fmt.Errorf("%w: month must be YYYY-MM", ErrInput)
	ErrInvalidDate         = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInput)
	ErrInvalidType         = fmt.Errorf("%w: meeting type must be Friday or Sunday", ErrInput)
	ErrInvalidMonthCount   = fmt.Errorf("%w: month count must be positive", ErrInput)
	ErrYouthOnFriday       = fmt.Errorf("%w: youth flag only applies to Sunday slots", ErrInput)
	ErrEmptyName           = fmt.Errorf("%w: coordinator name is empty", ErrInput)
	ErrCoordinatorNotFound = fmt.Errorf("%w: coordinator %w", ErrInput, ErrNotFound)
	ErrSlotNotFound        = fmt.Errorf("%w: slot %w", ErrInput, ErrNotFound)
	ErrBoardNotFound       = fmt.Errorf("%w: board %w", ErrInput, ErrNotFound)
	ErrConflictNotFound    = fmt.Errorf("%w: conflict %w", ErrInput, ErrNotFound)
)

// Rule errors.
var (
	ErrHistoricalMonth    = fmt.Errorf("%w: month is in the past", ErrRule)
	ErrStillDuplicate     = fmt.Errorf("%w: name is already assigned to another slot of this type", ErrRule)
	ErrUnknownCoordinator = fmt.Errorf("%w: name does not match any coordinator", ErrRule)
)
