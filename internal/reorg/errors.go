package reorg

import (
	"errors"
	"fmt"
)

// ErrForkPointNotFound is returned when no common ancestor exists within the search bounds.
var ErrForkPointNotFound = errors.New("fork point not found")

// ForkPointError describes a failed ancestor walk.
type ForkPointError struct {
	// From is the first height compared.
	From uint64
	// Lowest is the last height compared before giving up.
	Lowest uint64
	Reason string
}

func (e *ForkPointError) Error() string {
	return fmt.Sprintf("fork point not found walking back from block %d to %d: %s", e.From, e.Lowest, e.Reason)
}

func (e *ForkPointError) Unwrap() error {
	return ErrForkPointNotFound
}
