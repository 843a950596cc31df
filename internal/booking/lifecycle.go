package booking

import (
	"fmt"
	"net/http"

	"github.com/slotwise/booking-backend/internal/pkg/apperror"
)

// transitions is the full lifecycle. Anything not listed here is illegal, so
// terminal states (cancelled, completed) simply have no outgoing edges.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a client-facing error naming both statuses when
// the step is illegal.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if CanTransition(from, to) {
		return nil
	}
	if from.Terminal() {
		return ErrTerminalState.WithDetail(
			fmt.Sprintf("booking is already %s and cannot change to %s", from, to))
	}
	return apperror.New(http.StatusUnprocessableEntity,
		fmt.Sprintf("cannot change booking from %s to %s", from, to))
}
