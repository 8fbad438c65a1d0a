package order

import (
	"fmt"

	apperrors "orderflow/internal/common/errors"
	"orderflow/internal/models"
)

// forwardChain holds the mode-independent edges of the status machine. The
// branch at preparing is resolved separately because it is the one place
// delivery mode matters.
var forwardChain = map[models.Status]models.Status{
	models.StatusPending:        models.StatusConfirmed,
	models.StatusConfirmed:      models.StatusPreparing,
	models.StatusReadyForPickup: models.StatusPickedUp,
	models.StatusOutForDelivery: models.StatusDelivered,
}

// NextStatus returns the single legal successor of current for the given
// delivery mode. The second return is false when current is terminal, which
// callers surface as "order already complete" rather than an error. Statuses
// outside the enum, or an unrecognized mode at the preparing branch, are
// invalid-state errors.
//
// NextStatus never mutates state and never touches storage.
func NextStatus(current models.Status, mode models.DeliveryMode) (models.Status, bool, error) {
	if !current.Valid() {
		return "", false, apperrors.NewInvalidStateError(fmt.Sprintf("unknown status: %q", current))
	}
	if current.Terminal() {
		return "", false, nil
	}

	if current == models.StatusPreparing {
		switch mode {
		case models.ModePickup:
			return models.StatusReadyForPickup, true, nil
		case models.ModeDelivery:
			return models.StatusOutForDelivery, true, nil
		default:
			return "", false, apperrors.NewInvalidStateError(fmt.Sprintf("unknown delivery mode: %q", mode))
		}
	}

	next, ok := forwardChain[current]
	if !ok {
		return "", false, apperrors.NewInvalidStateError(fmt.Sprintf("no successor defined for %q", current))
	}
	return next, true, nil
}

// Cancellable reports whether an order in the given status may still be
// cancelled. Cancellation is a separate explicit operation, not part of the
// forward chain.
func Cancellable(current models.Status) bool {
	return current.Valid() && !current.Terminal()
}
