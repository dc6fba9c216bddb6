package moderation

import (
	"errors"

	"moderbot/internal/services"
)

// Outcome is the result of a moderation operation.
type Outcome string

const (
	OK             Outcome = "ok"
	AlreadyDecided Outcome = "already_decided"
	Expired        Outcome = "expired"
	NotFound       Outcome = "not_found"
	Mismatch       Outcome = "mismatch"
	InProgress     Outcome = "in_progress"
	DeliveryFailed Outcome = "delivery_failed"
)

// Kind maps the outcome onto the shared error taxonomy. OK has no kind.
func (o Outcome) Kind() services.Kind {
	switch o {
	case OK:
		return ""
	case AlreadyDecided, Expired, NotFound, Mismatch, InProgress:
		return services.KindRaceLoss
	case DeliveryFailed:
		return services.KindDelivery
	default:
		return services.KindInternal
	}
}

// ErrEmptyReason is returned when a rejection reason has no text.
var ErrEmptyReason = errors.New("rejection reason is empty")

// Classify maps any error surfaced by this package onto the shared taxonomy.
func Classify(err error) services.Kind {
	if errors.Is(err, ErrEmptyReason) {
		return services.KindPolicy
	}
	return services.Classify(err)
}
