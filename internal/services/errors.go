package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes shared by the submission and moderation paths.
var (
	// ErrPolicy marks user-facing rejections the user must fix themselves.
	ErrPolicy = errors.New("policy rejection")
	// ErrRaceLoss marks a decision attempt that lost to a concurrent one.
	ErrRaceLoss = errors.New("race lost")
	// ErrDelivery marks a failed channel publish; the post stays pending.
	ErrDelivery = errors.New("delivery failure")
	// ErrNotification marks a best-effort message that could not be sent.
	ErrNotification = errors.New("notification failure")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
)

// Kind is the classification label used in logs and API responses.
type Kind string

const (
	KindPolicy       Kind = "policy"
	KindRaceLoss     Kind = "race"
	KindDelivery     Kind = "delivery"
	KindNotification Kind = "notification"
	KindInternal     Kind = "internal"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrNotification
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPolicy), errors.Is(err, ErrValidation):
		return KindPolicy
	case errors.Is(err, ErrRaceLoss), errors.Is(err, ErrNotFound):
		return KindRaceLoss
	case errors.Is(err, ErrDelivery):
		return KindDelivery
	case errors.Is(err, ErrNotification):
		return KindNotification
	default:
		return KindInternal
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{component, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
