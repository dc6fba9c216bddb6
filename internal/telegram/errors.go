package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotModified is returned when an edit would leave the message unchanged.
var ErrNotModified = errors.New("message is not modified")

// APIError is a Bot API response with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Is matches ErrNotModified for the Bot API's "message is not modified" 400.
func (e *APIError) Is(target error) bool {
	return target == ErrNotModified && e.Code == 400 && strings.Contains(e.Description, "message is not modified")
}

// IsForbidden reports whether err means the bot cannot message the chat,
// typically because the user blocked it.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == 403
}
