package access

import (
	"fmt"
)

// Session represents an access handle and its cleanup function.
type Session struct {
	Access Access
	// Remote reports whether operations go through the running daemon.
	Remote bool
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Local is the in-process backing used when the daemon is unreachable.
type Local struct {
	Access Access
	Close  func() error
}

// OpenWithFallback tries daemon HTTP access first, then falls back to direct
// store access.
func OpenWithFallback(dial func() (*Client, error), openLocal func() (Local, error)) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{Access: client, Remote: true}, nil
		}
	}

	if openLocal == nil {
		return Session{}, fmt.Errorf("open store: no store opener configured")
	}
	local, err := openLocal()
	if err != nil {
		return Session{}, fmt.Errorf("open store: %w", err)
	}
	return Session{Access: local.Access, close: local.Close}, nil
}
