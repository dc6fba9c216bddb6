package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"moderbot/internal/logging"
	"moderbot/internal/services"
	"moderbot/internal/telegram"
)

// UpdateSource yields Bot API updates.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
}

// Handler processes one update.
type Handler interface {
	Handle(ctx context.Context, update telegram.Update)
}

// Poller runs the getUpdates loop.
type Poller struct {
	source      UpdateSource
	handler     Handler
	pollTimeout time.Duration
	maxBackoff  time.Duration
	logger      *slog.Logger
}

// NewPoller builds a Poller.
func NewPoller(source UpdateSource, handler Handler, pollTimeout time.Duration, logger *slog.Logger) *Poller {
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Poller{
		source:      source,
		handler:     handler,
		pollTimeout: pollTimeout,
		maxBackoff:  30 * time.Second,
		logger:      logging.NewComponentLogger(logger, "poller"),
	}
}

// Run polls until ctx is cancelled. Updates are handled one at a time in
// arrival order; transport errors back off exponentially.
func (p *Poller) Run(ctx context.Context) error {
	var (
		offset  int64
		backoff = time.Second
	)
	p.logger.Info("long polling started", logging.Duration("poll_timeout", p.pollTimeout))
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, err := p.source.GetUpdates(ctx, offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			wait := backoff
			var apiErr *telegram.APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}
			logging.WarnWithContext(p.logger, "get updates failed", "poll_failed",
				logging.Error(err),
				logging.Duration("retry_in", wait),
				logging.String(logging.FieldImpact, "updates delayed until the Bot API recovers"),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			backoff = min(backoff*2, p.maxBackoff)
			continue
		}
		backoff = time.Second
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			p.dispatch(ctx, update)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, update telegram.Update) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "update handler panicked", "handler_panic",
				logging.Int64("update_id", update.UpdateID),
				logging.Any("panic", r),
			)
		}
	}()
	p.handler.Handle(ctx, update)
}
