package admin

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"moderbot/internal/logging"
	"moderbot/internal/notifier"
	"moderbot/internal/store"
)

// BroadcastResult counts deliveries. Failed usually means the user blocked the bot.
// JobID ties the result to its log lines and admin log entry.
type BroadcastResult struct {
	JobID  string
	Sent   int
	Failed int
}

// Broadcast sends text, optionally with a photo, to every registered user who
// is not banned. Individual failures are counted, never fatal; only context
// cancellation stops the run early.
func (s *Service) Broadcast(ctx context.Context, by store.Actor, text, photoID string) (BroadcastResult, error) {
	text = strings.TrimSpace(text)
	if text == "" && photoID == "" {
		return BroadcastResult{}, ErrEmptyBroadcast
	}
	targets, err := s.store.ListBroadcastTargets(ctx)
	if err != nil {
		return BroadcastResult{}, err
	}
	view := notifier.View{Text: text, PhotoID: photoID}
	res := BroadcastResult{JobID: uuid.NewString()}
	logger := logging.WithContext(ctx, s.logger).With(logging.String("job_id", res.JobID))
	logger.Info("broadcast started", logging.Int("targets", len(targets)), logging.Int64("admin_id", by.ID))

	for _, userID := range targets {
		if err := s.limiter.Wait(ctx); err != nil {
			s.finishBroadcast(ctx, logger, by, res, true)
			return res, err
		}
		if s.notifier == nil {
			res.Failed++
			continue
		}
		if err := s.notifier.NotifyUser(ctx, userID, view); err != nil {
			res.Failed++
			logger.Debug("broadcast delivery failed", logging.UserID(userID), logging.Error(err))
			continue
		}
		res.Sent++
	}
	s.finishBroadcast(ctx, logger, by, res, false)
	return res, nil
}

func (s *Service) finishBroadcast(ctx context.Context, logger *slog.Logger, by store.Actor, res BroadcastResult, aborted bool) {
	logger.Info("broadcast finished",
		logging.Int("sent", res.Sent),
		logging.Int("failed", res.Failed),
		logging.Bool("aborted", aborted),
	)
	s.writeLog(context.WithoutCancel(ctx), "broadcast", map[string]any{
		"job_id":   res.JobID,
		"admin_id": by.ID,
		"sent":     res.Sent,
		"failed":   res.Failed,
		"aborted":  aborted,
	})
}
