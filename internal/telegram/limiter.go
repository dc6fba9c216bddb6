package telegram

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	chatLimiterIdle    = time.Hour
	chatLimiterMaxSize = 4096
)

// sendLimiter applies a global send budget plus one budget per chat.
type sendLimiter struct {
	global   *rate.Limiter
	interval time.Duration

	mu       sync.Mutex
	perChat  map[int64]*rate.Limiter
	lastSeen map[int64]time.Time
}

func newSendLimiter(perSecond float64, perChatInterval time.Duration) *sendLimiter {
	global := rate.NewLimiter(rate.Inf, 0)
	if perSecond > 0 {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		global = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return &sendLimiter{
		global:   global,
		interval: perChatInterval,
		perChat:  make(map[int64]*rate.Limiter),
		lastSeen: make(map[int64]time.Time),
	}
}

func (l *sendLimiter) wait(ctx context.Context, chatID int64) error {
	if limiter := l.chatLimiter(chatID); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return l.global.Wait(ctx)
}

func (l *sendLimiter) chatLimiter(chatID int64) *rate.Limiter {
	if l.interval <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	limiter, ok := l.perChat[chatID]
	if !ok {
		if len(l.perChat) >= chatLimiterMaxSize {
			l.prune(now)
		}
		limiter = rate.NewLimiter(rate.Every(l.interval), 3)
		l.perChat[chatID] = limiter
	}
	l.lastSeen[chatID] = now
	return limiter
}

func (l *sendLimiter) prune(now time.Time) {
	cutoff := now.Add(-chatLimiterIdle)
	for id, seen := range l.lastSeen {
		if seen.Before(cutoff) {
			delete(l.perChat, id)
			delete(l.lastSeen, id)
		}
	}
}
