package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"moderbot/internal/config"
	"moderbot/internal/logging"
	"moderbot/internal/store"
)

// ErrNoSuchIndex is returned when a 1-based list position does not exist.
var ErrNoSuchIndex = errors.New("no subscription at that position")

// ErrInvalid is returned for subscriptions missing their identifying field.
var ErrInvalid = errors.New("invalid subscription")

// Store is the persistence the registry needs.
type Store interface {
	ListSubscriptions(ctx context.Context) ([]store.Subscription, error)
	AddSubscription(ctx context.Context, sub store.Subscription) (int64, error)
	RemoveSubscription(ctx context.Context, id int64) (bool, error)
	ResetSubscriptions(ctx context.Context) error
}

// Registry is the cached requirement list.
type Registry struct {
	store  Store
	logger *slog.Logger

	mu    sync.RWMutex
	cache []store.Subscription
}

// NewRegistry loads the requirement list, seeding it from configuration when
// the table is empty.
func NewRegistry(ctx context.Context, st Store, seed []config.Subscription, logger *slog.Logger) (*Registry, error) {
	r := &Registry{store: st, logger: logging.NewComponentLogger(logger, "subscriptions")}
	existing, err := st.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	if len(existing) == 0 && len(seed) > 0 {
		for _, s := range seed {
			sub := store.Subscription{
				Type:     store.SubscriptionType(s.Type),
				TargetID: s.ID,
				Username: s.Username,
				Name:     s.Name,
				URL:      s.URL,
			}
			if _, err := st.AddSubscription(ctx, normalize(sub)); err != nil && !errors.Is(err, store.ErrDuplicateSubscription) {
				return nil, fmt.Errorf("seed subscription %s: %w", s.Username, err)
			}
		}
		r.logger.Info("seeded required subscriptions from config", logging.Int("count", len(seed)))
	}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh reloads the mirror from the store.
func (r *Registry) Refresh(ctx context.Context) error {
	subs, err := r.store.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("refresh subscriptions: %w", err)
	}
	r.mu.Lock()
	r.cache = subs
	r.mu.Unlock()
	return nil
}

// List returns a copy of the current requirements in display order.
func (r *Registry) List() []store.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]store.Subscription(nil), r.cache...)
}

// Channels returns the verifiable requirements.
func (r *Registry) Channels() []store.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []store.Subscription
	for _, sub := range r.cache {
		if sub.Type == store.SubscriptionChannel {
			out = append(out, sub)
		}
	}
	return out
}

// Bots returns the display-only requirements.
func (r *Registry) Bots() []store.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []store.Subscription
	for _, sub := range r.cache {
		if sub.Type == store.SubscriptionBot {
			out = append(out, sub)
		}
	}
	return out
}

// Add stores a new requirement. A new channel clears every user's verified
// flag so the next submission is checked against it.
func (r *Registry) Add(ctx context.Context, sub store.Subscription) (store.Subscription, error) {
	sub = normalize(sub)
	if err := validate(sub); err != nil {
		return store.Subscription{}, err
	}
	id, err := r.store.AddSubscription(ctx, sub)
	if err != nil {
		return store.Subscription{}, err
	}
	sub.ID = id
	if sub.Type == store.SubscriptionChannel {
		if err := r.store.ResetSubscriptions(ctx); err != nil {
			return sub, err
		}
	}
	if err := r.Refresh(ctx); err != nil {
		return sub, err
	}
	r.logger.Info("subscription added",
		logging.String("type", string(sub.Type)),
		logging.String("username", sub.Username),
		logging.Int64("target_id", sub.TargetID),
	)
	return sub, nil
}

// RemoveAt deletes the requirement at 1-based position index of List.
func (r *Registry) RemoveAt(ctx context.Context, index int) (store.Subscription, error) {
	subs := r.List()
	if index < 1 || index > len(subs) {
		return store.Subscription{}, fmt.Errorf("remove subscription %d of %d: %w", index, len(subs), ErrNoSuchIndex)
	}
	sub := subs[index-1]
	removed, err := r.store.RemoveSubscription(ctx, sub.ID)
	if err != nil {
		return store.Subscription{}, err
	}
	if err := r.Refresh(ctx); err != nil {
		return sub, err
	}
	if !removed {
		return store.Subscription{}, fmt.Errorf("remove subscription %d: %w", index, ErrNoSuchIndex)
	}
	r.logger.Info("subscription removed", logging.String("username", sub.Username))
	return sub, nil
}

func normalize(sub store.Subscription) store.Subscription {
	sub.Type = store.SubscriptionType(strings.ToLower(strings.TrimSpace(string(sub.Type))))
	sub.Username = strings.TrimPrefix(strings.TrimSpace(sub.Username), "@")
	sub.Name = strings.TrimSpace(sub.Name)
	if sub.Name == "" {
		sub.Name = sub.Username
	}
	sub.URL = strings.TrimSpace(sub.URL)
	if sub.URL == "" && sub.Username != "" {
		sub.URL = "https://t.me/" + sub.Username
	}
	return sub
}

func validate(sub store.Subscription) error {
	switch sub.Type {
	case store.SubscriptionChannel:
		if sub.TargetID == 0 {
			return fmt.Errorf("%w: channel requires a numeric id", ErrInvalid)
		}
	case store.SubscriptionBot:
		if sub.Username == "" {
			return fmt.Errorf("%w: bot requires a username", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, sub.Type)
	}
	return nil
}
