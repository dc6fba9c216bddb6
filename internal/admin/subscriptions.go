package admin

import (
	"context"
	"errors"
	"fmt"

	"moderbot/internal/services"
	"moderbot/internal/store"
	"moderbot/internal/subscriptions"
)

// ErrSubscriptionsUnavailable is returned when no registry was configured.
var ErrSubscriptionsUnavailable = errors.New("subscription registry not configured")

// Subscriptions lists the required subscriptions in display order.
func (s *Service) Subscriptions() ([]store.Subscription, error) {
	if s.subs == nil {
		return nil, ErrSubscriptionsUnavailable
	}
	return s.subs.List(), nil
}

// AddSubscription adds a channel or bot requirement.
func (s *Service) AddSubscription(ctx context.Context, by store.Actor, sub store.Subscription) (store.Subscription, error) {
	if s.subs == nil {
		return store.Subscription{}, ErrSubscriptionsUnavailable
	}
	sub.AddedBy = by.ID
	if sub.AddedAt.IsZero() {
		sub.AddedAt = s.now()
	}
	added, err := s.subs.Add(ctx, sub)
	if err != nil {
		if errors.Is(err, subscriptions.ErrInvalid) {
			return store.Subscription{}, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		return store.Subscription{}, err
	}
	s.writeLog(ctx, "sub_add", map[string]any{
		"type":      string(added.Type),
		"target_id": added.TargetID,
		"username":  added.Username,
		"admin_id":  by.ID,
	})
	return added, nil
}

// RemoveSubscription removes the requirement at 1-based position index.
func (s *Service) RemoveSubscription(ctx context.Context, by store.Actor, index int) (store.Subscription, error) {
	if s.subs == nil {
		return store.Subscription{}, ErrSubscriptionsUnavailable
	}
	removed, err := s.subs.RemoveAt(ctx, index)
	if err != nil {
		if errors.Is(err, subscriptions.ErrNoSuchIndex) {
			return store.Subscription{}, fmt.Errorf("%w: %w", services.ErrNotFound, err)
		}
		return store.Subscription{}, err
	}
	s.writeLog(ctx, "sub_remove", map[string]any{
		"type":     string(removed.Type),
		"username": removed.Username,
		"admin_id": by.ID,
	})
	return removed, nil
}
