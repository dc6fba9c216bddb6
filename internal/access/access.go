package access

import (
	"context"
	"errors"
	"time"

	"moderbot/internal/admin"
	"moderbot/internal/api"
	"moderbot/internal/store"
)

// Access provides admin operations regardless of HTTP or direct store backing.
type Access interface {
	Status(ctx context.Context) (api.DaemonStatus, error)
	Stats(ctx context.Context) (api.Stats, error)
	Posts(ctx context.Context, status string, limit int) ([]api.Post, error)
	Post(ctx context.Context, id int64) (*api.Post, error)
	Logs(ctx context.Context, limit int) ([]api.LogEntry, error)
	Bans(ctx context.Context) ([]api.Ban, error)
	Ban(ctx context.Context, req api.BanRequest) (api.Ban, error)
	Unban(ctx context.Context, userID, adminID int64) error
	Keywords(ctx context.Context) ([]api.Keyword, error)
	AddKeyword(ctx context.Context, req api.KeywordRequest) (string, error)
	RemoveKeyword(ctx context.Context, keyword string, adminID int64) (string, error)
	Subscriptions(ctx context.Context) ([]api.Subscription, error)
	AddSubscription(ctx context.Context, req api.SubscriptionRequest) (api.Subscription, error)
	RemoveSubscription(ctx context.Context, index int, adminID int64) (api.Subscription, error)
	Broadcast(ctx context.Context, req api.BroadcastRequest) (api.BroadcastResponse, error)
}

// Suggestion extracts a "did you mean" hint from a failed keyword removal.
func Suggestion(err error) string {
	var missing *admin.KeywordNotFoundError
	if errors.As(err, &missing) {
		return missing.Suggestion
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Suggestion
	}
	return ""
}

// NewStoreAccess returns an Access backed by an in-process admin service.
func NewStoreAccess(svc *api.Service, st *store.Store) Access {
	return &storeAccess{Service: svc, store: st}
}

type storeAccess struct {
	*api.Service
	store *store.Store
}

func (a *storeAccess) Status(ctx context.Context) (api.DaemonStatus, error) {
	stats, err := a.store.Stats(ctx, time.Now().UTC())
	if err != nil {
		return api.DaemonStatus{}, err
	}
	return api.DaemonStatus{
		Running:      false,
		DatabasePath: a.store.Path(),
		PendingPosts: stats.Posts[store.StatusPending],
	}, nil
}
