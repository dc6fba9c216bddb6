package api

import (
	"encoding/json"
	"time"

	"moderbot/internal/admin"
	"moderbot/internal/moderation"
	"moderbot/internal/store"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func fromActor(a store.Actor) Actor {
	return Actor{ID: a.ID, Username: a.Username}
}

// FromPost converts a store post.
func FromPost(p *store.Post) Post {
	dto := Post{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		Text:        p.Text,
		PhotoID:     p.PhotoID,
		Status:      string(p.Status()),
		SubmittedAt: formatTime(p.SubmittedAt),
	}
	store.MatchState(p.State,
		func(store.Pending) struct{} { return struct{}{} },
		func(s store.Published) struct{} {
			m := fromActor(s.Moderator)
			dto.Moderator, dto.DecidedAt = &m, formatTime(s.At)
			return struct{}{}
		},
		func(s store.Rejected) struct{} {
			m := fromActor(s.Moderator)
			dto.Moderator, dto.DecidedAt, dto.RejectReason = &m, formatTime(s.At), s.Reason
			return struct{}{}
		},
	)
	return dto
}

// FromPosts converts a slice of posts.
func FromPosts(posts []*store.Post) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p != nil {
			out = append(out, FromPost(p))
		}
	}
	return out
}

// FromBan converts a store ban.
func FromBan(b store.Ban) Ban {
	return Ban{UserID: b.UserID, Reason: b.Reason, Admin: fromActor(b.Admin), BannedAt: formatTime(b.BannedAt)}
}

// FromKeyword converts a blacklist entry.
func FromKeyword(k store.Keyword) Keyword {
	return Keyword{Keyword: k.Keyword, AddedBy: k.AddedBy, AddedAt: formatTime(k.AddedAt)}
}

// FromSubscription converts a requirement at 1-based position index.
func FromSubscription(index int, s store.Subscription) Subscription {
	return Subscription{
		Index:    index,
		Type:     string(s.Type),
		TargetID: s.TargetID,
		Username: s.Username,
		Name:     s.Name,
		URL:      s.URL,
	}
}

// FromLogEntry converts an action log record. Data that is not valid JSON is
// wrapped as a JSON string.
func FromLogEntry(e store.LogEntry) LogEntry {
	data := json.RawMessage(e.Data)
	if e.Data == "" {
		data = nil
	} else if !json.Valid(data) {
		data, _ = json.Marshal(e.Data)
	}
	return LogEntry{ID: e.ID, Action: e.Action, Data: data, At: formatTime(e.At)}
}

// FromReport converts admin statistics.
func FromReport(r admin.Report) Stats {
	posts := make(map[string]int, len(store.AllStatuses()))
	for _, status := range store.AllStatuses() {
		posts[string(status)] = r.Posts[status]
	}
	return Stats{
		Users:         r.Users,
		UsersToday:    r.UsersToday,
		Bans:          r.Bans,
		Keywords:      r.Keywords,
		Subscriptions: r.Subscriptions,
		Posts:         posts,
		PostsTotal:    r.TotalPosts(),
		PostsToday:    r.PostsToday,
		ServerTime:    formatTime(r.ServerTime),
	}
}

// FromPendingRejections converts the moderation core's open rejections.
func FromPendingRejections(prs []moderation.PendingRejection) []PendingRejection {
	out := make([]PendingRejection, 0, len(prs))
	for _, pr := range prs {
		out = append(out, PendingRejection{
			PostID:    pr.PostID,
			Moderator: fromActor(pr.Moderator),
			Deadline:  formatTime(pr.Deadline),
		})
	}
	return out
}
