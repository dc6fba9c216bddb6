package store

import (
	"fmt"
	"strings"
	"time"
)

// Status is the persisted form of a post's moderation state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

var allStatuses = []Status{StatusPending, StatusPublished, StatusRejected}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a user-supplied status name.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// Actor identifies the moderator or admin behind a decision.
type Actor struct {
	ID       int64
	Username string
}

// Display renders the actor as @username when known, else the numeric id.
func (a Actor) Display() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	return fmt.Sprintf("id%d", a.ID)
}

// State is the closed set of post states. Only Pending, Published, and
// Rejected implement it.
type State interface {
	Status() Status
	sealed()
}

// Pending is the initial state.
type Pending struct{}

// Published records who published the post and when.
type Published struct {
	Moderator Actor
	At        time.Time
}

// Rejected records who rejected the post, when, and why.
type Rejected struct {
	Moderator Actor
	At        time.Time
	Reason    string
}

func (Pending) Status() Status   { return StatusPending }
func (Published) Status() Status { return StatusPublished }
func (Rejected) Status() Status  { return StatusRejected }

func (Pending) sealed()   {}
func (Published) sealed() {}
func (Rejected) sealed()  {}

// MatchState dispatches on s. Every caller supplies all three branches, so
// adding a state breaks every call site at compile time.
func MatchState[T any](s State, pending func(Pending) T, published func(Published) T, rejected func(Rejected) T) T {
	switch v := s.(type) {
	case Published:
		return published(v)
	case Rejected:
		return rejected(v)
	case Pending, nil:
		return pending(Pending{})
	default:
		panic(fmt.Sprintf("store: unknown post state %T", s))
	}
}

// MessageRef addresses a rendered Bot API message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int64
}

// IsZero reports whether the ref was never captured.
func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 || r.MessageID == 0
}

// ReviewRefs are the moderator-facing and admin-facing renders of a post.
type ReviewRefs struct {
	Moderators MessageRef
	Admins     MessageRef
}

// Post is a user submission and its moderation outcome.
type Post struct {
	ID          int64
	AuthorID    int64
	Text        string
	PhotoID     string
	SubmittedAt time.Time
	State       State
	ReviewRefs  ReviewRefs
}

// Status is shorthand for p.State.Status().
func (p *Post) Status() Status {
	if p == nil || p.State == nil {
		return StatusPending
	}
	return p.State.Status()
}

// NewPost carries the fields a submission supplies.
type NewPost struct {
	AuthorID    int64
	Text        string
	PhotoID     string
	SubmittedAt time.Time
}

// User is a registered bot user.
type User struct {
	ID                   int64
	Username             string
	RegisteredAt         time.Time
	SubscriptionVerified bool
}

// Ban denies a user submission and most interactions.
type Ban struct {
	UserID   int64
	Reason   string
	Admin    Actor
	BannedAt time.Time
}

// Keyword is a blacklist entry, stored case-folded.
type Keyword struct {
	Keyword string
	AddedBy int64
	AddedAt time.Time
}

// SubscriptionType distinguishes verifiable channels from bots.
type SubscriptionType string

const (
	SubscriptionChannel SubscriptionType = "channel"
	SubscriptionBot     SubscriptionType = "bot"
)

// Subscription is one required external subscription.
type Subscription struct {
	ID       int64
	Type     SubscriptionType
	TargetID int64
	Username string
	Name     string
	URL      string
	AddedBy  int64
	AddedAt  time.Time
}

// LogEntry is one row of the append-only action log.
type LogEntry struct {
	ID     int64
	Action string
	Data   string
	At     time.Time
}

// Stats summarizes the database for the admin surface.
type Stats struct {
	Users         int
	UsersToday    int
	Bans          int
	Keywords      int
	Subscriptions int
	Posts         map[Status]int
	PostsToday    int
}

// TotalPosts sums posts across statuses.
func (s Stats) TotalPosts() int {
	total := 0
	for _, n := range s.Posts {
		total += n
	}
	return total
}
