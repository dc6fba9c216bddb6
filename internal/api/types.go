package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Actor identifies a moderator or admin.
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Post describes a submission in a transport-friendly format.
type Post struct {
	ID           int64  `json:"id"`
	AuthorID     int64  `json:"authorId"`
	Text         string `json:"text"`
	PhotoID      string `json:"photoId,omitempty"`
	Status       string `json:"status"`
	SubmittedAt  string `json:"submittedAt,omitempty"`
	Moderator    *Actor `json:"moderator,omitempty"`
	DecidedAt    string `json:"decidedAt,omitempty"`
	RejectReason string `json:"rejectReason,omitempty"`
}

// Ban is an active ban.
type Ban struct {
	UserID   int64  `json:"userId"`
	Reason   string `json:"reason"`
	Admin    Actor  `json:"admin"`
	BannedAt string `json:"bannedAt,omitempty"`
}

// Keyword is a blacklist entry.
type Keyword struct {
	Keyword string `json:"keyword"`
	AddedBy int64  `json:"addedBy,omitempty"`
	AddedAt string `json:"addedAt,omitempty"`
}

// Subscription is a required subscription. Index is its 1-based position,
// the handle used for removal.
type Subscription struct {
	Index    int    `json:"index"`
	Type     string `json:"type"`
	TargetID int64  `json:"targetId,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
}

// LogEntry is an action log record.
type LogEntry struct {
	ID     int64           `json:"id"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
	At     string          `json:"at"`
}

// Stats mirrors the /stats report.
type Stats struct {
	Users         int            `json:"users"`
	UsersToday    int            `json:"usersToday"`
	Bans          int            `json:"bans"`
	Keywords      int            `json:"keywords"`
	Subscriptions int            `json:"subscriptions"`
	Posts         map[string]int `json:"posts"`
	PostsTotal    int            `json:"postsTotal"`
	PostsToday    int            `json:"postsToday"`
	ServerTime    string         `json:"serverTime"`
}

// PendingRejection is an open reject-reason interaction.
type PendingRejection struct {
	PostID    int64  `json:"postId"`
	Moderator Actor  `json:"moderator"`
	Deadline  string `json:"deadline"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	PendingPosts int                `json:"pendingPosts"`
	Rejections   []PendingRejection `json:"rejections"`
}

// BanRequest bans UserID. An empty Reason uses the default.
type BanRequest struct {
	UserID  int64  `json:"userId"`
	Reason  string `json:"reason,omitempty"`
	AdminID int64  `json:"adminId,omitempty"`
}

// KeywordRequest adds a blacklist keyword.
type KeywordRequest struct {
	Keyword string `json:"keyword"`
	AdminID int64  `json:"adminId,omitempty"`
}

// SubscriptionRequest adds a required subscription.
type SubscriptionRequest struct {
	Type     string `json:"type"`
	TargetID int64  `json:"targetId,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	URL      string `json:"url,omitempty"`
	AdminID  int64  `json:"adminId,omitempty"`
}

// BroadcastRequest sends Text, optionally with a photo, to every user.
type BroadcastRequest struct {
	Text    string `json:"text"`
	PhotoID string `json:"photoId,omitempty"`
	AdminID int64  `json:"adminId,omitempty"`
}

// BroadcastResponse counts deliveries.
type BroadcastResponse struct {
	JobID  string `json:"jobId"`
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
}

// PostListResponse wraps a collection of posts.
type PostListResponse struct {
	Items []Post `json:"items"`
}

// PostResponse wraps a single post.
type PostResponse struct {
	Item Post `json:"item"`
}

// BanListResponse wraps the ban list.
type BanListResponse struct {
	Items []Ban `json:"items"`
}

// KeywordListResponse wraps the blacklist.
type KeywordListResponse struct {
	Items []Keyword `json:"items"`
}

// KeywordResponse reports the stored form of a keyword.
type KeywordResponse struct {
	Keyword string `json:"keyword"`
}

// SubscriptionListResponse wraps the requirement list.
type SubscriptionListResponse struct {
	Items []Subscription `json:"items"`
}

// SubscriptionResponse wraps one requirement.
type SubscriptionResponse struct {
	Item Subscription `json:"item"`
}

// LogListResponse wraps action log entries, newest first.
type LogListResponse struct {
	Items []LogEntry `json:"items"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}
