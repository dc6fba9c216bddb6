package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const postColumns = "id, user_id, text, photo_id, submitted_at, status, moderator_id, moderator_username, decided_at, reject_reason, moderators_chat_id, moderators_message_id, admins_chat_id, admins_message_id"

func scanPost(scanner rowScanner) (*Post, error) {
	var (
		post          Post
		photo         sql.NullString
		submittedRaw  sql.NullString
		statusRaw     string
		moderatorID   sql.NullInt64
		moderatorName sql.NullString
		decidedRaw    sql.NullString
		reason        sql.NullString
		modChat       sql.NullInt64
		modMessage    sql.NullInt64
		adminChat     sql.NullInt64
		adminMessage  sql.NullInt64
	)
	if err := scanner.Scan(
		&post.ID,
		&post.AuthorID,
		&post.Text,
		&photo,
		&submittedRaw,
		&statusRaw,
		&moderatorID,
		&moderatorName,
		&decidedRaw,
		&reason,
		&modChat,
		&modMessage,
		&adminChat,
		&adminMessage,
	); err != nil {
		return nil, err
	}

	post.PhotoID = photo.String
	post.SubmittedAt = parseTime(submittedRaw)
	post.ReviewRefs = ReviewRefs{
		Moderators: MessageRef{ChatID: modChat.Int64, MessageID: modMessage.Int64},
		Admins:     MessageRef{ChatID: adminChat.Int64, MessageID: adminMessage.Int64},
	}

	moderator := Actor{ID: moderatorID.Int64, Username: moderatorName.String}
	decidedAt := parseTime(decidedRaw)
	switch Status(statusRaw) {
	case StatusPending:
		post.State = Pending{}
	case StatusPublished:
		post.State = Published{Moderator: moderator, At: decidedAt}
	case StatusRejected:
		post.State = Rejected{Moderator: moderator, At: decidedAt, Reason: reason.String}
	default:
		return nil, fmt.Errorf("post %d: unknown status %q", post.ID, statusRaw)
	}
	return &post, nil
}

// CreatePost inserts a pending post and returns it with its assigned id.
func (s *Store) CreatePost(ctx context.Context, in NewPost) (*Post, error) {
	if strings.TrimSpace(in.Text) == "" && in.PhotoID == "" {
		return nil, errors.New("create post: empty content")
	}
	submitted := in.SubmittedAt
	if submitted.IsZero() {
		submitted = s.now()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO posts (user_id, text, photo_id, submitted_at, status) VALUES (?, ?, ?, ?, ?)`,
		in.AuthorID, in.Text, nullableString(in.PhotoID), formatTime(submitted), StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("post id: %w", err)
	}
	return &Post{
		ID:          id,
		AuthorID:    in.AuthorID,
		Text:        in.Text,
		PhotoID:     in.PhotoID,
		SubmittedAt: submitted.UTC().Truncate(time.Microsecond),
		State:       Pending{},
	}, nil
}

// GetPost returns the post or nil when it does not exist.
func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return post, nil
}

// SetPostStatus moves post id from the from status to the state to, only if
// the row still has status from. It reports whether the transition committed.
// Transitions out of a terminal status are refused without touching the row.
func (s *Store) SetPostStatus(ctx context.Context, id int64, from Status, to State) (bool, error) {
	if from.Terminal() {
		return false, nil
	}
	if to == nil || to.Status() == from {
		return false, fmt.Errorf("set post %d status: no transition from %s", id, from)
	}

	type decision struct {
		moderator Actor
		at        time.Time
		reason    string
	}
	d := MatchState(to,
		func(Pending) decision { return decision{} },
		func(p Published) decision { return decision{moderator: p.Moderator, at: p.At} },
		func(r Rejected) decision { return decision{moderator: r.Moderator, at: r.At, reason: r.Reason} },
	)
	if d.at.IsZero() {
		d.at = s.now()
	}

	changed, err := s.execAffected(ctx,
		`UPDATE posts
		 SET status = ?, moderator_id = ?, moderator_username = ?, decided_at = ?, reject_reason = ?
		 WHERE id = ? AND status = ?`,
		to.Status(), d.moderator.ID, nullableString(d.moderator.Username), formatTime(d.at), nullableString(d.reason),
		id, from,
	)
	if err != nil {
		return false, fmt.Errorf("set post %d status: %w", id, err)
	}
	return changed, nil
}

// SetReviewRefs records where the post was rendered for moderators and admins.
// Zero refs leave the stored value untouched.
func (s *Store) SetReviewRefs(ctx context.Context, id int64, refs ReviewRefs) error {
	_, err := s.execWithRetry(ctx,
		`UPDATE posts SET
		   moderators_chat_id = COALESCE(?, moderators_chat_id),
		   moderators_message_id = COALESCE(?, moderators_message_id),
		   admins_chat_id = COALESCE(?, admins_chat_id),
		   admins_message_id = COALESCE(?, admins_message_id)
		 WHERE id = ?`,
		nullableInt(refs.Moderators.ChatID), nullableInt(refs.Moderators.MessageID),
		nullableInt(refs.Admins.ChatID), nullableInt(refs.Admins.MessageID),
		id,
	)
	if err != nil {
		return fmt.Errorf("set review refs for post %d: %w", id, err)
	}
	return nil
}

// ListPosts returns the newest posts first. An empty status lists every post.
func (s *Store) ListPosts(ctx context.Context, status Status, limit int) ([]*Post, error) {
	query := "SELECT " + postColumns + " FROM posts"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// CountPostsByUserSince counts posts userID submitted at or after since.
func (s *Store) CountPostsByUserSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT COUNT(1) FROM posts WHERE user_id = ? AND submitted_at >= ?",
		userID, formatTime(since),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts for user %d: %w", userID, err)
	}
	return count, nil
}
