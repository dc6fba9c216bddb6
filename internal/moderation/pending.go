package moderation

import (
	"sync"
	"time"

	"moderbot/internal/notifier"
	"moderbot/internal/store"
)

// PendingRejection is an in-progress "awaiting reason" interaction. It lives
// only in memory; a restart drops it and the post stays pending.
type PendingRejection struct {
	PostID    int64
	Moderator store.Actor
	Original  notifier.View
	Ref       store.MessageRef
	Deadline  time.Time

	token string
	timer Timer
}

// registry indexes outstanding rejections by post and by moderator. A
// moderator holds at most one.
type registry struct {
	mu          sync.Mutex
	byPost      map[int64]*PendingRejection
	byModerator map[int64]int64
	expired     map[int64]tombstone
}

// tombstone remembers a timed-out rejection so a reason arriving shortly
// after the watchdog fired is answered instead of ignored.
type tombstone struct {
	postID int64
	until  time.Time
}

func newRegistry() *registry {
	return &registry{
		byPost:      make(map[int64]*PendingRejection),
		byModerator: make(map[int64]int64),
		expired:     make(map[int64]tombstone),
	}
}

func (r *registry) lookup(postID int64) *PendingRejection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byPost[postID]
}

// insert stores pr, replacing any entry for the same post. The moderator's
// entry for a different post is removed and returned for rollback.
func (r *registry) insert(pr *PendingRejection) *PendingRejection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.byPost[pr.PostID]; existing != nil {
		r.removeLocked(existing)
	}
	var displaced *PendingRejection
	if otherPost, ok := r.byModerator[pr.Moderator.ID]; ok {
		displaced = r.byPost[otherPost]
		if displaced != nil {
			r.removeLocked(displaced)
		}
	}
	delete(r.expired, pr.Moderator.ID)
	r.byPost[pr.PostID] = pr
	r.byModerator[pr.Moderator.ID] = pr.PostID
	return displaced
}

// remove deletes the entry for postID when its token matches, or any entry
// when token is empty. The entry's timer is stopped.
func (r *registry) remove(postID int64, token string) (*PendingRejection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pr := r.byPost[postID]
	if pr == nil || (token != "" && pr.token != token) {
		return nil, false
	}
	r.removeLocked(pr)
	return pr, true
}

func (r *registry) removeLocked(pr *PendingRejection) {
	if pr.timer != nil {
		pr.timer.Stop()
	}
	delete(r.byPost, pr.PostID)
	if r.byModerator[pr.Moderator.ID] == pr.PostID {
		delete(r.byModerator, pr.Moderator.ID)
	}
}

// markExpired records a timed-out rejection until the given time.
func (r *registry) markExpired(moderatorID, postID int64, until time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired[moderatorID] = tombstone{postID: postID, until: until}
}

// consumeExpired reports, once, whether the moderator's rejection of postID
// timed out recently.
func (r *registry) consumeExpired(moderatorID, postID int64, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.liveTombstoneLocked(moderatorID, now)
	if !ok || ts.postID != postID {
		return false
	}
	delete(r.expired, moderatorID)
	return true
}

// target returns the post a moderator's next message is a reason for.
func (r *registry) target(moderatorID int64, now time.Time) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if postID, ok := r.byModerator[moderatorID]; ok {
		return postID, true
	}
	ts, ok := r.liveTombstoneLocked(moderatorID, now)
	return ts.postID, ok
}

// liveTombstoneLocked drops the moderator's tombstone once it is stale.
func (r *registry) liveTombstoneLocked(moderatorID int64, now time.Time) (tombstone, bool) {
	ts, ok := r.expired[moderatorID]
	if !ok {
		return tombstone{}, false
	}
	if now.After(ts.until) {
		delete(r.expired, moderatorID)
		return tombstone{}, false
	}
	return ts, true
}

func (r *registry) drain() []*PendingRejection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*PendingRejection, 0, len(r.byPost))
	for _, pr := range r.byPost {
		r.removeLocked(pr)
		out = append(out, pr)
	}
	return out
}

func (r *registry) snapshot() []PendingRejection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PendingRejection, 0, len(r.byPost))
	for _, pr := range r.byPost {
		out = append(out, PendingRejection{
			PostID:    pr.PostID,
			Moderator: pr.Moderator,
			Original:  pr.Original,
			Ref:       pr.Ref,
			Deadline:  pr.Deadline,
		})
	}
	return out
}
