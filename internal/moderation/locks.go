package moderation

import "sync"

// postLocks hands out one mutex per post id and forgets it once no caller holds
// or waits on it.
type postLocks struct {
	mu    sync.Mutex
	locks map[int64]*postLock
}

type postLock struct {
	mu   sync.Mutex
	refs int
}

func newPostLocks() *postLocks {
	return &postLocks{locks: make(map[int64]*postLock)}
}

// lock blocks until the caller owns postID and returns the matching unlock.
func (p *postLocks) lock(postID int64) func() {
	p.mu.Lock()
	l, ok := p.locks[postID]
	if !ok {
		l = &postLock{}
		p.locks[postID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, postID)
		}
		p.mu.Unlock()
	}
}
