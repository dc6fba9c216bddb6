package testsupport

import (
	"context"
	"testing"

	"moderbot/internal/config"
	"moderbot/internal/store"
)

// MustOpenStore opens the database described by cfg and closes it on cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...store.Option) *store.Store {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st, err := store.Open(cfg.Paths.Database, opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// NewPendingPost inserts a pending post for tests.
func NewPendingPost(t testing.TB, st *store.Store, authorID int64, text string) *store.Post {
	t.Helper()

	post, err := st.CreatePost(context.Background(), store.NewPost{AuthorID: authorID, Text: text})
	if err != nil {
		t.Fatalf("store.CreatePost: %v", err)
	}
	return post
}
