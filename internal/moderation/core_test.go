package moderation_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moderbot/internal/moderation"
	"moderbot/internal/notifier"
	"moderbot/internal/services"
	"moderbot/internal/store"
	"moderbot/internal/testsupport"
)

const (
	authorID       int64 = 42
	reasonTimeout        = 60 * time.Second
	reasonGrace          = 10 * time.Second
	rejectedReason       = "off-topic"
)

var (
	modA = store.Actor{ID: 501, Username: "alice"}
	modB = store.Actor{ID: 502, Username: "bob"}
)

type harness struct {
	core  *moderation.Core
	store *store.Store
	notes *testsupport.Notifier
	clock *fakeClock
	post  *store.Post
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets a test wrap the recording notifier the core talks to.
func newHarnessWith(t *testing.T, wrap func(*testsupport.Notifier) moderation.Notifier) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	notes := testsupport.NewNotifier()
	var sink moderation.Notifier = notes
	if wrap != nil {
		sink = wrap(notes)
	}
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	core := moderation.New(st, sink, moderation.Config{ReasonTimeout: reasonTimeout, ReasonGrace: reasonGrace}, nil, moderation.WithClock(clock))

	ctx := context.Background()
	_, err := st.CreateUser(ctx, store.User{ID: authorID, Username: "author"})
	require.NoError(t, err)
	h := &harness{core: core, store: st, notes: notes, clock: clock}
	h.post = h.newPost(t, "🧑 hello channel")
	return h
}

func (h *harness) newPost(t *testing.T, text string) *store.Post {
	t.Helper()
	post := testsupport.NewPendingPost(t, h.store, authorID, text)
	refs, err := h.core.PublishForReview(context.Background(), post)
	require.NoError(t, err)
	post.ReviewRefs = refs
	return post
}

func (h *harness) reload(t *testing.T, id int64) *store.Post {
	t.Helper()
	post, err := h.store.GetPost(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, post)
	return post
}

func (h *harness) moderatorView(t *testing.T, post *store.Post) string {
	t.Helper()
	view, ok := h.notes.View(post.ReviewRefs.Moderators)
	require.True(t, ok, "moderator view was never rendered")
	require.NotEmpty(t, view.Controls)
	return view.Controls[0][0].Data
}

func (h *harness) moderatorMessages(substr string) int {
	n := 0
	for _, call := range h.notes.Calls(testsupport.SendModerators) {
		if strings.Contains(call.View.Text, substr) {
			n++
		}
	}
	return n
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestPublishForReviewStoresRefs(t *testing.T) {
	h := newHarness(t)

	assert.False(t, h.post.ReviewRefs.Moderators.IsZero())
	assert.False(t, h.post.ReviewRefs.Admins.IsZero())

	stored := h.reload(t, h.post.ID)
	assert.Equal(t, h.post.ReviewRefs, stored.ReviewRefs)

	view, ok := h.notes.View(stored.ReviewRefs.Moderators)
	require.True(t, ok)
	assert.True(t, view.Equal(moderation.ModeratorView(stored)))

	admin, ok := h.notes.View(stored.ReviewRefs.Admins)
	require.True(t, ok)
	assert.Contains(t, admin.Text, "@author")
	assert.Empty(t, admin.Controls)
}

func TestPublishForReviewReportsRenderFailures(t *testing.T) {
	h := newHarness(t)
	h.notes.FailOn(testsupport.RenderModerators, errors.New("topic closed"))

	post := testsupport.NewPendingPost(t, h.store, authorID, "👩 second")
	refs, err := h.core.PublishForReview(context.Background(), post)
	require.Error(t, err)
	assert.Equal(t, services.KindNotification, services.Classify(err))
	assert.True(t, refs.Moderators.IsZero())
	assert.False(t, refs.Admins.IsZero())
	assert.Equal(t, store.StatusPending, h.reload(t, post.ID).Status())
}

func TestPublishCommitsAfterDelivery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	outcome, err := h.core.Publish(ctx, h.post.ID, modA)
	require.NoError(t, err)
	assert.Equal(t, moderation.OK, outcome)

	post := h.reload(t, h.post.ID)
	published, ok := post.State.(store.Published)
	require.True(t, ok, "state = %T", post.State)
	assert.Equal(t, modA, published.Moderator)
	assert.True(t, published.At.Equal(h.clock.Now()))

	require.Len(t, h.notes.Calls(testsupport.PublishChannel), 1)
	assert.Equal(t, moderation.DataDisabled, h.moderatorView(t, post))

	admin, _ := h.notes.View(post.ReviewRefs.Admins)
	assert.Contains(t, admin.Text, "published")
	assert.Equal(t, "who_pub_"+itoa(post.ID), admin.Controls[0][0].Data)

	notified := h.notes.Calls(testsupport.NotifyUser)
	require.Len(t, notified, 1)
	assert.Equal(t, authorID, notified[0].UserID)
	assert.Equal(t, 1, h.moderatorMessages("Post published"))

	logs, err := h.store.RecentLogs(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "publish", logs[0].Action)
}

func TestPublishTwiceDeliversOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	outcome, err := h.core.Publish(ctx, h.post.ID, modA)
	require.NoError(t, err)
	require.Equal(t, moderation.OK, outcome)

	for i := 0; i < 2; i++ {
		outcome, err = h.core.Publish(ctx, h.post.ID, modB)
		require.NoError(t, err)
		assert.Equal(t, moderation.AlreadyDecided, outcome)
	}
	assert.Len(t, h.notes.Calls(testsupport.PublishChannel), 1)
	published := h.reload(t, h.post.ID).State.(store.Published)
	assert.Equal(t, modA.ID, published.Moderator.ID)
}

func TestPublishDeliveryFailureKeepsPostPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.notes.FailOn(testsupport.PublishChannel, errors.New("channel unreachable"))

	outcome, err := h.core.Publish(ctx, h.post.ID, modA)
	assert.Equal(t, moderation.DeliveryFailed, outcome)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrDelivery)
	assert.Equal(t, services.KindDelivery, outcome.Kind())
	assert.Equal(t, store.StatusPending, h.reload(t, h.post.ID).Status())
	assert.Empty(t, h.notes.Calls(testsupport.NotifyUser))

	h.notes.FailOn(testsupport.PublishChannel, nil)
	outcome, err = h.core.Publish(ctx, h.post.ID, modA)
	require.NoError(t, err)
	assert.Equal(t, moderation.OK, outcome)
	assert.Equal(t, store.StatusPublished, h.reload(t, h.post.ID).Status())
}

func TestPublishMissingPost(t *testing.T) {
	h := newHarness(t)
	outcome, err := h.core.Publish(context.Background(), 9999, modA)
	require.NoError(t, err)
	assert.Equal(t, moderation.NotFound, outcome)
	assert.Empty(t, h.notes.Calls(testsupport.PublishChannel))
}

func TestRejectAfterPublishIsAlreadyDecided(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	outcome, err := h.core.Publish(ctx, h.post.ID, modA)
	require.NoError(t, err)
	require.Equal(t, moderation.OK, outcome)

	outcome, err = h.core.RequestReject(ctx, h.post.ID, modB)
	require.NoError(t, err)
	assert.Equal(t, moderation.AlreadyDecided, outcome)
	assert.Empty(t, h.core.Outstanding())
	assert.Zero(t, h.clock.Armed())

	post := h.reload(t, h.post.ID)
	assert.Equal(t, store.StatusPublished, post.Status())
	assert.Equal(t, modA.ID, post.State.(store.Published).Moderator.ID)
}

func TestSupplyReasonRejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	outcome, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)
	require.Equal(t, moderation.OK, outcome)
	assert.Equal(t, "cancel_rej_"+itoa(h.post.ID), h.moderatorView(t, h.post))
	assert.Equal(t, 1, h.moderatorMessages("rejection reason"))

	target, ok := h.core.ReasonTarget(modA.ID)
	require.True(t, ok)
	assert.Equal(t, h.post.ID, target)

	h.clock.Advance(30 * time.Second)
	outcome, err = h.core.SupplyReason(ctx, h.post.ID, modA, "  "+rejectedReason+"  ")
	require.NoError(t, err)
	assert.Equal(t, moderation.OK, outcome)

	post := h.reload(t, h.post.ID)
	rejected, ok := post.State.(store.Rejected)
	require.True(t, ok, "state = %T", post.State)
	assert.Equal(t, rejectedReason, rejected.Reason)
	assert.Equal(t, modA, rejected.Moderator)
	assert.Equal(t, moderation.DataDisabled, h.moderatorView(t, post))
	assert.Zero(t, h.clock.Armed())
	assert.Empty(t, h.core.Outstanding())

	notified := h.notes.Calls(testsupport.NotifyUser)
	require.Len(t, notified, 1)
	assert.Contains(t, notified[0].View.Text, rejectedReason)
	assert.Contains(t, notified[0].View.Text, "@alice")

	_, ok = h.core.ReasonTarget(modA.ID)
	assert.False(t, ok)

	outcome, err = h.core.SupplyReason(ctx, h.post.ID, modA, "again")
	require.NoError(t, err)
	assert.Equal(t, moderation.NotFound, outcome)
}

func TestSupplyReasonRejectsEmptyReason(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)

	_, err = h.core.SupplyReason(ctx, h.post.ID, modA, "   ")
	assert.ErrorIs(t, err, moderation.ErrEmptyReason)
	assert.Equal(t, services.KindPolicy, moderation.Classify(err))
	assert.Len(t, h.core.Outstanding(), 1)
}

func TestSupplyReasonFromOtherModeratorIsNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)

	outcome, err := h.core.SupplyReason(ctx, h.post.ID, modB, rejectedReason)
	require.NoError(t, err)
	assert.Equal(t, moderation.NotFound, outcome)
	assert.Equal(t, store.StatusPending, h.reload(t, h.post.ID).Status())
	assert.Len(t, h.core.Outstanding(), 1)
}

func TestWatchdogRestoresReviewAfterTimeout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	original := moderation.ModeratorView(h.post)

	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)

	h.clock.Advance(59 * time.Second)
	assert.Len(t, h.core.Outstanding(), 1)

	h.clock.Advance(2 * time.Second)
	assert.Empty(t, h.core.Outstanding())
	assert.Equal(t, store.StatusPending, h.reload(t, h.post.ID).Status())

	view, ok := h.notes.View(h.post.ReviewRefs.Moderators)
	require.True(t, ok)
	assert.True(t, view.Equal(original), "review not restored: %+v", view)
	assert.Equal(t, 1, h.moderatorMessages("Time to give a reason is up"))
}

func TestSupplyReasonAfterTimeoutIsExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)

	h.clock.Advance(reasonTimeout + time.Second)

	target, ok := h.core.ReasonTarget(modA.ID)
	require.True(t, ok)
	assert.Equal(t, h.post.ID, target)

	outcome, err := h.core.SupplyReason(ctx, h.post.ID, modA, rejectedReason)
	require.NoError(t, err)
	assert.Equal(t, moderation.Expired, outcome)
	assert.Equal(t, services.KindRaceLoss, outcome.Kind())
	assert.Equal(t, store.StatusPending, h.reload(t, h.post.ID).Status())
	assert.Empty(t, h.notes.Calls(testsupport.NotifyUser))

	outcome, err = h.core.SupplyReason(ctx, h.post.ID, modA, rejectedReason)
	require.NoError(t, err)
	assert.Equal(t, moderation.NotFound, outcome)
}

func TestSupplyReasonHonoursGraceWhenWatchdogLags(t *testing.T) {
	tests := []struct {
		name    string
		skew    time.Duration
		outcome moderation.Outcome
		status  store.Status
	}{
		{name: "within grace", skew: reasonTimeout + 5*time.Second, outcome: moderation.OK, status: store.StatusRejected},
		{name: "past grace", skew: reasonTimeout + reasonGrace + time.Second, outcome: moderation.Expired, status: store.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			_, err := h.core.RequestReject(ctx, h.post.ID, modA)
			require.NoError(t, err)

			h.clock.Skew(tt.skew)
			outcome, err := h.core.SupplyReason(ctx, h.post.ID, modA, rejectedReason)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.status, h.reload(t, h.post.ID).Status())
			assert.Zero(t, h.clock.Armed())
		})
	}
}

func TestWatchdogAfterReasonIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)
	outcome, err := h.core.SupplyReason(ctx, h.post.ID, modA, rejectedReason)
	require.NoError(t, err)
	require.Equal(t, moderation.OK, outcome)

	edits := len(h.notes.Calls(testsupport.EditModerator))
	h.clock.Advance(2 * reasonTimeout)
	assert.Len(t, h.notes.Calls(testsupport.EditModerator), edits)
	assert.Zero(t, h.moderatorMessages("Time to give a reason is up"))
	assert.Equal(t, moderation.DataDisabled, h.moderatorView(t, h.post))
}

func TestCancelRejectRestoresOriginalControls(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	original, ok := h.notes.View(h.post.ReviewRefs.Moderators)
	require.True(t, ok)

	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)

	outcome, err := h.core.CancelReject(ctx, h.post.ID, modB)
	require.NoError(t, err)
	assert.Equal(t, moderation.Mismatch, outcome)

	outcome, err = h.core.CancelReject(ctx, h.post.ID, modA)
	require.NoError(t, err)
	assert.Equal(t, moderation.OK, outcome)

	restored, _ := h.notes.View(h.post.ReviewRefs.Moderators)
	assert.True(t, restored.Equal(original))
	assert.Equal(t, store.StatusPending, h.reload(t, h.post.ID).Status())
	assert.Zero(t, h.clock.Armed())

	outcome, err = h.core.CancelReject(ctx, h.post.ID, modA)
	require.NoError(t, err)
	assert.Equal(t, moderation.Mismatch, outcome)

	outcome, err = h.core.Publish(ctx, h.post.ID, modB)
	require.NoError(t, err)
	assert.Equal(t, moderation.OK, outcome)
}

func TestSecondModeratorRejectIsInProgress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)

	outcome, err := h.core.RequestReject(ctx, h.post.ID, modB)
	require.NoError(t, err)
	assert.Equal(t, moderation.InProgress, outcome)
	require.Len(t, h.core.Outstanding(), 1)
	assert.Equal(t, modA.ID, h.core.Outstanding()[0].Moderator.ID)
}

func TestNewRejectionReplacesModeratorsPrevious(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	second := h.newPost(t, "👩 another one")
	firstOriginal := moderation.ModeratorView(h.post)

	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)
	_, err = h.core.RequestReject(ctx, second.ID, modA)
	require.NoError(t, err)

	outstanding := h.core.Outstanding()
	require.Len(t, outstanding, 1)
	assert.Equal(t, second.ID, outstanding[0].PostID)
	assert.Equal(t, 1, h.clock.Armed())

	view, _ := h.notes.View(h.post.ReviewRefs.Moderators)
	assert.True(t, view.Equal(firstOriginal))

	target, ok := h.core.ReasonTarget(modA.ID)
	require.True(t, ok)
	assert.Equal(t, second.ID, target)
}

// gatedNotifier parks the next SendToModerators call until released.
type gatedNotifier struct {
	*testsupport.Notifier

	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedNotifier) hold() (<-chan struct{}, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gate = make(chan struct{})
	g.entered = make(chan struct{})
	gate := g.gate
	return g.entered, func() { close(gate) }
}

func (g *gatedNotifier) SendToModerators(ctx context.Context, view notifier.View) (store.MessageRef, error) {
	g.mu.Lock()
	gate, entered := g.gate, g.entered
	g.gate, g.entered = nil, nil
	g.mu.Unlock()
	if gate != nil {
		close(entered)
		<-gate
	}
	return g.Notifier.SendToModerators(ctx, view)
}

func TestReplacedRejectionDoesNotOverwriteNewerOne(t *testing.T) {
	gated := &gatedNotifier{}
	h := newHarnessWith(t, func(n *testsupport.Notifier) moderation.Notifier {
		gated.Notifier = n
		return gated
	})
	ctx := context.Background()
	second := h.newPost(t, "👩 another one")

	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)

	// modA moves on to the second post and stalls on the reason prompt, after
	// the first rejection left the registry but before it is rolled back.
	entered, release := gated.hold()
	done := make(chan moderation.Outcome, 1)
	go func() {
		outcome, err := h.core.RequestReject(ctx, second.ID, modA)
		if err != nil {
			outcome = ""
		}
		done <- outcome
	}()
	<-entered

	outcome, err := h.core.RequestReject(ctx, h.post.ID, modB)
	require.NoError(t, err)
	require.Equal(t, moderation.OK, outcome)

	release()
	require.Equal(t, moderation.OK, <-done)

	holders := map[int64]int64{}
	for _, pr := range h.core.Outstanding() {
		holders[pr.PostID] = pr.Moderator.ID
	}
	assert.Equal(t, map[int64]int64{h.post.ID: modB.ID, second.ID: modA.ID}, holders)
	assert.Equal(t, "cancel_rej_"+itoa(h.post.ID), h.moderatorView(t, h.post))

	outcome, err = h.core.SupplyReason(ctx, h.post.ID, modB, rejectedReason)
	require.NoError(t, err)
	assert.Equal(t, moderation.OK, outcome)
	assert.Equal(t, store.StatusRejected, h.reload(t, h.post.ID).Status())
}

func TestExpiredRejectionIsForgottenAfterGrace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)

	h.clock.Advance(reasonTimeout + time.Second)
	target, ok := h.core.ReasonTarget(modA.ID)
	require.True(t, ok, "a reason just after the timeout is still answered")
	assert.Equal(t, h.post.ID, target)

	h.clock.Advance(reasonGrace)
	_, ok = h.core.ReasonTarget(modA.ID)
	assert.False(t, ok)

	outcome, err := h.core.SupplyReason(ctx, h.post.ID, modA, "hours later")
	require.NoError(t, err)
	assert.Equal(t, moderation.NotFound, outcome)
	assert.Equal(t, 1, h.moderatorMessages("Time to give a reason is up"))
}

func TestPublishDiscardsPendingRejection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)

	outcome, err := h.core.Publish(ctx, h.post.ID, modB)
	require.NoError(t, err)
	require.Equal(t, moderation.OK, outcome)
	assert.Empty(t, h.core.Outstanding())
	assert.Zero(t, h.clock.Armed())

	outcome, err = h.core.SupplyReason(ctx, h.post.ID, modA, rejectedReason)
	require.NoError(t, err)
	assert.Equal(t, moderation.NotFound, outcome)
	assert.Equal(t, store.StatusPublished, h.reload(t, h.post.ID).Status())
}

func TestConcurrentDecisionsHaveOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		published int
		rejected  int
	)
	for i := 0; i < 8; i++ {
		moderator := store.Actor{ID: int64(600 + i)}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				outcome, err := h.core.Publish(ctx, h.post.ID, moderator)
				assert.NoError(t, err)
				if outcome == moderation.OK {
					mu.Lock()
					published++
					mu.Unlock()
				}
				return
			}
			outcome, err := h.core.RequestReject(ctx, h.post.ID, moderator)
			assert.NoError(t, err)
			if outcome != moderation.OK {
				return
			}
			if i == 3 {
				h.clock.Advance(reasonTimeout)
			}
			outcome, err = h.core.SupplyReason(ctx, h.post.ID, moderator, rejectedReason)
			assert.NoError(t, err)
			if outcome == moderation.OK {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	post := h.reload(t, h.post.ID)
	deliveries := len(h.notes.Calls(testsupport.PublishChannel))
	assert.LessOrEqual(t, published+rejected, 1)
	assert.Equal(t, published, deliveries)
	switch post.Status() {
	case store.StatusPublished:
		assert.Equal(t, 1, published)
		assert.Zero(t, rejected)
	case store.StatusRejected:
		assert.Equal(t, 1, rejected)
		assert.Zero(t, published)
	case store.StatusPending:
		assert.Zero(t, published+rejected)
	}
}

func TestShutdownRestoresOpenRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	original := moderation.ModeratorView(h.post)
	_, err := h.core.RequestReject(ctx, h.post.ID, modA)
	require.NoError(t, err)

	assert.Equal(t, 1, h.core.Shutdown(ctx))
	assert.Empty(t, h.core.Outstanding())
	assert.Zero(t, h.clock.Armed())
	view, _ := h.notes.View(h.post.ReviewRefs.Moderators)
	assert.True(t, view.Equal(original))
}
