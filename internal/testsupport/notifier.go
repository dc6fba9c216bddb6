package testsupport

import (
	"context"
	"sync"

	"moderbot/internal/notifier"
	"moderbot/internal/store"
)

// Notifier method names recorded by the fake.
const (
	RenderModerators = "RenderToModerators"
	RenderAdmins     = "RenderToAdmins"
	EditModerator    = "EditModeratorView"
	EditAdmin        = "EditAdminView"
	SendModerators   = "SendToModerators"
	SendAdmins       = "SendToAdmins"
	NotifyUser       = "NotifyUser"
	PublishChannel   = "PublishToChannel"
)

// NotifierCall is one recorded render.
type NotifierCall struct {
	Method string
	Ref    store.MessageRef
	UserID int64
	View   notifier.View
}

// Notifier is an in-memory notifier.Service that remembers the latest render
// of every message it produced.
type Notifier struct {
	mu       sync.Mutex
	nextID   int64
	calls    []NotifierCall
	views    map[store.MessageRef]notifier.View
	failures map[string]error
	blocked  map[int64]error
}

// NewNotifier returns an empty recording notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		views:    make(map[store.MessageRef]notifier.View),
		failures: make(map[string]error),
		blocked:  make(map[int64]error),
	}
}

// FailOn makes every call to method return err. A nil err clears the failure.
func (n *Notifier) FailOn(method string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.failures, method)
		return
	}
	n.failures[method] = err
}

// BlockUser makes NotifyUser fail for userID only.
func (n *Notifier) BlockUser(userID int64, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.blocked[userID] = err
}

// Calls returns the recorded calls to method, or every call when method is empty.
func (n *Notifier) Calls(method string) []NotifierCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []NotifierCall
	for _, c := range n.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// View returns the current render of ref.
func (n *Notifier) View(ref store.MessageRef) (notifier.View, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.views[ref]
	return v, ok
}

func (n *Notifier) record(method string, chatID, userID int64, view notifier.View) (store.MessageRef, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	call := NotifierCall{Method: method, UserID: userID, View: view}
	if err := n.failures[method]; err != nil {
		n.calls = append(n.calls, call)
		return store.MessageRef{}, err
	}
	n.nextID++
	call.Ref = store.MessageRef{ChatID: chatID, MessageID: n.nextID}
	n.views[call.Ref] = view
	n.calls = append(n.calls, call)
	return call.Ref, nil
}

func (n *Notifier) edit(method string, ref store.MessageRef, view notifier.View) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, NotifierCall{Method: method, Ref: ref, View: view})
	if err := n.failures[method]; err != nil {
		return err
	}
	if ref.IsZero() {
		return notifier.ErrNoRef
	}
	n.views[ref] = view
	return nil
}

func (n *Notifier) RenderToModerators(_ context.Context, view notifier.View) (store.MessageRef, error) {
	return n.record(RenderModerators, ModeratorsChatID, 0, view)
}

func (n *Notifier) RenderToAdmins(_ context.Context, view notifier.View) (store.MessageRef, error) {
	return n.record(RenderAdmins, AdminsChatID, 0, view)
}

func (n *Notifier) EditModeratorView(_ context.Context, ref store.MessageRef, view notifier.View) error {
	return n.edit(EditModerator, ref, view)
}

func (n *Notifier) EditAdminView(_ context.Context, ref store.MessageRef, view notifier.View) error {
	return n.edit(EditAdmin, ref, view)
}

func (n *Notifier) SendToModerators(_ context.Context, view notifier.View) (store.MessageRef, error) {
	return n.record(SendModerators, ModeratorsChatID, 0, view)
}

func (n *Notifier) SendToAdmins(_ context.Context, view notifier.View) (store.MessageRef, error) {
	return n.record(SendAdmins, AdminsChatID, 0, view)
}

func (n *Notifier) NotifyUser(_ context.Context, userID int64, view notifier.View) error {
	n.mu.Lock()
	blocked := n.blocked[userID]
	n.mu.Unlock()
	if blocked != nil {
		return blocked
	}
	_, err := n.record(NotifyUser, userID, userID, view)
	return err
}

func (n *Notifier) PublishToChannel(_ context.Context, view notifier.View) (store.MessageRef, error) {
	return n.record(PublishChannel, MainChannelID, 0, view)
}

var _ notifier.Service = (*Notifier)(nil)
