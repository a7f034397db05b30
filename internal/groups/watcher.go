package groups

import (
	"context"
	"log"
	"sync"

	"github.com/Redish03/StepCounter/internal/domain"
	"github.com/Redish03/StepCounter/internal/identity"
	"github.com/Redish03/StepCounter/internal/remote"
)

// WatchState is the subscription state machine position.
type WatchState int

const (
	// Unsubscribed means no live feeds are established.
	Unsubscribed WatchState = iota
	// WatchingUser means only the caller's own user document is watched.
	WatchingUser
	// WatchingGroup means a nested feed on the current group is also live.
	WatchingGroup
)

// Update carries the refreshed group and its members ranked by step count.
type Update struct {
	Group   domain.GroupInfo
	Members []domain.UserStepInfo
}

// Watcher chains two live subscriptions: the caller's user document (to learn
// groupId) and, while groupId is set, the group document. The previous group
// feed is always torn down before a new one is established, so a stale feed
// can never deliver cross-group notifications.
type Watcher struct {
	store  remote.Store
	ident  identity.Provider
	logger *log.Logger

	mu       sync.Mutex
	state    WatchState
	groupID  string
	userSub  remote.Subscription
	groupSub remote.Subscription
}

// NewWatcher constructs a stopped Watcher.
func NewWatcher(store remote.Store, ident identity.Provider, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.New(log.Writer(), "[watcher] ", log.LstdFlags)
	}
	return &Watcher{store: store, ident: ident, logger: logger}
}

// Watch starts the chain. onGroup receives every group change with members
// sorted by rank; onNoGroup fires whenever the caller has no group. Callbacks
// run on the store's notification goroutine.
func (w *Watcher) Watch(ctx context.Context, onGroup func(Update), onNoGroup func()) error {
	user, err := w.ident.CurrentUser(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.state != Unsubscribed {
		w.mu.Unlock()
		w.Stop()
		w.mu.Lock()
	}
	w.state = WatchingUser
	w.mu.Unlock()

	sub, err := w.store.Subscribe(ctx, usersCollection, user.UID, func(doc remote.Document) {
		w.onUserChange(ctx, doc, onGroup, onNoGroup)
	})
	if err != nil {
		w.mu.Lock()
		w.state = Unsubscribed
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	w.userSub = sub
	w.mu.Unlock()
	return nil
}

// Stop tears down both feeds.
func (w *Watcher) Stop() {
	w.mu.Lock()
	userSub, groupSub := w.userSub, w.groupSub
	w.userSub, w.groupSub = nil, nil
	w.groupID = ""
	w.state = Unsubscribed
	w.mu.Unlock()

	if groupSub != nil {
		groupSub.Stop()
	}
	if userSub != nil {
		userSub.Stop()
	}
}

// State reports the current machine position.
func (w *Watcher) State() WatchState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Watcher) onUserChange(ctx context.Context, doc remote.Document, onGroup func(Update), onNoGroup func()) {
	groupID := doc.String(fieldGroupID)

	w.mu.Lock()
	if w.state == Unsubscribed {
		w.mu.Unlock()
		return
	}
	if groupID == w.groupID && w.groupSub != nil {
		// Unrelated user-document change, e.g. a step merge.
		w.mu.Unlock()
		return
	}

	// Tear down the previous group feed before anything else.
	stale := w.groupSub
	w.groupSub = nil
	w.groupID = groupID

	if groupID == "" {
		w.state = WatchingUser
		w.mu.Unlock()
		if stale != nil {
			stale.Stop()
		}
		onNoGroup()
		return
	}
	w.state = WatchingGroup
	w.mu.Unlock()
	if stale != nil {
		stale.Stop()
	}

	sub, err := w.store.Subscribe(ctx, groupsCollection, groupID, func(groupDoc remote.Document) {
		w.onGroupChange(ctx, groupID, groupDoc, onGroup, onNoGroup)
	})
	if err != nil {
		w.logger.Printf("group subscription failed (group=%s): %v", groupID, err)
		return
	}

	w.mu.Lock()
	if w.groupID != groupID || w.state == Unsubscribed {
		w.mu.Unlock()
		sub.Stop()
		return
	}
	w.groupSub = sub
	w.mu.Unlock()
}

func (w *Watcher) onGroupChange(ctx context.Context, groupID string, doc remote.Document, onGroup func(Update), onNoGroup func()) {
	w.mu.Lock()
	current := w.groupID
	w.mu.Unlock()
	if current != groupID {
		// Stale feed racing its own teardown.
		return
	}

	if !doc.Exists {
		onNoGroup()
		return
	}

	group := groupFromDoc(doc)
	members, err := fetchMembers(ctx, w.store, group.Members)
	if err != nil {
		w.logger.Printf("member fetch failed (group=%s): %v", groupID, err)
		return
	}
	SortByRank(members)
	onGroup(Update{Group: group, Members: members})
}
