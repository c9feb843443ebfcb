package services

import (
	"sync"

	"github.com/seralia/feedsync/pkg/internal/events"
	"github.com/seralia/feedsync/pkg/internal/models"
)

// StateSnapshot is one consistent view of the three status fields. Subscribers
// always receive a whole snapshot, never a field mid-transition.
type StateSnapshot struct {
	Feed         models.FeedState
	Network      models.NetworkState
	Sync         models.SyncState
	PendingCount int
}

// AppState projects the latest feed, network and sync signals into one
// observable value. It is a projection, not a guarded automaton: it accepts
// whatever the coordinator tells it, and the coordinator is on the hook for
// not emitting contradictory signals.
type AppState struct {
	Updates events.Stream[StateSnapshot]

	mu      sync.Mutex
	feed    models.FeedState
	network models.NetworkState
	sync    models.SyncState
	pending map[string]struct{}
}

func NewAppState() *AppState {
	return &AppState{
		feed:    models.FeedStateOf(models.FeedStateIdle),
		network: models.NetworkStateDisconnected,
		sync:    models.SyncStateSynced,
		pending: make(map[string]struct{}),
	}
}

func (s *AppState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *AppState) snapshotLocked() StateSnapshot {
	return StateSnapshot{
		Feed:         s.feed,
		Network:      s.network,
		Sync:         s.sync,
		PendingCount: len(s.pending),
	}
}

func (s *AppState) SetFeedState(state models.FeedState) {
	s.mu.Lock()
	s.feed = state
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.Updates.Publish(snap)
}

func (s *AppState) TransitionToLoading() {
	s.SetFeedState(models.FeedStateOf(models.FeedStateLoading))
}

func (s *AppState) TransitionToRefreshing() {
	s.SetFeedState(models.FeedStateOf(models.FeedStateRefreshing))
}

func (s *AppState) TransitionToLoadingMore() {
	s.SetFeedState(models.FeedStateOf(models.FeedStateLoadingMore))
}

func (s *AppState) TransitionToError(message string) {
	s.SetFeedState(models.FeedStateErrorOf(message))
}

// UpdateNetworkState records connectivity. Losing the connection forces the
// feed offline but leaves the sync state alone: pending operations survive.
func (s *AppState) UpdateNetworkState(connected bool) {
	s.mu.Lock()
	if connected {
		s.network = models.NetworkStateConnected
	} else {
		s.network = models.NetworkStateDisconnected
		s.feed = models.FeedStateOf(models.FeedStateOffline)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.Updates.Publish(snap)
}

// SetNetworkConnecting marks the dial phase of the real-time channel.
func (s *AppState) SetNetworkConnecting() {
	s.mu.Lock()
	s.network = models.NetworkStateConnecting
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.Updates.Publish(snap)
}

// AddPendingOperation always moves the sync state to pending-changes.
func (s *AppState) AddPendingOperation(id string) {
	s.mu.Lock()
	s.pending[id] = struct{}{}
	s.sync = models.SyncStatePendingChanges
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.Updates.Publish(snap)
}

// RemovePendingOperation returns the sync state to synced only once the last
// tracked operation is gone.
func (s *AppState) RemovePendingOperation(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	if len(s.pending) == 0 {
		s.sync = models.SyncStateSynced
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.Updates.Publish(snap)
}

// SetSyncing flags an in-flight replay pass.
func (s *AppState) SetSyncing() {
	s.mu.Lock()
	s.sync = models.SyncStateSyncing
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.Updates.Publish(snap)
}
