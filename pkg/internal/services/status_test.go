package services

import (
	"testing"

	"github.com/seralia/feedsync/pkg/internal/models"
)

func TestAppState_InitialSnapshot(t *testing.T) {
	state := NewAppState()
	snap := state.Snapshot()

	if snap.Feed.Code != models.FeedStateIdle {
		t.Errorf("feed = %s, want idle", snap.Feed.Code)
	}
	if snap.Network != models.NetworkStateDisconnected {
		t.Errorf("network = %s, want disconnected", snap.Network)
	}
	if snap.Sync != models.SyncStateSynced {
		t.Errorf("sync = %s, want synced", snap.Sync)
	}
}

func TestAppState_PendingOperationsDriveSyncState(t *testing.T) {
	state := NewAppState()

	state.AddPendingOperation("op-1")
	state.AddPendingOperation("op-2")
	if got := state.Snapshot().Sync; got != models.SyncStatePendingChanges {
		t.Fatalf("sync = %s, want pending-changes", got)
	}

	state.RemovePendingOperation("op-1")
	if got := state.Snapshot().Sync; got != models.SyncStatePendingChanges {
		t.Fatalf("sync after partial removal = %s, want pending-changes", got)
	}

	state.RemovePendingOperation("op-2")
	if got := state.Snapshot().Sync; got != models.SyncStateSynced {
		t.Fatalf("sync after full removal = %s, want synced", got)
	}
}

func TestAppState_DisconnectForcesOfflineAndKeepsSync(t *testing.T) {
	state := NewAppState()
	state.AddPendingOperation("op-1")
	state.SetFeedState(models.FeedStateOf(models.FeedStatePopulated))

	state.UpdateNetworkState(false)

	snap := state.Snapshot()
	if snap.Feed.Code != models.FeedStateOffline {
		t.Errorf("feed = %s, want offline", snap.Feed.Code)
	}
	if snap.Sync != models.SyncStatePendingChanges {
		t.Errorf("sync = %s, want pending-changes (operations survive)", snap.Sync)
	}
	if snap.Network != models.NetworkStateDisconnected {
		t.Errorf("network = %s, want disconnected", snap.Network)
	}
}

func TestAppState_ErrorCarriesMessage(t *testing.T) {
	state := NewAppState()
	state.TransitionToError("fetch blew up")

	snap := state.Snapshot()
	if snap.Feed.Code != models.FeedStateError {
		t.Fatalf("feed = %s, want error", snap.Feed.Code)
	}
	if snap.Feed.Message != "fetch blew up" {
		t.Fatalf("message = %q, want %q", snap.Feed.Message, "fetch blew up")
	}
}

func TestAppState_SubscribersSeeWholeSnapshots(t *testing.T) {
	state := NewAppState()

	var seen []StateSnapshot
	state.Updates.Subscribe(func(snap StateSnapshot) { seen = append(seen, snap) })

	state.AddPendingOperation("op-1")
	state.UpdateNetworkState(false)

	if len(seen) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(seen))
	}
	if seen[0].Sync != models.SyncStatePendingChanges || seen[0].PendingCount != 1 {
		t.Errorf("first snapshot = %+v, want pending-changes with one op", seen[0])
	}
	// The second snapshot reflects both the earlier sync change and the new
	// network change at once.
	if seen[1].Feed.Code != models.FeedStateOffline || seen[1].Sync != models.SyncStatePendingChanges {
		t.Errorf("second snapshot = %+v, want offline feed with sync untouched", seen[1])
	}
}

func TestAppState_RemovingUnknownOperationIsHarmless(t *testing.T) {
	state := NewAppState()
	state.RemovePendingOperation("never-added")

	if got := state.Snapshot().Sync; got != models.SyncStateSynced {
		t.Fatalf("sync = %s, want synced", got)
	}
}
