package models

type FeedStateCode = string

const (
	FeedStateIdle        = FeedStateCode("idle")
	FeedStateLoading     = FeedStateCode("loading")
	FeedStateRefreshing  = FeedStateCode("refreshing")
	FeedStateLoadingMore = FeedStateCode("loading-more")
	FeedStateError       = FeedStateCode("error")
	FeedStateOffline     = FeedStateCode("offline")
	FeedStateEmpty       = FeedStateCode("empty")
	FeedStatePopulated   = FeedStateCode("populated")
)

// FeedState is exactly one of the feed status codes; only the error state
// carries a message.
type FeedState struct {
	Code    FeedStateCode `json:"code"`
	Message string        `json:"message,omitempty"`
}

func FeedStateOf(code FeedStateCode) FeedState {
	return FeedState{Code: code}
}

func FeedStateErrorOf(message string) FeedState {
	return FeedState{Code: FeedStateError, Message: message}
}

type NetworkState = string

const (
	NetworkStateConnected    = NetworkState("connected")
	NetworkStateConnecting   = NetworkState("connecting")
	NetworkStateDisconnected = NetworkState("disconnected")
)

type SyncState = string

const (
	SyncStateSynced         = SyncState("synced")
	SyncStateSyncing        = SyncState("syncing")
	SyncStatePendingChanges = SyncState("pending-changes")
	SyncStateConflict       = SyncState("conflict")
)
