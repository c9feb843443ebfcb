package models

import "time"

type RealTimeMessageKind = string

const (
	MessageKindNewPost       = RealTimeMessageKind("new-post")
	MessageKindLikeUpdate    = RealTimeMessageKind("like-update")
	MessageKindCommentUpdate = RealTimeMessageKind("comment-update")
	MessageKindUserOnline    = RealTimeMessageKind("user-online")
	MessageKindHeartbeat     = RealTimeMessageKind("heartbeat")
)

// RealTimeMessage is one event on the real-time channel, inbound or outbound.
// Heartbeats are consumed by the channel itself and never reach subscribers.
type RealTimeMessage struct {
	ID        string              `json:"id" validate:"required"`
	Kind      RealTimeMessageKind `json:"kind" validate:"required"`
	Payload   map[string]string   `json:"payload"`
	CreatedAt time.Time           `json:"created_at"`
}
