package models

import "time"

type PendingOperationKind = string

const (
	OperationKindLikePost      = PendingOperationKind("like-post")
	OperationKindCreatePost    = PendingOperationKind("create-post")
	OperationKindDeletePost    = PendingOperationKind("delete-post")
	OperationKindUpdateProfile = PendingOperationKind("update-profile")
)

// PendingOperation records a user mutation taken while disconnected. It lives
// in the durable queue until the replay pass gets an acknowledgement from the
// remote service for it.
type PendingOperation struct {
	ID        string               `json:"id" validate:"required"`
	Kind      PendingOperationKind `json:"kind" validate:"required,oneof=like-post create-post delete-post update-profile"`
	Payload   map[string]string    `json:"payload" validate:"required"`
	CreatedAt time.Time            `json:"created_at"`
}
