package remote

import (
	"context"

	"github.com/seralia/feedsync/pkg/internal/models"
)

// Service is the remote side the coordinator talks to. Failures carry a
// human-readable message and are always non-fatal: the coordinator keeps
// whatever it already loaded.
//
// The remote must treat repeated like/delete calls as idempotent, because a
// replayed pending operation may be delivered more than once.
type Service interface {
	// FetchPage returns one page of the feed. A page shorter than size is
	// the end-of-feed signal; there is no total count.
	FetchPage(ctx context.Context, page int, size int) ([]models.Post, error)

	// LikePost toggles the viewer's like and returns the authoritative post.
	LikePost(ctx context.Context, post models.Post) (models.Post, error)
}

// Mutator covers the remaining mutation kinds a pending operation can carry.
// A Service may implement it; the coordinator checks at construction time and
// keeps unsupported operations queued.
type Mutator interface {
	CreatePost(ctx context.Context, content string, attachments string) (models.Post, error)
	DeletePost(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, fields map[string]string) (models.User, error)
}
