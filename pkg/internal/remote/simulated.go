package remote

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/seralia/feedsync/pkg/internal/models"
)

var sampleBodies = []string{
	"Watching the rain roll in over the bay.",
	"Finally got the sourdough starter to behave.",
	"Hot take: the best debugging tool is a walk around the block.",
	"Shipped a thing today. Small thing, still counts.",
	"The pigeons outside my window have formed a committee.",
	"Re-reading my old notes and wondering who wrote them.",
}

var sampleAuthors = []models.User{
	{ID: uuid.NewString(), Name: "mira", Nick: "Mira Voss", IsVerified: true},
	{ID: uuid.NewString(), Name: "tomo", Nick: "Tomo K."},
	{ID: uuid.NewString(), Name: "ada_l", Nick: "Ada"},
	{ID: uuid.NewString(), Name: "quince", Nick: "Quince", IsVerified: true},
}

// Simulated stands in for the remote service: it synthesizes a finite feed
// and answers like calls authoritatively. Latency is driven through the
// injected clock so the binary feels like a network and tests do not.
type Simulated struct {
	mu         sync.Mutex
	clk        clock.Clock
	rng        *rand.Rand
	latency    time.Duration
	totalPosts int
	posts      map[string]models.Post
	profile    models.User
}

func NewSimulated(clk clock.Clock, totalPosts int, latency time.Duration) *Simulated {
	return &Simulated{
		clk:        clk,
		rng:        rand.New(rand.NewSource(clk.Now().UnixNano())),
		latency:    latency,
		totalPosts: totalPosts,
		posts:      make(map[string]models.Post),
		profile:    models.User{ID: uuid.NewString(), Name: "viewer", Nick: "You"},
	}
}

func (s *Simulated) FetchPage(ctx context.Context, page int, size int) ([]models.Post, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if page < 1 || size < 1 {
		return nil, fmt.Errorf("invalid page request: page %d size %d", page, size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := (page - 1) * size
	if start >= s.totalPosts {
		return nil, nil
	}
	count := min(size, s.totalPosts-start)

	out := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		post := models.Post{
			ID:      uuid.NewString(),
			Author:  sampleAuthors[s.rng.Intn(len(sampleAuthors))],
			Content: sampleBodies[s.rng.Intn(len(sampleBodies))],
			Metric: models.PostMetric{
				LikeCount:    s.rng.Intn(500),
				CommentCount: s.rng.Intn(50),
				ShareCount:   s.rng.Intn(20),
			},
			CreatedAt: s.clk.Now().Add(-time.Duration(start+i) * time.Minute),
		}
		s.posts[post.ID] = post
		out = append(out, post)
	}
	return out, nil
}

func (s *Simulated) LikePost(ctx context.Context, post models.Post) (models.Post, error) {
	if err := s.wait(ctx); err != nil {
		return post, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known, ok := s.posts[post.ID]
	if !ok {
		known = post
	}
	// The target state comes from the request, not the stored flag, so a
	// replayed operation settles on the same state instead of toggling back.
	target := !post.IsLiked
	if known.IsLiked != target {
		if target {
			known.Metric.LikeCount++
		} else {
			known.Metric.LikeCount--
		}
		known.IsLiked = target
	}
	s.posts[known.ID] = known
	return known, nil
}

func (s *Simulated) CreatePost(ctx context.Context, content string, attachments string) (models.Post, error) {
	if err := s.wait(ctx); err != nil {
		return models.Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post := models.Post{
		ID:        uuid.NewString(),
		Author:    s.profile,
		Content:   content,
		CreatedAt: s.clk.Now(),
	}
	if attachments != "" {
		post.Attachments = []string{attachments}
	}
	s.posts[post.ID] = post
	return post, nil
}

func (s *Simulated) DeletePost(ctx context.Context, id string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, id)
	return nil
}

func (s *Simulated) UpdateProfile(ctx context.Context, fields map[string]string) (models.User, error) {
	if err := s.wait(ctx); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if nick, ok := fields["nick"]; ok {
		s.profile.Nick = nick
	}
	if avatar, ok := fields["avatar"]; ok {
		s.profile.Avatar = &avatar
	}
	return s.profile, nil
}

func (s *Simulated) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	timer := s.clk.Timer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
