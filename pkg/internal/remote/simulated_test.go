package remote

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
)

func TestSimulated_PageBoundaries(t *testing.T) {
	svc := NewSimulated(clock.NewMock(), 14, 0)
	ctx := context.Background()

	first, err := svc.FetchPage(ctx, 1, 10)
	if err != nil {
		t.Fatalf("FetchPage(1): %v", err)
	}
	if len(first) != 10 {
		t.Fatalf("first page = %d posts, want 10", len(first))
	}

	second, err := svc.FetchPage(ctx, 2, 10)
	if err != nil {
		t.Fatalf("FetchPage(2): %v", err)
	}
	if len(second) != 4 {
		t.Fatalf("second page = %d posts, want 4", len(second))
	}

	third, err := svc.FetchPage(ctx, 3, 10)
	if err != nil {
		t.Fatalf("FetchPage(3): %v", err)
	}
	if len(third) != 0 {
		t.Fatalf("third page = %d posts, want 0", len(third))
	}
}

func TestSimulated_RejectsBadPageRequest(t *testing.T) {
	svc := NewSimulated(clock.NewMock(), 10, 0)
	if _, err := svc.FetchPage(context.Background(), 0, 10); err == nil {
		t.Fatal("FetchPage accepted page 0")
	}
}

func TestSimulated_LikeToggles(t *testing.T) {
	svc := NewSimulated(clock.NewMock(), 10, 0)
	ctx := context.Background()

	page, err := svc.FetchPage(ctx, 1, 1)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	post := page[0]

	liked, err := svc.LikePost(ctx, post)
	if err != nil {
		t.Fatalf("LikePost: %v", err)
	}
	if !liked.IsLiked || liked.Metric.LikeCount != post.Metric.LikeCount+1 {
		t.Fatalf("like not applied: %+v", liked.Metric)
	}

	unliked, err := svc.LikePost(ctx, liked)
	if err != nil {
		t.Fatalf("LikePost: %v", err)
	}
	if unliked.IsLiked || unliked.Metric.LikeCount != post.Metric.LikeCount {
		t.Fatalf("unlike not applied: %+v", unliked.Metric)
	}
}

func TestSimulated_LikeReplayIsIdempotent(t *testing.T) {
	svc := NewSimulated(clock.NewMock(), 10, 0)
	ctx := context.Background()

	page, err := svc.FetchPage(ctx, 1, 1)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	post := page[0]

	first, err := svc.LikePost(ctx, post)
	if err != nil {
		t.Fatalf("LikePost: %v", err)
	}
	// A crash between remote acknowledgement and queue removal re-delivers
	// the identical request; the outcome must not change.
	second, err := svc.LikePost(ctx, post)
	if err != nil {
		t.Fatalf("replayed LikePost: %v", err)
	}
	if second.IsLiked != first.IsLiked || second.Metric.LikeCount != first.Metric.LikeCount {
		t.Fatalf("replay not idempotent: first=%+v second=%+v", first.Metric, second.Metric)
	}
	if !second.IsLiked || second.Metric.LikeCount != post.Metric.LikeCount+1 {
		t.Fatalf("replayed like lost the user's intent: %+v", second.Metric)
	}
}

func TestSimulated_CreateAndDeletePost(t *testing.T) {
	svc := NewSimulated(clock.NewMock(), 0, 0)
	ctx := context.Background()

	created, err := svc.CreatePost(ctx, "written offline", "")
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if created.ID == "" || created.Content != "written offline" {
		t.Fatalf("CreatePost = %+v", created)
	}

	if err := svc.DeletePost(ctx, created.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	// Deleting twice must stay idempotent for at-least-once replay.
	if err := svc.DeletePost(ctx, created.ID); err != nil {
		t.Fatalf("second DeletePost: %v", err)
	}
}

func TestSimulated_UpdateProfile(t *testing.T) {
	svc := NewSimulated(clock.NewMock(), 0, 0)

	user, err := svc.UpdateProfile(context.Background(), map[string]string{"nick": "Night Owl"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if user.Nick != "Night Owl" {
		t.Fatalf("nick = %s, want Night Owl", user.Nick)
	}
}
