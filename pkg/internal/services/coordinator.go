package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/seralia/feedsync/pkg/internal/events"
	"github.com/seralia/feedsync/pkg/internal/models"
	"github.com/seralia/feedsync/pkg/internal/queue"
	"github.com/seralia/feedsync/pkg/internal/realtime"
	"github.com/seralia/feedsync/pkg/internal/remote"
)

const defaultPageSize = 10

// Coordinator orchestrates fetch, refresh and like flows, drives the app
// state machine and reconciles optimistic local updates with the pending
// queue and the real-time channel.
//
// All feed mutation happens under one mutex; asynchronous completions take
// the same mutex before touching shared state, so no two handlers interleave
// mid-mutation. A refresh bumps the feed generation and any completion
// carrying an older generation is discarded: refresh wins by replacing the
// whole list. Per-post versions settle slow like confirmations the same way.
type Coordinator struct {
	FeedUpdates   events.Stream[[]models.Post]
	PostUpdates   events.Stream[models.Post]
	InboundEvents events.Stream[models.RealTimeMessage]

	remote    remote.Service
	mutator   remote.Mutator
	queue     *queue.Queue
	channel   *realtime.Channel
	state     *AppState
	snapshots *Snapshots

	mu           sync.Mutex
	posts        []models.Post
	page         int
	pageSize     int
	hasMore      bool
	isLoading    bool
	isRefreshing bool
	generation   uint64
	versions     map[string]uint64
}

type CoordinatorOptions struct {
	PageSize int
}

func NewCoordinator(
	svc remote.Service,
	pending *queue.Queue,
	channel *realtime.Channel,
	state *AppState,
	snapshots *Snapshots,
	opts CoordinatorOptions,
) *Coordinator {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}

	c := &Coordinator{
		remote:    svc,
		queue:     pending,
		channel:   channel,
		state:     state,
		snapshots: snapshots,
		page:      1,
		pageSize:  opts.PageSize,
		hasMore:   true,
		versions:  make(map[string]uint64),
	}
	if mutator, ok := svc.(remote.Mutator); ok {
		c.mutator = mutator
	}
	for _, op := range pending.DequeueAll() {
		state.AddPendingOperation(op.ID)
	}

	channel.Status.Subscribe(c.handleChannelStatus)
	channel.Inbound.Subscribe(c.handleInboundMessage)
	return c
}

// Posts returns a copy of the current feed.
func (c *Coordinator) Posts() []models.Post {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Post, len(c.posts))
	copy(out, c.posts)
	return out
}

func (c *Coordinator) HasMorePosts() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// LoadPosts appends the next page to the feed. A second call while a load is
// already in flight is a silent no-op.
func (c *Coordinator) LoadPosts(ctx context.Context) error {
	return c.loadNextPage(ctx, models.FeedStateLoading)
}

// LoadMorePosts behaves like LoadPosts but only when the feed still has
// pages left; once a short page arrived it does nothing.
func (c *Coordinator) LoadMorePosts(ctx context.Context) error {
	c.mu.Lock()
	hasMore := c.hasMore
	c.mu.Unlock()
	if !hasMore {
		return nil
	}
	return c.loadNextPage(ctx, models.FeedStateLoadingMore)
}

func (c *Coordinator) loadNextPage(ctx context.Context, transition models.FeedStateCode) error {
	c.mu.Lock()
	if c.isLoading {
		c.mu.Unlock()
		return nil
	}
	c.isLoading = true
	page := c.page
	generation := c.generation
	c.mu.Unlock()

	c.state.SetFeedState(models.FeedStateOf(transition))

	batch, err := c.remote.FetchPage(ctx, page, c.pageSize)

	c.mu.Lock()
	c.isLoading = false
	if err != nil {
		c.mu.Unlock()
		c.state.TransitionToError(err.Error())
		return fmt.Errorf("unable to load posts: %v", err)
	}
	if c.generation != generation {
		// A refresh replaced the feed while this page was in flight; the
		// stale page must not be appended behind the new list.
		c.mu.Unlock()
		log.Debug().Int("page", page).Msg("Dropped a stale feed page after refresh.")
		return nil
	}

	c.posts = append(c.posts, batch...)
	c.page++
	c.hasMore = len(batch) == c.pageSize
	feed := make([]models.Post, len(c.posts))
	copy(feed, c.posts)
	c.mu.Unlock()

	c.finishFeedMutation(feed)
	return nil
}

// RefreshPosts resets the cursor to the first page and replaces the feed
// wholesale. It is guarded independently from LoadPosts.
func (c *Coordinator) RefreshPosts(ctx context.Context) error {
	c.mu.Lock()
	if c.isRefreshing {
		c.mu.Unlock()
		return nil
	}
	c.isRefreshing = true
	c.mu.Unlock()

	c.state.TransitionToRefreshing()

	batch, err := c.remote.FetchPage(ctx, 1, c.pageSize)

	c.mu.Lock()
	c.isRefreshing = false
	if err != nil {
		c.mu.Unlock()
		c.state.TransitionToError(err.Error())
		return fmt.Errorf("unable to refresh posts: %v", err)
	}

	c.posts = batch
	c.page = 2
	c.hasMore = len(batch) == c.pageSize
	c.generation++
	c.versions = make(map[string]uint64)
	feed := make([]models.Post, len(c.posts))
	copy(feed, c.posts)
	c.mu.Unlock()

	c.finishFeedMutation(feed)
	return nil
}

func (c *Coordinator) finishFeedMutation(feed []models.Post) {
	if len(feed) == 0 {
		c.state.SetFeedState(models.FeedStateOf(models.FeedStateEmpty))
	} else {
		c.state.SetFeedState(models.FeedStateOf(models.FeedStatePopulated))
	}
	if c.snapshots != nil {
		if err := c.snapshots.SaveFeed(feed); err != nil {
			log.Warn().Err(err).Msg("Unable to persist the feed snapshot...")
		}
	}
	c.FeedUpdates.Publish(feed)
}

// RestoreSnapshot seeds an empty feed from the last persisted snapshot so
// there is content to show before the first fetch finishes. The next refresh
// replaces the restored list wholesale.
func (c *Coordinator) RestoreSnapshot() bool {
	if c.snapshots == nil {
		return false
	}
	record, err := c.snapshots.LoadFeed()
	if err != nil || len(record.Posts) == 0 {
		return false
	}

	c.mu.Lock()
	if len(c.posts) > 0 {
		c.mu.Unlock()
		return false
	}
	c.posts = record.Posts
	feed := make([]models.Post, len(c.posts))
	copy(feed, c.posts)
	c.mu.Unlock()

	c.state.SetFeedState(models.FeedStateOf(models.FeedStatePopulated))
	c.FeedUpdates.Publish(feed)
	return true
}

// LikePost applies the viewer's like optimistically. Online it fires the
// remote call and replaces the post with the confirmed result; offline it
// records a pending operation and flips the local flag right away.
func (c *Coordinator) LikePost(ctx context.Context, post models.Post) error {
	if c.channel.CurrentStatus() != models.NetworkStateConnected {
		return c.likePostOffline(post)
	}

	c.mu.Lock()
	generation := c.generation
	version := c.versions[post.ID]
	c.mu.Unlock()

	confirmed, err := c.remote.LikePost(ctx, post)
	if err != nil {
		c.state.TransitionToError(err.Error())
		return fmt.Errorf("unable to like post: %v", err)
	}

	c.applyConfirmedPost(confirmed, generation, version)
	return nil
}

func (c *Coordinator) likePostOffline(post models.Post) error {
	// The payload records the state the user asked for, so replay carries
	// the original intent rather than re-toggling whatever the feed holds
	// by then.
	op := models.PendingOperation{
		ID:   uuid.NewString(),
		Kind: models.OperationKindLikePost,
		Payload: map[string]string{
			"post_id": post.ID,
			"liked":   strconv.FormatBool(!post.IsLiked),
		},
		CreatedAt: time.Now(),
	}
	if err := c.queue.Enqueue(op); err != nil {
		return err
	}
	c.state.AddPendingOperation(op.ID)

	// Optimistic flip; the authoritative counters arrive on replay.
	optimistic := post
	if optimistic.IsLiked {
		optimistic.IsLiked = false
		optimistic.Metric.LikeCount--
	} else {
		optimistic.IsLiked = true
		optimistic.Metric.LikeCount++
	}
	c.replacePost(optimistic)
	return nil
}

// applyConfirmedPost replaces the matching feed entry with the authoritative
// result unless the feed was refreshed or the entry saw a newer update while
// the call was in flight.
func (c *Coordinator) applyConfirmedPost(confirmed models.Post, generation, version uint64) {
	c.mu.Lock()
	if c.generation != generation || c.versions[confirmed.ID] != version {
		c.mu.Unlock()
		log.Debug().Str("post", confirmed.ID).Msg("Dropped a stale post confirmation.")
		return
	}
	c.versions[confirmed.ID]++
	c.replacePostLocked(confirmed)
	c.mu.Unlock()

	c.PostUpdates.Publish(confirmed)
}

func (c *Coordinator) replacePost(post models.Post) {
	c.mu.Lock()
	c.versions[post.ID]++
	c.replacePostLocked(post)
	c.mu.Unlock()

	c.PostUpdates.Publish(post)
}

func (c *Coordinator) replacePostLocked(post models.Post) {
	c.posts = lo.Map(c.posts, func(entry models.Post, _ int) models.Post {
		if entry.ID == post.ID {
			return post
		}
		return entry
	})
}

func (c *Coordinator) handleChannelStatus(status models.NetworkState) {
	switch status {
	case models.NetworkStateConnecting:
		c.state.SetNetworkConnecting()
	case models.NetworkStateDisconnected:
		c.state.UpdateNetworkState(false)
	case models.NetworkStateConnected:
		c.state.UpdateNetworkState(true)
		if err := c.channel.SyncOfflineMessages(); err != nil {
			log.Warn().Err(err).Msg("Unable to drain the offline outbox...")
		}
		if err := c.ReplayPendingOperations(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Replay of pending operations did not finish...")
		}
	}
}

func (c *Coordinator) handleInboundMessage(msg models.RealTimeMessage) {
	switch msg.Kind {
	case models.MessageKindLikeUpdate:
		c.bumpCounter(msg.Payload["post_id"], func(metric *models.PostMetric) {
			metric.LikeCount++
		})
	case models.MessageKindCommentUpdate:
		c.bumpCounter(msg.Payload["post_id"], func(metric *models.PostMetric) {
			metric.CommentCount++
		})
	}
	c.InboundEvents.Publish(msg)
}

func (c *Coordinator) bumpCounter(postID string, bump func(*models.PostMetric)) {
	if postID == "" {
		return
	}

	c.mu.Lock()
	entry, found := lo.Find(c.posts, func(p models.Post) bool { return p.ID == postID })
	if !found {
		c.mu.Unlock()
		return
	}
	bump(&entry.Metric)
	c.versions[postID]++
	c.replacePostLocked(entry)
	c.mu.Unlock()

	c.PostUpdates.Publish(entry)
}

// ReplayPendingOperations drains the pending queue in creation order. Each
// operation is removed only after the remote acknowledged it; the pass stops
// at the first failure so causal order is never violated, and whatever is
// left replays on the next transition into connected.
func (c *Coordinator) ReplayPendingOperations(ctx context.Context) error {
	ops := c.queue.DequeueAll()
	if len(ops) == 0 {
		return nil
	}

	c.state.SetSyncing()
	for _, op := range ops {
		if err := c.applyOperation(ctx, op); err != nil {
			c.state.AddPendingOperation(op.ID)
			return fmt.Errorf("unable to replay operation %s (%s): %v", op.ID, op.Kind, err)
		}
		c.queue.Remove(op.ID)
		c.state.RemovePendingOperation(op.ID)
	}
	return nil
}

func (c *Coordinator) applyOperation(ctx context.Context, op models.PendingOperation) error {
	switch op.Kind {
	case models.OperationKindLikePost:
		postID := op.Payload["post_id"]
		c.mu.Lock()
		post, found := lo.Find(c.posts, func(p models.Post) bool { return p.ID == postID })
		generation := c.generation
		version := c.versions[postID]
		c.mu.Unlock()
		if !found {
			post = models.Post{ID: postID}
		}
		// The remote toggles relative to the request, so the request must
		// carry the pre-toggle flag for the recorded intent. Without it a
		// second delivery of the same operation would undo the first.
		if liked, ok := op.Payload["liked"]; ok {
			post.IsLiked = liked != "true"
		}

		confirmed, err := c.remote.LikePost(ctx, post)
		if err != nil {
			return err
		}
		c.applyConfirmedPost(confirmed, generation, version)
		return nil
	case models.OperationKindCreatePost:
		if c.mutator == nil {
			return fmt.Errorf("remote service does not support creating posts")
		}
		created, err := c.mutator.CreatePost(ctx, op.Payload["content"], op.Payload["attachments"])
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.posts = append([]models.Post{created}, c.posts...)
		feed := make([]models.Post, len(c.posts))
		copy(feed, c.posts)
		c.mu.Unlock()
		c.FeedUpdates.Publish(feed)
		return nil
	case models.OperationKindDeletePost:
		if c.mutator == nil {
			return fmt.Errorf("remote service does not support deleting posts")
		}
		postID := op.Payload["post_id"]
		if err := c.mutator.DeletePost(ctx, postID); err != nil {
			return err
		}
		c.mu.Lock()
		c.posts = lo.Filter(c.posts, func(p models.Post, _ int) bool { return p.ID != postID })
		feed := make([]models.Post, len(c.posts))
		copy(feed, c.posts)
		c.mu.Unlock()
		c.FeedUpdates.Publish(feed)
		return nil
	case models.OperationKindUpdateProfile:
		if c.mutator == nil {
			return fmt.Errorf("remote service does not support profile updates")
		}
		profile, err := c.mutator.UpdateProfile(ctx, op.Payload)
		if err != nil {
			return err
		}
		if c.snapshots != nil {
			if err := c.snapshots.SaveProfile(profile); err != nil {
				log.Warn().Err(err).Msg("Unable to persist the profile snapshot...")
			}
		}
		return nil
	default:
		// Unknown kinds are acknowledged locally so one corrupt record cannot
		// wedge the whole queue.
		log.Warn().Str("kind", op.Kind).Msg("Dropped a pending operation of unknown kind.")
		return nil
	}
}
