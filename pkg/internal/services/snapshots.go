package services

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	localCache "github.com/seralia/feedsync/pkg/internal/cache"
	"github.com/seralia/feedsync/pkg/internal/models"
	"github.com/seralia/feedsync/pkg/internal/storage"
)

const (
	feedSnapshotKey    = "snapshot/feed"
	profileSnapshotKey = "snapshot/profile"

	defaultSnapshotTTL = 24 * time.Hour
)

type FeedSnapshot struct {
	SavedAt time.Time     `json:"saved_at"`
	Posts   []models.Post `json:"posts"`
}

type ProfileSnapshot struct {
	SavedAt time.Time   `json:"saved_at"`
	User    models.User `json:"user"`
}

// Snapshots persists cached content records (feed page set, viewer profile)
// so a restarted client can render the last known feed before its first
// fetch. Reads go through the local cache store when it is initialized.
type Snapshots struct {
	store storage.Store
	clk   clock.Clock
	ttl   time.Duration
}

func NewSnapshots(st storage.Store, clk clock.Clock, ttl time.Duration) *Snapshots {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &Snapshots{store: st, clk: clk, ttl: ttl}
}

func (s *Snapshots) SaveFeed(posts []models.Post) error {
	record := FeedSnapshot{SavedAt: s.clk.Now(), Posts: posts}
	data, err := jsoniter.Marshal(record)
	if err != nil {
		return fmt.Errorf("unable to serialize feed snapshot: %v", err)
	}
	if err := s.store.Put(feedSnapshotKey, data); err != nil {
		return fmt.Errorf("unable to persist feed snapshot: %v", err)
	}
	s.cacheSet(feedSnapshotKey, record)
	return nil
}

func (s *Snapshots) LoadFeed() (FeedSnapshot, error) {
	var record FeedSnapshot
	if s.cacheGet(feedSnapshotKey, &record) {
		return record, nil
	}

	data, err := s.store.Get(feedSnapshotKey)
	if err != nil {
		return record, err
	}
	if err := jsoniter.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("unable to decode feed snapshot: %v", err)
	}
	s.cacheSet(feedSnapshotKey, record)
	return record, nil
}

func (s *Snapshots) SaveProfile(user models.User) error {
	record := ProfileSnapshot{SavedAt: s.clk.Now(), User: user}
	data, err := jsoniter.Marshal(record)
	if err != nil {
		return fmt.Errorf("unable to serialize profile snapshot: %v", err)
	}
	if err := s.store.Put(profileSnapshotKey, data); err != nil {
		return fmt.Errorf("unable to persist profile snapshot: %v", err)
	}
	s.cacheSet(profileSnapshotKey, record)
	return nil
}

func (s *Snapshots) LoadProfile() (ProfileSnapshot, error) {
	var record ProfileSnapshot
	if s.cacheGet(profileSnapshotKey, &record) {
		return record, nil
	}

	data, err := s.store.Get(profileSnapshotKey)
	if err != nil {
		return record, err
	}
	if err := jsoniter.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("unable to decode profile snapshot: %v", err)
	}
	s.cacheSet(profileSnapshotKey, record)
	return record, nil
}

// CleanupExpired drops snapshot records older than the TTL. Wired as a timed
// task in main.
func (s *Snapshots) CleanupExpired() {
	keys, err := s.store.Keys("snapshot/")
	if err != nil {
		log.Warn().Err(err).Msg("Unable to list snapshot records for cleanup...")
		return
	}

	removed := 0
	for _, key := range keys {
		data, err := s.store.Get(key)
		if err != nil {
			continue
		}
		var stamp struct {
			SavedAt time.Time `json:"saved_at"`
		}
		if err := jsoniter.Unmarshal(data, &stamp); err != nil {
			log.Warn().Str("key", key).Msg("Dropping one unreadable snapshot record...")
		} else if s.clk.Now().Sub(stamp.SavedAt) < s.ttl {
			continue
		}
		if err := s.store.Delete(key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Unable to delete an expired snapshot record...")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info().Int("count", removed).Msg("Expired snapshot records cleaned up.")
	}
}

func (s *Snapshots) cacheSet(key string, value any) {
	if localCache.S == nil {
		return
	}
	marshal := marshaler.New(cache.New[any](localCache.S))
	_ = marshal.Set(
		context.Background(),
		key,
		value,
		store.WithExpiration(s.ttl),
		store.WithTags([]string{"snapshot"}),
	)
}

func (s *Snapshots) cacheGet(key string, out any) bool {
	if localCache.S == nil {
		return false
	}
	marshal := marshaler.New(cache.New[any](localCache.S))
	hit, err := marshal.Get(context.Background(), key, out)
	return err == nil && hit != nil
}
