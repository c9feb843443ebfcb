package realtime

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/seralia/feedsync/pkg/internal/models"
	"github.com/seralia/feedsync/pkg/internal/storage"
)

// OutboxStorageKey is the single durable record holding the serialized
// offline outbox. It lives in a namespace disjoint from the pending queue.
const OutboxStorageKey = "realtime/outbox"

// Outbox buffers outbound real-time messages while the channel is offline.
// Like the pending queue it rewrites the whole list on every change.
type Outbox struct {
	mu    sync.Mutex
	store storage.Store
	items []models.RealTimeMessage
}

func NewOutbox(store storage.Store) *Outbox {
	o := &Outbox{store: store}
	o.items = loadMessages(store)
	return o
}

func loadMessages(store storage.Store) []models.RealTimeMessage {
	data, err := store.Get(OutboxStorageKey)
	if err != nil {
		if err != storage.ErrNotFound {
			log.Warn().Err(err).Msg("Unable to read offline outbox, starting with an empty one...")
		}
		return nil
	}

	var raw []jsoniter.RawMessage
	if err := jsoniter.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Msg("Offline outbox record is unreadable, starting with an empty one...")
		return nil
	}

	var items []models.RealTimeMessage
	for _, entry := range raw {
		var msg models.RealTimeMessage
		if err := jsoniter.Unmarshal(entry, &msg); err != nil {
			log.Warn().Err(err).Msg("Skipped one malformed offline message...")
			continue
		}
		items = append(items, msg)
	}
	return items
}

func (o *Outbox) Append(msg models.RealTimeMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.items = append(o.items, msg)
	o.persist()
}

// Drain returns the buffered messages in insertion order and clears the
// outbox, in memory and in durable storage.
func (o *Outbox) Drain() []models.RealTimeMessage {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := o.items
	o.items = nil
	o.persist()
	return out
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

func (o *Outbox) persist() {
	data, err := jsoniter.Marshal(o.items)
	if err != nil {
		log.Warn().Err(err).Msg("Unable to serialize offline outbox, durability is lost for this session...")
		return
	}
	if err := o.store.Put(OutboxStorageKey, data); err != nil {
		log.Warn().Err(err).Msg("Unable to persist offline outbox, durability is lost for this session...")
	}
}
