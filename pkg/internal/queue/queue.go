package queue

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/seralia/feedsync/pkg/internal/models"
	"github.com/seralia/feedsync/pkg/internal/storage"
)

// StorageKey is the single durable record holding the serialized queue.
const StorageKey = "pending/operations"

var validate = validator.New()

// Queue is the durable FIFO of user mutations taken while disconnected.
// Every change rewrites the whole serialized list; the queue is expected to
// stay small, so the rewrite is cheaper than keeping a log.
type Queue struct {
	mu    sync.Mutex
	store storage.Store
	items []models.PendingOperation
}

func New(store storage.Store) *Queue {
	q := &Queue{store: store}
	q.items = loadOperations(store)
	return q
}

func loadOperations(store storage.Store) []models.PendingOperation {
	data, err := store.Get(StorageKey)
	if err != nil {
		if err != storage.ErrNotFound {
			log.Warn().Err(err).Msg("Unable to read pending operations, starting with an empty queue...")
		}
		return nil
	}

	var raw []jsoniter.RawMessage
	if err := jsoniter.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Msg("Pending operation record is unreadable, starting with an empty queue...")
		return nil
	}

	var items []models.PendingOperation
	for _, entry := range raw {
		var op models.PendingOperation
		if err := jsoniter.Unmarshal(entry, &op); err != nil {
			log.Warn().Err(err).Msg("Skipped one malformed pending operation...")
			continue
		}
		items = append(items, op)
	}
	return items
}

// Enqueue appends the operation and persists the queue before returning. A
// failed persist keeps the in-memory copy for the current session but is
// surfaced as a warning because durability across a restart is lost.
func (q *Queue) Enqueue(op models.PendingOperation) error {
	if err := validate.Struct(op); err != nil {
		return fmt.Errorf("invalid pending operation: %v", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, op)
	q.persist()
	return nil
}

// DequeueAll returns every operation in creation order without removing any
// of them. The caller replays each one and calls Remove only for operations
// the remote service acknowledged.
func (q *Queue) DequeueAll() []models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.PendingOperation, len(q.items))
	copy(out, q.items)
	return out
}

// Remove drops the operation with the given id. Removing an absent id is a
// no-op, so a replay pass may safely retry.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	remaining := lo.Filter(q.items, func(op models.PendingOperation, _ int) bool {
		return op.ID != id
	})
	if len(remaining) == len(q.items) {
		return
	}
	q.items = remaining
	q.persist()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) persist() {
	data, err := jsoniter.Marshal(q.items)
	if err != nil {
		log.Warn().Err(err).Msg("Unable to serialize pending operations, durability is lost for this session...")
		return
	}
	if err := q.store.Put(StorageKey, data); err != nil {
		log.Warn().Err(err).Msg("Unable to persist pending operations, durability is lost for this session...")
	}
}
