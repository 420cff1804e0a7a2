// Package cache provides a Redis read-through cache in front of a
// store.TaskStore.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/store"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the cache keys of task records.
const DefaultPrefix = "tasks:task:"

// generationSuffix is appended to a task key to name its generation key.
const generationSuffix = ":gen"

// minGenerationTTL bounds how long a generation key outlives the last
// write. It only has to cover a read of the wrapped store.
const minGenerationTTL = time.Hour

var errStaleFill = errors.New("task changed while it was being read")

// Stats counts cache outcomes since the store was created.
type Stats struct {
	Hits   uint64
	Misses uint64
	Errors uint64
}

// TaskStore caches single-task lookups in Redis and delegates everything
// else to the wrapped store. Writes go to the wrapped store first and then
// evict the cached entry. Redis failures are logged and never fail an
// operation.
//
// Every write also bumps a per-task generation key. A miss records the
// generation before reading the wrapped store and only fills the cache if
// the generation is unchanged, so a read that raced a write never puts
// the old record back.
type TaskStore struct {
	next   store.TaskStore
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
	errors atomic.Uint64
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore wraps next with a Redis cache. A ttl of zero keeps entries
// until they are evicted by a write.
func NewTaskStore(next store.TaskStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *TaskStore {
	if next == nil {
		panic("cache: wrapped task store cannot be nil")
	}
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		next:   next,
		client: client,
		prefix: DefaultPrefix,
		ttl:    ttl,
		logger: logger.With("component", "task_cache"),
	}
}

// NewClient parses a redis:// URL and verifies the server is reachable.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

// Stats returns a snapshot of the cache counters.
func (s *TaskStore) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Errors: s.errors.Load(),
	}
}

func (s *TaskStore) key(id int64) string {
	return s.prefix + strconv.FormatInt(id, 10)
}

func (s *TaskStore) generationKey(id int64) string {
	return s.key(id) + generationSuffix
}

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	created, err := s.next.Create(ctx, task)
	if err != nil {
		return nil, err
	}
	s.put(ctx, created)
	return created, nil
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	if task, ok := s.get(ctx, id); ok {
		return task, nil
	}

	generation, fillable := s.generation(ctx, id)
	task, err := s.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fillable {
		s.fill(ctx, task, generation)
	}
	return task, nil
}

// List implements store.TaskStore.
func (s *TaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	return s.next.List(ctx)
}

// ListByStatus implements store.TaskStore.
func (s *TaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	return s.next.ListByStatus(ctx, status)
}

// ListDueBefore implements store.TaskStore.
func (s *TaskStore) ListDueBefore(
	ctx context.Context,
	date domain.Date,
	excluding domain.TaskStatus,
) ([]*domain.Task, error) {
	return s.next.ListDueBefore(ctx, date, excluding)
}

// ListByDueDate implements store.TaskStore.
func (s *TaskStore) ListByDueDate(ctx context.Context, date domain.Date) ([]*domain.Task, error) {
	return s.next.ListByDueDate(ctx, date)
}

// SearchByTitle implements store.TaskStore.
func (s *TaskStore) SearchByTitle(ctx context.Context, term string) ([]*domain.Task, error) {
	return s.next.SearchByTitle(ctx, term)
}

// ListOrderedByDueDate implements store.TaskStore.
func (s *TaskStore) ListOrderedByDueDate(ctx context.Context) ([]*domain.Task, error) {
	return s.next.ListOrderedByDueDate(ctx)
}

// CountByStatus implements store.TaskStore.
func (s *TaskStore) CountByStatus(ctx context.Context, status domain.TaskStatus) (int64, error) {
	return s.next.CountByStatus(ctx, status)
}

// ExistsByTitle implements store.TaskStore.
func (s *TaskStore) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	return s.next.ExistsByTitle(ctx, title)
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	// Invalidate even when the update fails: the entry may be stale either way.
	defer s.invalidate(ctx, task.ID.Int64())
	return s.next.Update(ctx, task)
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	defer s.invalidate(ctx, id)
	return s.next.Delete(ctx, id)
}

func (s *TaskStore) get(ctx context.Context, id int64) (*domain.Task, bool) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			return nil, false
		}
		s.fail(ctx, "get", id, err)
		return nil, false
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		s.fail(ctx, "decode", id, err)
		s.evict(ctx, id)
		return nil, false
	}

	s.hits.Add(1)
	return &task, true
}

func (s *TaskStore) put(ctx context.Context, task *domain.Task) {
	data, err := json.Marshal(task)
	if err != nil {
		s.fail(ctx, "encode", task.ID.Int64(), err)
		return
	}
	if err := s.client.Set(ctx, s.key(task.ID.Int64()), data, s.ttl).Err(); err != nil {
		s.fail(ctx, "set", task.ID.Int64(), err)
	}
}

// generation returns the current generation of a task. ok is false when
// Redis could not answer, in which case the caller must not fill.
func (s *TaskStore) generation(ctx context.Context, id int64) (string, bool) {
	gen, err := s.client.Get(ctx, s.generationKey(id)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.fail(ctx, "generation", id, err)
		return "", false
	}
	return gen, true
}

// fill caches task if its generation still equals generation. WATCH makes
// the check and the write atomic against a concurrent invalidate.
func (s *TaskStore) fill(ctx context.Context, task *domain.Task, generation string) {
	id := task.ID.Int64()
	data, err := json.Marshal(task)
	if err != nil {
		s.fail(ctx, "encode", id, err)
		return
	}

	genKey := s.generationKey(id)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key(id), data, s.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		s.logger.DebugContext(ctx, "skipped filling task cache after concurrent write",
			"task_id", id)
	default:
		s.fail(ctx, "fill", id, err)
	}
}

// invalidate bumps the task's generation and evicts its cached entry.
func (s *TaskStore) invalidate(ctx context.Context, id int64) {
	genKey := s.generationKey(id)
	genTTL := max(s.ttl, minGenerationTTL)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, genTTL)
		pipe.Del(ctx, s.key(id))
		return nil
	})
	if err != nil {
		s.fail(ctx, "invalidate", id, err)
	}
}

func (s *TaskStore) evict(ctx context.Context, id int64) {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		s.fail(ctx, "delete", id, err)
	}
}

func (s *TaskStore) fail(ctx context.Context, op string, id int64, err error) {
	s.errors.Add(1)
	s.logger.WarnContext(ctx, "task cache operation failed",
		"operation", op,
		"task_id", id,
		"error", err)
}
