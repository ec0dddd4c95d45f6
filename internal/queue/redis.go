package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobscout/jobscout/internal/model"
)

const (
	keyHigh   = "jobscout:queue:high"
	keyNormal = "jobscout:queue:default"

	popTimeout = 2 * time.Second

	// maxDeliveries caps redelivery of a failing unit before it is marked
	// failed in the durable log.
	maxDeliveries = 3
)

// DefaultWorkers is the consumer pool size when the config does not set one.
const DefaultWorkers = 5

// RedisQueue is the durable broker backend. Units are JSON-encoded onto two
// Redis lists, one per priority, and consumed by a blocking worker pool.
// Delivery is at-least-once: a unit popped by a worker that dies mid-flight
// stays active in the durable log and can be requeued from there.
type RedisQueue struct {
	client   *redis.Client
	registry *Registry
	log      model.WorkUnitLog
	logger   *slog.Logger
	workers  int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisQueue(client *redis.Client, registry *Registry, log model.WorkUnitLog, workers int, logger *slog.Logger) *RedisQueue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &RedisQueue{
		client:   client,
		registry: registry,
		log:      log,
		logger:   logger.With("queue", "redis"),
		workers:  workers,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, unit model.WorkUnit, opts ...Option) error {
	if err := validateUnit(unit); err != nil {
		return err
	}
	if _, err := q.registry.Resolve(unit.Type); err != nil {
		return err
	}

	rec := &model.WorkUnitRecord{
		ID:       unit.ID,
		Type:     unit.Type,
		Data:     unit.Data,
		OwnerID:  unit.OwnerID,
		TestMode: unit.TestMode,
	}
	if err := q.log.CreateUnit(ctx, rec); err != nil {
		return fmt.Errorf("logging work unit: %w", err)
	}

	payload, err := json.Marshal(unit)
	if err != nil {
		return fmt.Errorf("encoding work unit %s: %w", unit.ID, err)
	}

	key := keyNormal
	o := buildOptions(opts)
	if o.HighPriority {
		key = keyHigh
	}

	if o.Delay > 0 {
		time.AfterFunc(o.Delay, func() {
			if err := q.client.LPush(context.Background(), key, payload).Err(); err != nil {
				q.logger.Error("pushing delayed work unit", "unit_id", unit.ID, "error", err)
			}
		})
		return nil
	}

	if err := q.client.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("pushing work unit %s: %w", unit.ID, err)
	}
	return nil
}

func (q *RedisQueue) Start(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}

	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.logger.Info("redis queue started", "workers", q.workers)
	return nil
}

func (q *RedisQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	logger := q.logger.With("worker", id)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// BRPOP checks the high-priority list first on every cycle.
		res, err := q.client.BRPop(ctx, popTimeout, keyHigh, keyNormal).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Error("popping work unit", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(res) != 2 {
			continue
		}

		var unit model.WorkUnit
		if err := json.Unmarshal([]byte(res[1]), &unit); err != nil {
			logger.Error("decoding work unit payload", "error", err)
			continue
		}
		q.process(ctx, logger, unit)
	}
}

func (q *RedisQueue) process(ctx context.Context, logger *slog.Logger, unit model.WorkUnit) {
	handler, err := q.registry.Resolve(unit.Type)
	if err != nil {
		q.fail(ctx, logger, unit, err)
		return
	}

	if err := q.log.MarkUnitActive(ctx, unit.ID); err != nil {
		logger.Warn("marking unit active", "unit_id", unit.ID, "error", err)
	}

	if err := handler(ctx, unit); err != nil {
		unit.Attempt++
		if unit.Attempt < maxDeliveries {
			logger.Warn("work unit failed, requeueing",
				"unit_id", unit.ID, "attempt", unit.Attempt, "error", err)
			if rerr := q.requeue(ctx, unit); rerr != nil {
				q.fail(ctx, logger, unit, errors.Join(err, rerr))
			}
			return
		}
		q.fail(ctx, logger, unit, err)
		return
	}

	if err := q.log.MarkUnitCompleted(ctx, unit.ID); err != nil {
		logger.Warn("marking unit completed", "unit_id", unit.ID, "error", err)
	}
}

// requeue pushes a failed unit back onto the normal list without writing a
// new log row.
func (q *RedisQueue) requeue(ctx context.Context, unit model.WorkUnit) error {
	payload, err := json.Marshal(unit)
	if err != nil {
		return fmt.Errorf("encoding work unit %s: %w", unit.ID, err)
	}
	if err := q.client.LPush(ctx, keyNormal, payload).Err(); err != nil {
		return fmt.Errorf("requeueing work unit %s: %w", unit.ID, err)
	}
	return nil
}

func (q *RedisQueue) fail(ctx context.Context, logger *slog.Logger, unit model.WorkUnit, cause error) {
	logger.Error("work unit failed", "unit_id", unit.ID, "type", unit.Type, "error", cause)
	if err := q.log.MarkUnitFailed(ctx, unit.ID, cause.Error()); err != nil {
		logger.Warn("marking unit failed", "unit_id", unit.ID, "error", err)
	}
}

func (q *RedisQueue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
	q.logger.Info("redis queue stopped")
}

// Stats reads waiting depth from Redis and the rest from the durable log.
func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	stats, err := logStats(ctx, q.log)
	if err != nil {
		return Stats{}, err
	}

	pipe := q.client.Pipeline()
	high := pipe.LLen(ctx, keyHigh)
	normal := pipe.LLen(ctx, keyNormal)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return stats, fmt.Errorf("reading queue depth: %w", err)
	}
	stats.Waiting = int(high.Val() + normal.Val())
	return stats, nil
}
