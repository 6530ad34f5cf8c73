package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dontdude/ymlint/internal/domain"
)

// jobField is the stream entry field holding the JSON-encoded job.
const jobField = "job"

// RedisQueue implements domain.LintQueue using Redis Streams for jobs and Pub/Sub for results.
type RedisQueue struct {
	client  *redis.Client
	stream  string
	group   string
	results string
}

// Check if RedisQueue implements domain.LintQueue
var _ domain.LintQueue = (*RedisQueue)(nil)

// NewRedisQueue connects to Redis at addr and returns a queue over stream, group and results.
// It panics if Redis cannot be reached, so a misconfigured binary never starts.
func NewRedisQueue(addr, stream, group, results string) *RedisQueue {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	// Fail fast
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("failed to connect to redis: %v", err))
	}

	return &RedisQueue{
		client:  rdb,
		stream:  stream,
		group:   group,
		results: results,
	}
}

// Close releases the underlying connection pool.
func (r *RedisQueue) Close() error {
	return r.client.Close()
}

// Publish appends job to the stream with XADD.
func (r *RedisQueue) Publish(ctx context.Context, job domain.Job) error {
	values, err := encodeJob(job)
	if err != nil {
		return err
	}

	// "*" lets Redis generate a timestamp-based ID.
	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe returns a channel of jobs using XREADGROUP (Consumer).
func (r *RedisQueue) Subscribe(ctx context.Context) (<-chan domain.Job, error) {
	if err := r.ensureGroup(ctx); err != nil {
		return nil, err
	}

	outCh := make(chan domain.Job)
	consumerID := consumerName()

	go func() {
		defer close(outCh)

		for {
			if ctx.Err() != nil {
				return
			}

			// Block for 2s at most so cancellation is noticed.
			streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    r.group,
				Consumer: consumerID,
				Streams:  []string{r.stream, ">"},
				Count:    1,
				Block:    2 * time.Second,
			}).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				slog.Error("Reading lint jobs failed", "error", err)
				time.Sleep(1 * time.Second)
				continue
			}

			for _, stream := range streams {
				for _, msg := range stream.Messages {
					job, err := decodeJob(msg)
					if err != nil {
						slog.Error("Dropping malformed stream entry", "msgID", msg.ID, "error", err)
						r.client.XAck(ctx, r.stream, r.group, msg.ID)
						continue
					}

					select {
					case outCh <- job:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return outCh, nil
}

// Acknowledge removes the entry from the pending list with XACK.
func (r *RedisQueue) Acknowledge(ctx context.Context, rawID string) error {
	return r.client.XAck(ctx, r.stream, r.group, rawID).Err()
}

// Broadcast publishes the lint result on the results channel.
func (r *RedisQueue) Broadcast(ctx context.Context, result domain.JobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return r.client.Publish(ctx, r.results, data).Err()
}

// SubscribeResults subscribes to the results channel and streams them to a Go channel.
func (r *RedisQueue) SubscribeResults(ctx context.Context) (<-chan domain.JobResult, error) {
	pubsub := r.client.Subscribe(ctx, r.results)

	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to results: %w", err)
	}

	outCh := make(chan domain.JobResult)

	go func() {
		defer close(outCh)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var result domain.JobResult
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					slog.Error("Failed to unmarshal result", "error", err)
					continue
				}

				select {
				case outCh <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return outCh, nil
}

// ensureGroup creates the consumer group, and the stream with it.
func (r *RedisQueue) ensureGroup(ctx context.Context) error {
	err := r.client.XGroupCreateMkStream(ctx, r.stream, r.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func encodeJob(job domain.Job) (map[string]interface{}, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return map[string]interface{}{jobField: string(data)}, nil
}

func decodeJob(msg redis.XMessage) (domain.Job, error) {
	val, ok := msg.Values[jobField].(string)
	if !ok {
		return domain.Job{}, fmt.Errorf("entry has no %q field", jobField)
	}
	var job domain.Job
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return domain.Job{}, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.ID == "" {
		return domain.Job{}, errors.New("job has no id")
	}

	// Keep the stream ID so the job can be acknowledged later.
	job.RawID = msg.ID
	return job, nil
}

// consumerName identifies this process within the consumer group (e.g. hostname).
func consumerName() string {
	name, _ := os.Hostname()
	if name == "" {
		name = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d", name, os.Getpid())
}
