package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dontdude/ymlint/internal/domain"
	"github.com/dontdude/ymlint/internal/metrics"
)

// recoveryConsumer is the consumer name stale entries are claimed into.
const recoveryConsumer = "recovery-agent"

// StartRecoveryRoutine polls the PEL for stale jobs and reclaims them.
// A job delivered fewer than maxDeliveries times is published again; beyond that it
// is dropped and an error result is broadcast so a waiting client is not left hanging.
func (r *RedisQueue) StartRecoveryRoutine(ctx context.Context, interval, minIdle time.Duration, maxDeliveries int64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Starting Redis Recovery Routine", "interval", interval, "minIdle", minIdle, "maxDeliveries", maxDeliveries)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.recoverStale(ctx, minIdle, maxDeliveries); err != nil && ctx.Err() == nil {
				slog.Error("Recovery routine failed", "error", err)
			}
		}
	}
}

func (r *RedisQueue) recoverStale(ctx context.Context, minIdle time.Duration, maxDeliveries int64) error {
	start := "-"
	for {
		// XAUTOCLAIM: claim batches of entries pending for longer than minIdle.
		messages, next, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   r.stream,
			Group:    r.group,
			MinIdle:  minIdle,
			Start:    start,
			Count:    10,
			Consumer: recoveryConsumer,
		}).Result()
		if err != nil {
			return fmt.Errorf("xautoclaim: %w", err)
		}
		if len(messages) > 0 {
			slog.Info("Recovered stale jobs", "count", len(messages))
		}

		for _, msg := range messages {
			r.recoverOne(ctx, msg, maxDeliveries)
		}

		if len(messages) == 0 || next == "0-0" {
			return nil
		}
		start = next
	}
}

func (r *RedisQueue) recoverOne(ctx context.Context, msg redis.XMessage, maxDeliveries int64) {
	job, err := decodeJob(msg)
	if err != nil {
		slog.Warn("Dropping malformed stale entry", "msgID", msg.ID, "error", err)
		r.client.XAck(ctx, r.stream, r.group, msg.ID)
		return
	}

	pending, err := r.deliveryCount(ctx, msg.ID)
	if err != nil {
		// Left pending; the next sweep claims it again.
		slog.Error("Failed to read delivery count", "msgID", msg.ID, "error", err)
		return
	}
	deliveries := job.Deliveries + pending

	if !requeueAllowed(deliveries, maxDeliveries) {
		slog.Warn("Stale job exceeded delivery limit", "jobID", job.ID, "deliveries", deliveries)
		metrics.IncreaseRecoveredJobsMetric(metrics.RecoveryDeadLetter)
		result := domain.RunError(fmt.Sprintf("job abandoned after %d deliveries", deliveries)).Result(job.ID)
		if err := r.Broadcast(ctx, result); err != nil {
			slog.Error("Failed to broadcast abandoned job", "jobID", job.ID, "error", err)
		}
		r.client.XAck(ctx, r.stream, r.group, msg.ID)
		return
	}

	slog.Warn("Requeueing stale job", "jobID", job.ID, "deliveries", deliveries)
	metrics.IncreaseRecoveredJobsMetric(metrics.RecoveryRequeued)
	job.Deliveries = deliveries
	if err := r.Publish(ctx, job); err != nil {
		// Still pending, so a later sweep retries the requeue.
		slog.Error("Failed to requeue stale job", "jobID", job.ID, "error", err)
		return
	}
	r.client.XAck(ctx, r.stream, r.group, msg.ID)
}

// deliveryCount reads XDeliveryCount for a single pending entry.
func (r *RedisQueue) deliveryCount(ctx context.Context, id string) (int64, error) {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.stream,
		Group:  r.group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return pending[0].RetryCount, nil
}

// requeueAllowed reports whether a stale job may be published again. deliveries
// already includes the claim that found it stale, since XAUTOCLAIM increments the count.
func requeueAllowed(deliveries, maxDeliveries int64) bool {
	return deliveries <= maxDeliveries
}
