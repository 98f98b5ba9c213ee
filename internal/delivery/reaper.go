package delivery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/seojun/letterpress/internal/metrics"
	"github.com/seojun/letterpress/internal/storage"
)

// Reaper periodically returns tasks to the queue when their claiming
// worker has been silent past the liveness timeout. Without it, a
// worker crash would strand its in-flight task forever.
type Reaper struct {
	querier         storage.Querier
	interval        time.Duration
	livenessTimeout time.Duration
	log             zerolog.Logger
}

func NewReaper(querier storage.Querier, interval, livenessTimeout time.Duration, log zerolog.Logger) *Reaper {
	return &Reaper{
		querier:         querier,
		interval:        interval,
		livenessTimeout: livenessTimeout,
		log:             log,
	}
}

// Run reaps on the configured interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().
		Dur("interval", r.interval).
		Dur("liveness_timeout", r.livenessTimeout).
		Msg("reaper started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reaper stopping")
			return
		case <-ticker.C:
			r.reapOnce(ctx)
		}
	}
}

func (r *Reaper) reapOnce(ctx context.Context) {
	cutoff := time.Now().Add(-r.livenessTimeout)
	n, err := r.querier.ReapStuckDeliveryTasks(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error().Err(err).Msg("reap failed")
		}
		return
	}
	if n > 0 {
		metrics.DeliveryTasksReapedTotal.Add(float64(n))
		r.log.Warn().Int64("reaped", n).Msg("returned stuck tasks to the queue")
	}

	r.updateQueueDepth(ctx)
}

// updateQueueDepth refreshes the queue depth gauge on the reaper's cadence.
// Statuses with no tasks are zeroed so the gauge does not hold stale values
// after a status empties out.
func (r *Reaper) updateQueueDepth(ctx context.Context) {
	rows, err := r.querier.CountAllDeliveryTasksByStatus(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error().Err(err).Msg("queue depth count failed")
		}
		return
	}

	counts := map[storage.DeliveryTaskStatus]int64{
		storage.TaskStatusPending:  0,
		storage.TaskStatusInFlight: 0,
		storage.TaskStatusSent:     0,
		storage.TaskStatusFailed:   0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	for status, count := range counts {
		metrics.DeliveryQueueDepth.WithLabelValues(string(status)).Set(float64(count))
	}
}
