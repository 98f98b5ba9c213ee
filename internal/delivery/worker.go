// Package delivery drains the delivery task queue: workers claim tasks,
// render the issue for its recipient, send through the mail client, and
// record the outcome. A reaper returns tasks whose worker died to the
// queue.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/seojun/letterpress/internal/mailer"
	"github.com/seojun/letterpress/internal/metrics"
	"github.com/seojun/letterpress/internal/storage"
)

// Config holds worker pool settings.
type Config struct {
	WorkerCount     int
	PollInterval    time.Duration
	ProcessTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// WorkerPool manages a pool of worker goroutines that claim and process
// delivery tasks.
type WorkerPool struct {
	querier storage.Querier
	client  mailer.Client
	retry   *RetryStrategy
	config  Config
	log     zerolog.Logger
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	// issue bodies rarely change under a worker, cache per pool
	issueMu    sync.Mutex
	issueCache map[uuid.UUID]storage.NewsletterIssue
}

// issueCacheLimit bounds the per-pool issue cache. A long-lived worker
// process drains tasks for many issues over its lifetime; once the cache
// fills it is dropped wholesale rather than evicted per entry, since hot
// issues are refetched on the next task anyway.
const issueCacheLimit = 64

// NewWorkerPool creates a WorkerPool that sends through the given client.
func NewWorkerPool(
	querier storage.Querier,
	client mailer.Client,
	retry *RetryStrategy,
	cfg Config,
	log zerolog.Logger,
) *WorkerPool {
	return &WorkerPool{
		querier:    querier,
		client:     client,
		retry:      retry,
		config:     cfg,
		log:        log,
		issueCache: make(map[uuid.UUID]storage.NewsletterIssue),
	}
}

// Start launches the configured number of worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	ctx, wp.cancel = context.WithCancel(ctx)

	for i := range wp.config.WorkerCount {
		wp.wg.Add(1)
		go wp.runWorker(ctx, fmt.Sprintf("worker-%d", i))
	}

	wp.log.Info().
		Int("worker_count", wp.config.WorkerCount).
		Str("provider", wp.client.Name()).
		Msg("delivery worker pool started")
}

// Stop signals all workers to stop and waits up to the configured shutdown
// timeout for them to finish processing.
func (wp *WorkerPool) Stop(ctx context.Context) {
	wp.cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.log.Info().Msg("delivery worker pool stopped gracefully")
	case <-time.After(wp.config.ShutdownTimeout):
		wp.log.Warn().Msg("delivery worker pool shutdown timed out")
	}
}

// runWorker is the main loop for a single worker goroutine. It claims one
// task at a time and sleeps for the poll interval when the queue is empty.
func (wp *WorkerPool) runWorker(ctx context.Context, workerID string) {
	defer wp.wg.Done()

	wp.log.Info().Str("worker", workerID).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			wp.log.Info().Str("worker", workerID).Msg("worker stopping")
			return
		default:
		}

		task, err := wp.querier.ClaimNextDeliveryTask(ctx, workerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				wp.sleep(ctx, wp.config.PollInterval)
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			wp.log.Error().Err(err).Str("worker", workerID).Msg("claim error")
			wp.sleep(ctx, wp.config.PollInterval)
			continue
		}

		wp.processTask(ctx, workerID, task)
	}
}

// processTask sends one claimed task and records the outcome. All state
// transitions are guarded on the claim, so a task the reaper already
// returned to the queue is left untouched.
func (wp *WorkerPool) processTask(ctx context.Context, workerID string, task storage.ClaimNextDeliveryTaskRow) {
	log := wp.log.With().
		Str("worker", workerID).
		Str("task_id", task.ID.String()).
		Str("issue_id", task.IssueID.String()).
		Logger()

	issue, err := wp.getIssue(ctx, task.IssueID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load issue for task")
		wp.recordFailure(ctx, workerID, task, fmt.Errorf("load issue: %w", err), log)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, wp.config.ProcessTimeout)
	defer cancel()

	start := time.Now()
	sendErr := wp.client.Send(sendCtx, &mailer.Message{
		To:       task.RecipientEmail,
		Subject:  issue.Title,
		TextBody: issue.TextBody,
		HTMLBody: issue.HTMLBody,
	})
	metrics.DeliverySendDuration.Observe(time.Since(start).Seconds())

	if sendErr == nil {
		n, err := wp.querier.MarkDeliveryTaskSent(ctx, storage.MarkDeliveryTaskSentParams{
			ID:       task.ID,
			WorkerID: workerID,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to mark task sent")
			return
		}
		if n == 0 {
			log.Warn().Msg("claim lost before marking sent, task may be resent")
			return
		}
		metrics.DeliveryAttemptsTotal.WithLabelValues("sent").Inc()
		log.Info().Str("recipient", task.RecipientEmail).Msg("newsletter delivered")
		return
	}

	wp.recordFailure(ctx, workerID, task, sendErr, log)
}

// recordFailure classifies a send failure and applies the matching
// transition: permanent failures terminate immediately, transient
// failures reschedule until the retry budget runs out.
func (wp *WorkerPool) recordFailure(ctx context.Context, workerID string, task storage.ClaimNextDeliveryTaskRow, sendErr error, log zerolog.Logger) {
	if mailer.IsPermanent(sendErr) {
		n, err := wp.querier.MarkDeliveryTaskFailed(ctx, storage.MarkDeliveryTaskFailedParams{
			ID:        task.ID,
			WorkerID:  workerID,
			LastError: sendErr.Error(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to mark task failed")
			return
		}
		if n == 0 {
			log.Warn().Msg("claim lost before marking failed")
			return
		}
		wp.audit(ctx, task, storage.AuditReasonPermanentFailure, sendErr.Error(), log)
		metrics.DeliveryAttemptsTotal.WithLabelValues("permanent_failure").Inc()
		log.Warn().Err(sendErr).Str("recipient", task.RecipientEmail).Msg("permanent delivery failure")
		return
	}

	retryCount := int(task.RetryCount)
	if wp.retry.ShouldRetry(retryCount) {
		backoff := wp.retry.NextBackoff(retryCount)
		n, err := wp.querier.MarkDeliveryTaskRetry(ctx, storage.MarkDeliveryTaskRetryParams{
			ID:            task.ID,
			WorkerID:      workerID,
			NextAttemptAt: time.Now().Add(backoff),
			LastError:     sendErr.Error(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to mark task for retry")
			return
		}
		if n == 0 {
			log.Warn().Msg("claim lost before scheduling retry")
			return
		}
		metrics.DeliveryAttemptsTotal.WithLabelValues("retried").Inc()
		log.Info().
			Err(sendErr).
			Int("retry_count", retryCount+1).
			Dur("backoff", backoff).
			Msg("delivery failed, retry scheduled")
		return
	}

	n, err := wp.querier.MarkDeliveryTaskExhausted(ctx, storage.MarkDeliveryTaskExhaustedParams{
		ID:        task.ID,
		WorkerID:  workerID,
		LastError: sendErr.Error(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to mark task exhausted")
		return
	}
	if n == 0 {
		log.Warn().Msg("claim lost before marking exhausted")
		return
	}
	detail := fmt.Sprintf("%d attempts, last error: %s", retryCount+1, sendErr.Error())
	wp.audit(ctx, task, storage.AuditReasonRetryExhausted, detail, log)
	metrics.DeliveryAttemptsTotal.WithLabelValues("exhausted").Inc()
	log.Warn().
		Err(sendErr).
		Int("retry_count", retryCount).
		Str("recipient", task.RecipientEmail).
		Msg("retry budget exhausted, delivery abandoned")
}

func (wp *WorkerPool) audit(ctx context.Context, task storage.ClaimNextDeliveryTaskRow, reason storage.AuditReason, detail string, log zerolog.Logger) {
	err := wp.querier.CreateDeliveryAudit(ctx, storage.CreateDeliveryAuditParams{
		TaskID:         task.ID,
		IssueID:        task.IssueID,
		RecipientEmail: task.RecipientEmail,
		Reason:         reason,
		Detail:         detail,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to write delivery audit entry")
	}
}

func (wp *WorkerPool) getIssue(ctx context.Context, issueID uuid.UUID) (storage.NewsletterIssue, error) {
	wp.issueMu.Lock()
	issue, ok := wp.issueCache[issueID]
	wp.issueMu.Unlock()
	if ok {
		return issue, nil
	}

	issue, err := wp.querier.GetNewsletterIssueByID(ctx, issueID)
	if err != nil {
		return storage.NewsletterIssue{}, err
	}

	wp.issueMu.Lock()
	if len(wp.issueCache) >= issueCacheLimit {
		wp.issueCache = make(map[uuid.UUID]storage.NewsletterIssue)
	}
	wp.issueCache[issueID] = issue
	wp.issueMu.Unlock()
	return issue, nil
}

func (wp *WorkerPool) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
