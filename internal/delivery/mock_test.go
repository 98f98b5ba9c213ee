package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/seojun/letterpress/internal/mailer"
	"github.com/seojun/letterpress/internal/storage"
)

// memQueue is an in-memory storage.Querier with real claim semantics:
// a task can only be claimed while pending and eligible, and every
// transition checks status and claiming worker like the SQL does.
type memQueue struct {
	mu     sync.Mutex
	tasks  map[uuid.UUID]*storage.DeliveryTask
	issues map[uuid.UUID]storage.NewsletterIssue
	audits []storage.CreateDeliveryAuditParams
}

func newMemQueue() *memQueue {
	return &memQueue{
		tasks:  make(map[uuid.UUID]*storage.DeliveryTask),
		issues: make(map[uuid.UUID]storage.NewsletterIssue),
	}
}

func (m *memQueue) addIssue(issue storage.NewsletterIssue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[issue.ID] = issue
}

func (m *memQueue) addTask(issueID uuid.UUID, email string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.tasks[id] = &storage.DeliveryTask{
		ID:             id,
		IssueID:        issueID,
		RecipientEmail: email,
		Status:         storage.TaskStatusPending,
		NextAttemptAt:  pgtype.Timestamptz{Time: time.Now().Add(-time.Second), Valid: true},
	}
	return id
}

func (m *memQueue) task(id uuid.UUID) storage.DeliveryTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tasks[id]
}

func (m *memQueue) statusCounts() map[storage.DeliveryTaskStatus]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[storage.DeliveryTaskStatus]int)
	for _, t := range m.tasks {
		counts[t.Status]++
	}
	return counts
}

func (m *memQueue) ClaimNextDeliveryTask(_ context.Context, workerID string) (storage.ClaimNextDeliveryTaskRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tasks {
		if t.Status == storage.TaskStatusPending && !t.NextAttemptAt.Time.After(now) {
			t.Status = storage.TaskStatusInFlight
			t.ClaimedBy = pgtype.Text{String: workerID, Valid: true}
			t.ClaimedAt = pgtype.Timestamptz{Time: now, Valid: true}
			return storage.ClaimNextDeliveryTaskRow{
				ID:             t.ID,
				IssueID:        t.IssueID,
				RecipientEmail: t.RecipientEmail,
				RetryCount:     t.RetryCount,
			}, nil
		}
	}
	return storage.ClaimNextDeliveryTaskRow{}, pgx.ErrNoRows
}

func (m *memQueue) transition(id uuid.UUID, workerID string, apply func(*storage.DeliveryTask)) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Status != storage.TaskStatusInFlight || !t.ClaimedBy.Valid || t.ClaimedBy.String != workerID {
		return 0, nil
	}
	apply(t)
	t.ClaimedBy = pgtype.Text{}
	t.ClaimedAt = pgtype.Timestamptz{}
	return 1, nil
}

func (m *memQueue) MarkDeliveryTaskSent(_ context.Context, arg storage.MarkDeliveryTaskSentParams) (int64, error) {
	return m.transition(arg.ID, arg.WorkerID, func(t *storage.DeliveryTask) {
		t.Status = storage.TaskStatusSent
	})
}

func (m *memQueue) MarkDeliveryTaskRetry(_ context.Context, arg storage.MarkDeliveryTaskRetryParams) (int64, error) {
	return m.transition(arg.ID, arg.WorkerID, func(t *storage.DeliveryTask) {
		t.Status = storage.TaskStatusPending
		t.RetryCount++
		t.NextAttemptAt = pgtype.Timestamptz{Time: arg.NextAttemptAt, Valid: true}
		t.LastError = pgtype.Text{String: arg.LastError, Valid: true}
	})
}

func (m *memQueue) MarkDeliveryTaskExhausted(_ context.Context, arg storage.MarkDeliveryTaskExhaustedParams) (int64, error) {
	return m.transition(arg.ID, arg.WorkerID, func(t *storage.DeliveryTask) {
		t.Status = storage.TaskStatusFailed
		t.RetryCount++
		t.LastError = pgtype.Text{String: arg.LastError, Valid: true}
	})
}

func (m *memQueue) MarkDeliveryTaskFailed(_ context.Context, arg storage.MarkDeliveryTaskFailedParams) (int64, error) {
	return m.transition(arg.ID, arg.WorkerID, func(t *storage.DeliveryTask) {
		t.Status = storage.TaskStatusFailed
		t.LastError = pgtype.Text{String: arg.LastError, Valid: true}
	})
}

func (m *memQueue) ReapStuckDeliveryTasks(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.tasks {
		if t.Status == storage.TaskStatusInFlight && t.ClaimedAt.Valid && t.ClaimedAt.Time.Before(cutoff) {
			t.Status = storage.TaskStatusPending
			t.ClaimedBy = pgtype.Text{}
			t.ClaimedAt = pgtype.Timestamptz{}
			t.NextAttemptAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			n++
		}
	}
	return n, nil
}

func (m *memQueue) GetNewsletterIssueByID(_ context.Context, id uuid.UUID) (storage.NewsletterIssue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.issues[id]
	if !ok {
		return storage.NewsletterIssue{}, pgx.ErrNoRows
	}
	return issue, nil
}

func (m *memQueue) CreateDeliveryAudit(_ context.Context, arg storage.CreateDeliveryAuditParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, arg)
	return nil
}

func (m *memQueue) auditEntries() []storage.CreateDeliveryAuditParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.CreateDeliveryAuditParams(nil), m.audits...)
}

// Unused Querier methods.

func (m *memQueue) CreateSubscriber(_ context.Context, _ storage.CreateSubscriberParams) (storage.Subscriber, error) {
	return storage.Subscriber{}, nil
}

func (m *memQueue) GetSubscriberByEmail(_ context.Context, _ string) (storage.Subscriber, error) {
	return storage.Subscriber{}, nil
}

func (m *memQueue) InsertSubscriptionToken(_ context.Context, _ storage.InsertSubscriptionTokenParams) error {
	return nil
}

func (m *memQueue) DeleteSubscriptionToken(_ context.Context, _ string) (uuid.UUID, error) {
	return uuid.Nil, nil
}

func (m *memQueue) ConfirmSubscriber(_ context.Context, _ uuid.UUID) error {
	return nil
}

func (m *memQueue) ListConfirmedSubscriberEmails(_ context.Context) ([]string, error) {
	return nil, nil
}

func (m *memQueue) CreateNewsletterIssue(_ context.Context, _ storage.CreateNewsletterIssueParams) (storage.NewsletterIssue, error) {
	return storage.NewsletterIssue{}, nil
}

func (m *memQueue) CreateDeliveryTask(_ context.Context, _ storage.CreateDeliveryTaskParams) error {
	return nil
}

func (m *memQueue) GetDeliveryTaskByID(_ context.Context, id uuid.UUID) (storage.DeliveryTask, error) {
	return m.task(id), nil
}

func (m *memQueue) CountDeliveryTasksByStatus(_ context.Context, _ uuid.UUID) ([]storage.CountDeliveryTasksByStatusRow, error) {
	return nil, nil
}

func (m *memQueue) CountAllDeliveryTasksByStatus(_ context.Context) ([]storage.CountDeliveryTasksByStatusRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[storage.DeliveryTaskStatus]int64)
	for _, t := range m.tasks {
		counts[t.Status]++
	}
	var rows []storage.CountDeliveryTasksByStatusRow
	for status, n := range counts {
		rows = append(rows, storage.CountDeliveryTasksByStatusRow{Status: status, Count: n})
	}
	return rows, nil
}

func (m *memQueue) InsertIdempotencyRecord(_ context.Context, _ storage.InsertIdempotencyRecordParams) error {
	return nil
}

func (m *memQueue) GetIdempotencyRecord(_ context.Context, _ storage.GetIdempotencyRecordParams) (storage.IdempotencyRecord, error) {
	return storage.IdempotencyRecord{}, nil
}

func (m *memQueue) DeleteIdempotencyRecordsBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *memQueue) CreateAdminUser(_ context.Context, _ storage.CreateAdminUserParams) (storage.AdminUser, error) {
	return storage.AdminUser{}, nil
}

func (m *memQueue) GetAdminUserByEmail(_ context.Context, _ string) (storage.AdminUser, error) {
	return storage.AdminUser{}, nil
}

func (m *memQueue) GetAdminUserByID(_ context.Context, _ uuid.UUID) (storage.AdminUser, error) {
	return storage.AdminUser{}, nil
}

func (m *memQueue) UpdateAdminUserPassword(_ context.Context, _ storage.UpdateAdminUserPasswordParams) error {
	return nil
}

func (m *memQueue) ListDeliveryAuditByIssueID(_ context.Context, _ uuid.UUID) ([]storage.DeliveryAudit, error) {
	return nil, nil
}

func (m *memQueue) InsertInvitationToken(_ context.Context, _ storage.InsertInvitationTokenParams) error {
	return nil
}

func (m *memQueue) InvitationTokenExists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (m *memQueue) DeleteInvitationToken(_ context.Context, _ storage.DeleteInvitationTokenParams) (int64, error) {
	return 0, nil
}

var _ storage.Querier = (*memQueue)(nil)

// countingClient records every send and fails according to script.
type countingClient struct {
	mu    sync.Mutex
	sends map[string]int
	// errs maps recipient to the error every send returns; nil entry
	// or missing recipient means success.
	errs map[string]error
	// scripts maps recipient to per-attempt outcomes, consumed one per
	// send. Once the script runs out, errs (or success) takes over.
	scripts map[string][]error
}

func newCountingClient() *countingClient {
	return &countingClient{
		sends:   make(map[string]int),
		errs:    make(map[string]error),
		scripts: make(map[string][]error),
	}
}

func (c *countingClient) Name() string { return "counting" }

func (c *countingClient) Send(_ context.Context, msg *mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends[msg.To]++
	if script := c.scripts[msg.To]; len(script) > 0 {
		err := script[0]
		c.scripts[msg.To] = script[1:]
		return err
	}
	return c.errs[msg.To]
}

func (c *countingClient) sendCount(to string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends[to]
}
