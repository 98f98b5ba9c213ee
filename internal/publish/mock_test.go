package publish

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/seojun/letterpress/internal/idempotency"
	"github.com/seojun/letterpress/internal/storage"
)

// mockQuerier implements storage.Querier for testing. Only the methods
// the publish path touches carry behavior; the rest are stubs.
type mockQuerier struct {
	confirmedEmails []string
	createdIssues   []storage.CreateNewsletterIssueParams
	createdTasks    []storage.CreateDeliveryTaskParams

	createIssueErr error
	listEmailsErr  error
	createTaskErr  error
}

func (m *mockQuerier) CreateNewsletterIssue(_ context.Context, arg storage.CreateNewsletterIssueParams) (storage.NewsletterIssue, error) {
	if m.createIssueErr != nil {
		return storage.NewsletterIssue{}, m.createIssueErr
	}
	m.createdIssues = append(m.createdIssues, arg)
	return storage.NewsletterIssue{
		ID:       arg.ID,
		Title:    arg.Title,
		TextBody: arg.TextBody,
		HTMLBody: arg.HTMLBody,
	}, nil
}

func (m *mockQuerier) ListConfirmedSubscriberEmails(_ context.Context) ([]string, error) {
	if m.listEmailsErr != nil {
		return nil, m.listEmailsErr
	}
	return m.confirmedEmails, nil
}

func (m *mockQuerier) CreateDeliveryTask(_ context.Context, arg storage.CreateDeliveryTaskParams) error {
	if m.createTaskErr != nil {
		return m.createTaskErr
	}
	m.createdTasks = append(m.createdTasks, arg)
	return nil
}

func (m *mockQuerier) CreateSubscriber(_ context.Context, _ storage.CreateSubscriberParams) (storage.Subscriber, error) {
	return storage.Subscriber{}, nil
}

func (m *mockQuerier) GetSubscriberByEmail(_ context.Context, _ string) (storage.Subscriber, error) {
	return storage.Subscriber{}, nil
}

func (m *mockQuerier) InsertSubscriptionToken(_ context.Context, _ storage.InsertSubscriptionTokenParams) error {
	return nil
}

func (m *mockQuerier) DeleteSubscriptionToken(_ context.Context, _ string) (uuid.UUID, error) {
	return uuid.Nil, nil
}

func (m *mockQuerier) ConfirmSubscriber(_ context.Context, _ uuid.UUID) error {
	return nil
}

func (m *mockQuerier) GetNewsletterIssueByID(_ context.Context, _ uuid.UUID) (storage.NewsletterIssue, error) {
	return storage.NewsletterIssue{}, nil
}

func (m *mockQuerier) GetDeliveryTaskByID(_ context.Context, _ uuid.UUID) (storage.DeliveryTask, error) {
	return storage.DeliveryTask{}, nil
}

func (m *mockQuerier) ClaimNextDeliveryTask(_ context.Context, _ string) (storage.ClaimNextDeliveryTaskRow, error) {
	return storage.ClaimNextDeliveryTaskRow{}, nil
}

func (m *mockQuerier) MarkDeliveryTaskSent(_ context.Context, _ storage.MarkDeliveryTaskSentParams) (int64, error) {
	return 0, nil
}

func (m *mockQuerier) MarkDeliveryTaskRetry(_ context.Context, _ storage.MarkDeliveryTaskRetryParams) (int64, error) {
	return 0, nil
}

func (m *mockQuerier) MarkDeliveryTaskExhausted(_ context.Context, _ storage.MarkDeliveryTaskExhaustedParams) (int64, error) {
	return 0, nil
}

func (m *mockQuerier) MarkDeliveryTaskFailed(_ context.Context, _ storage.MarkDeliveryTaskFailedParams) (int64, error) {
	return 0, nil
}

func (m *mockQuerier) ReapStuckDeliveryTasks(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *mockQuerier) CountDeliveryTasksByStatus(_ context.Context, _ uuid.UUID) ([]storage.CountDeliveryTasksByStatusRow, error) {
	return nil, nil
}

func (m *mockQuerier) InsertIdempotencyRecord(_ context.Context, _ storage.InsertIdempotencyRecordParams) error {
	return nil
}

func (m *mockQuerier) GetIdempotencyRecord(_ context.Context, _ storage.GetIdempotencyRecordParams) (storage.IdempotencyRecord, error) {
	return storage.IdempotencyRecord{}, nil
}

func (m *mockQuerier) DeleteIdempotencyRecordsBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *mockQuerier) CreateAdminUser(_ context.Context, _ storage.CreateAdminUserParams) (storage.AdminUser, error) {
	return storage.AdminUser{}, nil
}

func (m *mockQuerier) GetAdminUserByEmail(_ context.Context, _ string) (storage.AdminUser, error) {
	return storage.AdminUser{}, nil
}

func (m *mockQuerier) GetAdminUserByID(_ context.Context, _ uuid.UUID) (storage.AdminUser, error) {
	return storage.AdminUser{}, nil
}

func (m *mockQuerier) UpdateAdminUserPassword(_ context.Context, _ storage.UpdateAdminUserPasswordParams) error {
	return nil
}

func (m *mockQuerier) CreateDeliveryAudit(_ context.Context, _ storage.CreateDeliveryAuditParams) error {
	return nil
}

func (m *mockQuerier) ListDeliveryAuditByIssueID(_ context.Context, _ uuid.UUID) ([]storage.DeliveryAudit, error) {
	return nil, nil
}

func (m *mockQuerier) CountAllDeliveryTasksByStatus(_ context.Context) ([]storage.CountDeliveryTasksByStatusRow, error) {
	return nil, nil
}

func (m *mockQuerier) InsertInvitationToken(_ context.Context, _ storage.InsertInvitationTokenParams) error {
	return nil
}

func (m *mockQuerier) InvitationTokenExists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (m *mockQuerier) DeleteInvitationToken(_ context.Context, _ storage.DeleteInvitationTokenParams) (int64, error) {
	return 0, nil
}

var _ storage.Querier = (*mockQuerier)(nil)

// mockTransaction implements idempotency.Transaction over a mockQuerier.
type mockTransaction struct {
	querier *mockQuerier

	saveErr error

	saved      bool
	savedCode  int
	savedBody  []byte
	rolledBack bool
}

func (t *mockTransaction) Queries() storage.Querier { return t.querier }

func (t *mockTransaction) SaveResponse(_ context.Context, statusCode int, body []byte) error {
	if t.saveErr != nil {
		t.rolledBack = true
		return t.saveErr
	}
	t.saved = true
	t.savedCode = statusCode
	t.savedBody = body
	return nil
}

func (t *mockTransaction) Rollback(_ context.Context) error {
	t.rolledBack = true
	return nil
}

var _ idempotency.Transaction = (*mockTransaction)(nil)

// mockStore implements idempotencyStore.
type mockStore struct {
	action  idempotency.NextAction
	tryErr  error
	winner  *idempotency.SavedResponse
	getErr  error
	tryKeys []string
}

func (s *mockStore) TryProcessing(_ context.Context, _ uuid.UUID, key idempotency.Key) (idempotency.NextAction, error) {
	s.tryKeys = append(s.tryKeys, key.String())
	return s.action, s.tryErr
}

func (s *mockStore) GetSavedResponse(_ context.Context, _ uuid.UUID, _ idempotency.Key) (*idempotency.SavedResponse, error) {
	return s.winner, s.getErr
}
