package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/seojun/letterpress/internal/storage"
)

// mockQuerier implements storage.Querier for handler tests. Behavior is
// injected per test through the function fields; unset fields return
// zero values.
type mockQuerier struct {
	getAdminUserByEmailFn        func(email string) (storage.AdminUser, error)
	getAdminUserByIDFn           func(id uuid.UUID) (storage.AdminUser, error)
	updateAdminUserPasswordFn    func(arg storage.UpdateAdminUserPasswordParams) error
	deleteSubscriptionTokenFn    func(token string) (uuid.UUID, error)
	confirmSubscriberFn          func(id uuid.UUID) error
	getNewsletterIssueByIDFn     func(id uuid.UUID) (storage.NewsletterIssue, error)
	countDeliveryTasksByStatusFn func(issueID uuid.UUID) ([]storage.CountDeliveryTasksByStatusRow, error)
	listDeliveryAuditByIssueIDFn func(issueID uuid.UUID) ([]storage.DeliveryAudit, error)
	insertInvitationTokenFn      func(arg storage.InsertInvitationTokenParams) error
	invitationTokenExistsFn      func(token string) (bool, error)
	deleteInvitationTokenFn      func(arg storage.DeleteInvitationTokenParams) (int64, error)
}

func (m *mockQuerier) GetAdminUserByEmail(_ context.Context, email string) (storage.AdminUser, error) {
	if m.getAdminUserByEmailFn != nil {
		return m.getAdminUserByEmailFn(email)
	}
	return storage.AdminUser{}, nil
}

func (m *mockQuerier) GetAdminUserByID(_ context.Context, id uuid.UUID) (storage.AdminUser, error) {
	if m.getAdminUserByIDFn != nil {
		return m.getAdminUserByIDFn(id)
	}
	return storage.AdminUser{}, nil
}

func (m *mockQuerier) UpdateAdminUserPassword(_ context.Context, arg storage.UpdateAdminUserPasswordParams) error {
	if m.updateAdminUserPasswordFn != nil {
		return m.updateAdminUserPasswordFn(arg)
	}
	return nil
}

func (m *mockQuerier) DeleteSubscriptionToken(_ context.Context, token string) (uuid.UUID, error) {
	if m.deleteSubscriptionTokenFn != nil {
		return m.deleteSubscriptionTokenFn(token)
	}
	return uuid.Nil, nil
}

func (m *mockQuerier) ConfirmSubscriber(_ context.Context, id uuid.UUID) error {
	if m.confirmSubscriberFn != nil {
		return m.confirmSubscriberFn(id)
	}
	return nil
}

func (m *mockQuerier) GetNewsletterIssueByID(_ context.Context, id uuid.UUID) (storage.NewsletterIssue, error) {
	if m.getNewsletterIssueByIDFn != nil {
		return m.getNewsletterIssueByIDFn(id)
	}
	return storage.NewsletterIssue{}, nil
}

func (m *mockQuerier) CountDeliveryTasksByStatus(_ context.Context, issueID uuid.UUID) ([]storage.CountDeliveryTasksByStatusRow, error) {
	if m.countDeliveryTasksByStatusFn != nil {
		return m.countDeliveryTasksByStatusFn(issueID)
	}
	return nil, nil
}

func (m *mockQuerier) ListDeliveryAuditByIssueID(_ context.Context, issueID uuid.UUID) ([]storage.DeliveryAudit, error) {
	if m.listDeliveryAuditByIssueIDFn != nil {
		return m.listDeliveryAuditByIssueIDFn(issueID)
	}
	return nil, nil
}

func (m *mockQuerier) InsertInvitationToken(_ context.Context, arg storage.InsertInvitationTokenParams) error {
	if m.insertInvitationTokenFn != nil {
		return m.insertInvitationTokenFn(arg)
	}
	return nil
}

func (m *mockQuerier) InvitationTokenExists(_ context.Context, token string) (bool, error) {
	if m.invitationTokenExistsFn != nil {
		return m.invitationTokenExistsFn(token)
	}
	return false, nil
}

func (m *mockQuerier) DeleteInvitationToken(_ context.Context, arg storage.DeleteInvitationTokenParams) (int64, error) {
	if m.deleteInvitationTokenFn != nil {
		return m.deleteInvitationTokenFn(arg)
	}
	return 0, nil
}

// Methods the handlers under test never reach.

func (m *mockQuerier) CreateSubscriber(_ context.Context, _ storage.CreateSubscriberParams) (storage.Subscriber, error) {
	return storage.Subscriber{}, nil
}

func (m *mockQuerier) GetSubscriberByEmail(_ context.Context, _ string) (storage.Subscriber, error) {
	return storage.Subscriber{}, nil
}

func (m *mockQuerier) InsertSubscriptionToken(_ context.Context, _ storage.InsertSubscriptionTokenParams) error {
	return nil
}

func (m *mockQuerier) ListConfirmedSubscriberEmails(_ context.Context) ([]string, error) {
	return nil, nil
}

func (m *mockQuerier) CreateNewsletterIssue(_ context.Context, _ storage.CreateNewsletterIssueParams) (storage.NewsletterIssue, error) {
	return storage.NewsletterIssue{}, nil
}

func (m *mockQuerier) CreateDeliveryTask(_ context.Context, _ storage.CreateDeliveryTaskParams) error {
	return nil
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

func (m *mockQuerier) CreateDeliveryAudit(_ context.Context, _ storage.CreateDeliveryAuditParams) error {
	return nil
}

func (m *mockQuerier) CountAllDeliveryTasksByStatus(_ context.Context) ([]storage.CountDeliveryTasksByStatusRow, error) {
	return nil, nil
}

var _ storage.Querier = (*mockQuerier)(nil)
