package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Querier is the query surface of the persistence layer. Handlers and
// workers depend on this interface so tests can substitute mocks.
type Querier interface {
	// Subscribers
	CreateSubscriber(ctx context.Context, arg CreateSubscriberParams) (Subscriber, error)
	GetSubscriberByEmail(ctx context.Context, email string) (Subscriber, error)
	InsertSubscriptionToken(ctx context.Context, arg InsertSubscriptionTokenParams) error
	DeleteSubscriptionToken(ctx context.Context, token string) (uuid.UUID, error)
	ConfirmSubscriber(ctx context.Context, id uuid.UUID) error
	ListConfirmedSubscriberEmails(ctx context.Context) ([]string, error)

	// Newsletter issues
	CreateNewsletterIssue(ctx context.Context, arg CreateNewsletterIssueParams) (NewsletterIssue, error)
	GetNewsletterIssueByID(ctx context.Context, id uuid.UUID) (NewsletterIssue, error)

	// Delivery tasks
	CreateDeliveryTask(ctx context.Context, arg CreateDeliveryTaskParams) error
	GetDeliveryTaskByID(ctx context.Context, id uuid.UUID) (DeliveryTask, error)
	ClaimNextDeliveryTask(ctx context.Context, workerID string) (ClaimNextDeliveryTaskRow, error)
	MarkDeliveryTaskSent(ctx context.Context, arg MarkDeliveryTaskSentParams) (int64, error)
	MarkDeliveryTaskRetry(ctx context.Context, arg MarkDeliveryTaskRetryParams) (int64, error)
	MarkDeliveryTaskExhausted(ctx context.Context, arg MarkDeliveryTaskExhaustedParams) (int64, error)
	MarkDeliveryTaskFailed(ctx context.Context, arg MarkDeliveryTaskFailedParams) (int64, error)
	ReapStuckDeliveryTasks(ctx context.Context, cutoff time.Time) (int64, error)
	CountDeliveryTasksByStatus(ctx context.Context, issueID uuid.UUID) ([]CountDeliveryTasksByStatusRow, error)
	CountAllDeliveryTasksByStatus(ctx context.Context) ([]CountDeliveryTasksByStatusRow, error)

	// Idempotency records
	InsertIdempotencyRecord(ctx context.Context, arg InsertIdempotencyRecordParams) error
	GetIdempotencyRecord(ctx context.Context, arg GetIdempotencyRecordParams) (IdempotencyRecord, error)
	DeleteIdempotencyRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Admin users
	CreateAdminUser(ctx context.Context, arg CreateAdminUserParams) (AdminUser, error)
	GetAdminUserByEmail(ctx context.Context, email string) (AdminUser, error)
	GetAdminUserByID(ctx context.Context, id uuid.UUID) (AdminUser, error)
	UpdateAdminUserPassword(ctx context.Context, arg UpdateAdminUserPasswordParams) error

	// Collaborator invitations
	InsertInvitationToken(ctx context.Context, arg InsertInvitationTokenParams) error
	InvitationTokenExists(ctx context.Context, token string) (bool, error)
	DeleteInvitationToken(ctx context.Context, arg DeleteInvitationTokenParams) (int64, error)

	// Delivery audit
	CreateDeliveryAudit(ctx context.Context, arg CreateDeliveryAuditParams) error
	ListDeliveryAuditByIssueID(ctx context.Context, issueID uuid.UUID) ([]DeliveryAudit, error)
}

var _ Querier = (*Queries)(nil)
