package storage

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// SubscriberStatus is the lifecycle state of a subscriber.
type SubscriberStatus string

const (
	SubscriberStatusPending   SubscriberStatus = "pending_confirmation"
	SubscriberStatusConfirmed SubscriberStatus = "confirmed"
)

// DeliveryTaskStatus is the lifecycle state of a delivery task.
// Transitions: pending -> in_flight -> {sent | pending | failed}.
// sent and failed are terminal.
type DeliveryTaskStatus string

const (
	TaskStatusPending  DeliveryTaskStatus = "pending"
	TaskStatusInFlight DeliveryTaskStatus = "in_flight"
	TaskStatusSent     DeliveryTaskStatus = "sent"
	TaskStatusFailed   DeliveryTaskStatus = "failed"
)

// AuditReason classifies a delivery audit entry.
type AuditReason string

const (
	AuditReasonRetryExhausted   AuditReason = "retry_exhausted"
	AuditReasonPermanentFailure AuditReason = "permanent_failure"
)

// Subscriber is a newsletter subscriber.
type Subscriber struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Status       SubscriberStatus
	SubscribedAt pgtype.Timestamptz
}

// NewsletterIssue is an immutable published issue.
type NewsletterIssue struct {
	ID        uuid.UUID
	Title     string
	TextBody  string
	HTMLBody  string
	CreatedAt pgtype.Timestamptz
}

// DeliveryTask is one unit of work: send one issue to one recipient.
// Rows are never deleted; terminal rows are retained for audit.
type DeliveryTask struct {
	ID              uuid.UUID
	IssueID         uuid.UUID
	RecipientEmail  string
	Status          DeliveryTaskStatus
	RetryCount      int32
	NextAttemptAt   pgtype.Timestamptz
	ClaimedBy       pgtype.Text
	ClaimedAt       pgtype.Timestamptz
	LastAttemptedAt pgtype.Timestamptz
	LastError       pgtype.Text
	CreatedAt       pgtype.Timestamptz
}

// IdempotencyRecord stores the response returned for the first successful
// processing of a (user, key) pair. Immutable once written.
type IdempotencyRecord struct {
	UserID         uuid.UUID
	IdempotencyKey string
	ResponseStatus int32
	ResponseBody   []byte
	CreatedAt      pgtype.Timestamptz
}

// UserRole distinguishes full administrators from invited collaborators.
// Only admins may invite new collaborators.
type UserRole string

const (
	UserRoleAdmin        UserRole = "admin"
	UserRoleCollaborator UserRole = "collaborator"
)

// AdminUser is a back-office user allowed to publish issues.
type AdminUser struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    pgtype.Timestamptz
}

// InvitationToken is a pending collaborator invitation. The emailed token
// plus the out-of-band validation code together authorize registration.
type InvitationToken struct {
	InvitationToken string
	ValidationCode  string
	CreatedAt       pgtype.Timestamptz
}

// DeliveryAudit records a terminal delivery failure for operational
// visibility.
type DeliveryAudit struct {
	ID             int64
	TaskID         uuid.UUID
	IssueID        uuid.UUID
	RecipientEmail string
	Reason         AuditReason
	Detail         string
	CreatedAt      pgtype.Timestamptz
}
