package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal execution surface shared by pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries implements Querier against a pool or a transaction.
type Queries struct {
	db DBTX
}

// New creates a Queries instance bound to the given pool or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// --- Subscribers ---

const createSubscriber = `
INSERT INTO subscribers (id, email, name, status)
VALUES ($1, $2, $3, 'pending_confirmation')
RETURNING id, email, name, status, subscribed_at
`

type CreateSubscriberParams struct {
	ID    uuid.UUID
	Email string
	Name  string
}

func (q *Queries) CreateSubscriber(ctx context.Context, arg CreateSubscriberParams) (Subscriber, error) {
	row := q.db.QueryRow(ctx, createSubscriber, arg.ID, arg.Email, arg.Name)
	var s Subscriber
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Status, &s.SubscribedAt)
	return s, err
}

const getSubscriberByEmail = `
SELECT id, email, name, status, subscribed_at
FROM subscribers
WHERE email = $1
`

func (q *Queries) GetSubscriberByEmail(ctx context.Context, email string) (Subscriber, error) {
	row := q.db.QueryRow(ctx, getSubscriberByEmail, email)
	var s Subscriber
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Status, &s.SubscribedAt)
	return s, err
}

const insertSubscriptionToken = `
INSERT INTO subscription_tokens (token, subscriber_id)
VALUES ($1, $2)
`

type InsertSubscriptionTokenParams struct {
	Token        string
	SubscriberID uuid.UUID
}

func (q *Queries) InsertSubscriptionToken(ctx context.Context, arg InsertSubscriptionTokenParams) error {
	_, err := q.db.Exec(ctx, insertSubscriptionToken, arg.Token, arg.SubscriberID)
	return err
}

const deleteSubscriptionToken = `
DELETE FROM subscription_tokens
WHERE token = $1
RETURNING subscriber_id
`

// DeleteSubscriptionToken consumes a confirmation token. Returns
// pgx.ErrNoRows if the token does not exist (or was already consumed).
func (q *Queries) DeleteSubscriptionToken(ctx context.Context, token string) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteSubscriptionToken, token)
	var subscriberID uuid.UUID
	err := row.Scan(&subscriberID)
	return subscriberID, err
}

const confirmSubscriber = `
UPDATE subscribers
SET status = 'confirmed'
WHERE id = $1
`

func (q *Queries) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, confirmSubscriber, id)
	return err
}

const listConfirmedSubscriberEmails = `
SELECT email
FROM subscribers
WHERE status = 'confirmed'
ORDER BY email
`

// ListConfirmedSubscriberEmails returns the current confirmed-subscriber
// set. Run inside the publish transaction it is the fan-out snapshot.
func (q *Queries) ListConfirmedSubscriberEmails(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listConfirmedSubscriberEmails)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// --- Newsletter issues ---

const createNewsletterIssue = `
INSERT INTO newsletter_issues (id, title, text_body, html_body)
VALUES ($1, $2, $3, $4)
RETURNING id, title, text_body, html_body, created_at
`

type CreateNewsletterIssueParams struct {
	ID       uuid.UUID
	Title    string
	TextBody string
	HTMLBody string
}

func (q *Queries) CreateNewsletterIssue(ctx context.Context, arg CreateNewsletterIssueParams) (NewsletterIssue, error) {
	row := q.db.QueryRow(ctx, createNewsletterIssue, arg.ID, arg.Title, arg.TextBody, arg.HTMLBody)
	var i NewsletterIssue
	err := row.Scan(&i.ID, &i.Title, &i.TextBody, &i.HTMLBody, &i.CreatedAt)
	return i, err
}

const getNewsletterIssueByID = `
SELECT id, title, text_body, html_body, created_at
FROM newsletter_issues
WHERE id = $1
`

func (q *Queries) GetNewsletterIssueByID(ctx context.Context, id uuid.UUID) (NewsletterIssue, error) {
	row := q.db.QueryRow(ctx, getNewsletterIssueByID, id)
	var i NewsletterIssue
	err := row.Scan(&i.ID, &i.Title, &i.TextBody, &i.HTMLBody, &i.CreatedAt)
	return i, err
}

// --- Delivery tasks ---

const createDeliveryTask = `
INSERT INTO delivery_tasks (id, issue_id, recipient_email, status, next_attempt_at)
VALUES ($1, $2, $3, 'pending', now())
`

type CreateDeliveryTaskParams struct {
	ID             uuid.UUID
	IssueID        uuid.UUID
	RecipientEmail string
}

func (q *Queries) CreateDeliveryTask(ctx context.Context, arg CreateDeliveryTaskParams) error {
	_, err := q.db.Exec(ctx, createDeliveryTask, arg.ID, arg.IssueID, arg.RecipientEmail)
	return err
}

const getDeliveryTaskByID = `
SELECT id, issue_id, recipient_email, status, retry_count, next_attempt_at,
       claimed_by, claimed_at, last_attempted_at, last_error, created_at
FROM delivery_tasks
WHERE id = $1
`

func (q *Queries) GetDeliveryTaskByID(ctx context.Context, id uuid.UUID) (DeliveryTask, error) {
	row := q.db.QueryRow(ctx, getDeliveryTaskByID, id)
	var t DeliveryTask
	err := row.Scan(
		&t.ID, &t.IssueID, &t.RecipientEmail, &t.Status, &t.RetryCount,
		&t.NextAttemptAt, &t.ClaimedBy, &t.ClaimedAt, &t.LastAttemptedAt,
		&t.LastError, &t.CreatedAt,
	)
	return t, err
}

// claimNextDeliveryTask atomically selects one eligible pending task and
// moves it to in_flight. FOR UPDATE SKIP LOCKED makes concurrent claims
// mutually exclusive per task without blocking on rows held by other
// workers.
const claimNextDeliveryTask = `
WITH candidate AS (
    SELECT id
    FROM delivery_tasks
    WHERE status = 'pending'
      AND next_attempt_at <= now()
    ORDER BY next_attempt_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
UPDATE delivery_tasks t
SET status = 'in_flight',
    claimed_by = $1,
    claimed_at = now(),
    last_attempted_at = now()
FROM candidate
WHERE t.id = candidate.id
RETURNING t.id, t.issue_id, t.recipient_email, t.retry_count
`

type ClaimNextDeliveryTaskRow struct {
	ID             uuid.UUID
	IssueID        uuid.UUID
	RecipientEmail string
	RetryCount     int32
}

// ClaimNextDeliveryTask claims one pending task for the given worker.
// Returns pgx.ErrNoRows when no task is eligible.
func (q *Queries) ClaimNextDeliveryTask(ctx context.Context, workerID string) (ClaimNextDeliveryTaskRow, error) {
	row := q.db.QueryRow(ctx, claimNextDeliveryTask, workerID)
	var r ClaimNextDeliveryTaskRow
	err := row.Scan(&r.ID, &r.IssueID, &r.RecipientEmail, &r.RetryCount)
	return r, err
}

// Status transitions out of in_flight are guarded by the claiming worker
// id so a stale worker cannot corrupt a task another worker reclaimed.

const markDeliveryTaskSent = `
UPDATE delivery_tasks
SET status = 'sent',
    claimed_by = NULL,
    claimed_at = NULL,
    last_error = NULL
WHERE id = $1
  AND status = 'in_flight'
  AND claimed_by = $2
`

type MarkDeliveryTaskSentParams struct {
	ID       uuid.UUID
	WorkerID string
}

func (q *Queries) MarkDeliveryTaskSent(ctx context.Context, arg MarkDeliveryTaskSentParams) (int64, error) {
	tag, err := q.db.Exec(ctx, markDeliveryTaskSent, arg.ID, arg.WorkerID)
	return tag.RowsAffected(), err
}

const markDeliveryTaskRetry = `
UPDATE delivery_tasks
SET status = 'pending',
    retry_count = retry_count + 1,
    next_attempt_at = $3,
    claimed_by = NULL,
    claimed_at = NULL,
    last_error = $4
WHERE id = $1
  AND status = 'in_flight'
  AND claimed_by = $2
`

type MarkDeliveryTaskRetryParams struct {
	ID            uuid.UUID
	WorkerID      string
	NextAttemptAt time.Time
	LastError     string
}

func (q *Queries) MarkDeliveryTaskRetry(ctx context.Context, arg MarkDeliveryTaskRetryParams) (int64, error) {
	tag, err := q.db.Exec(ctx, markDeliveryTaskRetry, arg.ID, arg.WorkerID, arg.NextAttemptAt, arg.LastError)
	return tag.RowsAffected(), err
}

const markDeliveryTaskExhausted = `
UPDATE delivery_tasks
SET status = 'failed',
    retry_count = retry_count + 1,
    claimed_by = NULL,
    claimed_at = NULL,
    last_error = $3
WHERE id = $1
  AND status = 'in_flight'
  AND claimed_by = $2
`

type MarkDeliveryTaskExhaustedParams struct {
	ID        uuid.UUID
	WorkerID  string
	LastError string
}

func (q *Queries) MarkDeliveryTaskExhausted(ctx context.Context, arg MarkDeliveryTaskExhaustedParams) (int64, error) {
	tag, err := q.db.Exec(ctx, markDeliveryTaskExhausted, arg.ID, arg.WorkerID, arg.LastError)
	return tag.RowsAffected(), err
}

const markDeliveryTaskFailed = `
UPDATE delivery_tasks
SET status = 'failed',
    claimed_by = NULL,
    claimed_at = NULL,
    last_error = $3
WHERE id = $1
  AND status = 'in_flight'
  AND claimed_by = $2
`

type MarkDeliveryTaskFailedParams struct {
	ID        uuid.UUID
	WorkerID  string
	LastError string
}

// MarkDeliveryTaskFailed terminates a task without touching its retry
// count, for permanently failing sends.
func (q *Queries) MarkDeliveryTaskFailed(ctx context.Context, arg MarkDeliveryTaskFailedParams) (int64, error) {
	tag, err := q.db.Exec(ctx, markDeliveryTaskFailed, arg.ID, arg.WorkerID, arg.LastError)
	return tag.RowsAffected(), err
}

const reapStuckDeliveryTasks = `
UPDATE delivery_tasks
SET status = 'pending',
    claimed_by = NULL,
    claimed_at = NULL,
    next_attempt_at = now()
WHERE status = 'in_flight'
  AND claimed_at < $1
`

// ReapStuckDeliveryTasks reverts tasks claimed before the cutoff back to
// pending. A worker that crashed mid-send can never complete the
// transition itself.
func (q *Queries) ReapStuckDeliveryTasks(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, reapStuckDeliveryTasks, cutoff)
	return tag.RowsAffected(), err
}

const countDeliveryTasksByStatus = `
SELECT status, count(*)
FROM delivery_tasks
WHERE issue_id = $1
GROUP BY status
`

type CountDeliveryTasksByStatusRow struct {
	Status DeliveryTaskStatus
	Count  int64
}

func (q *Queries) CountDeliveryTasksByStatus(ctx context.Context, issueID uuid.UUID) ([]CountDeliveryTasksByStatusRow, error) {
	rows, err := q.db.Query(ctx, countDeliveryTasksByStatus, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CountDeliveryTasksByStatusRow
	for rows.Next() {
		var r CountDeliveryTasksByStatusRow
		if err := rows.Scan(&r.Status, &r.Count); err != nil {
			return nil, err
		}
		counts = append(counts, r)
	}
	return counts, rows.Err()
}

const countAllDeliveryTasksByStatus = `
SELECT status, COUNT(*)
FROM delivery_tasks
GROUP BY status
`

// CountAllDeliveryTasksByStatus reports queue depth across all issues,
// for the queue depth gauge.
func (q *Queries) CountAllDeliveryTasksByStatus(ctx context.Context) ([]CountDeliveryTasksByStatusRow, error) {
	rows, err := q.db.Query(ctx, countAllDeliveryTasksByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CountDeliveryTasksByStatusRow
	for rows.Next() {
		var r CountDeliveryTasksByStatusRow
		if err := rows.Scan(&r.Status, &r.Count); err != nil {
			return nil, err
		}
		counts = append(counts, r)
	}
	return counts, rows.Err()
}

// --- Idempotency records ---

const insertIdempotencyRecord = `
INSERT INTO idempotency_records (user_id, idempotency_key, response_status, response_body)
VALUES ($1, $2, $3, $4)
`

type InsertIdempotencyRecordParams struct {
	UserID         uuid.UUID
	IdempotencyKey string
	ResponseStatus int32
	ResponseBody   []byte
}

func (q *Queries) InsertIdempotencyRecord(ctx context.Context, arg InsertIdempotencyRecordParams) error {
	_, err := q.db.Exec(ctx, insertIdempotencyRecord,
		arg.UserID, arg.IdempotencyKey, arg.ResponseStatus, arg.ResponseBody)
	return err
}

const getIdempotencyRecord = `
SELECT user_id, idempotency_key, response_status, response_body, created_at
FROM idempotency_records
WHERE user_id = $1 AND idempotency_key = $2
`

type GetIdempotencyRecordParams struct {
	UserID         uuid.UUID
	IdempotencyKey string
}

func (q *Queries) GetIdempotencyRecord(ctx context.Context, arg GetIdempotencyRecordParams) (IdempotencyRecord, error) {
	row := q.db.QueryRow(ctx, getIdempotencyRecord, arg.UserID, arg.IdempotencyKey)
	var r IdempotencyRecord
	err := row.Scan(&r.UserID, &r.IdempotencyKey, &r.ResponseStatus, &r.ResponseBody, &r.CreatedAt)
	return r, err
}

const deleteIdempotencyRecordsBefore = `
DELETE FROM idempotency_records
WHERE created_at < $1
`

func (q *Queries) DeleteIdempotencyRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteIdempotencyRecordsBefore, cutoff)
	return tag.RowsAffected(), err
}

// --- Admin users ---

const createAdminUser = `
INSERT INTO admin_users (id, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING id, email, password_hash, role, created_at
`

type CreateAdminUserParams struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         UserRole
}

func (q *Queries) CreateAdminUser(ctx context.Context, arg CreateAdminUserParams) (AdminUser, error) {
	row := q.db.QueryRow(ctx, createAdminUser, arg.ID, arg.Email, arg.PasswordHash, arg.Role)
	var u AdminUser
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

const getAdminUserByEmail = `
SELECT id, email, password_hash, role, created_at
FROM admin_users
WHERE email = $1
`

func (q *Queries) GetAdminUserByEmail(ctx context.Context, email string) (AdminUser, error) {
	row := q.db.QueryRow(ctx, getAdminUserByEmail, email)
	var u AdminUser
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

const getAdminUserByID = `
SELECT id, email, password_hash, role, created_at
FROM admin_users
WHERE id = $1
`

func (q *Queries) GetAdminUserByID(ctx context.Context, id uuid.UUID) (AdminUser, error) {
	row := q.db.QueryRow(ctx, getAdminUserByID, id)
	var u AdminUser
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

const updateAdminUserPassword = `
UPDATE admin_users
SET password_hash = $2
WHERE id = $1
`

type UpdateAdminUserPasswordParams struct {
	ID           uuid.UUID
	PasswordHash string
}

func (q *Queries) UpdateAdminUserPassword(ctx context.Context, arg UpdateAdminUserPasswordParams) error {
	_, err := q.db.Exec(ctx, updateAdminUserPassword, arg.ID, arg.PasswordHash)
	return err
}

// --- Collaborator invitations ---

const insertInvitationToken = `
INSERT INTO invitation_tokens (invitation_token, validation_code)
VALUES ($1, $2)
`

type InsertInvitationTokenParams struct {
	InvitationToken string
	ValidationCode  string
}

func (q *Queries) InsertInvitationToken(ctx context.Context, arg InsertInvitationTokenParams) error {
	_, err := q.db.Exec(ctx, insertInvitationToken, arg.InvitationToken, arg.ValidationCode)
	return err
}

const invitationTokenExists = `
SELECT EXISTS (
	SELECT 1
	FROM invitation_tokens
	WHERE invitation_token = $1
)
`

func (q *Queries) InvitationTokenExists(ctx context.Context, token string) (bool, error) {
	row := q.db.QueryRow(ctx, invitationTokenExists, token)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const deleteInvitationToken = `
DELETE FROM invitation_tokens
WHERE invitation_token = $1
  AND validation_code = $2
`

type DeleteInvitationTokenParams struct {
	InvitationToken string
	ValidationCode  string
}

// DeleteInvitationToken consumes an invitation. Zero rows affected means
// the token/code pair never existed or was already used.
func (q *Queries) DeleteInvitationToken(ctx context.Context, arg DeleteInvitationTokenParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteInvitationToken, arg.InvitationToken, arg.ValidationCode)
	return tag.RowsAffected(), err
}

// --- Delivery audit ---

const createDeliveryAudit = `
INSERT INTO delivery_audit (task_id, issue_id, recipient_email, reason, detail)
VALUES ($1, $2, $3, $4, $5)
`

type CreateDeliveryAuditParams struct {
	TaskID         uuid.UUID
	IssueID        uuid.UUID
	RecipientEmail string
	Reason         AuditReason
	Detail         string
}

func (q *Queries) CreateDeliveryAudit(ctx context.Context, arg CreateDeliveryAuditParams) error {
	_, err := q.db.Exec(ctx, createDeliveryAudit,
		arg.TaskID, arg.IssueID, arg.RecipientEmail, arg.Reason, arg.Detail)
	return err
}

const listDeliveryAuditByIssueID = `
SELECT id, task_id, issue_id, recipient_email, reason, detail, created_at
FROM delivery_audit
WHERE issue_id = $1
ORDER BY created_at
`

func (q *Queries) ListDeliveryAuditByIssueID(ctx context.Context, issueID uuid.UUID) ([]DeliveryAudit, error) {
	rows, err := q.db.Query(ctx, listDeliveryAuditByIssueID, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []DeliveryAudit
	for rows.Next() {
		var a DeliveryAudit
		if err := rows.Scan(&a.ID, &a.TaskID, &a.IssueID, &a.RecipientEmail, &a.Reason, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
