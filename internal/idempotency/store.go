package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/seojun/letterpress/internal/storage"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint
// violation. Two requests racing on the same key both reach commit, but
// only one insert of the (user_id, idempotency_key) row can win.
const uniqueViolation = "23505"

// SavedResponse is a previously recorded response for a key.
type SavedResponse struct {
	StatusCode int
	Body       []byte
}

// NextAction tells the caller how to proceed after TryProcessing:
// either replay Saved, or execute the request inside Tx.
type NextAction struct {
	Saved *SavedResponse
	Tx    Transaction
}

// Transaction wraps the database transaction a request executes in.
// SaveResponse inserts the idempotency record and commits, so the
// record and the request's side effects are atomic.
type Transaction interface {
	// Queries returns a query interface bound to this transaction.
	Queries() storage.Querier
	// SaveResponse records the response for this key and commits.
	SaveResponse(ctx context.Context, statusCode int, body []byte) error
	// Rollback discards the transaction. Safe to call after SaveResponse.
	Rollback(ctx context.Context) error
}

// Store coordinates idempotent request processing on top of the
// idempotency_records table.
type Store struct {
	db *storage.DB
}

func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// TryProcessing decides whether a request should execute or replay.
// If a response is already recorded for (userID, key) it is returned
// for replay. Otherwise a transaction is opened and handed to the
// caller; all request side effects must go through it so that they
// commit atomically with the idempotency record.
func (s *Store) TryProcessing(ctx context.Context, userID uuid.UUID, key Key) (NextAction, error) {
	queries := storage.New(s.db.Pool)
	rec, err := queries.GetIdempotencyRecord(ctx, storage.GetIdempotencyRecordParams{
		UserID:         userID,
		IdempotencyKey: key.String(),
	})
	if err == nil {
		return NextAction{Saved: &SavedResponse{
			StatusCode: int(rec.ResponseStatus),
			Body:       rec.ResponseBody,
		}}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return NextAction{}, fmt.Errorf("look up idempotency record: %w", err)
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return NextAction{}, fmt.Errorf("begin transaction: %w", err)
	}

	return NextAction{Tx: &pgxTransaction{
		tx:     tx,
		userID: userID,
		key:    key,
	}}, nil
}

// GetSavedResponse fetches the recorded response for a key, if any.
// Used after losing the commit race to replay the winner's response.
func (s *Store) GetSavedResponse(ctx context.Context, userID uuid.UUID, key Key) (*SavedResponse, error) {
	queries := storage.New(s.db.Pool)
	rec, err := queries.GetIdempotencyRecord(ctx, storage.GetIdempotencyRecordParams{
		UserID:         userID,
		IdempotencyKey: key.String(),
	})
	if err != nil {
		return nil, err
	}
	return &SavedResponse{
		StatusCode: int(rec.ResponseStatus),
		Body:       rec.ResponseBody,
	}, nil
}

// DeleteRecordsBefore removes records older than the cutoff. After a
// record expires the same key executes the request again.
func (s *Store) DeleteRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return storage.New(s.db.Pool).DeleteIdempotencyRecordsBefore(ctx, cutoff)
}

// pgxTransaction is the pgx-backed Transaction implementation.
type pgxTransaction struct {
	tx     pgx.Tx
	userID uuid.UUID
	key    Key
}

func (t *pgxTransaction) Queries() storage.Querier {
	return storage.New(t.tx)
}

// SaveResponse records the response for this key and commits. If
// another request committed the same key first, the insert fails with
// a unique violation, the whole transaction is rolled back, and the
// caller should replay the stored response via GetSavedResponse.
func (t *pgxTransaction) SaveResponse(ctx context.Context, statusCode int, body []byte) error {
	err := storage.New(t.tx).InsertIdempotencyRecord(ctx, storage.InsertIdempotencyRecordParams{
		UserID:         t.userID,
		IdempotencyKey: t.key.String(),
		ResponseStatus: int32(statusCode),
		ResponseBody:   body,
	})
	if err != nil {
		_ = t.tx.Rollback(ctx)
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *pgxTransaction) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// IsConflict reports whether err is a unique violation, meaning a
// concurrent request with the same key committed first.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
