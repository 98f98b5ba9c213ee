package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateSubscriberWithToken inserts a subscriber and their confirmation
// token in one transaction; a subscriber row without a token would be
// unconfirmable.
func (db *DB) CreateSubscriberWithToken(ctx context.Context, arg CreateSubscriberParams, token string) (Subscriber, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return Subscriber{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := New(tx)
	sub, err := q.CreateSubscriber(ctx, arg)
	if err != nil {
		return Subscriber{}, err
	}
	if err := q.InsertSubscriptionToken(ctx, InsertSubscriptionTokenParams{
		Token:        token,
		SubscriberID: sub.ID,
	}); err != nil {
		return Subscriber{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Subscriber{}, fmt.Errorf("commit: %w", err)
	}
	return sub, nil
}

// ErrInvitationNotFound means no invitation matched the token/code pair,
// either because it never existed or was already consumed.
var ErrInvitationNotFound = errors.New("invitation not found")

// RegisterCollaborator consumes an invitation and creates the collaborator
// account in one transaction, so a token can never be spent without an
// account appearing.
func (db *DB) RegisterCollaborator(ctx context.Context, token, code string, arg CreateAdminUserParams) (AdminUser, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return AdminUser{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := New(tx)
	n, err := q.DeleteInvitationToken(ctx, DeleteInvitationTokenParams{
		InvitationToken: token,
		ValidationCode:  code,
	})
	if err != nil {
		return AdminUser{}, fmt.Errorf("consume invitation: %w", err)
	}
	if n == 0 {
		return AdminUser{}, ErrInvitationNotFound
	}

	user, err := q.CreateAdminUser(ctx, arg)
	if err != nil {
		return AdminUser{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return AdminUser{}, fmt.Errorf("commit: %w", err)
	}
	return user, nil
}
