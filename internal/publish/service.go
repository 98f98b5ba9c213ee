// Package publish implements newsletter issue submission: validate the
// issue, persist it together with one delivery task per confirmed
// subscriber, and record the response under the caller's idempotency
// key, all in a single transaction.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/seojun/letterpress/internal/idempotency"
	"github.com/seojun/letterpress/internal/logger"
	"github.com/seojun/letterpress/internal/metrics"
	"github.com/seojun/letterpress/internal/storage"
)

// ErrInvalidIssue marks validation failures on the submitted issue.
var ErrInvalidIssue = errors.New("invalid newsletter issue")

// Request is a newsletter issue submission.
type Request struct {
	Title    string `json:"title"`
	TextBody string `json:"text_body"`
	HTMLBody string `json:"html_body"`
}

// Validate checks that title and both bodies are present. Whitespace-only
// fields are rejected.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidIssue)
	}
	if strings.TrimSpace(r.TextBody) == "" {
		return fmt.Errorf("%w: text_body must not be empty", ErrInvalidIssue)
	}
	if strings.TrimSpace(r.HTMLBody) == "" {
		return fmt.Errorf("%w: html_body must not be empty", ErrInvalidIssue)
	}
	return nil
}

// Response is what the API returns for a publish request. Replayed is
// true when the response was served from an idempotency record instead
// of executing the request.
type Response struct {
	StatusCode int
	Body       []byte
	Replayed   bool
}

type acceptedBody struct {
	IssueID       string `json:"issue_id"`
	TasksEnqueued int    `json:"tasks_enqueued"`
}

// idempotencyStore is the slice of idempotency.Store the service uses.
type idempotencyStore interface {
	TryProcessing(ctx context.Context, userID uuid.UUID, key idempotency.Key) (idempotency.NextAction, error)
	GetSavedResponse(ctx context.Context, userID uuid.UUID, key idempotency.Key) (*idempotency.SavedResponse, error)
}

// Service handles issue submission.
type Service struct {
	store idempotencyStore
}

func NewService(store idempotencyStore) *Service {
	return &Service{store: store}
}

// Publish submits an issue under the given idempotency key. The issue
// row, its delivery tasks, and the idempotency record commit atomically;
// a repeated or concurrent submission with the same key gets the first
// submission's response and enqueues nothing.
func (s *Service) Publish(ctx context.Context, userID uuid.UUID, key idempotency.Key, req Request) (Response, error) {
	log := logger.FromContext(ctx)

	// Validation runs before any write so an invalid issue never
	// consumes its idempotency key.
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	action, err := s.store.TryProcessing(ctx, userID, key)
	if err != nil {
		return Response{}, err
	}
	if action.Saved != nil {
		log.Info().
			Str("idempotency_key", key.String()).
			Msg("replaying saved response for repeated submission")
		metrics.IdempotentReplaysTotal.Inc()
		return Response{
			StatusCode: action.Saved.StatusCode,
			Body:       action.Saved.Body,
			Replayed:   true,
		}, nil
	}

	tx := action.Tx
	queries := tx.Queries()

	issue, err := queries.CreateNewsletterIssue(ctx, storage.CreateNewsletterIssueParams{
		ID:       uuid.New(),
		Title:    req.Title,
		TextBody: req.TextBody,
		HTMLBody: req.HTMLBody,
	})
	if err != nil {
		_ = tx.Rollback(ctx)
		return Response{}, fmt.Errorf("create issue: %w", err)
	}

	emails, err := queries.ListConfirmedSubscriberEmails(ctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Response{}, fmt.Errorf("list confirmed subscribers: %w", err)
	}

	for _, email := range emails {
		err := queries.CreateDeliveryTask(ctx, storage.CreateDeliveryTaskParams{
			ID:             uuid.New(),
			IssueID:        issue.ID,
			RecipientEmail: email,
		})
		if err != nil {
			_ = tx.Rollback(ctx)
			return Response{}, fmt.Errorf("create delivery task for %s: %w", email, err)
		}
	}

	body, err := json.Marshal(acceptedBody{
		IssueID:       issue.ID.String(),
		TasksEnqueued: len(emails),
	})
	if err != nil {
		_ = tx.Rollback(ctx)
		return Response{}, fmt.Errorf("marshal response: %w", err)
	}

	if err := tx.SaveResponse(ctx, http.StatusAccepted, body); err != nil {
		if idempotency.IsConflict(err) {
			// A concurrent submission with the same key won the commit
			// race. Everything here rolled back; serve the winner's
			// response.
			saved, getErr := s.store.GetSavedResponse(ctx, userID, key)
			if getErr != nil {
				return Response{}, fmt.Errorf("fetch winning response: %w", getErr)
			}
			log.Info().
				Str("idempotency_key", key.String()).
				Msg("lost idempotency commit race, replaying winner's response")
			metrics.IdempotentReplaysTotal.Inc()
			return Response{
				StatusCode: saved.StatusCode,
				Body:       saved.Body,
				Replayed:   true,
			}, nil
		}
		return Response{}, err
	}

	log.Info().
		Str("issue_id", issue.ID.String()).
		Int("tasks_enqueued", len(emails)).
		Msg("newsletter issue accepted")
	metrics.IssuesPublishedTotal.Inc()
	metrics.DeliveryTasksEnqueuedTotal.Add(float64(len(emails)))

	return Response{StatusCode: http.StatusAccepted, Body: body}, nil
}
