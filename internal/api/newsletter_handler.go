package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seojun/letterpress/internal/auth"
	"github.com/seojun/letterpress/internal/idempotency"
	"github.com/seojun/letterpress/internal/logger"
	"github.com/seojun/letterpress/internal/publish"
	"github.com/seojun/letterpress/internal/storage"
)

const idempotencyKeyHeader = "Idempotency-Key"

// publishRequest is the JSON body for POST /api/v1/newsletters. The
// idempotency key may come from the header or the body; the header wins.
type publishRequest struct {
	Title          string `json:"title"`
	TextBody       string `json:"text_body"`
	HTMLBody       string `json:"html_body"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Publisher is the slice of publish.Service the handler needs.
type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, key idempotency.Key, req publish.Request) (publish.Response, error)
}

// PublishNewsletterHandler handles POST /api/v1/newsletters. Accepted
// issues return 202 with the issue id; repeating a key replays the
// stored response byte for byte.
func PublishNewsletterHandler(publisher Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req publishRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rawKey := r.Header.Get(idempotencyKeyHeader)
		if rawKey == "" {
			rawKey = req.IdempotencyKey
		}
		key, err := idempotency.ParseKey(rawKey)
		if err != nil {
			respondError(w, http.StatusBadRequest, "idempotency key is required and must be shorter than 50 characters")
			return
		}

		userID := auth.UserFromContext(r.Context())
		if userID == uuid.Nil {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		resp, err := publisher.Publish(r.Context(), userID, key, publish.Request{
			Title:    req.Title,
			TextBody: req.TextBody,
			HTMLBody: req.HTMLBody,
		})
		if err != nil {
			if errors.Is(err, publish.ErrInvalidIssue) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Error().Err(err).Msg("failed to publish newsletter issue")
			respondError(w, http.StatusServiceUnavailable, "could not accept the issue, try again")
			return
		}

		respondRaw(w, resp.StatusCode, resp.Body)
	}
}

// issueStatusResponse is the JSON body for GET /api/v1/newsletters/{id}.
type issueStatusResponse struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	CreatedAt  string           `json:"created_at"`
	TaskCounts map[string]int64 `json:"task_counts"`
}

// GetNewsletterHandler handles GET /api/v1/newsletters/{id}: the issue
// plus its delivery progress as per-status task counts.
func GetNewsletterHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		issueID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid issue id")
			return
		}

		issue, err := queries.GetNewsletterIssueByID(r.Context(), issueID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				respondError(w, http.StatusNotFound, "issue not found")
				return
			}
			log.Error().Err(err).Msg("failed to load issue")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		counts, err := queries.CountDeliveryTasksByStatus(r.Context(), issueID)
		if err != nil {
			log.Error().Err(err).Msg("failed to count delivery tasks")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		taskCounts := make(map[string]int64, len(counts))
		for _, c := range counts {
			taskCounts[string(c.Status)] = c.Count
		}

		respondJSON(w, http.StatusOK, issueStatusResponse{
			ID:         issue.ID.String(),
			Title:      issue.Title,
			CreatedAt:  issue.CreatedAt.Time.Format(timeFormat),
			TaskCounts: taskCounts,
		})
	}
}

// failureEntry is one row in the failures listing.
type failureEntry struct {
	TaskID         string `json:"task_id"`
	RecipientEmail string `json:"recipient_email"`
	Reason         string `json:"reason"`
	Detail         string `json:"detail"`
	CreatedAt      string `json:"created_at"`
}

// ListNewsletterFailuresHandler handles GET /api/v1/newsletters/{id}/failures:
// the audit trail of deliveries that were abandoned.
func ListNewsletterFailuresHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		issueID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid issue id")
			return
		}

		entries, err := queries.ListDeliveryAuditByIssueID(r.Context(), issueID)
		if err != nil {
			log.Error().Err(err).Msg("failed to list delivery audit entries")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		failures := make([]failureEntry, 0, len(entries))
		for _, e := range entries {
			failures = append(failures, failureEntry{
				TaskID:         e.TaskID.String(),
				RecipientEmail: e.RecipientEmail,
				Reason:         string(e.Reason),
				Detail:         e.Detail,
				CreatedAt:      e.CreatedAt.Time.Format(timeFormat),
			})
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{"failures": failures})
	}
}
