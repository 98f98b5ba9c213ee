package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seojun/letterpress/internal/domain"
	"github.com/seojun/letterpress/internal/logger"
	"github.com/seojun/letterpress/internal/mailer"
	"github.com/seojun/letterpress/internal/metrics"
	"github.com/seojun/letterpress/internal/storage"
)

// SubscribeStore executes the subscribe transaction: subscriber plus
// confirmation token, atomically.
type SubscribeStore interface {
	CreateSubscriberWithToken(ctx context.Context, arg storage.CreateSubscriberParams, token string) (storage.Subscriber, error)
}

// subscribeRequest is the JSON body for POST /subscriptions.
type subscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SubscribeHandler handles POST /subscriptions. A new subscriber starts
// pending and receives a confirmation link by email; only confirmation
// makes them eligible for newsletters.
func SubscribeHandler(store SubscribeStore, mail mailer.Client, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req subscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		email, err := domain.ParseEmail(req.Email)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid email address")
			return
		}
		name, err := domain.ParseSubscriberName(req.Name)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid subscriber name")
			return
		}

		token, err := domain.GenerateSubscriptionToken()
		if err != nil {
			log.Error().Err(err).Msg("failed to generate subscription token")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		_, err = store.CreateSubscriberWithToken(r.Context(), storage.CreateSubscriberParams{
			ID:    uuid.New(),
			Email: email.String(),
			Name:  name.String(),
		}, token.String())
		if err != nil {
			if storage.IsUniqueViolation(err) {
				respondError(w, http.StatusConflict, "email is already subscribed")
				return
			}
			log.Error().Err(err).Msg("failed to store subscriber")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		confirmLink := fmt.Sprintf("%s/subscriptions/confirm?token=%s", baseURL, token.String())
		sendErr := mail.Send(r.Context(), &mailer.Message{
			To:      email.String(),
			Subject: "Please confirm your subscription",
			TextBody: fmt.Sprintf(
				"Welcome! Visit %s to confirm your subscription.", confirmLink),
			HTMLBody: fmt.Sprintf(
				`Welcome! <a href="%s">Click here</a> to confirm your subscription.`, confirmLink),
		})
		if sendErr != nil {
			log.Error().Err(sendErr).Msg("failed to send confirmation email")
			respondError(w, http.StatusInternalServerError, "failed to send confirmation email")
			return
		}

		metrics.SubscriptionsTotal.WithLabelValues("subscribed").Inc()
		log.Info().Str("email", email.String()).Msg("subscriber created, confirmation sent")
		respondJSON(w, http.StatusOK, map[string]string{"status": "pending_confirmation"})
	}
}

// ConfirmHandler handles GET /subscriptions/confirm?token=.
// Consuming the token is a delete, so a link works exactly once.
func ConfirmHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		token, err := domain.ParseSubscriptionToken(r.URL.Query().Get("token"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid token format")
			return
		}

		subscriberID, err := queries.DeleteSubscriptionToken(r.Context(), token.String())
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				respondError(w, http.StatusUnauthorized, "unknown token")
				return
			}
			log.Error().Err(err).Msg("failed to consume subscription token")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if err := queries.ConfirmSubscriber(r.Context(), subscriberID); err != nil {
			log.Error().Err(err).Msg("failed to confirm subscriber")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		metrics.SubscriptionsTotal.WithLabelValues("confirmed").Inc()
		log.Info().Str("subscriber_id", subscriberID.String()).Msg("subscriber confirmed")
		respondJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
	}
}
