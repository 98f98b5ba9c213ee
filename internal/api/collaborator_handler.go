package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/seojun/letterpress/internal/auth"
	"github.com/seojun/letterpress/internal/domain"
	"github.com/seojun/letterpress/internal/logger"
	"github.com/seojun/letterpress/internal/mailer"
	"github.com/seojun/letterpress/internal/storage"
)

// CollaboratorStore executes the registration transaction: consume the
// invitation and create the account, atomically.
type CollaboratorStore interface {
	RegisterCollaborator(ctx context.Context, token, code string, arg storage.CreateAdminUserParams) (storage.AdminUser, error)
}

// inviteCollaboratorRequest is the JSON body for POST /admin/collaborators.
type inviteCollaboratorRequest struct {
	Email string `json:"email"`
}

// inviteCollaboratorResponse carries the validation code back to the
// inviting admin, who hands it to the invitee out of band. The emailed
// link alone is not enough to register.
type inviteCollaboratorResponse struct {
	ValidationCode string `json:"validation_code"`
}

// InviteCollaboratorHandler handles POST /api/v1/admin/collaborators.
// Restricted to the admin role; collaborators cannot invite.
func InviteCollaboratorHandler(queries storage.Querier, mail mailer.Client, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		userID := auth.UserFromContext(r.Context())
		if userID == uuid.Nil {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		caller, err := queries.GetAdminUserByID(r.Context(), userID)
		if err != nil {
			log.Error().Err(err).Msg("failed to load inviting user")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if caller.Role != storage.UserRoleAdmin {
			respondError(w, http.StatusForbidden, "restricted to administrators")
			return
		}

		var req inviteCollaboratorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		email, err := domain.ParseEmail(req.Email)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid email address")
			return
		}

		token, err := domain.GenerateInvitationToken()
		if err != nil {
			log.Error().Err(err).Msg("failed to generate invitation token")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		code, err := domain.GenerateValidationCode()
		if err != nil {
			log.Error().Err(err).Msg("failed to generate validation code")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if err := queries.InsertInvitationToken(r.Context(), storage.InsertInvitationTokenParams{
			InvitationToken: token.String(),
			ValidationCode:  code.String(),
		}); err != nil {
			log.Error().Err(err).Msg("failed to store invitation token")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		inviteLink := fmt.Sprintf("%s/collaborators/register?invitation_token=%s", baseURL, token.String())
		sendErr := mail.Send(r.Context(), &mailer.Message{
			To:      email.String(),
			Subject: "You have been invited to collaborate",
			TextBody: fmt.Sprintf(
				"Welcome! Visit %s to register as a collaborator. Ask the person who invited you for your validation code.", inviteLink),
			HTMLBody: fmt.Sprintf(
				`Welcome! <a href="%s">Click here</a> to register as a collaborator. Ask the person who invited you for your validation code.`, inviteLink),
		})
		if sendErr != nil {
			log.Error().Err(sendErr).Msg("failed to send invitation email")
			respondError(w, http.StatusInternalServerError, "failed to send invitation email")
			return
		}

		log.Info().Str("email", email.String()).Msg("collaborator invited")
		respondJSON(w, http.StatusOK, inviteCollaboratorResponse{ValidationCode: code.String()})
	}
}

// CheckInvitationHandler handles GET /collaborators/register?invitation_token=.
// Lets the registration page verify the emailed link before asking the
// invitee for credentials.
func CheckInvitationHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		token, err := domain.ParseInvitationToken(r.URL.Query().Get("invitation_token"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid invitation token format")
			return
		}

		exists, err := queries.InvitationTokenExists(r.Context(), token.String())
		if err != nil {
			log.Error().Err(err).Msg("failed to check invitation token")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !exists {
			respondError(w, http.StatusUnauthorized, "unknown invitation")
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"status": "valid"})
	}
}

// registerCollaboratorRequest is the JSON body for POST /collaborators/register.
type registerCollaboratorRequest struct {
	InvitationToken string `json:"invitation_token"`
	ValidationCode  string `json:"validation_code"`
	Email           string `json:"email"`
	Password        string `json:"password"`
}

type registeredCollaboratorResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// RegisterCollaboratorHandler handles POST /collaborators/register.
// Requires both the emailed token and the out-of-band validation code;
// the pair is consumed on success, so an invitation registers one
// account exactly once.
func RegisterCollaboratorHandler(store CollaboratorStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req registerCollaboratorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		token, err := domain.ParseInvitationToken(req.InvitationToken)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid invitation token format")
			return
		}
		code, err := domain.ParseValidationCode(req.ValidationCode)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid validation code format")
			return
		}
		email, err := domain.ParseEmail(req.Email)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid email address")
			return
		}
		if err := auth.ValidatePassword(req.Password); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			log.Error().Err(err).Msg("failed to hash password")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		user, err := store.RegisterCollaborator(r.Context(), token.String(), code.String(), storage.CreateAdminUserParams{
			ID:           uuid.New(),
			Email:        email.String(),
			PasswordHash: hash,
			Role:         storage.UserRoleCollaborator,
		})
		if err != nil {
			if errors.Is(err, storage.ErrInvitationNotFound) {
				respondError(w, http.StatusUnauthorized, "registration not authorized")
				return
			}
			if storage.IsUniqueViolation(err) {
				respondError(w, http.StatusConflict, "email is already registered")
				return
			}
			log.Error().Err(err).Msg("failed to register collaborator")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		log.Info().Str("user_id", user.ID.String()).Msg("collaborator registered")
		respondJSON(w, http.StatusCreated, registeredCollaboratorResponse{
			ID:    user.ID.String(),
			Email: user.Email,
			Role:  string(user.Role),
		})
	}
}
