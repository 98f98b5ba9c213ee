package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/seojun/letterpress/internal/auth"
	"github.com/seojun/letterpress/internal/logger"
	"github.com/seojun/letterpress/internal/storage"
)

// loginRequest is the JSON body for POST /api/v1/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the JSON response containing the access token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// LoginHandler handles POST /api/v1/login. Authenticates an admin by
// email and password and returns a JWT.
func LoginHandler(queries storage.Querier, jwtService *auth.JWTService, tokenExpirySeconds int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, err := queries.GetAdminUserByEmail(r.Context(), req.Email)
		if err != nil {
			// Same response as a wrong password, no account probing.
			respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
			if errors.Is(err, auth.ErrWrongPassword) {
				respondError(w, http.StatusUnauthorized, "invalid email or password")
				return
			}
			log.Error().Err(err).Msg("password verification failed")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		token, err := jwtService.GenerateToken(user.ID, user.Email)
		if err != nil {
			log.Error().Err(err).Msg("failed to generate token")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		log.Info().Str("admin_email", user.Email).Msg("admin logged in")
		respondJSON(w, http.StatusOK, tokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   tokenExpirySeconds,
		})
	}
}

// changePasswordRequest is the JSON body for POST /api/v1/admin/password.
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePasswordHandler handles POST /api/v1/admin/password for the
// authenticated admin.
func ChangePasswordHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req changePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := auth.ValidatePassword(req.NewPassword); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		userID := auth.UserFromContext(r.Context())
		user, err := queries.GetAdminUserByID(r.Context(), userID)
		if err != nil {
			log.Error().Err(err).Msg("failed to load admin user")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
			respondError(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}

		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			log.Error().Err(err).Msg("failed to hash new password")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if err := queries.UpdateAdminUserPassword(r.Context(), storage.UpdateAdminUserPasswordParams{
			ID:           userID,
			PasswordHash: hash,
		}); err != nil {
			log.Error().Err(err).Msg("failed to update password")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		log.Info().Str("admin_email", user.Email).Msg("admin password changed")
		respondJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
	}
}
