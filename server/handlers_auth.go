package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	ierrors "github.com/jrsteele09/ilumina-session/internal/errors"
	"github.com/jrsteele09/ilumina-session/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// LoginHandler exchanges email and password for a token set.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "Malformed request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			writeJSONError(w, "invalid_request", "Email and password are required", http.StatusBadRequest)
			return
		}

		user, err := s.repos.Users.GetByEmail(req.Email)
		if err != nil || !user.CheckPassword(req.Password) {
			s.logger.Debug().Str("email", req.Email).Msg("login rejected")
			writeJSONError(w, "invalid_credentials", "Invalid email or password", http.StatusUnauthorized)
			return
		}

		resp, err := s.issueTokens(user)
		if err != nil {
			s.logger.Err(err).Str("user", user.ID).Msg("failed to issue tokens")
			writeJSONError(w, "server_error", "Failed to issue tokens", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RefreshHandler rotates a refresh token and issues a new access token.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeJSONError(w, "invalid_request", "refreshToken is required", http.StatusBadRequest)
			return
		}

		rotated, err := s.refresh.Rotate(req.RefreshToken)
		switch {
		case errors.Is(err, ierrors.ErrRefreshTokenExpired):
			writeJSONError(w, "invalid_grant", "Refresh token expired", http.StatusUnauthorized)
			return
		case err != nil:
			writeJSONError(w, "invalid_grant", "Invalid refresh token", http.StatusUnauthorized)
			return
		}

		user, err := s.repos.Users.GetByID(rotated.UserID)
		if err != nil {
			_ = s.refresh.Revoke(rotated.Token)
			writeJSONError(w, "invalid_grant", "Unknown user", http.StatusUnauthorized)
			return
		}

		access, err := s.access.Issue(user)
		if err != nil {
			s.logger.Err(err).Str("user", user.ID).Msg("failed to issue access token")
			writeJSONError(w, "server_error", "Failed to issue tokens", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken:  access.Token,
			RefreshToken: rotated.Token,
			ExpiresAt:    access.ExpiresAt,
		})
	}
}

// MeHandler returns the profile of the bearer.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeJSONError(w, "unauthorized", "Missing claims", http.StatusUnauthorized)
			return
		}
		user, err := s.repos.Users.GetByID(claims.Subject)
		if err != nil {
			writeJSONError(w, "unauthorized", "Unknown user", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user.Profile)
	}
}

func (s *Server) issueTokens(user *users.User) (*tokenResponse, error) {
	access, err := s.access.Issue(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.refresh.Create(user.ID)
	if err != nil {
		return nil, err
	}
	return &tokenResponse{
		AccessToken:  access.Token,
		RefreshToken: refreshToken,
		ExpiresAt:    access.ExpiresAt,
	}, nil
}
