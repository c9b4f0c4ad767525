package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatherkit/gatherd/internal/api"
	"github.com/gatherkit/gatherd/internal/identity"
	"github.com/gatherkit/gatherd/internal/notify"
)

const (
	minPasswordLen = 6
	resetTokenTTL  = time.Hour
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string           `json:"token"`
	User  identity.Summary `json:"user"`
}

// Register creates an account, issues a session token, and sends the
// verification mail. Mail delivery is best-effort.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "username, email and password are required")
		return
	}
	if !identity.ValidEmail(req.Email) {
		api.WriteBadRequest(w, api.ReasonInvalidField, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLen {
		api.WriteBadRequest(w, api.ReasonInvalidField,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	verifyToken, err := identity.NewActionToken()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	user := &identity.User{
		Username:          req.Username,
		Email:             identity.NormalizeEmail(req.Email),
		PasswordHash:      hash,
		VerificationToken: verifyToken,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, identity.ErrEmailExists) {
			api.WriteConflict(w, "email already in use")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	if err := h.notifier.Send(r.Context(), notify.Message{
		Kind: notify.KindVerification,
		To:   user.Email,
		Link: fmt.Sprintf("%s/verify-email/%s", h.origin, verifyToken),
	}); err != nil {
		h.log.Warn("verification mail failed", "user_id", user.ID, "error", err)
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, authResponse{Token: token, User: user.Summary()})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates and issues a session token. The failure message never
// distinguishes an unknown address from a wrong password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.hasher.Authenticate(r.Context(), h.users, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotVerified):
			api.WriteUnauthorized(w, api.ReasonUnverifiedEmail, "verify your email address before logging in")
		case errors.Is(err, identity.ErrInvalidPassword):
			api.WriteUnauthorized(w, api.ReasonInvalidCredentials, "invalid email or password")
		default:
			h.writeServiceError(w, err)
		}
		return
	}
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, authResponse{Token: token, User: user.Summary()})
}

// VerifyEmail flips isVerified once and clears the token.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	user, err := h.users.GetByVerificationToken(r.Context(), token)
	if err != nil {
		api.WriteBadRequest(w, api.ReasonInvalidField, "invalid verification token")
		return
	}
	user.IsVerified = true
	user.VerificationToken = ""
	if err := h.users.Update(r.Context(), user); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := h.notifier.Send(r.Context(), notify.Message{
		Kind: notify.KindWelcome,
		To:   user.Email,
	}); err != nil {
		h.log.Warn("welcome mail failed", "user_id", user.ID, "error", err)
	}
	api.WriteMessage(w, http.StatusOK, "email verified")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword always answers the same message so the endpoint cannot be
// used to probe for accounts.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	const reply = "if that account exists, a reset link has been sent"

	var req forgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		api.WriteMessage(w, http.StatusOK, reply)
		return
	}

	resetToken, err := identity.NewActionToken()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	expiry := h.now().Add(resetTokenTTL).UTC()
	user.ResetPasswordToken = resetToken
	user.ResetPasswordExpiry = &expiry
	if err := h.users.Update(r.Context(), user); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := h.notifier.Send(r.Context(), notify.Message{
		Kind: notify.KindReset,
		To:   user.Email,
		Link: fmt.Sprintf("%s/reset-password/%s", h.origin, resetToken),
	}); err != nil {
		h.log.Warn("reset mail failed", "user_id", user.ID, "error", err)
	}
	api.WriteMessage(w, http.StatusOK, reply)
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetPassword sets a new password when the reset token is known and
// unexpired. The token is single-use.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req resetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Password) < minPasswordLen {
		api.WriteBadRequest(w, api.ReasonInvalidField,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
		return
	}

	user, err := h.users.GetByResetToken(r.Context(), token)
	if err != nil || user.ResetPasswordExpiry == nil || h.now().After(*user.ResetPasswordExpiry) {
		api.WriteBadRequest(w, api.ReasonInvalidField, "invalid or expired reset token")
		return
	}
	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	user.PasswordHash = hash
	user.ResetPasswordToken = ""
	user.ResetPasswordExpiry = nil
	if err := h.users.Update(r.Context(), user); err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteMessage(w, http.StatusOK, "password updated")
}
