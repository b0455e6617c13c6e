package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/specialsearch/specialsearch/internal/auth"
	"github.com/specialsearch/specialsearch/internal/config"
	"github.com/specialsearch/specialsearch/internal/domain/user"
	"github.com/specialsearch/specialsearch/internal/http/middlewares"
	"github.com/specialsearch/specialsearch/internal/identity"
	"github.com/specialsearch/specialsearch/internal/jobs"
	"github.com/specialsearch/specialsearch/internal/security"
	"github.com/gin-gonic/gin"
)

// Narrow store interfaces so tests can fake them easily.

type UserAuthStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, req user.CreateRequest) (user.User, error)
	SetResetCode(ctx context.Context, email, code string, expiresAt time.Time) error
	ConsumeResetCode(ctx context.Context, email, code, newHash string) error
}

type JobEnqueuer interface {
	Create(ctx context.Context, req jobs.CreateRequest) (jobs.Job, error)
}

type AuthHandler struct {
	users    UserAuthStore
	jobs     JobEnqueuer
	jwt      *auth.Manager
	provider identity.Provider
	cfg      config.Config
}

func NewAuthHandler(
	users UserAuthStore,
	jobsRepo JobEnqueuer,
	jwtManager *auth.Manager,
	provider identity.Provider,
	cfg config.Config,
) *AuthHandler {
	if provider == nil {
		provider = identity.Disabled{}
	}

	return &AuthHandler{
		users:    users,
		jobs:     jobsRepo,
		jwt:      jwtManager,
		provider: provider,
		cfg:      cfg,
	}
}

type RegisterRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Username      string `json:"username" binding:"required"`
	Password      string `json:"password" binding:"required,min=8"`
	ProfilePicURL string `json:"profilePicUrl"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates the account. In dual-provider mode the secondary provider
// is signed up first; a primary-store failure then compensates by deleting
// the provider account so the two stores cannot silently diverge.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	if h.provider.Enabled() {
		_, err := h.provider.SignUp(cctx, req.Email, req.Password)

		if err != nil {
			if errors.Is(err, identity.ErrEmailExists) {
				RespondBadRequest(ctx, "Email is already in use.", gin.H{"field": "email"})
				return
			}

			RespondBadGateway(ctx, "identity_unavailable", "Could not create account right now.")
			return
		}
	}

	_, err = h.users.Create(cctx, user.CreateRequest{
		Email:         req.Email,
		Username:      req.Username,
		PasswordHash:  hash,
		ProfilePicURL: req.ProfilePicURL,
	})

	if err != nil {
		if h.provider.Enabled() {
			// compensate the provider sign-up; a failed compensation leaves
			// split-brain state and must be surfaced, not swallowed
			if delErr := h.provider.Delete(cctx, req.Email, req.Password); delErr != nil {
				RespondBadGateway(ctx, "partial_identity_update",
					"Account creation failed and could not be fully rolled back.")
				return
			}
		}

		if errors.Is(err, user.ErrEmailTaken) {
			RespondBadRequest(ctx, "Email is already in use.", gin.H{"field": "email"})
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// Login issues the 7-day session cookie. Failures are field-scoped so the
// client can highlight the right input.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondBadRequest(ctx, "No account found for this email.", gin.H{"field": "email"})
			return
		}

		RespondInternal(ctx, "Could not log in")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		RespondBadRequest(ctx, "Password is incorrect.", gin.H{"field": "password"})
		return
	}

	// both authorities must agree before a token is issued
	if h.provider.Enabled() {
		_, err := h.provider.SignIn(cctx, req.Email, req.Password)

		if err != nil {
			if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrUserNotFound) {
				RespondBadRequest(ctx, "Password is incorrect.", gin.H{"field": "password"})
				return
			}

			RespondBadGateway(ctx, "identity_unavailable", "Could not log in right now.")
			return
		}
	}

	token, expiresAt, err := h.jwt.GenerateSessionToken(foundUser.ID)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, token, expiresAt)

	ctx.JSON(http.StatusOK, gin.H{"user": foundUser.Public()})
}

// Me returns the id embedded in the session token. No store read: the id is
// only as fresh as the token's issuance.
func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"userId": id})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearSessionCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword issues a one-time code and queues the delivery mail. The
// response never reveals whether delivery succeeded.
func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "No account found for this email.")
			return
		}

		RespondInternal(ctx, "Could not start password reset")
		return
	}

	code, err := security.NewResetCode()

	if err != nil {
		RespondInternal(ctx, "Could not start password reset")
		return
	}

	expiresAt := time.Now().UTC().Add(h.cfg.ResetCodeTTL())

	if err := h.users.SetResetCode(cctx, req.Email, code, expiresAt); err != nil {
		RespondInternal(ctx, "Could not start password reset")
		return
	}

	payload, err := jobs.ResetCodeEmailPayload{
		Email:     foundUser.Email,
		Username:  foundUser.Username,
		Code:      code,
		ExpiresAt: expiresAt,
	}.JSON()

	if err != nil {
		RespondInternal(ctx, "Could not start password reset")
		return
	}

	if _, err := h.jobs.Create(cctx, jobs.CreateRequest{
		Type:    jobs.TypeResetCodeEmail,
		Payload: payload,
	}); err != nil {
		RespondInternal(ctx, "Could not start password reset")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password reset code sent"})
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	err = h.users.ConsumeResetCode(cctx, req.Email, req.OTP, hash)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "No account found for this email.")
		case errors.Is(err, user.ErrInvalidResetCode):
			RespondError(ctx, http.StatusBadRequest, "invalid_code", "Reset code is invalid.", nil)
		case errors.Is(err, user.ErrResetCodeExpired):
			RespondError(ctx, http.StatusBadRequest, "code_expired", "Reset code has expired.", nil)
		default:
			RespondInternal(ctx, "Could not reset password")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

type VerifyPasswordRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// VerifyPassword checks a password against the stored hash without touching
// the session. The settings screen uses it before sensitive changes.
func (h *AuthHandler) VerifyPassword(ctx *gin.Context) {
	var req VerifyPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByID(cctx, req.UserID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found.")
			return
		}

		RespondInternal(ctx, "Could not verify password")
		return
	}

	success := security.CheckPassword(foundUser.PasswordHash, req.Password) == nil

	ctx.JSON(http.StatusOK, gin.H{"success": success})
}

type CheckEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *AuthHandler) CheckEmail(ctx *gin.Context) {
	var req CheckEmailRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	exists, err := h.users.EmailExists(cctx, req.Email)

	if err != nil {
		RespondInternal(ctx, "Could not check email")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string, expiresAt time.Time) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middlewares.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Env == "production",
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middlewares.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Env == "production",
		SameSite: http.SameSiteStrictMode,
	})
}
