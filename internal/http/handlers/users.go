package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/specialsearch/specialsearch/internal/config"
	"github.com/specialsearch/specialsearch/internal/domain/resource"
	"github.com/specialsearch/specialsearch/internal/domain/user"
	"github.com/specialsearch/specialsearch/internal/identity"
	"github.com/specialsearch/specialsearch/internal/security"
	"github.com/specialsearch/specialsearch/internal/utils"
	"github.com/gin-gonic/gin"
)

type UserProfileStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error)
	ToggleFavorite(ctx context.Context, userID, resourceID string) (bool, error)
	ListFavorites(ctx context.Context, userID string) ([]string, error)
}

type UsersHandler struct {
	users    UserProfileStore
	provider identity.Provider
	cfg      config.Config
}

func NewUsersHandler(users UserProfileStore, provider identity.Provider, cfg config.Config) *UsersHandler {
	if provider == nil {
		provider = identity.Disabled{}
	}

	return &UsersHandler{users: users, provider: provider, cfg: cfg}
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	id := ctx.Param("userId")

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found.")
			return
		}

		RespondInternal(ctx, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": foundUser.Public()})
}

type UpdateUserRequest struct {
	Username      *string        `json:"username"`
	Email         *string        `json:"email" binding:"omitempty,email"`
	Password      *string        `json:"password" binding:"omitempty,min=8"`
	CurrentPass   *string        `json:"currentPassword"`
	ProfilePicURL *string        `json:"profilePicUrl"`
	Location      *user.Location `json:"location"`
}

// UpdateUser applies a partial profile update. A password change requires the
// current password and, in dual-provider mode, also updates the secondary
// provider after the primary store; a secondary failure at that point is
// surfaced as partial_identity_update rather than reported as success.
func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id := ctx.Param("userId")

	var req UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	update := user.UpdateRequest{
		Username:      req.Username,
		Email:         req.Email,
		ProfilePicURL: req.ProfilePicURL,
		Location:      req.Location,
	}

	var currentPassword string

	if req.Password != nil {
		if req.CurrentPass == nil || *req.CurrentPass == "" {
			RespondBadRequest(ctx, "Current password is required to change the password.",
				gin.H{"field": "currentPassword"})
			return
		}

		foundUser, err := h.users.GetByID(cctx, id)

		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				RespondNotFound(ctx, "User not found.")
				return
			}

			RespondInternal(ctx, "Could not update user")
			return
		}

		if security.CheckPassword(foundUser.PasswordHash, *req.CurrentPass) != nil {
			RespondBadRequest(ctx, "Current password is incorrect.",
				gin.H{"field": "currentPassword"})
			return
		}

		hash, err := security.HashPassword(*req.Password)

		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}

		update.PasswordHash = &hash
		currentPassword = *req.CurrentPass
	}

	updated, err := h.users.Update(cctx, id, update)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found.")
		case errors.Is(err, user.ErrEmailTaken):
			RespondBadRequest(ctx, "Email is already in use.", gin.H{"field": "email"})
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	if req.Password != nil && h.provider.Enabled() {
		err := h.provider.UpdatePassword(cctx, updated.Email, currentPassword, *req.Password)

		if err != nil {
			// primary already holds the new hash; the stores have diverged
			RespondBadGateway(ctx, "partial_identity_update",
				"Password was changed but could not be fully propagated. Please reset your password.")
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"user": updated.Public()})
}

func (h *UsersHandler) GetFavorites(ctx *gin.Context) {
	id := ctx.Param("userId")

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	favorites, err := h.users.ListFavorites(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found.")
			return
		}

		RespondInternal(ctx, "Could not load favorites")
		return
	}

	if favorites == nil {
		favorites = []string{}
	}

	// the wire shape is the bare id array, not an envelope
	ctx.JSON(http.StatusOK, favorites)
}

type ToggleFavoriteRequest struct {
	ResourceID string `json:"resourceId" binding:"required"`
}

func (h *UsersHandler) ToggleFavorite(ctx *gin.Context) {
	id := ctx.Param("userId")

	var req ToggleFavoriteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !utils.IsUUID(req.ResourceID) {
		RespondBadRequest(ctx, "resourceId must be a valid id.", gin.H{"field": "resourceId"})
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	isFav, err := h.users.ToggleFavorite(cctx, id, req.ResourceID)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found.")
		case errors.Is(err, resource.ErrNotFound):
			RespondNotFound(ctx, "Resource not found.")
		default:
			RespondInternal(ctx, "Could not update favorites")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "isFav": isFav})
}
