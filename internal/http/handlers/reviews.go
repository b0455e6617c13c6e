package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/specialsearch/specialsearch/internal/config"
	"github.com/specialsearch/specialsearch/internal/domain/review"
	"github.com/specialsearch/specialsearch/internal/utils"
	"github.com/gin-gonic/gin"
)

type ReviewsStore interface {
	Create(ctx context.Context, req review.CreateRequest) (review.Review, error)
	ListAll(ctx context.Context) ([]review.Review, error)
	ListByResource(ctx context.Context, resourceID string, limit int, after *utils.ReviewCursor) ([]review.Review, *string, bool, error)
}

type ReviewsHandler struct {
	repo ReviewsStore
}

func NewReviewsHandler(repo ReviewsStore) *ReviewsHandler {
	return &ReviewsHandler{repo: repo}
}

func (h *ReviewsHandler) CreateReview(ctx *gin.Context) {
	var req review.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	rv, err := h.repo.Create(cctx, req)

	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			RespondNotFound(ctx, "User or resource not found.")
			return
		}

		RespondInternal(ctx, "Could not create review")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"review": rv})
}

func (h *ReviewsHandler) ListReviews(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	items, err := h.repo.ListAll(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list reviews")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// ListResourceReviews pages one resource's reviews newest-first with an
// opaque cursor.
func (h *ReviewsHandler) ListResourceReviews(ctx *gin.Context) {
	resourceID := ctx.Param("resourceId")

	limit := 20

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n <= 0 || n > 100 {
			RespondBadRequest(ctx, "limit must be between 1 and 100.", gin.H{"field": "limit"})
			return
		}

		limit = n
	}

	var after *utils.ReviewCursor

	if raw := ctx.Query("cursor"); raw != "" {
		c, err := utils.DecodeReviewCursor(raw)

		if err != nil {
			RespondBadRequest(ctx, "cursor is invalid.", gin.H{"field": "cursor"})
			return
		}

		after = &c
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	items, nextCursor, hasMore, err := h.repo.ListByResource(cctx, resourceID, limit, after)

	if err != nil {
		RespondInternal(ctx, "Could not list reviews")
		return
	}

	resp := gin.H{
		"items":   items,
		"count":   len(items),
		"hasMore": hasMore,
	}

	if nextCursor != nil {
		resp["nextCursor"] = *nextCursor
	}

	ctx.JSON(http.StatusOK, resp)
}
