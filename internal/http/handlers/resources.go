package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/specialsearch/specialsearch/internal/cache"
	"github.com/specialsearch/specialsearch/internal/config"
	"github.com/specialsearch/specialsearch/internal/domain/resource"
	"github.com/specialsearch/specialsearch/internal/utils"
	"github.com/gin-gonic/gin"
)

type ResourcesStore interface {
	Create(ctx context.Context, req resource.CreateRequest) (resource.Resource, error)
	GetByID(ctx context.Context, id string) (resource.Resource, error)
	List(ctx context.Context, filter resource.ListFilter) ([]resource.Resource, error)
	Update(ctx context.Context, id string, req resource.UpdateRequest) (resource.Resource, error)
	Delete(ctx context.Context, id string) error
}

type ResourcesHandler struct {
	repo      ResourcesStore
	listCache *cache.Cache
}

func NewResourcesHandler(repo ResourcesStore) *ResourcesHandler {
	return &ResourcesHandler{repo: repo}
}

func NewResourcesHandlerWithCache(repo ResourcesStore, c *cache.Cache) *ResourcesHandler {
	return &ResourcesHandler{repo: repo, listCache: c}
}

func (h *ResourcesHandler) CreateResource(ctx *gin.Context) {
	var req resource.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	res, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create resource")
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusCreated, gin.H{"resource": res})
}

// ListResources serves from the short-TTL list cache when the same filter was
// asked recently; writes clear the whole cache rather than tracking keys.
func (h *ResourcesHandler) ListResources(ctx *gin.Context) {
	filter := resource.ListFilter{
		Type: ctx.Query("type"),
		City: ctx.Query("city"),
	}

	key := utils.BuildResourceListCacheKey(filter)

	if h.listCache != nil {
		if v, ok := h.listCache.Get(key); ok {
			if items, ok := v.([]resource.Resource); ok {
				RespondJSONWithETag(ctx, http.StatusOK, gin.H{
					"items": items,
					"count": len(items),
				})
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list resources")
		return
	}

	if h.listCache != nil {
		h.listCache.Set(key, items)
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *ResourcesHandler) GetResource(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	res, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			RespondNotFound(ctx, "Resource not found.")
			return
		}

		RespondInternal(ctx, "Could not load resource")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"resource": res})
}

func (h *ResourcesHandler) UpdateResource(ctx *gin.Context) {
	id := ctx.Param("id")

	var req resource.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	res, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			RespondNotFound(ctx, "Resource not found.")
			return
		}

		RespondInternal(ctx, "Could not update resource")
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusOK, gin.H{"resource": res})
}

func (h *ResourcesHandler) DeleteResource(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			RespondNotFound(ctx, "Resource not found.")
			return
		}

		RespondInternal(ctx, "Could not delete resource")
		return
	}

	h.invalidateLists()

	ctx.Status(http.StatusNoContent)
}

func (h *ResourcesHandler) invalidateLists() {
	if h.listCache != nil {
		h.listCache.Clear()
	}
}
