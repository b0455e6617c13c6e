package handlers

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialsearch/specialsearch/internal/config"
	"github.com/gin-gonic/gin"
)

type ImageStore interface {
	Put(ctx context.Context, ext, contentType string, body io.Reader) (string, error)
}

type UploadsHandler struct {
	store ImageStore
}

func NewUploadsHandler(store ImageStore) *UploadsHandler {
	return &UploadsHandler{store: store}
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Upload accepts a multipart image under the "image" field and returns the
// stored object's URL.
func (h *UploadsHandler) Upload(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("image")

	if err != nil {
		RespondBadRequest(ctx, "An image file is required.", gin.H{"field": "image"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	ext, ok := allowedImageTypes[contentType]

	if !ok {
		RespondBadRequest(ctx, "Unsupported image type.", gin.H{"field": "image"})
		return
	}

	// prefer the original extension when it agrees with the content type
	if orig := strings.ToLower(filepath.Ext(fileHeader.Filename)); orig == ".jpeg" && ext == ".jpg" {
		ext = orig
	}

	f, err := fileHeader.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read upload")
		return
	}

	defer f.Close()

	cctx, cancel := config.WithTimeout(15 * time.Second)
	defer cancel()

	url, err := h.store.Put(cctx, ext, contentType, f)

	if err != nil {
		RespondInternal(ctx, "Could not store upload")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"url": url})
}
