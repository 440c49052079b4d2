package controller

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"storefront-api/internal/apperr"
	"storefront-api/internal/storage"
)

// ImageReader opens stored uploads by key.
type ImageReader interface {
	Read(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type UploadController struct {
	Images ImageReader
	log    *slog.Logger
}

func NewUploadController(images ImageReader, log *slog.Logger) *UploadController {
	return &UploadController{Images: images, log: log}
}

// GET /uploads/*key
func (ctl *UploadController) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		respondError(c, ctl.log, apperr.NotFound("Image"))
		return
	}
	r, contentType, err := ctl.Images.Read(c.Request.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(c, ctl.log, apperr.NotFound("Image"))
		return
	}
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	defer r.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, r, nil)
}

// Health answers GET /healthz. check may be nil.
func Health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
