package controller

import (
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/dto"
	"storefront-api/internal/logger"
)

const maxImageBytes = 5 << 20

// respondError writes {"error", "code"} with the status of err's kind.
// Unexpected errors are logged and answered with their generic message.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(err, "Server error")
	}
	if appErr.Kind == apperr.KindInternal {
		logger.FromContext(c.Request.Context(), log).Error(appErr.Message,
			"error", appErr.Err, "method", c.Request.Method, "path", c.FullPath())
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message, "code": appErr.Code})
}

// bind decodes the request into dst, answering 400 on failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil {
		respondError(c, nil, dto.BindError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		respondError(c, nil, dto.BindError(err))
		return false
	}
	return true
}

// objectID parses the named path parameter, answering 400 when it is not
// a valid id.
func objectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		respondError(c, nil, apperr.Validationf("INVALID_ID", "Invalid %s", name))
		return primitive.NilObjectID, false
	}
	return id, true
}

// formImage reads an optional uploaded file. A missing field yields nil.
func formImage(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("INVALID_IMAGE", "Could not read uploaded file")
	}
	if fh.Size > maxImageBytes {
		return nil, apperr.Validationf("IMAGE_TOO_LARGE", "Image must be at most %d MB", maxImageBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Internal(err, "Could not read uploaded file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, apperr.Internal(err, "Could not read uploaded file")
	}
	return data, nil
}

// pageOf fills defaults for an optional page query.
func pageOf(q dto.PageQuery, defaultLimit int) (page, limit int) {
	page, limit = q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

func pages(total int64, limit int) int {
	if limit < 1 {
		return 1
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
}
