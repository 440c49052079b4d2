package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-api/internal/dto"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"
)

type AdvertController struct {
	Service *service.AdvertService
	log     *slog.Logger
}

func NewAdvertController(s *service.AdvertService, log *slog.Logger) *AdvertController {
	return &AdvertController{Service: s, log: log}
}

// GET /advertisement
func (ctl *AdvertController) Active(c *gin.Context) {
	a, err := ctl.Service.Active(c.Request.Context())
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// PUT /advertisement (multipart, banner image in "image")
func (ctl *AdvertController) Upsert(c *gin.Context) {
	var req dto.AdvertRequest
	if !bind(c, &req) {
		return
	}
	image, err := formImage(c, "image")
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	a, err := ctl.Service.Upsert(c.Request.Context(), middleware.Actor(c), service.AdvertPatch{
		Message: req.Message,
		Code:    req.Code,
		Active:  req.Active,
	}, image)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
