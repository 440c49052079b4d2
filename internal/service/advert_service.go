package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"storefront-api/internal/apperr"
	"storefront-api/internal/logger"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"storefront-api/internal/storage"
)

// AdvertPatch changes the site banner; nil fields are kept.
type AdvertPatch struct {
	Message *string
	Code    *string
	Active  *bool
}

type AdvertService struct {
	adverts AdvertRepository
	images  ImageStore
	log     *slog.Logger
}

func NewAdvertService(adverts AdvertRepository, images ImageStore, log *slog.Logger) *AdvertService {
	return &AdvertService{adverts: adverts, images: images, log: log}
}

// Active returns the banner when one exists and is switched on.
func (s *AdvertService) Active(ctx context.Context) (*model.Advertisement, error) {
	a, err := s.adverts.Get(ctx)
	if err != nil {
		return nil, storeErr(err, "Advertisement")
	}
	if !a.Active {
		return nil, apperr.NotFound("Advertisement")
	}
	return a, nil
}

// Upsert merges patch into the banner, creating it on first use. A new
// banner needs a message and starts active unless told otherwise.
func (s *AdvertService) Upsert(ctx context.Context, actor Actor, patch AdvertPatch, image []byte) (*model.Advertisement, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	a, err := s.adverts.Get(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if patch.Message == nil || strings.TrimSpace(*patch.Message) == "" {
			return nil, apperr.Validation("MESSAGE_REQUIRED", "Message is required")
		}
		a = &model.Advertisement{Active: true}
	case err != nil:
		return nil, storeErr(err, "Advertisement")
	}

	if patch.Message != nil {
		msg := strings.TrimSpace(*patch.Message)
		if msg == "" {
			return nil, apperr.Validation("MESSAGE_REQUIRED", "Message is required")
		}
		a.Message = msg
	}
	if patch.Code != nil {
		a.Code = strings.TrimSpace(*patch.Code)
	}
	if patch.Active != nil {
		a.Active = *patch.Active
	}

	var previousKey string
	if len(image) > 0 {
		img, err := s.images.Upload(ctx, storage.FolderAdvertisements, image)
		if err != nil {
			return nil, imageErr(err)
		}
		previousKey = a.ImagePublicID
		a.ImageURL, a.ImagePublicID = img.URL, img.PublicID
	}

	if err := s.adverts.Upsert(ctx, a); err != nil {
		return nil, storeErr(err, "Advertisement")
	}
	if previousKey != "" {
		if err := s.images.Delete(ctx, previousKey); err != nil {
			logger.FromContext(ctx, s.log).Warn("image not deleted", "public_id", previousKey, "error", err)
		}
	}
	return a, nil
}
