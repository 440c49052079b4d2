package dto

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/model"
)

var registerOnce sync.Once

// RegisterValidators adds the orderstatus and objectid tags to gin's
// validator engine. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("orderstatus", func(fl validator.FieldLevel) bool {
			return model.OrderStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(fl.Field().String())
		})
	})
}

// BindError turns a gin binding failure into a client error. Only the
// first failing field is reported.
func BindError(err error) *apperr.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fieldName(fe)
		switch fe.Tag() {
		case "required":
			return apperr.Validation("VALIDATION_ERROR", field+" is required")
		case "orderstatus":
			return apperr.Validation("INVALID_STATUS", "Invalid status value")
		case "objectid":
			return apperr.Validation("INVALID_ID", "Invalid "+field+" id")
		case "min", "gte":
			return apperr.Validation("VALIDATION_ERROR", field+" must be at least "+fe.Param())
		case "max":
			return apperr.Validation("VALIDATION_ERROR", field+" must be at most "+fe.Param())
		case "oneof":
			return apperr.Validation("VALIDATION_ERROR", field+" must be one of: "+fe.Param())
		default:
			return apperr.Validation("VALIDATION_ERROR", field+" is invalid")
		}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperr.Validationf("VALIDATION_ERROR", "%s must be a %s", typeErr.Field, typeErr.Type.Kind())
	}
	return apperr.Validation("VALIDATION_ERROR", "Invalid request body")
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "value"
	}
	return strings.ToLower(name[:1]) + name[1:]
}
