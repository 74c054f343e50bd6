package handlers

import (
	"errors"
	"net/http"

	"checkout-service/internal/dto"
	"checkout-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// writeServiceError переводит ошибку сервиса в HTTP-ответ.
func writeServiceError(c *gin.Context, log *zap.Logger, err error) {
	var ie *service.InsufficientInventoryError
	var cf *service.CommitFailure

	switch {
	case errors.As(err, &ie):
		c.JSON(http.StatusConflict, dto.NewInsufficientInventoryError(ie.ItemID, ie.Requested, ie.Available))
	case errors.Is(err, service.ErrIdempotencyInFlight):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case errors.Is(err, service.ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case service.IsValidation(err):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrItemNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))
	case errors.As(err, &cf):
		log.Error("Commit failed", zap.Error(cf.Cause))
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, dto.NewCommitFailedError(""))
	default:
		log.Error("Internal service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

// bindError собирает ошибки валидатора gin по полям.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}

	fields := make([]dto.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, dto.FieldError{
			Field:   fe.Namespace(),
			Message: fe.Error(),
			Tag:     fe.Tag(),
		})
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationError("validation failed", fields))
}
