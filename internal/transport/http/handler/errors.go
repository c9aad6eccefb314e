package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/Sanandrew123/AICommerce/internal/domain"
	"github.com/Sanandrew123/AICommerce/internal/repository"
	"github.com/Sanandrew123/AICommerce/internal/service"
)

// statusFromError maps service and repository errors onto HTTP codes.
// Conflicts (illegal transitions, oversell) are 409, bad carts are 422,
// number exhaustion is a retriable 503.
func statusFromError(err error) int {
	var transitionErr *domain.IllegalTransitionError
	var stockErr *domain.InsufficientStockError

	switch {
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrCartItemNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &transitionErr), errors.As(err, &stockErr):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrCartUnavailable),
		errors.Is(err, service.ErrUserInactive):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrOrderNumbersExhausted):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	status := statusFromError(err)

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "internal server error"
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
