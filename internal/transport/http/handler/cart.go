package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/Sanandrew123/AICommerce/internal/service"
	"github.com/Sanandrew123/AICommerce/pkg/utils"
)

type CartHandler struct {
	cart     *service.CartService
	validate *validator.Validate
}

func NewCartHandler(cart *service.CartService, validate *validator.Validate) *CartHandler {
	return &CartHandler{
		cart:     cart,
		validate: validate,
	}
}

type addToCartRequest struct {
	ProductID          int64  `json:"product_id" validate:"required,gt=0"`
	Quantity           int32  `json:"quantity" validate:"required,gt=0"`
	SelectedAttributes string `json:"selected_attributes"`
}

type updateQuantityRequest struct {
	Quantity int32 `json:"quantity" validate:"gte=0"`
}

func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var req addToCartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.FormatValidationError(err)})
	}

	item, err := h.cart.AddToCart(c.UserContext(), uid, req.ProductID, req.Quantity, req.SelectedAttributes)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	summary, err := h.cart.Summary(c.UserContext(), uid)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(summary)
}

func (h *CartHandler) ValidateCart(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	valid, unavailable, err := h.cart.Validate(c.UserContext(), uid)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"valid":                   valid,
		"unavailable_product_ids": unavailable,
	})
}

func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	itemID, err := c.ParamsInt("id")
	if err != nil || itemID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid cart item id"})
	}

	var req updateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.FormatValidationError(err)})
	}

	if err := h.cart.UpdateItemQuantity(c.UserContext(), uid, int64(itemID), req.Quantity); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	itemID, err := c.ParamsInt("id")
	if err != nil || itemID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid cart item id"})
	}

	if err := h.cart.RemoveFromCart(c.UserContext(), uid, int64(itemID)); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	if err := h.cart.ClearCart(c.UserContext(), uid); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
