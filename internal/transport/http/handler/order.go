package handler

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/Sanandrew123/AICommerce/internal/domain"
	"github.com/Sanandrew123/AICommerce/internal/service"
	"github.com/Sanandrew123/AICommerce/pkg/utils"
)

type OrderHandler struct {
	orders   *service.OrderService
	validate *validator.Validate
}

func NewOrderHandler(orders *service.OrderService, validate *validator.Validate) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		validate: validate,
	}
}

type createOrderRequest struct {
	ShippingAddress json.RawMessage `json:"shipping_address" validate:"required"`
	PaymentMethod   string          `json:"payment_method" validate:"required,oneof=CARD WALLET COD"`
	Notes           string          `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING PAID SHIPPED DELIVERED CANCELLED"`
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=PENDING PAID FAILED REFUNDED"`
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.FormatValidationError(err)})
	}

	order, err := h.orders.CreateOrderFromCart(c.UserContext(), uid, service.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	orderID, err := c.ParamsInt("id")
	if err != nil || orderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	order, err := h.orders.GetOrder(c.UserContext(), int64(orderID), uid)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	page := c.QueryInt("page", 1)
	size := c.QueryInt("size", 20)

	result, err := h.orders.ListOrders(c.UserContext(), uid, page, size)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	orderID, err := c.ParamsInt("id")
	if err != nil || orderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	order, err := h.orders.CancelOrder(c.UserContext(), int64(orderID), uid)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(order)
}

// UpdateStatus is the back-office transition endpoint; it is not scoped
// to the calling user.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil || orderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.FormatValidationError(err)})
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), int64(orderID), domain.OrderStatus(req.Status))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) UpdatePaymentStatus(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil || orderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	var req updatePaymentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.FormatValidationError(err)})
	}

	order, err := h.orders.UpdatePaymentStatus(c.UserContext(), int64(orderID), domain.PaymentStatus(req.PaymentStatus))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(order)
}
