package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/Sanandrew123/AICommerce/internal/transport/http/handler"
)

type Handlers struct {
	Cart  *handler.CartHandler
	Order *handler.OrderHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	cart := api.Group("/cart")
	cart.Get("", h.Cart.GetCart)
	cart.Get("/validate", h.Cart.ValidateCart)
	cart.Delete("", h.Cart.ClearCart)
	cart.Post("/items", h.Cart.AddToCart)
	cart.Put("/items/:id", h.Cart.UpdateItem)
	cart.Delete("/items/:id", h.Cart.RemoveItem)

	orders := api.Group("/orders")
	orders.Post("", h.Order.CreateOrder)
	orders.Get("", h.Order.ListOrders)
	orders.Get("/:id", h.Order.GetOrder)
	orders.Post("/:id/cancel", h.Order.CancelOrder)
	orders.Patch("/:id/status", h.Order.UpdateStatus)
	orders.Patch("/:id/payment-status", h.Order.UpdatePaymentStatus)
}
