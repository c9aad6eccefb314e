package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/Sanandrew123/AICommerce/internal/domain"
	"github.com/Sanandrew123/AICommerce/internal/repository"
	"github.com/Sanandrew123/AICommerce/pkg/applog"
	outboxdomain "github.com/Sanandrew123/AICommerce/pkg/outbox/domain"
	"github.com/Sanandrew123/AICommerce/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	EventOrderCreated         = "order.created"
	EventOrderCancelled       = "order.cancelled"
	EventOrderStatusChanged   = "order.status_changed"
	EventPaymentStatusChanged = "payment.status_changed"
)

// createAttempts bounds retries when a generated order number loses the
// unique-index race to a concurrent checkout.
const createAttempts = 3

type CreateOrderInput struct {
	ShippingAddress json.RawMessage
	PaymentMethod   string
	Notes           string
}

type OrderPage struct {
	Orders []domain.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Size   int            `json:"size"`
}

type OrderService struct {
	pool       *pgxpool.Pool
	orders     repository.OrderRepository
	products   repository.ProductRepository
	carts      repository.CartRepository
	users      repository.UserRepository
	cart       *CartService
	outbox     worker.OutboxRepository
	numbers    *OrderNumberGenerator
	orderTopic string
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewOrderService(
	pool *pgxpool.Pool,
	orders repository.OrderRepository,
	products repository.ProductRepository,
	carts repository.CartRepository,
	users repository.UserRepository,
	cart *CartService,
	outbox worker.OutboxRepository,
	numbers *OrderNumberGenerator,
	orderTopic string,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		pool:       pool,
		orders:     orders,
		products:   products,
		carts:      carts,
		users:      users,
		cart:       cart,
		outbox:     outbox,
		numbers:    numbers,
		orderTopic: orderTopic,
		logger:     logger,
		tracer:     otel.Tracer("order_service"),
	}
}

// CreateOrderFromCart turns the user's cart into a PENDING order.
// Stock reservation, the order insert, the cart wipe and the outbox
// record all commit in one transaction; a failure at any step leaves
// cart and stock untouched.
func (s *OrderService) CreateOrderFromCart(ctx context.Context, userID int64, input CreateOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrderFromCart")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrUserInactive
	}

	summary, err := s.cart.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(summary.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, line := range summary.Lines {
		if !line.Available {
			return nil, fmt.Errorf("%w: product %d", ErrCartUnavailable, line.Item.ProductID)
		}
	}

	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		number, err := s.numbers.Generate(ctx)
		if err != nil {
			return nil, err
		}

		order, err := s.createOrderTx(ctx, userID, number, summary, input)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNumberTaken) {
				applog.Warn(
					ctx,
					s.logger,
					"Order number collided, retrying",
					zap.String("order_number", number),
					zap.Int("attempt", attempt+1),
				)
				lastErr = err
				continue
			}
			return nil, err
		}

		applog.Info(
			ctx,
			s.logger,
			"Order created",
			zap.Int64("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
			zap.Int64("user_id", userID),
		)

		return order, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrOrderNumbersExhausted, lastErr)
}

func (s *OrderService) createOrderTx(
	ctx context.Context,
	userID int64,
	number string,
	summary *domain.CartSummary,
	input CreateOrderInput,
) (*domain.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			applog.Error(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	order := &domain.Order{
		UserID:          userID,
		OrderNumber:     number,
		Status:          domain.OrderStatusPending,
		TotalAmount:     summary.TotalAmount,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   domain.PaymentStatusPending,
		Notes:           input.Notes,
	}

	for _, line := range summary.Lines {
		// The conditional decrement is the authoritative availability
		// check; the earlier summary check only gives friendlier errors.
		if err := s.products.AdjustStock(ctx, tx, line.Item.ProductID, -int64(line.Item.Quantity)); err != nil {
			return nil, err
		}

		order.Items = append(order.Items, domain.OrderItem{
			ProductID:          line.Item.ProductID,
			ProductName:        line.Product.Name,
			Quantity:           line.Item.Quantity,
			UnitPrice:          line.UnitPrice,
			SelectedAttributes: line.Item.SelectedAttributes,
		})
	}

	if err := s.orders.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := s.carts.ClearUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	event := domain.OrderCreatedEvent{
		EventID:     uuid.NewString(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       eventItems(order.Items),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.emitEvent(ctx, tx, order.ID, EventOrderCreated, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return order, nil
}

// UpdateStatus moves the order along its status machine. The row is
// locked for the duration of the transaction, so concurrent transitions
// on the same order serialize and the loser sees the new state.
// Cancelling through this path releases reserved stock.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, target domain.OrderStatus) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("target", target.String()),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			applog.Error(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	order, err := s.orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if err := order.Transition(target); err != nil {
		return nil, err
	}

	if target == domain.OrderStatusCancelled {
		if err := s.releaseStock(ctx, tx, order); err != nil {
			return nil, err
		}
	}

	if err := s.orders.UpdateStatus(ctx, tx, order.ID, order.Status); err != nil {
		return nil, err
	}

	if err := s.emitTransitionEvent(ctx, tx, order, from); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	applog.Info(
		ctx,
		s.logger,
		"Order status updated",
		zap.Int64("order_id", order.ID),
		zap.String("from", from.String()),
		zap.String("to", order.Status.String()),
	)

	return order, nil
}

// CancelOrder is the user-facing cancellation: the order must belong to
// the caller and still be cancellable.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CancelOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("user_id", userID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			applog.Error(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	order, err := s.orders.GetForUpdateByUser(ctx, tx, orderID, userID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if err := order.Transition(domain.OrderStatusCancelled); err != nil {
		return nil, err
	}

	if err := s.releaseStock(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, tx, order.ID, order.Status); err != nil {
		return nil, err
	}

	if err := s.emitTransitionEvent(ctx, tx, order, from); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	applog.Info(
		ctx,
		s.logger,
		"Order cancelled",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
	)

	return order, nil
}

// UpdatePaymentStatus records the payment outcome reported by the
// payment provider. A successful payment on a PENDING order also
// advances the order status to PAID; every other payment status leaves
// the order status alone.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdatePaymentStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("payment_status", string(status)),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			applog.Error(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	order, err := s.orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	cascaded := order.ApplyPaymentStatus(status)

	if err := s.orders.UpdatePaymentStatus(ctx, tx, order.ID, order.PaymentStatus, order.Status); err != nil {
		return nil, err
	}

	event := domain.PaymentStatusChangedEvent{
		EventID:       uuid.NewString(),
		OrderID:       order.ID,
		PaymentStatus: string(order.PaymentStatus),
		OrderStatus:   order.Status.String(),
	}
	if err := s.emitEvent(ctx, tx, order.ID, EventPaymentStatusChanged, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	applog.Info(
		ctx,
		s.logger,
		"Payment status updated",
		zap.Int64("order_id", order.ID),
		zap.String("payment_status", string(status)),
		zap.Bool("order_status_cascaded", cascaded),
	)

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, userID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("user_id", userID),
	)

	return s.orders.GetByIDAndUser(ctx, orderID, userID)
}

func (s *OrderService) ListOrders(ctx context.Context, userID int64, page, size int) (*OrderPage, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int("page", page),
		attribute.Int("size", size),
	)

	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	orders, err := s.orders.ListByUser(ctx, userID, size, (page-1)*size)
	if err != nil {
		return nil, err
	}

	total, err := s.orders.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &OrderPage{
		Orders: orders,
		Total:  total,
		Page:   page,
		Size:   size,
	}, nil
}

// releaseStock returns every reserved quantity of the order back to the
// catalog.
func (s *OrderService) releaseStock(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	items := order.Items
	if len(items) == 0 {
		loaded, err := s.orders.ListItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		items = loaded
		order.Items = loaded
	}

	for _, item := range items {
		if err := s.products.AdjustStock(ctx, tx, item.ProductID, int64(item.Quantity)); err != nil {
			return err
		}
	}

	return nil
}

func (s *OrderService) emitTransitionEvent(ctx context.Context, tx pgx.Tx, order *domain.Order, from domain.OrderStatus) error {
	if order.Status == domain.OrderStatusCancelled {
		event := domain.OrderCancelledEvent{
			EventID:     uuid.NewString(),
			OrderID:     order.ID,
			UserID:      order.UserID,
			Items:       eventItems(order.Items),
			CancelledAt: time.Now().UTC(),
		}
		return s.emitEvent(ctx, tx, order.ID, EventOrderCancelled, event)
	}

	event := domain.OrderStatusChangedEvent{
		EventID: uuid.NewString(),
		OrderID: order.ID,
		From:    from.String(),
		To:      order.Status.String(),
	}
	return s.emitEvent(ctx, tx, order.ID, EventOrderStatusChanged, event)
}

// emitEvent stages a domain event in the outbox inside the caller's
// transaction. The wire format is an envelope with the event type and
// the payload, matching what consumers unmarshal.
func (s *OrderService) emitEvent(ctx context.Context, tx pgx.Tx, orderID int64, eventType string, payload any) error {
	envelope := map[string]any{
		"event":   eventType,
		"payload": payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}

	return s.outbox.SaveOutboxEvent(ctx, tx, &outboxdomain.OutboxEvent{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(orderID, 10),
		EventType:     eventType,
		Payload:       data,
		Topic:         s.orderTopic,
	})
}

func eventItems(items []domain.OrderItem) []domain.OrderEventItem {
	out := make([]domain.OrderEventItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.OrderEventItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return out
}
