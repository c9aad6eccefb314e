package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/Sanandrew123/AICommerce/internal/domain"
	"github.com/Sanandrew123/AICommerce/pkg/applog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Order, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error)
	GetForUpdateByUser(ctx context.Context, tx pgx.Tx, id, userID int64) (*domain.Order, error)
	ListItems(ctx context.Context, tx pgx.Tx, orderID int64) ([]domain.OrderItem, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status domain.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, tx pgx.Tx, id int64, paymentStatus domain.PaymentStatus, status domain.OrderStatus) error
	NumberExists(ctx context.Context, orderNumber string) (bool, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

type orderRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("order_repo"),
	}
}

const orderColumns = `id, user_id, order_number, status, total_amount, shipping_address,
		payment_method, payment_status, notes, created_at, updated_at`

func scanOrder(row pgx.Row, o *domain.Order) error {
	return row.Scan(
		&o.ID,
		&o.UserID,
		&o.OrderNumber,
		&o.Status,
		&o.TotalAmount,
		&o.ShippingAddress,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

// Create inserts the order header and its items inside the caller's
// transaction. A unique violation on order_number is reported as
// ErrOrderNumberTaken so the caller can retry with a fresh number.
func (r *orderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", order.UserID),
		attribute.String("order_number", order.OrderNumber),
	)

	query := `
		INSERT INTO orders (user_id, order_number, status, total_amount, shipping_address,
			payment_method, payment_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at;
	`

	if err := tx.QueryRow(
		ctx,
		query,
		order.UserID,
		order.OrderNumber,
		order.Status,
		order.TotalAmount,
		order.ShippingAddress,
		order.PaymentMethod,
		order.PaymentStatus,
		order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key" {
			return ErrOrderNumberTaken
		}

		span.RecordError(err)
		applog.Error(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Int64("user_id", order.UserID),
			zap.Error(err),
		)

		return fmt.Errorf("error inserting order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, selected_attributes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			itemQuery,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
			item.SelectedAttributes,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)
			return fmt.Errorf("error inserting order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1;
	`

	var order domain.Order
	if err := scanOrder(r.pool.QueryRow(ctx, query, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error getting order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *orderRepo) GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByIDAndUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1 AND user_id = $2;
	`

	var order domain.Order
	if err := scanOrder(r.pool.QueryRow(ctx, query, id, userID), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error getting order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	order.Items = items

	return &order, nil
}

// GetForUpdate locks the order row for the duration of the caller's
// transaction. Concurrent status transitions on the same order
// serialize behind this lock.
func (r *orderRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
		FOR UPDATE;
	`

	var order domain.Order
	if err := scanOrder(tx.QueryRow(ctx, query, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error locking order: %w", err)
	}

	return &order, nil
}

func (r *orderRepo) GetForUpdateByUser(ctx context.Context, tx pgx.Tx, id, userID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetForUpdateByUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1 AND user_id = $2
		FOR UPDATE;
	`

	var order domain.Order
	if err := scanOrder(tx.QueryRow(ctx, query, id, userID), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error locking order: %w", err)
	}

	return &order, nil
}

const orderItemColumns = `id, order_id, product_id, product_name, quantity, unit_price, selected_attributes`

func (r *orderRepo) loadItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	query := `
		SELECT ` + orderItemColumns + `
		FROM order_items
		WHERE order_id = $1
		ORDER BY id;
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("error selecting order items: %w", err)
	}
	defer rows.Close()

	return collectOrderItems(rows)
}

// ListItems reads the order's items inside the caller's transaction,
// used when cancellation needs the quantities to release stock.
func (r *orderRepo) ListItems(ctx context.Context, tx pgx.Tx, orderID int64) ([]domain.OrderItem, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListItems")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	query := `
		SELECT ` + orderItemColumns + `
		FROM order_items
		WHERE order_id = $1
		ORDER BY id;
	`

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error selecting order items: %w", err)
	}
	defer rows.Close()

	return collectOrderItems(rows)
}

func collectOrderItems(rows pgx.Rows) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.SelectedAttributes,
		); err != nil {
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status domain.OrderStatus) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.String("status", status.String()),
	)

	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1;
	`

	commandTag, err := tx.Exec(ctx, query, id, status)
	if err != nil {
		span.RecordError(err)
		applog.Error(
			ctx,
			r.logger,
			"Failed to update order status",
			zap.Int64("order_id", id),
			zap.String("status", status.String()),
			zap.Error(err),
		)

		return fmt.Errorf("error updating order status: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// UpdatePaymentStatus writes both columns in one statement because the
// payment cascade may change the order status in the same step.
func (r *orderRepo) UpdatePaymentStatus(ctx context.Context, tx pgx.Tx, id int64, paymentStatus domain.PaymentStatus, status domain.OrderStatus) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdatePaymentStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.String("payment_status", string(paymentStatus)),
	)

	query := `
		UPDATE orders
		SET payment_status = $2, status = $3, updated_at = NOW()
		WHERE id = $1;
	`

	commandTag, err := tx.Exec(ctx, query, id, paymentStatus, status)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error updating payment status: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) NumberExists(ctx context.Context, orderNumber string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.NumberExists")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_number", orderNumber),
	)

	var exists bool
	if err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`,
		orderNumber,
	).Scan(&exists); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("error checking order number: %w", err)
	}

	return exists, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error selecting orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *orderRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CountByUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).
		Scan(&count); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("error counting orders: %w", err)
	}

	return count, nil
}
