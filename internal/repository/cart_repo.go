package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/Sanandrew123/AICommerce/internal/domain"
	"github.com/Sanandrew123/AICommerce/pkg/applog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CartRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.CartItem, error)
	GetByID(ctx context.Context, id int64) (*domain.CartItem, error)
	FindLine(ctx context.Context, userID, productID int64, selectedAttributes string) (*domain.CartItem, error)
	Insert(ctx context.Context, item *domain.CartItem) error
	UpdateQuantity(ctx context.Context, id int64, quantity int32) error
	Delete(ctx context.Context, id int64) error
	ClearUser(ctx context.Context, tx pgx.Tx, userID int64) error
}

type cartRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewCartRepository(pool *pgxpool.Pool, logger *zap.Logger) CartRepository {
	return &cartRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("cart_repo"),
	}
}

const cartItemColumns = `id, user_id, product_id, quantity, selected_attributes, created_at, updated_at`

func scanCartItem(row pgx.Row, item *domain.CartItem) error {
	return row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.SelectedAttributes,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

func (r *cartRepo) ListByUser(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.ListByUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		applog.Error(
			ctx,
			r.logger,
			"Failed to query cart items",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error selecting cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := scanCartItem(rows, &item); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return items, nil
}

func (r *cartRepo) GetByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items
		WHERE id = $1;
	`

	var item domain.CartItem
	if err := scanCartItem(r.pool.QueryRow(ctx, query, id), &item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error getting cart item: %w", err)
	}

	return &item, nil
}

func (r *cartRepo) FindLine(ctx context.Context, userID, productID int64, selectedAttributes string) (*domain.CartItem, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.FindLine")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("product_id", productID),
	)

	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items
		WHERE user_id = $1 AND product_id = $2 AND selected_attributes = $3;
	`

	var item domain.CartItem
	if err := scanCartItem(r.pool.QueryRow(ctx, query, userID, productID, selectedAttributes), &item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error finding cart line: %w", err)
	}

	return &item, nil
}

func (r *cartRepo) Insert(ctx context.Context, item *domain.CartItem) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.Insert")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", item.UserID),
		attribute.Int64("product_id", item.ProductID),
	)

	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, selected_attributes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at;
	`

	if err := r.pool.QueryRow(
		ctx,
		query,
		item.UserID,
		item.ProductID,
		item.Quantity,
		item.SelectedAttributes,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
		span.RecordError(err)
		applog.Error(
			ctx,
			r.logger,
			"Failed to insert cart item",
			zap.Int64("user_id", item.UserID),
			zap.Error(err),
		)

		return fmt.Errorf("error inserting cart item: %w", err)
	}

	return nil
}

func (r *cartRepo) UpdateQuantity(ctx context.Context, id int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.UpdateQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int("quantity", int(quantity)),
	)

	query := `
		UPDATE cart_items
		SET quantity = $2, updated_at = NOW()
		WHERE id = $1;
	`

	commandTag, err := r.pool.Exec(ctx, query, id, quantity)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error updating cart item quantity: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartRepo) Delete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	commandTag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error deleting cart item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// ClearUser joins the order-creation transaction; checkout must clear
// the cart atomically with the order write.
func (r *cartRepo) ClearUser(ctx context.Context, tx pgx.Tx, userID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.ClearUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		span.RecordError(err)
		applog.Error(
			ctx,
			r.logger,
			"Failed to clear cart",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return fmt.Errorf("error clearing cart: %w", err)
	}

	return nil
}
