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

type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	AdjustStock(ctx context.Context, tx pgx.Tx, productID, delta int64) error
}

type productRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("product_repo"),
	}
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT id, name, price, discount_price, stock_quantity, is_active, created_at, updated_at
		FROM products
		WHERE id = $1;
	`

	var p domain.Product
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.DiscountPrice,
		&p.StockQuantity,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)
		applog.Error(
			ctx,
			r.logger,
			"Failed to query product",
			zap.Int64("product_id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	return &p, nil
}

// AdjustStock is the single choke point for every stock mutation.
// Negative delta reserves, positive delta releases. The guard and the
// write happen in one conditional UPDATE so two concurrent reservations
// cannot both succeed on stale reads.
func (r *productRepo) AdjustStock(ctx context.Context, tx pgx.Tx, productID, delta int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.AdjustStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int64("delta", delta),
	)

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity + $2 >= 0;
	`

	commandTag, err := tx.Exec(ctx, query, productID, delta)
	if err != nil {
		span.RecordError(err)
		applog.Error(
			ctx,
			r.logger,
			"Failed to adjust stock",
			zap.Int64("product_id", productID),
			zap.Int64("delta", delta),
			zap.Error(err),
		)

		return fmt.Errorf("error adjusting stock for product %d: %w", productID, err)
	}

	if commandTag.RowsAffected() == 0 {
		// Distinguish a missing product from a rejected decrement; the
		// re-read is only for error context, the UPDATE above is the gate.
		var available int64
		if err := tx.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, productID).
			Scan(&available); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProductNotFound
			}
			span.RecordError(err)
			return err
		}

		return &domain.InsufficientStockError{
			ProductID: productID,
			Requested: -delta,
			Available: available,
		}
	}

	return nil
}
