package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/Sanandrew123/AICommerce/internal/domain"
	"github.com/Sanandrew123/AICommerce/internal/repository"
	"github.com/Sanandrew123/AICommerce/pkg/applog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CartService struct {
	pool     *pgxpool.Pool
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewCartService(
	pool *pgxpool.Pool,
	carts repository.CartRepository,
	products repository.ProductRepository,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		pool:     pool,
		carts:    carts,
		products: products,
		logger:   logger,
		tracer:   otel.Tracer("cart_service"),
	}
}

// AddToCart merges into an existing line when the user already has the
// same product with the same variant selection; otherwise it inserts a
// new line.
func (s *CartService) AddToCart(ctx context.Context, userID, productID int64, quantity int32, selectedAttributes string) (*domain.CartItem, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddToCart")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, repository.ErrProductNotFound
	}

	existing, err := s.carts.FindLine(ctx, userID, productID, selectedAttributes)
	switch {
	case err == nil:
		merged := existing.Quantity + quantity
		if err := s.carts.UpdateQuantity(ctx, existing.ID, merged); err != nil {
			return nil, err
		}
		existing.Quantity = merged

		applog.Info(
			ctx,
			s.logger,
			"Cart line merged",
			zap.Int64("user_id", userID),
			zap.Int64("product_id", productID),
			zap.Int32("quantity", merged),
		)

		return existing, nil
	case errors.Is(err, repository.ErrCartItemNotFound):
		item := &domain.CartItem{
			UserID:             userID,
			ProductID:          productID,
			Quantity:           quantity,
			SelectedAttributes: selectedAttributes,
		}
		if err := s.carts.Insert(ctx, item); err != nil {
			return nil, err
		}

		applog.Info(
			ctx,
			s.logger,
			"Cart line added",
			zap.Int64("user_id", userID),
			zap.Int64("product_id", productID),
		)

		return item, nil
	default:
		return nil, err
	}
}

// UpdateItemQuantity sets the quantity of the user's cart line. A
// quantity of zero or less removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int32) error {
	ctx, span := s.tracer.Start(ctx, "CartService.UpdateItemQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("item_id", itemID),
		attribute.Int("quantity", int(quantity)),
	)

	item, err := s.carts.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return repository.ErrCartItemNotFound
	}

	if quantity <= 0 {
		return s.carts.Delete(ctx, itemID)
	}

	return s.carts.UpdateQuantity(ctx, itemID, quantity)
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, itemID int64) error {
	ctx, span := s.tracer.Start(ctx, "CartService.RemoveFromCart")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("item_id", itemID),
	)

	item, err := s.carts.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return repository.ErrCartItemNotFound
	}

	return s.carts.Delete(ctx, itemID)
}

func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	ctx, span := s.tracer.Start(ctx, "CartService.ClearCart")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			applog.Error(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := s.carts.ClearUser(ctx, tx, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Validate reports whether every cart line can currently be fulfilled,
// returning the product ids of the lines that cannot. A fast-fail gate
// for checkout UX; the stock decrement at order time is the real guard.
func (s *CartService) Validate(ctx context.Context, userID int64) (bool, []int64, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Validate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return false, nil, err
	}

	var unavailable []int64
	for _, line := range summary.Lines {
		if !line.Available {
			unavailable = append(unavailable, line.Item.ProductID)
		}
	}

	return len(unavailable) == 0, unavailable, nil
}

// Summary resolves each cart line against the catalog, pricing it at
// the product's current effective price. The total only counts lines
// that are available; dead lines stay visible so the client can show
// them, but they never inflate the total.
func (s *CartService) Summary(ctx context.Context, userID int64) (*domain.CartSummary, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Summary")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &domain.CartSummary{
		Lines:       make([]domain.CartLine, 0, len(items)),
		TotalAmount: decimal.Zero,
	}

	for _, item := range items {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				// Product vanished after it was carted. Surface the
				// line as unavailable rather than failing the summary.
				summary.Lines = append(summary.Lines, domain.CartLine{Item: item})
				continue
			}
			return nil, err
		}

		line := domain.NewCartLine(item, *product)
		summary.Lines = append(summary.Lines, line)

		if line.Available {
			summary.TotalAmount = summary.TotalAmount.Add(line.Subtotal)
		}
	}

	summary.ItemCount = len(summary.Lines)
	for _, line := range summary.Lines {
		summary.TotalQuantity += line.Item.Quantity
	}

	return summary, nil
}
