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

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
}

type userRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewUserRepository(pool *pgxpool.Pool, logger *zap.Logger) UserRepository {
	return &userRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("user_repo"),
	}
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT id, email, is_active, created_at
		FROM users
		WHERE id = $1;
	`

	var u domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.Active,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	return &u, nil
}

// Save upserts the local user replica. Registration events may be
// redelivered, so the write is idempotent on id.
func (r *userRepo) Save(ctx context.Context, user *domain.User) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", user.ID),
	)

	query := `
		INSERT INTO users (id, email, is_active)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, is_active = EXCLUDED.is_active;
	`

	if _, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.Active); err != nil {
		span.RecordError(err)
		applog.Error(
			ctx,
			r.logger,
			"Failed to save user",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)

		return fmt.Errorf("error saving user: %w", err)
	}

	return nil
}
