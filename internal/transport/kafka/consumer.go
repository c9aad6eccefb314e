package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/Sanandrew123/AICommerce/internal/domain"
	"github.com/Sanandrew123/AICommerce/internal/repository"
	"github.com/Sanandrew123/AICommerce/pkg/applog"
	"go.uber.org/zap"
)

const eventUserRegistered = "user.registered"

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// UserEventHandler keeps the local user replica in sync with the
// accounts service. Unknown event types are acknowledged and skipped.
type UserEventHandler struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserEventHandler(users repository.UserRepository, logger *zap.Logger) *UserEventHandler {
	return &UserEventHandler{
		users:  users,
		logger: logger,
	}
}

func (h *UserEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		// Malformed messages would never succeed on redelivery.
		applog.Warn(
			ctx,
			h.logger,
			"Skipping malformed user event",
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}

	switch env.Event {
	case eventUserRegistered:
		return h.handleUserRegistered(ctx, env.Payload)
	default:
		applog.Debug(ctx, h.logger, "Ignoring user event", zap.String("event", env.Event))
		return nil
	}
}

func (h *UserEventHandler) handleUserRegistered(ctx context.Context, payload json.RawMessage) error {
	var event domain.UserRegisteredEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		applog.Warn(ctx, h.logger, "Skipping malformed user.registered payload", zap.Error(err))
		return nil
	}

	if err := h.users.Save(ctx, &domain.User{
		ID:     event.UserID,
		Email:  event.Email,
		Active: true,
	}); err != nil {
		return fmt.Errorf("error saving registered user %d: %w", event.UserID, err)
	}

	applog.Info(ctx, h.logger, "User replica updated", zap.Int64("user_id", event.UserID))
	return nil
}
