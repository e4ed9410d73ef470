package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/pkg/events"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type eventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// publishEvent emits a workflow event. Publishing never fails the caller.
func publishEvent(ctx context.Context, publisher eventPublisher, logger *zap.Logger, eventType string, data interface{}) {
	if publisher == nil {
		return
	}
	event := events.NewEvent(eventType, data)
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish event", zap.String("type", eventType), zap.String("event_id", event.ID), zap.Error(err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func requireActor(actor *models.JWTClaims) error {
	if actor == nil || actor.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	return nil
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
