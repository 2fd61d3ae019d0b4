package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"magasin/internal/api"
	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
	"magasin/internal/middleware"
)

type NotificationReader interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type NotificationController struct {
	service NotificationReader
	logger  *zap.Logger
}

func NewNotificationController(service NotificationReader, logger *zap.Logger) *NotificationController {
	return &NotificationController{service: service, logger: logger}
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Lu        bool      `json:"lu"`
	DateEnvoi time.Time `json:"dateEnvoi"`
}

func (c *NotificationController) List(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		api.WriteError(w, c.logger, traceID, apperrors.NewUnauthorizedError("authorization required"))
		return
	}

	notifications, err := c.service.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	responses := make([]notificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = notificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			Lu:        n.Lu,
			DateEnvoi: n.DateEnvoi,
		}
	}

	api.WriteJSON(w, c.logger, http.StatusOK, responses)
}

func (c *NotificationController) UnreadCount(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		api.WriteError(w, c.logger, traceID, apperrors.NewUnauthorizedError("authorization required"))
		return
	}

	count, err := c.service.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, map[string]int{"count": count})
}

func (c *NotificationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	if err := c.service.MarkRead(r.Context(), chi.URLParam(r, "notificationId"), claims.UserID); err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
