package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"magasin/internal/domain"
)

type NotificationRepository interface {
	Insert(ctx context.Context, n domain.Notification) error
	ExistsSince(ctx context.Context, userID, message string, since time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	CountUnreadByUser(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	AdminIDs(ctx context.Context) ([]string, error)
}

// NotificationService fans messages out to recipients. Delivery is
// best-effort per recipient: one failed insert does not block the others,
// and a message already sent to a recipient inside the dedup window is
// silently skipped.
type NotificationService struct {
	notifications NotificationRepository
	dedupWindow   time.Duration
	logger        *zap.Logger
}

func NewNotificationService(
	notifications NotificationRepository,
	dedupWindow time.Duration,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		dedupWindow:   dedupWindow,
		logger:        logger,
	}
}

func (s *NotificationService) Dispatch(ctx context.Context, recipientIDs []string, message string) error {
	var firstErr error
	since := time.Now().Add(-s.dedupWindow)

	for _, userID := range recipientIDs {
		exists, err := s.notifications.ExistsSince(ctx, userID, message, since)
		if err == nil && exists {
			continue
		}
		if err != nil {
			s.logger.Error("failed to check notification dedup",
				zap.String("userId", userID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		n := domain.Notification{
			ID:        uuid.New().String(),
			UserID:    userID,
			Message:   message,
			Lu:        false,
			DateEnvoi: time.Now(),
		}
		if err := s.notifications.Insert(ctx, n); err != nil {
			s.logger.Error("failed to insert notification",
				zap.String("userId", userID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (s *NotificationService) AdminIDs(ctx context.Context) ([]string, error) {
	return s.notifications.AdminIDs(ctx)
}

func (s *NotificationService) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.notifications.ListByUser(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifications.CountUnreadByUser(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.notifications.MarkRead(ctx, id, userID)
}
