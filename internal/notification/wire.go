package notification

import (
	"database/sql"

	"go.uber.org/zap"

	"magasin/internal/config"
	"magasin/internal/notification/controller"
	notifrepo "magasin/internal/notification/repository"
	"magasin/internal/notification/service"
)

// NewModule returns the controller plus the service, which the other modules
// use as their Notifier and RecipientResolver.
func NewModule(
	db *sql.DB,
	cfg *config.Config,
	logger *zap.Logger,
) (*controller.NotificationController, *service.NotificationService) {
	repo := notifrepo.NewMySQLNotificationRepository(db)
	svc := service.NewNotificationService(repo, cfg.Reconcile.DedupWindow, logger)

	return controller.NewNotificationController(svc, logger), svc
}
