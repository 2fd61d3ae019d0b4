package alerte

import (
	"database/sql"

	"go.uber.org/zap"

	"magasin/internal/alerte/controller"
	alerterepo "magasin/internal/alerte/repository"
	"magasin/internal/alerte/service"
	produitrepo "magasin/internal/produit/repository"
)

// NewModule returns both the controller and the engine: the engine doubles
// as the Reconciler the workflow modules call after every stock movement.
func NewModule(
	db *sql.DB,
	notifier service.Notifier,
	recipients service.RecipientResolver,
	logger *zap.Logger,
) (*controller.AlerteController, *service.AlerteService) {
	alerteRepo := alerterepo.NewMySQLAlerteRepository(db)
	produitRepo := produitrepo.NewMySQLProduitRepository(db)

	svc := service.NewAlerteService(alerteRepo, produitRepo, notifier, recipients, logger)

	return controller.NewAlerteController(svc, logger), svc
}
