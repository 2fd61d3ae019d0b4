package demande

import (
	"database/sql"

	"go.uber.org/zap"

	"magasin/internal/config"
	"magasin/internal/demande/controller"
	demanderepo "magasin/internal/demande/repository"
	"magasin/internal/demande/service"
	produitrepo "magasin/internal/produit/repository"
	"magasin/internal/stock"
)

func NewModule(
	db *sql.DB,
	cfg *config.Config,
	ledger *stock.Ledger,
	reconciler service.Reconciler,
	notifier service.Notifier,
	recipients service.RecipientResolver,
	logger *zap.Logger,
) *controller.DemandeController {
	demandeRepo := demanderepo.NewMySQLDemandeRepository(db)
	produitRepo := produitrepo.NewMySQLProduitRepository(db)

	svc := service.NewDemandeService(
		db,
		demandeRepo,
		produitRepo,
		ledger,
		reconciler,
		notifier,
		recipients,
		logger,
		cfg.Workflow.TxTimeout,
	)

	return controller.NewDemandeController(svc, logger)
}
