package commande

import (
	"database/sql"

	"go.uber.org/zap"

	"magasin/internal/commande/controller"
	commanderepo "magasin/internal/commande/repository"
	"magasin/internal/commande/service"
	"magasin/internal/config"
	exceprepo "magasin/internal/demandeexcep/repository"
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
) *controller.CommandeController {
	commandeRepo := commanderepo.NewMySQLCommandeRepository(db)
	produitRepo := produitrepo.NewMySQLProduitRepository(db)
	excepRepo := exceprepo.NewMySQLDemandeExceptionnelleRepository(db)

	svc := service.NewCommandeService(
		db,
		commandeRepo,
		produitRepo,
		ledger,
		excepRepo,
		reconciler,
		notifier,
		recipients,
		logger,
		cfg.Workflow.TxTimeout,
	)

	return controller.NewCommandeController(svc, logger)
}
