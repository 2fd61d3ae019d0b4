package demandeexcep

import (
	"database/sql"

	"go.uber.org/zap"

	"magasin/internal/config"
	"magasin/internal/demandeexcep/controller"
	exceprepo "magasin/internal/demandeexcep/repository"
	"magasin/internal/demandeexcep/service"
	produitrepo "magasin/internal/produit/repository"
)

func NewModule(
	db *sql.DB,
	cfg *config.Config,
	notifier service.Notifier,
	recipients service.RecipientResolver,
	logger *zap.Logger,
) *controller.DemandeExceptionnelleController {
	demandeRepo := exceprepo.NewMySQLDemandeExceptionnelleRepository(db)
	produitRepo := produitrepo.NewMySQLProduitRepository(db)

	svc := service.NewDemandeExceptionnelleService(
		db,
		demandeRepo,
		produitRepo,
		notifier,
		recipients,
		logger,
		cfg.Workflow.TxTimeout,
	)

	return controller.NewDemandeExceptionnelleController(svc, logger)
}
