package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type CommandeRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, commande domain.Commande) error
	FindByID(ctx context.Context, id string) (*domain.Commande, error)
	ListByStatut(ctx context.Context, statut domain.StatutCommande) ([]domain.Commande, error)
	ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.Commande, error)
	MarkValidee(ctx context.Context, tx *sql.Tx, id, validateurID string, at time.Time) (int64, error)
	MarkEnCours(ctx context.Context, tx *sql.Tx, id string, at time.Time) (int64, error)
	MarkAnnulee(ctx context.Context, tx *sql.Tx, id string, at time.Time) (int64, error)
	MarkLivree(ctx context.Context, tx *sql.Tx, id string, facture *string, at time.Time) (int64, error)
	MarkEnRetour(ctx context.Context, tx *sql.Tx, id, raison string, at time.Time) (int64, error)
	DeleteIfNonValidee(ctx context.Context, tx *sql.Tx, id, demandeurID string) (int64, error)
	FournisseurExists(ctx context.Context, id string) (bool, error)
	ListFournisseurs(ctx context.Context) ([]domain.Fournisseur, error)
}

type ProduitReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]domain.Produit, error)
}

type StockLedger interface {
	Release(ctx context.Context, tx *sql.Tx, produitID string, amount int) error
}

// ExceptionalRequestMarker links a commande to the demande exceptionnelle it
// fulfills, flipping it to ORDERED in the commande's transaction.
type ExceptionalRequestMarker interface {
	MarkCommandee(ctx context.Context, tx *sql.Tx, id string, at time.Time) (int64, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, produitIDs ...string) error
}

type Notifier interface {
	Dispatch(ctx context.Context, recipientIDs []string, message string) error
}

type RecipientResolver interface {
	AdminIDs(ctx context.Context) ([]string, error)
}

type ItemCommande struct {
	ProduitID string
	Quantite  int
}

type CreateCommande struct {
	FournisseurID           string
	DatePrevue              time.Time
	Items                   []ItemCommande
	DemandeExceptionnelleID *string
}

type CommandeService struct {
	db           TransactionManager
	commandeRepo CommandeRepository
	produitRepo  ProduitReader
	ledger       StockLedger
	excepMarker  ExceptionalRequestMarker
	reconciler   Reconciler
	notifier     Notifier
	recipients   RecipientResolver
	logger       *zap.Logger
	txTimeout    time.Duration
}

func NewCommandeService(
	db TransactionManager,
	commandeRepo CommandeRepository,
	produitRepo ProduitReader,
	ledger StockLedger,
	excepMarker ExceptionalRequestMarker,
	reconciler Reconciler,
	notifier Notifier,
	recipients RecipientResolver,
	logger *zap.Logger,
	txTimeout time.Duration,
) *CommandeService {
	return &CommandeService{
		db:           db,
		commandeRepo: commandeRepo,
		produitRepo:  produitRepo,
		ledger:       ledger,
		excepMarker:  excepMarker,
		reconciler:   reconciler,
		notifier:     notifier,
		recipients:   recipients,
		logger:       logger,
		txTimeout:    txTimeout,
	}
}

func (s *CommandeService) Create(ctx context.Context, demandeurID string, req CreateCommande) (*domain.Commande, error) {
	if err := s.validateCreate(ctx, req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	commande := domain.Commande{
		ID:            uuid.New().String(),
		Statut:        domain.CommandeNonValidee,
		FournisseurID: req.FournisseurID,
		DemandeurID:   demandeurID,
		DatePrevue:    req.DatePrevue,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, item := range req.Items {
		commande.Produits = append(commande.Produits, domain.CommandeProduit{
			ID:         uuid.New().String(),
			CommandeID: commande.ID,
			ProduitID:  item.ProduitID,
			Quantite:   item.Quantite,
		})
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, apperrors.NewPersistenceError("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := s.commandeRepo.Insert(txCtx, tx, commande); err != nil {
		return nil, err
	}

	if req.DemandeExceptionnelleID != nil {
		rows, err := s.excepMarker.MarkCommandee(txCtx, tx, *req.DemandeExceptionnelleID, now)
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, apperrors.NewConflictError(fmt.Sprintf(
				"demande exceptionnelle %s is not in an orderable state", *req.DemandeExceptionnelleID,
			))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("commande created",
		zap.String("commandeId", commande.ID),
		zap.String("fournisseurId", req.FournisseurID),
		zap.Int("itemCount", len(req.Items)),
	)

	s.notifyAdmins(ctx, fmt.Sprintf("Nouvelle commande à valider (ID: %s)", commande.ID))

	return &commande, nil
}

func (s *CommandeService) Validate(ctx context.Context, commandeID, validateurID string) (*domain.Commande, error) {
	return s.transition(ctx, commandeID, "validated", domain.CommandeValidee, func(txCtx context.Context, tx *sql.Tx, at time.Time) (int64, error) {
		return s.commandeRepo.MarkValidee(txCtx, tx, commandeID, validateurID, at)
	})
}

func (s *CommandeService) MarkInProgress(ctx context.Context, commandeID string) (*domain.Commande, error) {
	return s.transition(ctx, commandeID, "in progress", domain.CommandeEnCours, func(txCtx context.Context, tx *sql.Tx, at time.Time) (int64, error) {
		return s.commandeRepo.MarkEnCours(txCtx, tx, commandeID, at)
	})
}

func (s *CommandeService) Cancel(ctx context.Context, commandeID string) (*domain.Commande, error) {
	return s.transition(ctx, commandeID, "cancelled", domain.CommandeAnnulee, func(txCtx context.Context, tx *sql.Tx, at time.Time) (int64, error) {
		return s.commandeRepo.MarkAnnulee(txCtx, tx, commandeID, at)
	})
}

func (s *CommandeService) MarkReturned(ctx context.Context, commandeID, raison string) (*domain.Commande, error) {
	if strings.TrimSpace(raison) == "" {
		return nil, apperrors.NewValidationError("return reason is required", apperrors.ValidationDetail{
			Field:   "raisonRetour",
			Message: "raisonRetour must not be empty",
		})
	}

	return s.transition(ctx, commandeID, "returned", domain.CommandeEnRetour, func(txCtx context.Context, tx *sql.Tx, at time.Time) (int64, error) {
		return s.commandeRepo.MarkEnRetour(txCtx, tx, commandeID, raison, at)
	})
}

// Deliver accepts the goods: every item's quantity is released into stock in
// the same transaction as the status change, so a crash between the two is
// never observable. Calling it twice fails with Conflict on the second call.
func (s *CommandeService) Deliver(ctx context.Context, commandeID string, facture *string) (*domain.Commande, error) {
	commande, err := s.commandeRepo.FindByID(ctx, commandeID)
	if err != nil {
		return nil, err
	}
	if !commande.Statut.CanTransition(domain.CommandeLivree) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("commande %s is not deliverable", commandeID))
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, apperrors.NewPersistenceError("beginning transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	rows, err := s.commandeRepo.MarkLivree(txCtx, tx, commandeID, facture, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, apperrors.NewConflictError(fmt.Sprintf("commande %s is not deliverable", commandeID))
	}

	produitIDs := make([]string, 0, len(commande.Produits))
	for _, item := range commande.Produits {
		if err := s.ledger.Release(txCtx, tx, item.ProduitID, item.Quantite); err != nil {
			return nil, err
		}
		produitIDs = append(produitIDs, item.ProduitID)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("commande delivered",
		zap.String("commandeId", commandeID),
		zap.Int("itemCount", len(commande.Produits)),
	)

	s.reconcile(ctx, produitIDs)
	s.notifyRequester(ctx, commande.DemandeurID, fmt.Sprintf("Votre commande %s a été livrée", commandeID))
	s.notifyAdmins(ctx, fmt.Sprintf("Commande %s livrée", commandeID))

	return s.commandeRepo.FindByID(ctx, commandeID)
}

// Delete removes a commande still awaiting validation, by its creator only.
func (s *CommandeService) Delete(ctx context.Context, commandeID, demandeurID string) error {
	commande, err := s.commandeRepo.FindByID(ctx, commandeID)
	if err != nil {
		return err
	}
	if commande.DemandeurID != demandeurID {
		return apperrors.NewForbiddenError("only the creator may delete a commande")
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return apperrors.NewPersistenceError("beginning transaction", err)
	}
	defer tx.Rollback()

	rows, err := s.commandeRepo.DeleteIfNonValidee(txCtx, tx, commandeID, demandeurID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("commande %s is already validated", commandeID))
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("commande deleted", zap.String("commandeId", commandeID))
	return nil
}

func (s *CommandeService) Get(ctx context.Context, commandeID string) (*domain.Commande, error) {
	return s.commandeRepo.FindByID(ctx, commandeID)
}

func (s *CommandeService) ListByStatut(ctx context.Context, statut domain.StatutCommande) ([]domain.Commande, error) {
	return s.commandeRepo.ListByStatut(ctx, statut)
}

func (s *CommandeService) ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.Commande, error) {
	return s.commandeRepo.ListByDemandeur(ctx, demandeurID)
}

func (s *CommandeService) ListFournisseurs(ctx context.Context) ([]domain.Fournisseur, error) {
	return s.commandeRepo.ListFournisseurs(ctx)
}

func (s *CommandeService) transition(
	ctx context.Context,
	commandeID string,
	action string,
	target domain.StatutCommande,
	mark func(ctx context.Context, tx *sql.Tx, at time.Time) (int64, error),
) (*domain.Commande, error) {
	commande, err := s.commandeRepo.FindByID(ctx, commandeID)
	if err != nil {
		return nil, err
	}
	// Advisory check against the transition table; the conditional UPDATE
	// below remains the authoritative guard under concurrency.
	if !commande.Statut.CanTransition(target) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("commande %s cannot be %s in its current state", commandeID, action))
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, apperrors.NewPersistenceError("beginning transaction", err)
	}
	defer tx.Rollback()

	rows, err := mark(txCtx, tx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, apperrors.NewConflictError(fmt.Sprintf("commande %s cannot be %s in its current state", commandeID, action))
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("commande transitioned",
		zap.String("commandeId", commandeID),
		zap.String("action", action),
	)

	return s.commandeRepo.FindByID(ctx, commandeID)
}

func (s *CommandeService) validateCreate(ctx context.Context, req CreateCommande) error {
	var details []apperrors.ValidationDetail

	if req.FournisseurID == "" {
		details = append(details, apperrors.ValidationDetail{
			Field:   "fournisseurId",
			Message: "fournisseurId is required",
		})
	}
	if len(req.Items) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, len(req.Items))
	for idx, item := range req.Items {
		if item.ProduitID == "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d].produitId", idx),
				Message: "produitId is required",
			})
		}
		if seen[item.ProduitID] {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d].produitId", idx),
				Message: "produitId must not be duplicated",
			})
		}
		seen[item.ProduitID] = true
		ids = append(ids, item.ProduitID)

		if item.Quantite <= 0 {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d].quantite", idx),
				Message: "quantite must be positive",
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}

	exists, err := s.commandeRepo.FournisseurExists(ctx, req.FournisseurID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NewNotFoundError(fmt.Sprintf("fournisseur %s not found", req.FournisseurID))
	}

	produits, err := s.produitRepo.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(produits) != len(ids) {
		found := make(map[string]bool, len(produits))
		for _, p := range produits {
			found[p.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
			}
		}
	}

	return nil
}

func (s *CommandeService) reconcile(ctx context.Context, produitIDs []string) {
	if err := s.reconciler.Reconcile(ctx, produitIDs...); err != nil {
		s.logger.Error("post-commit reconcile failed", zap.Error(err))
	}
}

func (s *CommandeService) notifyRequester(ctx context.Context, demandeurID, message string) {
	if err := s.notifier.Dispatch(ctx, []string{demandeurID}, message); err != nil {
		s.logger.Error("notifying requester failed", zap.Error(err))
	}
}

func (s *CommandeService) notifyAdmins(ctx context.Context, message string) {
	admins, err := s.recipients.AdminIDs(ctx)
	if err != nil {
		s.logger.Error("resolving admin recipients failed", zap.Error(err))
		return
	}
	if err := s.notifier.Dispatch(ctx, admins, message); err != nil {
		s.logger.Error("notifying admins failed", zap.Error(err))
	}
}
