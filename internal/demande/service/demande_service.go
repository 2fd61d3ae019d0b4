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

type DemandeRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, demande domain.Demande) error
	FindByID(ctx context.Context, id string) (*domain.Demande, error)
	ListByStatut(ctx context.Context, statut domain.StatutDemande) ([]domain.Demande, error)
	ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.Demande, error)
	MarkApprouvee(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error)
	MarkRejetee(ctx context.Context, tx *sql.Tx, id, approbateurID, raison string, at time.Time) (int64, error)
	MarkEnAttente(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error)
	DeleteIfEnAttente(ctx context.Context, tx *sql.Tx, id, demandeurID string) (int64, error)
}

type ProduitReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]domain.Produit, error)
}

type StockLedger interface {
	Available(ctx context.Context, tx *sql.Tx, produitID string) (int, error)
	Reserve(ctx context.Context, tx *sql.Tx, produitID string, amount int) error
	Release(ctx context.Context, tx *sql.Tx, produitID string, amount int) error
}

// Reconciler and Notifier run after commit, best-effort: a failure here is
// logged and picked up by the next sweep, never rolled back into the
// transition (the authoritative state has already been committed).
type Reconciler interface {
	Reconcile(ctx context.Context, produitIDs ...string) error
}

type Notifier interface {
	Dispatch(ctx context.Context, recipientIDs []string, message string) error
}

type RecipientResolver interface {
	AdminIDs(ctx context.Context) ([]string, error)
}

type ItemDemande struct {
	ProduitID string
	Quantite  int
}

type DemandeService struct {
	db          TransactionManager
	demandeRepo DemandeRepository
	produitRepo ProduitReader
	ledger      StockLedger
	reconciler  Reconciler
	notifier    Notifier
	recipients  RecipientResolver
	logger      *zap.Logger
	txTimeout   time.Duration
}

func NewDemandeService(
	db TransactionManager,
	demandeRepo DemandeRepository,
	produitRepo ProduitReader,
	ledger StockLedger,
	reconciler Reconciler,
	notifier Notifier,
	recipients RecipientResolver,
	logger *zap.Logger,
	txTimeout time.Duration,
) *DemandeService {
	return &DemandeService{
		db:          db,
		demandeRepo: demandeRepo,
		produitRepo: produitRepo,
		ledger:      ledger,
		reconciler:  reconciler,
		notifier:    notifier,
		recipients:  recipients,
		logger:      logger,
		txTimeout:   txTimeout,
	}
}

// Submit creates a demande in EN_ATTENTE. The stock check here is advisory:
// quantities may move before approval, which re-validates inside its own
// transaction as the authoritative check.
func (s *DemandeService) Submit(ctx context.Context, demandeurID string, items []ItemDemande) (*domain.Demande, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProduitID
	}

	produits, err := s.produitRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Produit, len(produits))
	for _, p := range produits {
		byID[p.ID] = p
	}

	var shortages []apperrors.ShortageItem
	for _, item := range items {
		p, ok := byID[item.ProduitID]
		if !ok {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", item.ProduitID))
		}
		if p.Quantite < item.Quantite {
			shortages = append(shortages, apperrors.ShortageItem{
				ProduitID: item.ProduitID,
				Requested: item.Quantite,
				Available: p.Quantite,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, apperrors.NewInsufficientStockError("insufficient stock for requested items", shortages...)
	}

	now := time.Now().UTC()
	demande := domain.Demande{
		ID:          uuid.New().String(),
		DemandeurID: demandeurID,
		Statut:      domain.DemandeEnAttente,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, item := range items {
		demande.Produits = append(demande.Produits, domain.DemandeProduit{
			ID:        uuid.New().String(),
			DemandeID: demande.ID,
			ProduitID: item.ProduitID,
			Quantite:  item.Quantite,
		})
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, apperrors.NewPersistenceError("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := s.demandeRepo.Insert(txCtx, tx, demande); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("demande submitted",
		zap.String("demandeId", demande.ID),
		zap.String("demandeurId", demandeurID),
		zap.Int("itemCount", len(items)),
	)

	s.notifyAdmins(ctx, fmt.Sprintf("Nouvelle demande en attente (ID: %s)", demande.ID))

	return &demande, nil
}

// Approve re-validates stock for every item and reserves it, all inside one
// transaction with the status transition. Any shortage aborts the whole
// approval with no mutation.
func (s *DemandeService) Approve(ctx context.Context, demandeID, approbateurID string) (*domain.Demande, error) {
	demande, err := s.demandeRepo.FindByID(ctx, demandeID)
	if err != nil {
		return nil, err
	}
	if !demande.Statut.CanTransition(domain.DemandeApprouvee) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande %s is not pending", demandeID))
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, apperrors.NewPersistenceError("beginning transaction", err)
	}
	// Rollback is a no-op once committed.
	defer tx.Rollback()

	now := time.Now().UTC()
	rows, err := s.demandeRepo.MarkApprouvee(txCtx, tx, demandeID, approbateurID, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		s.logger.Warn("concurrent transition lost", zap.String("demandeId", demandeID))
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande %s was already transitioned", demandeID))
	}

	var shortages []apperrors.ShortageItem
	for _, item := range demande.Produits {
		available, err := s.ledger.Available(txCtx, tx, item.ProduitID)
		if err != nil {
			return nil, err
		}
		if available < item.Quantite {
			shortages = append(shortages, apperrors.ShortageItem{
				ProduitID: item.ProduitID,
				Requested: item.Quantite,
				Available: available,
			})
		}
	}
	if len(shortages) > 0 {
		s.logger.Warn("approval aborted, insufficient stock",
			zap.String("demandeId", demandeID),
			zap.Int("shortItems", len(shortages)),
		)
		return nil, apperrors.NewInsufficientStockError("insufficient stock to approve demande", shortages...)
	}

	produitIDs := make([]string, 0, len(demande.Produits))
	for _, item := range demande.Produits {
		if err := s.ledger.Reserve(txCtx, tx, item.ProduitID, item.Quantite); err != nil {
			return nil, err
		}
		produitIDs = append(produitIDs, item.ProduitID)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("demande approved",
		zap.String("demandeId", demandeID),
		zap.String("approbateurId", approbateurID),
		zap.Int("itemCount", len(demande.Produits)),
	)

	s.reconcile(ctx, produitIDs)
	s.notifyRequester(ctx, demande.DemandeurID, "Votre demande a été approuvée")
	s.notifyAdmins(ctx, fmt.Sprintf("Demande %s approuvée", demandeID))

	return s.demandeRepo.FindByID(ctx, demandeID)
}

func (s *DemandeService) Reject(ctx context.Context, demandeID, approbateurID, raison string) (*domain.Demande, error) {
	if strings.TrimSpace(raison) == "" {
		return nil, apperrors.NewValidationError("rejection reason is required", apperrors.ValidationDetail{
			Field:   "raison",
			Message: "raison must not be empty",
		})
	}

	demande, err := s.demandeRepo.FindByID(ctx, demandeID)
	if err != nil {
		return nil, err
	}
	if !demande.Statut.CanTransition(domain.DemandeRejetee) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande %s is not pending", demandeID))
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, apperrors.NewPersistenceError("beginning transaction", err)
	}
	defer tx.Rollback()

	rows, err := s.demandeRepo.MarkRejetee(txCtx, tx, demandeID, approbateurID, raison, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande %s was already transitioned", demandeID))
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("demande rejected", zap.String("demandeId", demandeID), zap.String("approbateurId", approbateurID))

	s.notifyRequester(ctx, demande.DemandeurID, fmt.Sprintf("Votre demande a été rejetée: %s", raison))
	s.notifyAdmins(ctx, fmt.Sprintf("Demande %s rejetée", demandeID))

	return s.demandeRepo.FindByID(ctx, demandeID)
}

// Revert returns an approved demande to EN_ATTENTE and releases its stock.
// Only the approver who approved it may revert it.
func (s *DemandeService) Revert(ctx context.Context, demandeID, approbateurID string) (*domain.Demande, error) {
	demande, err := s.demandeRepo.FindByID(ctx, demandeID)
	if err != nil {
		return nil, err
	}
	if !demande.Statut.CanTransition(domain.DemandeEnAttente) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande %s is not approved", demandeID))
	}
	if demande.ApprobateurID == nil || *demande.ApprobateurID != approbateurID {
		return nil, apperrors.NewForbiddenError("only the original approver may revert an approval")
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, apperrors.NewPersistenceError("beginning transaction", err)
	}
	defer tx.Rollback()

	rows, err := s.demandeRepo.MarkEnAttente(txCtx, tx, demandeID, approbateurID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande %s was already transitioned", demandeID))
	}

	produitIDs := make([]string, 0, len(demande.Produits))
	for _, item := range demande.Produits {
		if err := s.ledger.Release(txCtx, tx, item.ProduitID, item.Quantite); err != nil {
			return nil, err
		}
		produitIDs = append(produitIDs, item.ProduitID)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("demande approval reverted", zap.String("demandeId", demandeID))

	s.reconcile(ctx, produitIDs)

	return s.demandeRepo.FindByID(ctx, demandeID)
}

// Withdraw deletes a demande that is still EN_ATTENTE, by its requester only.
func (s *DemandeService) Withdraw(ctx context.Context, demandeID, demandeurID string) error {
	demande, err := s.demandeRepo.FindByID(ctx, demandeID)
	if err != nil {
		return err
	}
	if demande.DemandeurID != demandeurID {
		return apperrors.NewForbiddenError("only the requester may withdraw a demande")
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return apperrors.NewPersistenceError("beginning transaction", err)
	}
	defer tx.Rollback()

	rows, err := s.demandeRepo.DeleteIfEnAttente(txCtx, tx, demandeID, demandeurID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("demande %s is no longer pending", demandeID))
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("demande withdrawn", zap.String("demandeId", demandeID))
	return nil
}

func (s *DemandeService) Get(ctx context.Context, demandeID string) (*domain.Demande, error) {
	return s.demandeRepo.FindByID(ctx, demandeID)
}

func (s *DemandeService) ListByStatut(ctx context.Context, statut domain.StatutDemande) ([]domain.Demande, error) {
	return s.demandeRepo.ListByStatut(ctx, statut)
}

func (s *DemandeService) ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.Demande, error) {
	return s.demandeRepo.ListByDemandeur(ctx, demandeurID)
}

func (s *DemandeService) reconcile(ctx context.Context, produitIDs []string) {
	if err := s.reconciler.Reconcile(ctx, produitIDs...); err != nil {
		s.logger.Error("post-commit reconcile failed", zap.Error(err))
	}
}

func (s *DemandeService) notifyRequester(ctx context.Context, demandeurID, message string) {
	if err := s.notifier.Dispatch(ctx, []string{demandeurID}, message); err != nil {
		s.logger.Error("notifying requester failed", zap.Error(err))
	}
}

func (s *DemandeService) notifyAdmins(ctx context.Context, message string) {
	admins, err := s.recipients.AdminIDs(ctx)
	if err != nil {
		s.logger.Error("resolving admin recipients failed", zap.Error(err))
		return
	}
	if err := s.notifier.Dispatch(ctx, admins, message); err != nil {
		s.logger.Error("notifying admins failed", zap.Error(err))
	}
}

func validateItems(items []ItemDemande) error {
	var details []apperrors.ValidationDetail

	if len(items) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	seen := make(map[string]bool)
	for idx, item := range items {
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
	return nil
}
