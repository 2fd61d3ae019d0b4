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

type DemandeExceptionnelleRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, demande domain.DemandeExceptionnelle) error
	FindByID(ctx context.Context, id string) (*domain.DemandeExceptionnelle, error)
	ListByStatut(ctx context.Context, statut domain.StatutDemandeExceptionnelle) ([]domain.DemandeExceptionnelle, error)
	ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.DemandeExceptionnelle, error)
	MarkAcceptee(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error)
	MarkRejetee(ctx context.Context, tx *sql.Tx, id, approbateurID, raison string, at time.Time) (int64, error)
	MarkEnAttente(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error)
	DeleteIfEnAttente(ctx context.Context, tx *sql.Tx, id, demandeurID string) (int64, error)
}

// DescriptorChecker guards against catalog fragmentation: the same (nom,
// marque) pair must not be requested twice as a new ad-hoc product.
type DescriptorChecker interface {
	ExistsExceptionnelByNomMarque(ctx context.Context, nom, marque string) (bool, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, recipientIDs []string, message string) error
}

type RecipientResolver interface {
	AdminIDs(ctx context.Context) ([]string, error)
}

type ItemExceptionnel struct {
	Nom         string
	Marque      string
	Description *string
	Quantite    int
}

type DemandeExceptionnelleService struct {
	db          TransactionManager
	demandeRepo DemandeExceptionnelleRepository
	descriptors DescriptorChecker
	notifier    Notifier
	recipients  RecipientResolver
	logger      *zap.Logger
	txTimeout   time.Duration
}

func NewDemandeExceptionnelleService(
	db TransactionManager,
	demandeRepo DemandeExceptionnelleRepository,
	descriptors DescriptorChecker,
	notifier Notifier,
	recipients RecipientResolver,
	logger *zap.Logger,
	txTimeout time.Duration,
) *DemandeExceptionnelleService {
	return &DemandeExceptionnelleService{
		db:          db,
		demandeRepo: demandeRepo,
		descriptors: descriptors,
		notifier:    notifier,
		recipients:  recipients,
		logger:      logger,
		txTimeout:   txTimeout,
	}
}

func (s *DemandeExceptionnelleService) Submit(ctx context.Context, demandeurID string, items []ItemExceptionnel) (*domain.DemandeExceptionnelle, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	for _, item := range items {
		exists, err := s.descriptors.ExistsExceptionnelByNomMarque(ctx, item.Nom, item.Marque)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.NewConflictError(
				fmt.Sprintf("product descriptor (%s, %s) already requested", item.Nom, item.Marque),
			)
		}
	}

	now := time.Now().UTC()
	demande := domain.DemandeExceptionnelle{
		ID:          uuid.New().String(),
		DemandeurID: demandeurID,
		Statut:      domain.DemandeExcepEnAttente,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, item := range items {
		demande.Produits = append(demande.Produits, domain.ProduitExceptionnel{
			ID:          uuid.New().String(),
			DemandeID:   demande.ID,
			Nom:         item.Nom,
			Marque:      item.Marque,
			Description: item.Description,
			Quantite:    item.Quantite,
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

	s.logger.Info("demande exceptionnelle submitted",
		zap.String("demandeId", demande.ID),
		zap.String("demandeurId", demandeurID),
	)

	s.notifyAdmins(ctx, fmt.Sprintf("Nouvelle demande exceptionnelle en attente (ID: %s)", demande.ID))

	return &demande, nil
}

// Accept approves the demande in principle. No stock moves: the goods do not
// exist in the catalog until a purchase order delivers them.
func (s *DemandeExceptionnelleService) Accept(ctx context.Context, demandeID, approbateurID string) (*domain.DemandeExceptionnelle, error) {
	demande, err := s.demandeRepo.FindByID(ctx, demandeID)
	if err != nil {
		return nil, err
	}
	if !demande.Statut.CanTransition(domain.DemandeExcepAcceptee) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande exceptionnelle %s is not pending", demandeID))
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, apperrors.NewPersistenceError("beginning transaction", err)
	}
	defer tx.Rollback()

	rows, err := s.demandeRepo.MarkAcceptee(txCtx, tx, demandeID, approbateurID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande exceptionnelle %s was already transitioned", demandeID))
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("demande exceptionnelle accepted",
		zap.String("demandeId", demandeID),
		zap.String("approbateurId", approbateurID),
	)

	s.notifyRequester(ctx, demande.DemandeurID, "Votre demande exceptionnelle a été acceptée")
	s.notifyAdmins(ctx, fmt.Sprintf("Demande exceptionnelle %s acceptée", demandeID))

	return s.demandeRepo.FindByID(ctx, demandeID)
}

func (s *DemandeExceptionnelleService) Reject(ctx context.Context, demandeID, approbateurID, raison string) (*domain.DemandeExceptionnelle, error) {
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
	if !demande.Statut.CanTransition(domain.DemandeExcepRejetee) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande exceptionnelle %s is not pending", demandeID))
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
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande exceptionnelle %s was already transitioned", demandeID))
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("demande exceptionnelle rejected", zap.String("demandeId", demandeID))

	s.notifyRequester(ctx, demande.DemandeurID, fmt.Sprintf("Votre demande exceptionnelle a été rejetée: %s", raison))
	s.notifyAdmins(ctx, fmt.Sprintf("Demande exceptionnelle %s rejetée", demandeID))

	return s.demandeRepo.FindByID(ctx, demandeID)
}

// Revert returns an accepted demande to EN_ATTENTE. Nothing was reserved on
// acceptance, so no stock moves. Only the approver who accepted it may
// revert it; an ORDERED demande is past the point of no return.
func (s *DemandeExceptionnelleService) Revert(ctx context.Context, demandeID, approbateurID string) (*domain.DemandeExceptionnelle, error) {
	demande, err := s.demandeRepo.FindByID(ctx, demandeID)
	if err != nil {
		return nil, err
	}
	if !demande.Statut.CanTransition(domain.DemandeExcepEnAttente) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande exceptionnelle %s is not accepted", demandeID))
	}
	if demande.ApprobateurID == nil || *demande.ApprobateurID != approbateurID {
		return nil, apperrors.NewForbiddenError("only the original approver may revert an acceptance")
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, apperrors.NewPersistenceError("beginning transaction", err)
	}
	defer tx.Rollback()

	rows, err := s.demandeRepo.MarkEnAttente(txCtx, tx, demandeID, approbateurID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, apperrors.NewConflictError(fmt.Sprintf("demande exceptionnelle %s was already transitioned", demandeID))
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("demande exceptionnelle acceptance reverted", zap.String("demandeId", demandeID))

	return s.demandeRepo.FindByID(ctx, demandeID)
}

func (s *DemandeExceptionnelleService) Withdraw(ctx context.Context, demandeID, demandeurID string) error {
	demande, err := s.demandeRepo.FindByID(ctx, demandeID)
	if err != nil {
		return err
	}
	if demande.DemandeurID != demandeurID {
		return apperrors.NewForbiddenError("only the requester may withdraw a demande exceptionnelle")
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
		return apperrors.NewConflictError(fmt.Sprintf("demande exceptionnelle %s is no longer pending", demandeID))
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("committing transaction", err)
	}

	s.logger.Info("demande exceptionnelle withdrawn", zap.String("demandeId", demandeID))
	return nil
}

func (s *DemandeExceptionnelleService) Get(ctx context.Context, demandeID string) (*domain.DemandeExceptionnelle, error) {
	return s.demandeRepo.FindByID(ctx, demandeID)
}

func (s *DemandeExceptionnelleService) ListByStatut(ctx context.Context, statut domain.StatutDemandeExceptionnelle) ([]domain.DemandeExceptionnelle, error) {
	return s.demandeRepo.ListByStatut(ctx, statut)
}

func (s *DemandeExceptionnelleService) ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.DemandeExceptionnelle, error) {
	return s.demandeRepo.ListByDemandeur(ctx, demandeurID)
}

func (s *DemandeExceptionnelleService) notifyRequester(ctx context.Context, demandeurID, message string) {
	if err := s.notifier.Dispatch(ctx, []string{demandeurID}, message); err != nil {
		s.logger.Error("notifying requester failed", zap.Error(err))
	}
}

func (s *DemandeExceptionnelleService) notifyAdmins(ctx context.Context, message string) {
	admins, err := s.recipients.AdminIDs(ctx)
	if err != nil {
		s.logger.Error("resolving admin recipients failed", zap.Error(err))
		return
	}
	if err := s.notifier.Dispatch(ctx, admins, message); err != nil {
		s.logger.Error("notifying admins failed", zap.Error(err))
	}
}

func validateItems(items []ItemExceptionnel) error {
	var details []apperrors.ValidationDetail

	if len(items) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	for idx, item := range items {
		if strings.TrimSpace(item.Nom) == "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d].nom", idx),
				Message: "nom is required",
			})
		}
		if strings.TrimSpace(item.Marque) == "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d].marque", idx),
				Message: "marque is required",
			})
		}
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
