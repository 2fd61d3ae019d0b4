package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"magasin/internal/domain"
	"magasin/internal/stock"
)

type AlerteRepository interface {
	Insert(ctx context.Context, alerte domain.Alerte) error
	HasLive(ctx context.Context, produitID string, kind domain.TypeAlerte) (bool, error)
	RetireAllExcept(ctx context.Context, produitID string, keep domain.TypeAlerte) error
	ListAll(ctx context.Context) ([]domain.Alerte, error)
	Delete(ctx context.Context, id string) error
}

type ProduitReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]domain.Produit, error)
	ListAll(ctx context.Context) ([]domain.Produit, error)
	UpdateStatut(ctx context.Context, id string, statut domain.StatutProduit) error
}

type Notifier interface {
	Dispatch(ctx context.Context, recipientIDs []string, message string) error
}

type RecipientResolver interface {
	AdminIDs(ctx context.Context) ([]string, error)
}

// AlerteService keeps product statuses and their alertes consistent with the
// quantities on hand. Reconcile is invoked by the workflows after every stock
// movement, and by the periodic sweep as a safety net.
type AlerteService struct {
	alertes    AlerteRepository
	produits   ProduitReader
	notifier   Notifier
	recipients RecipientResolver
	logger     *zap.Logger
}

func NewAlerteService(
	alertes AlerteRepository,
	produits ProduitReader,
	notifier Notifier,
	recipients RecipientResolver,
	logger *zap.Logger,
) *AlerteService {
	return &AlerteService{
		alertes:    alertes,
		produits:   produits,
		notifier:   notifier,
		recipients: recipients,
		logger:     logger,
	}
}

// Reconcile recomputes the status of the given products from their current
// quantities, repairs any drift, retires alertes that no longer match, and
// raises missing ones. With no IDs it sweeps the whole catalogue. It is
// idempotent: running it twice in a row changes nothing the second time.
func (s *AlerteService) Reconcile(ctx context.Context, produitIDs ...string) error {
	var (
		produits []domain.Produit
		err      error
	)
	if len(produitIDs) == 0 {
		produits, err = s.produits.ListAll(ctx)
	} else {
		produits, err = s.produits.ListByIDs(ctx, produitIDs)
	}
	if err != nil {
		return err
	}

	var firstErr error
	for _, p := range produits {
		if err := s.reconcileOne(ctx, p); err != nil {
			s.logger.Error("failed to reconcile produit",
				zap.String("produitId", p.ID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *AlerteService) reconcileOne(ctx context.Context, p domain.Produit) error {
	derived := stock.DeriveStatus(p.Quantite, p.QuantiteMinimale)
	if p.Statut != derived {
		if err := s.produits.UpdateStatut(ctx, p.ID, derived); err != nil {
			return err
		}
	}

	kind, ok := alerteKindFor(derived)
	if err := s.alertes.RetireAllExcept(ctx, p.ID, kind); err != nil {
		return err
	}
	if !ok {
		return nil
	}

	exists, err := s.alertes.HasLive(ctx, p.ID, kind)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	alerte := domain.Alerte{
		ID:          uuid.New().String(),
		ProduitID:   p.ID,
		TypeAlerte:  kind,
		Description: alerteDescription(kind, p),
		CreatedAt:   time.Now(),
	}
	if err := s.alertes.Insert(ctx, alerte); err != nil {
		return err
	}

	s.notifyAdmins(ctx, alerte.Description)
	return nil
}

func alerteKindFor(statut domain.StatutProduit) (domain.TypeAlerte, bool) {
	switch statut {
	case domain.ProduitEnRupture:
		return domain.AlerteRupture, true
	case domain.ProduitCritique:
		return domain.AlerteCritique, true
	default:
		return "", false
	}
}

func alerteDescription(kind domain.TypeAlerte, p domain.Produit) string {
	if kind == domain.AlerteRupture {
		return fmt.Sprintf("Stock épuisé pour le produit %s (%s).", p.Nom, p.Marque)
	}
	return fmt.Sprintf("Stock critique pour le produit %s (%s) : %d restant(s) pour un seuil de %d.",
		p.Nom, p.Marque, p.Quantite, p.QuantiteMinimale)
}

func (s *AlerteService) notifyAdmins(ctx context.Context, message string) {
	admins, err := s.recipients.AdminIDs(ctx)
	if err != nil {
		s.logger.Error("failed to resolve admin recipients", zap.Error(err))
		return
	}
	if err := s.notifier.Dispatch(ctx, admins, message); err != nil {
		s.logger.Error("failed to dispatch alerte notification", zap.Error(err))
	}
}

func (s *AlerteService) List(ctx context.Context) ([]domain.Alerte, error) {
	return s.alertes.ListAll(ctx)
}

// Dismiss removes an alerte. Reconcile will raise it again if the underlying
// condition still holds.
func (s *AlerteService) Dismiss(ctx context.Context, id string) error {
	return s.alertes.Delete(ctx, id)
}
