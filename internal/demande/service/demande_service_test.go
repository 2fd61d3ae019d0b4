package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
)

func strPtr(s string) *string {
	return &s
}

// Mock implementations

type mockTransactionManager struct {
	BeginTxFunc func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func (m *mockTransactionManager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return m.BeginTxFunc(ctx, opts)
}

type mockDemandeRepository struct {
	InsertFunc            func(ctx context.Context, tx *sql.Tx, demande domain.Demande) error
	FindByIDFunc          func(ctx context.Context, id string) (*domain.Demande, error)
	ListByStatutFunc      func(ctx context.Context, statut domain.StatutDemande) ([]domain.Demande, error)
	ListByDemandeurFunc   func(ctx context.Context, demandeurID string) ([]domain.Demande, error)
	MarkApprouveeFunc     func(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error)
	MarkRejeteeFunc       func(ctx context.Context, tx *sql.Tx, id, approbateurID, raison string, at time.Time) (int64, error)
	MarkEnAttenteFunc     func(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error)
	DeleteIfEnAttenteFunc func(ctx context.Context, tx *sql.Tx, id, demandeurID string) (int64, error)
}

func (m *mockDemandeRepository) Insert(ctx context.Context, tx *sql.Tx, demande domain.Demande) error {
	return m.InsertFunc(ctx, tx, demande)
}

func (m *mockDemandeRepository) FindByID(ctx context.Context, id string) (*domain.Demande, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockDemandeRepository) ListByStatut(ctx context.Context, statut domain.StatutDemande) ([]domain.Demande, error) {
	return m.ListByStatutFunc(ctx, statut)
}

func (m *mockDemandeRepository) ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.Demande, error) {
	return m.ListByDemandeurFunc(ctx, demandeurID)
}

func (m *mockDemandeRepository) MarkApprouvee(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error) {
	return m.MarkApprouveeFunc(ctx, tx, id, approbateurID, at)
}

func (m *mockDemandeRepository) MarkRejetee(ctx context.Context, tx *sql.Tx, id, approbateurID, raison string, at time.Time) (int64, error) {
	return m.MarkRejeteeFunc(ctx, tx, id, approbateurID, raison, at)
}

func (m *mockDemandeRepository) MarkEnAttente(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error) {
	return m.MarkEnAttenteFunc(ctx, tx, id, approbateurID, at)
}

func (m *mockDemandeRepository) DeleteIfEnAttente(ctx context.Context, tx *sql.Tx, id, demandeurID string) (int64, error) {
	return m.DeleteIfEnAttenteFunc(ctx, tx, id, demandeurID)
}

type mockProduitReader struct {
	ListByIDsFunc func(ctx context.Context, ids []string) ([]domain.Produit, error)
}

func (m *mockProduitReader) ListByIDs(ctx context.Context, ids []string) ([]domain.Produit, error) {
	return m.ListByIDsFunc(ctx, ids)
}

type mockStockLedger struct {
	AvailableFunc func(ctx context.Context, tx *sql.Tx, produitID string) (int, error)
	ReserveFunc   func(ctx context.Context, tx *sql.Tx, produitID string, amount int) error
	ReleaseFunc   func(ctx context.Context, tx *sql.Tx, produitID string, amount int) error
}

func (m *mockStockLedger) Available(ctx context.Context, tx *sql.Tx, produitID string) (int, error) {
	return m.AvailableFunc(ctx, tx, produitID)
}

func (m *mockStockLedger) Reserve(ctx context.Context, tx *sql.Tx, produitID string, amount int) error {
	return m.ReserveFunc(ctx, tx, produitID, amount)
}

func (m *mockStockLedger) Release(ctx context.Context, tx *sql.Tx, produitID string, amount int) error {
	return m.ReleaseFunc(ctx, tx, produitID, amount)
}

type mockReconciler struct {
	ReconcileFunc func(ctx context.Context, produitIDs ...string) error
}

func (m *mockReconciler) Reconcile(ctx context.Context, produitIDs ...string) error {
	return m.ReconcileFunc(ctx, produitIDs...)
}

type mockNotifier struct {
	DispatchFunc func(ctx context.Context, recipientIDs []string, message string) error
}

func (m *mockNotifier) Dispatch(ctx context.Context, recipientIDs []string, message string) error {
	return m.DispatchFunc(ctx, recipientIDs, message)
}

type mockRecipientResolver struct {
	AdminIDsFunc func(ctx context.Context) ([]string, error)
}

func (m *mockRecipientResolver) AdminIDs(ctx context.Context) ([]string, error) {
	return m.AdminIDsFunc(ctx)
}

func newTestDemandeService(
	txMgr TransactionManager,
	demandeRepo DemandeRepository,
	produitRepo ProduitReader,
	ledger StockLedger,
) *DemandeService {
	return NewDemandeService(
		txMgr,
		demandeRepo,
		produitRepo,
		ledger,
		&mockReconciler{ReconcileFunc: func(ctx context.Context, produitIDs ...string) error { return nil }},
		&mockNotifier{DispatchFunc: func(ctx context.Context, recipientIDs []string, message string) error { return nil }},
		&mockRecipientResolver{AdminIDsFunc: func(ctx context.Context) ([]string, error) { return []string{"admin-1"}, nil }},
		zap.NewNop(),
		5*time.Second,
	)
}

// Tests

func TestSubmit_EmptyItems(t *testing.T) {
	svc := newTestDemandeService(nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "user-1", nil)

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "items", ve.Details[0].Field)
}

func TestSubmit_InvalidQuantity(t *testing.T) {
	svc := newTestDemandeService(nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "user-1", []ItemDemande{
		{ProduitID: "p-1", Quantite: 0},
	})

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestSubmit_DuplicateProduct(t *testing.T) {
	svc := newTestDemandeService(nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "user-1", []ItemDemande{
		{ProduitID: "p-1", Quantite: 1},
		{ProduitID: "p-1", Quantite: 2},
	})

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestSubmit_UnknownProduct(t *testing.T) {
	produitRepo := &mockProduitReader{
		ListByIDsFunc: func(ctx context.Context, ids []string) ([]domain.Produit, error) {
			return nil, nil
		},
	}
	svc := newTestDemandeService(nil, nil, produitRepo, nil)

	_, err := svc.Submit(context.Background(), "user-1", []ItemDemande{
		{ProduitID: "p-unknown", Quantite: 1},
	})

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestSubmit_AdvisoryStockCheck(t *testing.T) {
	produitRepo := &mockProduitReader{
		ListByIDsFunc: func(ctx context.Context, ids []string) ([]domain.Produit, error) {
			return []domain.Produit{
				{ID: "p-1", Quantite: 2, QuantiteMinimale: 1},
			}, nil
		},
	}
	svc := newTestDemandeService(nil, nil, produitRepo, nil)

	_, err := svc.Submit(context.Background(), "user-1", []ItemDemande{
		{ProduitID: "p-1", Quantite: 5},
	})

	ise, ok := apperrors.IsInsufficientStockError(err)
	require.True(t, ok)
	require.Len(t, ise.Items, 1)
	assert.Equal(t, 5, ise.Items[0].Requested)
	assert.Equal(t, 2, ise.Items[0].Available)
}

func TestApprove_NotPending(t *testing.T) {
	demandeRepo := &mockDemandeRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Demande, error) {
			return &domain.Demande{ID: id, Statut: domain.DemandeApprouvee}, nil
		},
	}
	svc := newTestDemandeService(nil, demandeRepo, nil, nil)

	_, err := svc.Approve(context.Background(), "d-1", "admin-1")

	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}

func TestApprove_NotFound(t *testing.T) {
	demandeRepo := &mockDemandeRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Demande, error) {
			return nil, apperrors.NewNotFoundError("demande not found")
		},
	}
	svc := newTestDemandeService(nil, demandeRepo, nil, nil)

	_, err := svc.Approve(context.Background(), "d-404", "admin-1")

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestReject_RequiresReason(t *testing.T) {
	svc := newTestDemandeService(nil, nil, nil, nil)

	_, err := svc.Reject(context.Background(), "d-1", "admin-1", "   ")

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "raison", ve.Details[0].Field)
}

func TestReject_RejectedIsTerminal(t *testing.T) {
	demandeRepo := &mockDemandeRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Demande, error) {
			return &domain.Demande{ID: id, Statut: domain.DemandeRejetee}, nil
		},
	}
	svc := newTestDemandeService(nil, demandeRepo, nil, nil)

	_, err := svc.Reject(context.Background(), "d-1", "admin-1", "hors budget")

	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}

func TestRevert_NotApproved(t *testing.T) {
	demandeRepo := &mockDemandeRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Demande, error) {
			return &domain.Demande{ID: id, Statut: domain.DemandeEnAttente}, nil
		},
	}
	svc := newTestDemandeService(nil, demandeRepo, nil, nil)

	_, err := svc.Revert(context.Background(), "d-1", "admin-1")

	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}

func TestRevert_WrongApprover(t *testing.T) {
	demandeRepo := &mockDemandeRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Demande, error) {
			return &domain.Demande{
				ID:            id,
				Statut:        domain.DemandeApprouvee,
				ApprobateurID: strPtr("admin-1"),
			}, nil
		},
	}
	svc := newTestDemandeService(nil, demandeRepo, nil, nil)

	_, err := svc.Revert(context.Background(), "d-1", "admin-2")

	_, ok := apperrors.IsForbiddenError(err)
	assert.True(t, ok)
}

func TestWithdraw_WrongRequester(t *testing.T) {
	demandeRepo := &mockDemandeRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Demande, error) {
			return &domain.Demande{ID: id, DemandeurID: "user-1", Statut: domain.DemandeEnAttente}, nil
		},
	}
	svc := newTestDemandeService(nil, demandeRepo, nil, nil)

	err := svc.Withdraw(context.Background(), "d-1", "user-2")

	_, ok := apperrors.IsForbiddenError(err)
	assert.True(t, ok)
}
