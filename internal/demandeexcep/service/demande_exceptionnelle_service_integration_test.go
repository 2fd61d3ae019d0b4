package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	exceprepo "magasin/internal/demandeexcep/repository"
	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
	produitrepo "magasin/internal/produit/repository"
	"magasin/internal/testutil"
)

// capturingNotifier records every dispatched message per recipient.
type capturingNotifier struct {
	mu       sync.Mutex
	messages map[string][]string
}

func newCapturingNotifier() *capturingNotifier {
	return &capturingNotifier{messages: make(map[string][]string)}
}

func (n *capturingNotifier) Dispatch(ctx context.Context, recipientIDs []string, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range recipientIDs {
		n.messages[id] = append(n.messages[id], message)
	}
	return nil
}

func (n *capturingNotifier) received(userID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.messages[userID]
}

func newIntegrationExcepService(db *sql.DB, notifier Notifier) (*DemandeExceptionnelleService, *exceprepo.MySQLDemandeExceptionnelleRepository) {
	repo := exceprepo.NewMySQLDemandeExceptionnelleRepository(db)
	svc := NewDemandeExceptionnelleService(
		db,
		repo,
		produitrepo.NewMySQLProduitRepository(db),
		notifier,
		&mockRecipientResolver{AdminIDsFunc: func(ctx context.Context) ([]string, error) { return []string{"admin-1"}, nil }},
		zap.NewNop(),
		5*time.Second,
	)
	return svc, repo
}

func insertPendingExcepDemande(t *testing.T, db *sql.DB, repo *exceprepo.MySQLDemandeExceptionnelleRepository, id string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), tx, domain.DemandeExceptionnelle{
		ID:          id,
		DemandeurID: "user-1",
		Statut:      domain.DemandeExcepEnAttente,
		Produits: []domain.ProduitExceptionnel{
			{ID: id + "-item-1", DemandeID: id, Nom: "Agrafeuse", Marque: "Rapid", Quantite: 2},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}))
	require.NoError(t, tx.Commit())
}

func TestAcceptThenRevert_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	svc, repo := newIntegrationExcepService(db, newCapturingNotifier())
	insertPendingExcepDemande(t, db, repo, "de-1")

	accepted, err := svc.Accept(context.Background(), "de-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DemandeExcepAcceptee, accepted.Statut)
	require.NotNil(t, accepted.ApprobateurID)
	assert.Equal(t, "admin-1", *accepted.ApprobateurID)

	reverted, err := svc.Revert(context.Background(), "de-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DemandeExcepEnAttente, reverted.Statut)
	assert.Nil(t, reverted.ApprobateurID)

	// Back to pending: a second revert has nothing to undo.
	_, err = svc.Revert(context.Background(), "de-1", "admin-1")
	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}

func TestReject_NotifiesRequesterAndAdmins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	notifier := newCapturingNotifier()
	svc, repo := newIntegrationExcepService(db, notifier)
	insertPendingExcepDemande(t, db, repo, "de-1")

	rejected, err := svc.Reject(context.Background(), "de-1", "admin-1", "hors budget")
	require.NoError(t, err)
	assert.Equal(t, domain.DemandeExcepRejetee, rejected.Statut)

	require.Len(t, notifier.received("user-1"), 1)
	assert.Contains(t, notifier.received("user-1")[0], "rejetée")
	require.Len(t, notifier.received("admin-1"), 1)
	assert.Contains(t, notifier.received("admin-1")[0], "de-1")
}
