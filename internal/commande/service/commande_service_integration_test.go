package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	commanderepo "magasin/internal/commande/repository"
	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
	produitrepo "magasin/internal/produit/repository"
	"magasin/internal/stock"
	"magasin/internal/testutil"
)

func seedProduit(t *testing.T, db *sql.DB, id string, quantite, quantiteMinimale int) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO produits (id, nom, marque, quantite, quantite_minimale, statut, categorie_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, "Stylo", "Bic", quantite, quantiteMinimale,
		string(stock.DeriveStatus(quantite, quantiteMinimale)), "cat-1", now, now,
	)
	require.NoError(t, err)
}

func produitState(t *testing.T, db *sql.DB, id string) (int, domain.StatutProduit) {
	t.Helper()
	var quantite int
	var statut string
	require.NoError(t, db.QueryRow(
		`SELECT quantite, statut FROM produits WHERE id = ?`, id,
	).Scan(&quantite, &statut))
	return quantite, domain.StatutProduit(statut)
}

func newIntegrationCommandeService(db *sql.DB) (*CommandeService, *commanderepo.MySQLCommandeRepository) {
	repo := commanderepo.NewMySQLCommandeRepository(db)
	svc := NewCommandeService(
		db,
		repo,
		produitrepo.NewMySQLProduitRepository(db),
		stock.NewLedger(zap.NewNop()),
		nil,
		&mockReconciler{ReconcileFunc: func(ctx context.Context, produitIDs ...string) error { return nil }},
		&mockNotifier{DispatchFunc: func(ctx context.Context, recipientIDs []string, message string) error { return nil }},
		&mockRecipientResolver{AdminIDsFunc: func(ctx context.Context) ([]string, error) { return []string{"admin-1"}, nil }},
		zap.NewNop(),
		5*time.Second,
	)
	return svc, repo
}

func TestDeliver_SecondCallConflictsAndStockMovesOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	seedProduit(t, db, "p-1", 0, 2)
	svc, repo := newIntegrationCommandeService(db)

	now := time.Now().UTC().Truncate(time.Second)
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), tx, domain.Commande{
		ID:            "c-1",
		Statut:        domain.CommandeEnCours,
		FournisseurID: "f-1",
		DemandeurID:   "user-1",
		DatePrevue:    now,
		Produits: []domain.CommandeProduit{
			{ID: "c-1-item-1", CommandeID: "c-1", ProduitID: "p-1", Quantite: 5},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}))
	require.NoError(t, tx.Commit())

	facture := "FAC-2026-042"
	commande, err := svc.Deliver(context.Background(), "c-1", &facture)
	require.NoError(t, err)
	assert.Equal(t, domain.CommandeLivree, commande.Statut)

	quantite, statut := produitState(t, db, "p-1")
	assert.Equal(t, 5, quantite)
	assert.Equal(t, domain.ProduitNormal, statut)

	_, err = svc.Deliver(context.Background(), "c-1", &facture)
	_, ok := apperrors.IsConflictError(err)
	require.True(t, ok)

	// The second call moved nothing.
	quantite, _ = produitState(t, db, "p-1")
	assert.Equal(t, 5, quantite)
}
