package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magasin/internal/domain"
	"magasin/internal/testutil"
)

// Unit Tests

func TestNewMySQLCommandeRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLCommandeRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

// Integration Tests

func insertTestCommande(t *testing.T, db *sql.DB, repo *MySQLCommandeRepository, id string, statut domain.StatutCommande) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)

	tx, err := db.Begin()
	require.NoError(t, err)

	err = repo.Insert(context.Background(), tx, domain.Commande{
		ID:            id,
		Statut:        statut,
		FournisseurID: "f-1",
		DemandeurID:   "user-1",
		DatePrevue:    now.Add(48 * time.Hour),
		Produits: []domain.CommandeProduit{
			{ID: id + "-item-1", CommandeID: id, ProduitID: "p-1", Quantite: 5},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}

func TestCommandeRepository_MarkLivree_OnlyOnceWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLCommandeRepository(db)
	insertTestCommande(t, db, repo, "c-1", domain.CommandeEnCours)

	facture := "FAC-2026-001"
	now := time.Now().UTC()

	tx, err := db.Begin()
	require.NoError(t, err)
	rows, err := repo.MarkLivree(context.Background(), tx, "c-1", &facture, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, tx.Commit())

	// A delivered commande is not deliverable again.
	tx, err = db.Begin()
	require.NoError(t, err)
	rows, err = repo.MarkLivree(context.Background(), tx, "c-1", &facture, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	require.NoError(t, tx.Rollback())

	commande, err := repo.FindByID(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CommandeLivree, commande.Statut)
	require.NotNil(t, commande.Facture)
	assert.Equal(t, "FAC-2026-001", *commande.Facture)
	assert.NotNil(t, commande.DateLivraison)
}

func TestCommandeRepository_MarkLivree_FromReturned(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLCommandeRepository(db)
	insertTestCommande(t, db, repo, "c-1", domain.CommandeEnRetour)

	tx, err := db.Begin()
	require.NoError(t, err)
	rows, err := repo.MarkLivree(context.Background(), tx, "c-1", nil, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, tx.Commit())

	commande, err := repo.FindByID(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CommandeLivree, commande.Statut)
	assert.Nil(t, commande.Facture)
}

func TestCommandeRepository_ListFournisseurs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	_, err := db.Exec(
		`INSERT INTO fournisseurs (id, nom, email, telephone, adresse) VALUES
		 ('f-2', 'Papeterie Centrale', 'contact@papeterie.example', NULL, NULL),
		 ('f-1', 'Bureau Plus', NULL, '+212600000000', 'Rabat')`,
	)
	require.NoError(t, err)

	repo := NewMySQLCommandeRepository(db)

	fournisseurs, err := repo.ListFournisseurs(context.Background())
	require.NoError(t, err)
	require.Len(t, fournisseurs, 2)

	// Sorted by name.
	assert.Equal(t, "Bureau Plus", fournisseurs[0].Nom)
	require.NotNil(t, fournisseurs[0].Telephone)
	assert.Equal(t, "+212600000000", *fournisseurs[0].Telephone)
	assert.Nil(t, fournisseurs[0].Email)

	assert.Equal(t, "Papeterie Centrale", fournisseurs[1].Nom)
	require.NotNil(t, fournisseurs[1].Email)
	assert.Nil(t, fournisseurs[1].Telephone)
}
