package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
	"magasin/internal/testutil"
)

// Unit Tests

func TestNewMySQLDemandeRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLDemandeRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

// Integration Tests

func insertTestDemande(t *testing.T, db *sql.DB, repo *MySQLDemandeRepository, id, demandeurID string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)

	tx, err := db.Begin()
	require.NoError(t, err)

	err = repo.Insert(context.Background(), tx, domain.Demande{
		ID:          id,
		DemandeurID: demandeurID,
		Statut:      domain.DemandeEnAttente,
		Produits: []domain.DemandeProduit{
			{ID: id + "-item-1", DemandeID: id, ProduitID: "p-1", Quantite: 2},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}

func TestDemandeRepository_InsertAndFindByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLDemandeRepository(db)
	insertTestDemande(t, db, repo, "d-1", "user-1")

	demande, err := repo.FindByID(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", demande.DemandeurID)
	assert.Equal(t, domain.DemandeEnAttente, demande.Statut)
	assert.Nil(t, demande.ApprobateurID)
	require.Len(t, demande.Produits, 1)
	assert.Equal(t, "p-1", demande.Produits[0].ProduitID)
	assert.Equal(t, 2, demande.Produits[0].Quantite)
}

func TestDemandeRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLDemandeRepository(db)

	demande, err := repo.FindByID(context.Background(), "d-404")
	assert.Nil(t, demande)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestDemandeRepository_MarkApprouvee_OnlyOnceWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLDemandeRepository(db)
	insertTestDemande(t, db, repo, "d-1", "user-1")

	now := time.Now().UTC()

	tx, err := db.Begin()
	require.NoError(t, err)
	rows, err := repo.MarkApprouvee(context.Background(), tx, "d-1", "admin-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, tx.Commit())

	// Second transition finds no PENDING row to update.
	tx, err = db.Begin()
	require.NoError(t, err)
	rows, err = repo.MarkApprouvee(context.Background(), tx, "d-1", "admin-2", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	require.NoError(t, tx.Rollback())

	demande, err := repo.FindByID(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DemandeApprouvee, demande.Statut)
	require.NotNil(t, demande.ApprobateurID)
	assert.Equal(t, "admin-1", *demande.ApprobateurID)
}

func TestDemandeRepository_MarkEnAttente_RequiresOriginalApprover(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLDemandeRepository(db)
	insertTestDemande(t, db, repo, "d-1", "user-1")

	now := time.Now().UTC()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.MarkApprouvee(context.Background(), tx, "d-1", "admin-1", now)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx, err = db.Begin()
	require.NoError(t, err)
	rows, err := repo.MarkEnAttente(context.Background(), tx, "d-1", "admin-2", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	require.NoError(t, tx.Rollback())

	tx, err = db.Begin()
	require.NoError(t, err)
	rows, err = repo.MarkEnAttente(context.Background(), tx, "d-1", "admin-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, tx.Commit())
}

func TestDemandeRepository_DeleteIfEnAttente(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLDemandeRepository(db)
	insertTestDemande(t, db, repo, "d-1", "user-1")

	tx, err := db.Begin()
	require.NoError(t, err)
	rows, err := repo.DeleteIfEnAttente(context.Background(), tx, "d-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, tx.Commit())

	_, err = repo.FindByID(context.Background(), "d-1")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestDemandeRepository_ListByStatut(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLDemandeRepository(db)
	insertTestDemande(t, db, repo, "d-1", "user-1")
	insertTestDemande(t, db, repo, "d-2", "user-2")

	demandes, err := repo.ListByStatut(context.Background(), domain.DemandeEnAttente)
	require.NoError(t, err)
	assert.Len(t, demandes, 2)

	demandes, err = repo.ListByStatut(context.Background(), domain.DemandeApprouvee)
	require.NoError(t, err)
	assert.Empty(t, demandes)
}
