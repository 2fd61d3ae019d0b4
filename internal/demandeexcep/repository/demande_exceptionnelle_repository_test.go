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

func TestNewMySQLDemandeExceptionnelleRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLDemandeExceptionnelleRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

// Integration Tests

func insertAcceptedDemande(t *testing.T, db *sql.DB, repo *MySQLDemandeExceptionnelleRepository, id, approbateurID string) {
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
	rows, err := repo.MarkAcceptee(context.Background(), tx, id, approbateurID, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)
	require.NoError(t, tx.Commit())
}

func TestDemandeExceptionnelleRepository_MarkEnAttente_RequiresOriginalApprover(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLDemandeExceptionnelleRepository(db)
	insertAcceptedDemande(t, db, repo, "de-1", "admin-1")

	now := time.Now().UTC()

	// A different approver matches no row.
	tx, err := db.Begin()
	require.NoError(t, err)
	rows, err := repo.MarkEnAttente(context.Background(), tx, "de-1", "admin-2", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	require.NoError(t, tx.Rollback())

	tx, err = db.Begin()
	require.NoError(t, err)
	rows, err = repo.MarkEnAttente(context.Background(), tx, "de-1", "admin-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, tx.Commit())

	demande, err := repo.FindByID(context.Background(), "de-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DemandeExcepEnAttente, demande.Statut)
	assert.Nil(t, demande.ApprobateurID)
	assert.Nil(t, demande.ApprovedAt)
}

func TestDemandeExceptionnelleRepository_MarkEnAttente_OrderedStaysOrdered(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLDemandeExceptionnelleRepository(db)
	insertAcceptedDemande(t, db, repo, "de-1", "admin-1")

	now := time.Now().UTC()

	tx, err := db.Begin()
	require.NoError(t, err)
	rows, err := repo.MarkCommandee(context.Background(), tx, "de-1", now)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)
	require.NoError(t, tx.Commit())

	tx, err = db.Begin()
	require.NoError(t, err)
	rows, err = repo.MarkEnAttente(context.Background(), tx, "de-1", "admin-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	require.NoError(t, tx.Rollback())

	demande, err := repo.FindByID(context.Background(), "de-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DemandeExcepCommandee, demande.Statut)
}
