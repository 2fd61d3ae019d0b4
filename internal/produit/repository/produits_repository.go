package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
)

type MySQLProduitRepository struct {
	db *sql.DB
}

func NewMySQLProduitRepository(db *sql.DB) *MySQLProduitRepository {
	return &MySQLProduitRepository{db: db}
}

const produitColumns = `id, nom, marque, quantite, quantite_minimale, statut, categorie_id, remarque, created_at, updated_at`

func scanProduit(row interface{ Scan(...interface{}) error }) (*domain.Produit, error) {
	var p domain.Produit
	var statut string
	err := row.Scan(
		&p.ID, &p.Nom, &p.Marque, &p.Quantite, &p.QuantiteMinimale,
		&statut, &p.CategorieID, &p.Remarque, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Statut = domain.StatutProduit(statut)
	return &p, nil
}

func (r *MySQLProduitRepository) FindByID(ctx context.Context, id string) (*domain.Produit, error) {
	query := fmt.Sprintf(`SELECT %s FROM produits WHERE id = ?`, produitColumns)

	p, err := scanProduit(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying product by id", err)
	}

	return p, nil
}

func (r *MySQLProduitRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Produit, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s FROM produits WHERE id IN (%s)`,
		produitColumns, strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying products", err)
	}
	defer rows.Close()

	var produits []domain.Produit
	for rows.Next() {
		p, err := scanProduit(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("scanning product row", err)
		}
		produits = append(produits, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating product rows", err)
	}

	return produits, nil
}

// ListAll returns the full catalog; the alert engine sweeps it for drift.
func (r *MySQLProduitRepository) ListAll(ctx context.Context) ([]domain.Produit, error) {
	query := fmt.Sprintf(`SELECT %s FROM produits`, produitColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying products", err)
	}
	defer rows.Close()

	var produits []domain.Produit
	for rows.Next() {
		p, err := scanProduit(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("scanning product row", err)
		}
		produits = append(produits, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating product rows", err)
	}

	return produits, nil
}

func (r *MySQLProduitRepository) UpdateStatut(ctx context.Context, id string, statut domain.StatutProduit) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE produits SET statut = ? WHERE id = ?`,
		string(statut), id,
	)
	if err != nil {
		return apperrors.NewPersistenceError("updating product status", err)
	}
	return nil
}

// ExistsExceptionnelByNomMarque guards against catalog fragmentation: two
// ad-hoc descriptors with the same (nom, marque) are treated as duplicates.
func (r *MySQLProduitRepository) ExistsExceptionnelByNomMarque(ctx context.Context, nom, marque string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM demande_exceptionnelle_produits WHERE nom = ? AND marque = ?`,
		nom, marque,
	).Scan(&count)
	if err != nil {
		return false, apperrors.NewPersistenceError("checking exceptional product descriptor", err)
	}
	return count > 0, nil
}
