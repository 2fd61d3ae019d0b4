package repository

import (
	"context"
	"database/sql"
	"fmt"

	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
)

type MySQLAlerteRepository struct {
	db *sql.DB
}

func NewMySQLAlerteRepository(db *sql.DB) *MySQLAlerteRepository {
	return &MySQLAlerteRepository{db: db}
}

func (r *MySQLAlerteRepository) Insert(ctx context.Context, alerte domain.Alerte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alertes (id, produit_id, type_alerte, description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		alerte.ID, alerte.ProduitID, string(alerte.TypeAlerte), alerte.Description, alerte.CreatedAt,
	)
	if err != nil {
		return apperrors.NewPersistenceError("inserting alerte", err)
	}
	return nil
}

// HasLive reports whether an undismissed alerte of the given kind exists for
// the product. This is the dedup check: at most one live alerte per
// (produit, type), however many times reconcile runs.
func (r *MySQLAlerteRepository) HasLive(ctx context.Context, produitID string, kind domain.TypeAlerte) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alertes WHERE produit_id = ? AND type_alerte = ?`,
		produitID, string(kind),
	).Scan(&count)
	if err != nil {
		return false, apperrors.NewPersistenceError("checking live alerte", err)
	}
	return count > 0, nil
}

// RetireAllExcept removes every alerte for the product whose kind no longer
// matches the derived status. Pass an empty kind to retire everything.
func (r *MySQLAlerteRepository) RetireAllExcept(ctx context.Context, produitID string, keep domain.TypeAlerte) error {
	var err error
	if keep == "" {
		_, err = r.db.ExecContext(ctx,
			`DELETE FROM alertes WHERE produit_id = ?`, produitID,
		)
	} else {
		_, err = r.db.ExecContext(ctx,
			`DELETE FROM alertes WHERE produit_id = ? AND type_alerte <> ?`,
			produitID, string(keep),
		)
	}
	if err != nil {
		return apperrors.NewPersistenceError("retiring alertes", err)
	}
	return nil
}

func (r *MySQLAlerteRepository) ListAll(ctx context.Context) ([]domain.Alerte, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, produit_id, type_alerte, description, created_at
		 FROM alertes ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying alertes", err)
	}
	defer rows.Close()

	var alertes []domain.Alerte
	for rows.Next() {
		var a domain.Alerte
		var kind string
		if err := rows.Scan(&a.ID, &a.ProduitID, &kind, &a.Description, &a.CreatedAt); err != nil {
			return nil, apperrors.NewPersistenceError("scanning alerte row", err)
		}
		a.TypeAlerte = domain.TypeAlerte(kind)
		alertes = append(alertes, a)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating alerte rows", err)
	}

	return alertes, nil
}

func (r *MySQLAlerteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alertes WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewPersistenceError("deleting alerte", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewPersistenceError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("alerte %s not found", id))
	}

	return nil
}
