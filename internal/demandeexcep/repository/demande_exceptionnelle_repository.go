package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
)

type MySQLDemandeExceptionnelleRepository struct {
	db *sql.DB
}

func NewMySQLDemandeExceptionnelleRepository(db *sql.DB) *MySQLDemandeExceptionnelleRepository {
	return &MySQLDemandeExceptionnelleRepository{db: db}
}

func (r *MySQLDemandeExceptionnelleRepository) Insert(ctx context.Context, tx *sql.Tx, demande domain.DemandeExceptionnelle) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO demandes_exceptionnelles (id, demandeur_id, statut, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		demande.ID, demande.DemandeurID, string(demande.Statut), demande.CreatedAt, demande.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewPersistenceError("inserting demande exceptionnelle", err)
	}

	for _, item := range demande.Produits {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO demande_exceptionnelle_produits (id, demande_id, nom, marque, description, quantite)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID, demande.ID, item.Nom, item.Marque, item.Description, item.Quantite,
		)
		if err != nil {
			return apperrors.NewPersistenceError("inserting exceptional product descriptor", err)
		}
	}

	return nil
}

func (r *MySQLDemandeExceptionnelleRepository) FindByID(ctx context.Context, id string) (*domain.DemandeExceptionnelle, error) {
	query := `
		SELECT id, demandeur_id, statut, approbateur_id, approved_at, raison_rejet, created_at, updated_at
		FROM demandes_exceptionnelles
		WHERE id = ?
	`

	var d domain.DemandeExceptionnelle
	var statut string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.DemandeurID, &statut, &d.ApprobateurID, &d.ApprovedAt,
		&d.RaisonRejet, &d.CreatedAt, &d.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("demande exceptionnelle %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying demande exceptionnelle by id", err)
	}
	d.Statut = domain.StatutDemandeExceptionnelle(statut)

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Produits = items

	return &d, nil
}

func (r *MySQLDemandeExceptionnelleRepository) listItems(ctx context.Context, demandeID string) ([]domain.ProduitExceptionnel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, demande_id, nom, marque, description, quantite
		 FROM demande_exceptionnelle_produits WHERE demande_id = ?`,
		demandeID,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying exceptional product descriptors", err)
	}
	defer rows.Close()

	var items []domain.ProduitExceptionnel
	for rows.Next() {
		var item domain.ProduitExceptionnel
		if err := rows.Scan(&item.ID, &item.DemandeID, &item.Nom, &item.Marque, &item.Description, &item.Quantite); err != nil {
			return nil, apperrors.NewPersistenceError("scanning exceptional product descriptor", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating exceptional product descriptors", err)
	}

	return items, nil
}

func (r *MySQLDemandeExceptionnelleRepository) ListByStatut(ctx context.Context, statut domain.StatutDemandeExceptionnelle) ([]domain.DemandeExceptionnelle, error) {
	return r.list(ctx,
		`SELECT id, demandeur_id, statut, approbateur_id, approved_at, raison_rejet, created_at, updated_at
		 FROM demandes_exceptionnelles WHERE statut = ? ORDER BY created_at DESC`,
		string(statut),
	)
}

func (r *MySQLDemandeExceptionnelleRepository) ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.DemandeExceptionnelle, error) {
	return r.list(ctx,
		`SELECT id, demandeur_id, statut, approbateur_id, approved_at, raison_rejet, created_at, updated_at
		 FROM demandes_exceptionnelles WHERE demandeur_id = ? ORDER BY created_at DESC`,
		demandeurID,
	)
}

func (r *MySQLDemandeExceptionnelleRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.DemandeExceptionnelle, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying demandes exceptionnelles", err)
	}
	defer rows.Close()

	var demandes []domain.DemandeExceptionnelle
	for rows.Next() {
		var d domain.DemandeExceptionnelle
		var statut string
		err := rows.Scan(
			&d.ID, &d.DemandeurID, &statut, &d.ApprobateurID, &d.ApprovedAt,
			&d.RaisonRejet, &d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewPersistenceError("scanning demande exceptionnelle row", err)
		}
		d.Statut = domain.StatutDemandeExceptionnelle(statut)
		demandes = append(demandes, d)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating demande exceptionnelle rows", err)
	}

	for i := range demandes {
		items, err := r.listItems(ctx, demandes[i].ID)
		if err != nil {
			return nil, err
		}
		demandes[i].Produits = items
	}

	return demandes, nil
}

func (r *MySQLDemandeExceptionnelleRepository) MarkAcceptee(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE demandes_exceptionnelles SET statut = ?, approbateur_id = ?, approved_at = ?, updated_at = ?
		 WHERE id = ? AND statut = ?`,
		string(domain.DemandeExcepAcceptee), approbateurID, at, at, id, string(domain.DemandeExcepEnAttente),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("accepting demande exceptionnelle", err)
	}
	return result.RowsAffected()
}

func (r *MySQLDemandeExceptionnelleRepository) MarkRejetee(ctx context.Context, tx *sql.Tx, id, approbateurID, raison string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE demandes_exceptionnelles SET statut = ?, approbateur_id = ?, raison_rejet = ?, updated_at = ?
		 WHERE id = ? AND statut = ?`,
		string(domain.DemandeExcepRejetee), approbateurID, raison, at, id, string(domain.DemandeExcepEnAttente),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("rejecting demande exceptionnelle", err)
	}
	return result.RowsAffected()
}

// MarkEnAttente reverts an acceptance. Only the original approver may
// revert, enforced in the same conditional update.
func (r *MySQLDemandeExceptionnelleRepository) MarkEnAttente(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE demandes_exceptionnelles SET statut = ?, approbateur_id = NULL, approved_at = NULL, updated_at = ?
		 WHERE id = ? AND statut = ? AND approbateur_id = ?`,
		string(domain.DemandeExcepEnAttente), at, id, string(domain.DemandeExcepAcceptee), approbateurID,
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("reverting demande exceptionnelle", err)
	}
	return result.RowsAffected()
}

// MarkCommandee flips an accepted demande to ORDERED. The purchase order
// workflow calls it inside the commande's own transaction.
func (r *MySQLDemandeExceptionnelleRepository) MarkCommandee(ctx context.Context, tx *sql.Tx, id string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE demandes_exceptionnelles SET statut = ?, updated_at = ?
		 WHERE id = ? AND statut = ?`,
		string(domain.DemandeExcepCommandee), at, id, string(domain.DemandeExcepAcceptee),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("marking demande exceptionnelle ordered", err)
	}
	return result.RowsAffected()
}

func (r *MySQLDemandeExceptionnelleRepository) DeleteIfEnAttente(ctx context.Context, tx *sql.Tx, id, demandeurID string) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`DELETE FROM demandes_exceptionnelles WHERE id = ? AND demandeur_id = ? AND statut = ?`,
		id, demandeurID, string(domain.DemandeExcepEnAttente),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("withdrawing demande exceptionnelle", err)
	}
	return result.RowsAffected()
}
