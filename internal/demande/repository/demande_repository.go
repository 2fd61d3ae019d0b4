package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
)

type MySQLDemandeRepository struct {
	db *sql.DB
}

func NewMySQLDemandeRepository(db *sql.DB) *MySQLDemandeRepository {
	return &MySQLDemandeRepository{db: db}
}

func (r *MySQLDemandeRepository) Insert(ctx context.Context, tx *sql.Tx, demande domain.Demande) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO demandes (id, demandeur_id, statut, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		demande.ID, demande.DemandeurID, string(demande.Statut), demande.CreatedAt, demande.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewPersistenceError("inserting demande", err)
	}

	for _, item := range demande.Produits {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO demande_produits (id, demande_id, produit_id, quantite)
			 VALUES (?, ?, ?, ?)`,
			item.ID, demande.ID, item.ProduitID, item.Quantite,
		)
		if err != nil {
			return apperrors.NewPersistenceError("inserting demande item", err)
		}
	}

	return nil
}

func (r *MySQLDemandeRepository) FindByID(ctx context.Context, id string) (*domain.Demande, error) {
	query := `
		SELECT id, demandeur_id, statut, approbateur_id, approved_at, raison_rejet, created_at, updated_at
		FROM demandes
		WHERE id = ?
	`

	var d domain.Demande
	var statut string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.DemandeurID, &statut, &d.ApprobateurID, &d.ApprovedAt,
		&d.RaisonRejet, &d.CreatedAt, &d.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("demande %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying demande by id", err)
	}
	d.Statut = domain.StatutDemande(statut)

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Produits = items

	return &d, nil
}

func (r *MySQLDemandeRepository) listItems(ctx context.Context, demandeID string) ([]domain.DemandeProduit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, demande_id, produit_id, quantite FROM demande_produits WHERE demande_id = ?`,
		demandeID,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying demande items", err)
	}
	defer rows.Close()

	var items []domain.DemandeProduit
	for rows.Next() {
		var item domain.DemandeProduit
		if err := rows.Scan(&item.ID, &item.DemandeID, &item.ProduitID, &item.Quantite); err != nil {
			return nil, apperrors.NewPersistenceError("scanning demande item", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating demande items", err)
	}

	return items, nil
}

func (r *MySQLDemandeRepository) ListByStatut(ctx context.Context, statut domain.StatutDemande) ([]domain.Demande, error) {
	return r.list(ctx,
		`SELECT id, demandeur_id, statut, approbateur_id, approved_at, raison_rejet, created_at, updated_at
		 FROM demandes WHERE statut = ? ORDER BY created_at DESC`,
		string(statut),
	)
}

func (r *MySQLDemandeRepository) ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.Demande, error) {
	return r.list(ctx,
		`SELECT id, demandeur_id, statut, approbateur_id, approved_at, raison_rejet, created_at, updated_at
		 FROM demandes WHERE demandeur_id = ? ORDER BY created_at DESC`,
		demandeurID,
	)
}

func (r *MySQLDemandeRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Demande, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying demandes", err)
	}
	defer rows.Close()

	var demandes []domain.Demande
	for rows.Next() {
		var d domain.Demande
		var statut string
		err := rows.Scan(
			&d.ID, &d.DemandeurID, &statut, &d.ApprobateurID, &d.ApprovedAt,
			&d.RaisonRejet, &d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewPersistenceError("scanning demande row", err)
		}
		d.Statut = domain.StatutDemande(statut)
		demandes = append(demandes, d)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating demande rows", err)
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

// MarkApprouvee is the approval precondition and the state write in one
// statement: zero rows affected means another actor already transitioned the
// demande.
func (r *MySQLDemandeRepository) MarkApprouvee(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE demandes SET statut = ?, approbateur_id = ?, approved_at = ?, updated_at = ?
		 WHERE id = ? AND statut = ?`,
		string(domain.DemandeApprouvee), approbateurID, at, at, id, string(domain.DemandeEnAttente),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("approving demande", err)
	}
	return result.RowsAffected()
}

func (r *MySQLDemandeRepository) MarkRejetee(ctx context.Context, tx *sql.Tx, id, approbateurID, raison string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE demandes SET statut = ?, approbateur_id = ?, raison_rejet = ?, updated_at = ?
		 WHERE id = ? AND statut = ?`,
		string(domain.DemandeRejetee), approbateurID, raison, at, id, string(domain.DemandeEnAttente),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("rejecting demande", err)
	}
	return result.RowsAffected()
}

// MarkEnAttente reverts an approval. Only the original approver may revert,
// enforced in the same conditional update.
func (r *MySQLDemandeRepository) MarkEnAttente(ctx context.Context, tx *sql.Tx, id, approbateurID string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE demandes SET statut = ?, approbateur_id = NULL, approved_at = NULL, updated_at = ?
		 WHERE id = ? AND statut = ? AND approbateur_id = ?`,
		string(domain.DemandeEnAttente), at, id, string(domain.DemandeApprouvee), approbateurID,
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("reverting demande", err)
	}
	return result.RowsAffected()
}

// DeleteIfEnAttente withdraws a demande while it is still unactioned. Items
// go with it via the FK cascade.
func (r *MySQLDemandeRepository) DeleteIfEnAttente(ctx context.Context, tx *sql.Tx, id, demandeurID string) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`DELETE FROM demandes WHERE id = ? AND demandeur_id = ? AND statut = ?`,
		id, demandeurID, string(domain.DemandeEnAttente),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("withdrawing demande", err)
	}
	return result.RowsAffected()
}
