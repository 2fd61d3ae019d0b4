package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
)

type MySQLCommandeRepository struct {
	db *sql.DB
}

func NewMySQLCommandeRepository(db *sql.DB) *MySQLCommandeRepository {
	return &MySQLCommandeRepository{db: db}
}

func (r *MySQLCommandeRepository) Insert(ctx context.Context, tx *sql.Tx, commande domain.Commande) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO commandes (id, statut, fournisseur_id, demandeur_id, date_prevue, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		commande.ID, string(commande.Statut), commande.FournisseurID, commande.DemandeurID,
		commande.DatePrevue, commande.CreatedAt, commande.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewPersistenceError("inserting commande", err)
	}

	for _, item := range commande.Produits {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO commande_produits (id, commande_id, produit_id, quantite)
			 VALUES (?, ?, ?, ?)`,
			item.ID, commande.ID, item.ProduitID, item.Quantite,
		)
		if err != nil {
			return apperrors.NewPersistenceError("inserting commande item", err)
		}
	}

	return nil
}

func (r *MySQLCommandeRepository) FindByID(ctx context.Context, id string) (*domain.Commande, error) {
	query := `
		SELECT id, statut, fournisseur_id, demandeur_id, validateur_id, date_prevue,
		       date_livraison, facture, raison_retour, created_at, updated_at
		FROM commandes
		WHERE id = ?
	`

	var c domain.Commande
	var statut string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &statut, &c.FournisseurID, &c.DemandeurID, &c.ValidateurID,
		&c.DatePrevue, &c.DateLivraison, &c.Facture, &c.RaisonRetour,
		&c.CreatedAt, &c.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("commande %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying commande by id", err)
	}
	c.Statut = domain.StatutCommande(statut)

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Produits = items

	return &c, nil
}

func (r *MySQLCommandeRepository) listItems(ctx context.Context, commandeID string) ([]domain.CommandeProduit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, commande_id, produit_id, quantite FROM commande_produits WHERE commande_id = ?`,
		commandeID,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying commande items", err)
	}
	defer rows.Close()

	var items []domain.CommandeProduit
	for rows.Next() {
		var item domain.CommandeProduit
		if err := rows.Scan(&item.ID, &item.CommandeID, &item.ProduitID, &item.Quantite); err != nil {
			return nil, apperrors.NewPersistenceError("scanning commande item", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating commande items", err)
	}

	return items, nil
}

func (r *MySQLCommandeRepository) ListByStatut(ctx context.Context, statut domain.StatutCommande) ([]domain.Commande, error) {
	return r.list(ctx,
		`SELECT id, statut, fournisseur_id, demandeur_id, validateur_id, date_prevue,
		        date_livraison, facture, raison_retour, created_at, updated_at
		 FROM commandes WHERE statut = ? ORDER BY created_at DESC`,
		string(statut),
	)
}

func (r *MySQLCommandeRepository) ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.Commande, error) {
	return r.list(ctx,
		`SELECT id, statut, fournisseur_id, demandeur_id, validateur_id, date_prevue,
		        date_livraison, facture, raison_retour, created_at, updated_at
		 FROM commandes WHERE demandeur_id = ? ORDER BY created_at DESC`,
		demandeurID,
	)
}

func (r *MySQLCommandeRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Commande, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying commandes", err)
	}
	defer rows.Close()

	var commandes []domain.Commande
	for rows.Next() {
		var c domain.Commande
		var statut string
		err := rows.Scan(
			&c.ID, &statut, &c.FournisseurID, &c.DemandeurID, &c.ValidateurID,
			&c.DatePrevue, &c.DateLivraison, &c.Facture, &c.RaisonRetour,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewPersistenceError("scanning commande row", err)
		}
		c.Statut = domain.StatutCommande(statut)
		commandes = append(commandes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating commande rows", err)
	}

	for i := range commandes {
		items, err := r.listItems(ctx, commandes[i].ID)
		if err != nil {
			return nil, err
		}
		commandes[i].Produits = items
	}

	return commandes, nil
}

func (r *MySQLCommandeRepository) MarkValidee(ctx context.Context, tx *sql.Tx, id, validateurID string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE commandes SET statut = ?, validateur_id = ?, updated_at = ?
		 WHERE id = ? AND statut = ?`,
		string(domain.CommandeValidee), validateurID, at, id, string(domain.CommandeNonValidee),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("validating commande", err)
	}
	return result.RowsAffected()
}

func (r *MySQLCommandeRepository) MarkEnCours(ctx context.Context, tx *sql.Tx, id string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE commandes SET statut = ?, updated_at = ?
		 WHERE id = ? AND statut = ?`,
		string(domain.CommandeEnCours), at, id, string(domain.CommandeValidee),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("marking commande in progress", err)
	}
	return result.RowsAffected()
}

// MarkAnnulee cancels a commande that has not started yet. An in-progress
// commande cannot be silently cancelled.
func (r *MySQLCommandeRepository) MarkAnnulee(ctx context.Context, tx *sql.Tx, id string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE commandes SET statut = ?, updated_at = ?
		 WHERE id = ? AND statut IN (?, ?)`,
		string(domain.CommandeAnnulee), at, id,
		string(domain.CommandeNonValidee), string(domain.CommandeValidee),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("cancelling commande", err)
	}
	return result.RowsAffected()
}

// MarkLivree accepts delivery from IN_PROGRESS or from RETURNED after
// re-inspection.
func (r *MySQLCommandeRepository) MarkLivree(ctx context.Context, tx *sql.Tx, id string, facture *string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE commandes SET statut = ?, date_livraison = ?, facture = ?, updated_at = ?
		 WHERE id = ? AND statut IN (?, ?)`,
		string(domain.CommandeLivree), at, facture, at, id,
		string(domain.CommandeEnCours), string(domain.CommandeEnRetour),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("delivering commande", err)
	}
	return result.RowsAffected()
}

func (r *MySQLCommandeRepository) MarkEnRetour(ctx context.Context, tx *sql.Tx, id, raison string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE commandes SET statut = ?, raison_retour = ?, updated_at = ?
		 WHERE id = ? AND statut = ?`,
		string(domain.CommandeEnRetour), raison, at, id, string(domain.CommandeEnCours),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("marking commande returned", err)
	}
	return result.RowsAffected()
}

func (r *MySQLCommandeRepository) DeleteIfNonValidee(ctx context.Context, tx *sql.Tx, id, demandeurID string) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`DELETE FROM commandes WHERE id = ? AND demandeur_id = ? AND statut = ?`,
		id, demandeurID, string(domain.CommandeNonValidee),
	)
	if err != nil {
		return 0, apperrors.NewPersistenceError("deleting commande", err)
	}
	return result.RowsAffected()
}

func (r *MySQLCommandeRepository) ListFournisseurs(ctx context.Context) ([]domain.Fournisseur, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, nom, email, telephone, adresse FROM fournisseurs ORDER BY nom`,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying fournisseurs", err)
	}
	defer rows.Close()

	var fournisseurs []domain.Fournisseur
	for rows.Next() {
		var f domain.Fournisseur
		if err := rows.Scan(&f.ID, &f.Nom, &f.Email, &f.Telephone, &f.Adresse); err != nil {
			return nil, apperrors.NewPersistenceError("scanning fournisseur row", err)
		}
		fournisseurs = append(fournisseurs, f)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating fournisseur rows", err)
	}

	return fournisseurs, nil
}

func (r *MySQLCommandeRepository) FournisseurExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fournisseurs WHERE id = ?`, id,
	).Scan(&count)
	if err != nil {
		return false, apperrors.NewPersistenceError("checking fournisseur", err)
	}
	return count > 0, nil
}
