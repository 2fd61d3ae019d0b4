package stock

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
)

// DeriveStatus is the single source of truth for a product's stock status.
// Callers never set the statut column directly; every mutation goes through
// the ledger so the derived value and the quantity can never diverge.
func DeriveStatus(quantite, quantiteMinimale int) domain.StatutProduit {
	switch {
	case quantite == 0:
		return domain.ProduitEnRupture
	case quantite <= quantiteMinimale:
		return domain.ProduitCritique
	default:
		return domain.ProduitNormal
	}
}

// Ledger owns the quantite column of produits. Reserve and Release run inside
// the caller's transaction so a failed workflow transition rolls back the
// stock change with it.
type Ledger struct {
	logger *zap.Logger
}

func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{logger: logger}
}

// Reserve decrements a product's quantity, failing with InsufficientStock if
// the current quantity cannot cover the amount. The guard is the conditional
// UPDATE itself, so the quantity never goes negative even under a race.
func (l *Ledger) Reserve(ctx context.Context, tx *sql.Tx, produitID string, amount int) error {
	if amount <= 0 {
		return apperrors.NewValidationError("reserve amount must be positive")
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE produits SET quantite = quantite - ? WHERE id = ? AND quantite >= ?`,
		amount, produitID, amount,
	)
	if err != nil {
		return apperrors.NewPersistenceError("reserving stock", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewPersistenceError("getting rows affected", err)
	}

	if rowsAffected == 0 {
		quantite, _, err := l.readQuantities(ctx, tx, produitID)
		if err != nil {
			return err
		}
		l.logger.Warn("insufficient stock",
			zap.String("produitId", produitID),
			zap.Int("requested", amount),
			zap.Int("available", quantite),
		)
		return apperrors.NewInsufficientStockError(
			fmt.Sprintf("insufficient stock for product %s", produitID),
			apperrors.ShortageItem{ProduitID: produitID, Requested: amount, Available: quantite},
		)
	}

	return l.rederiveStatus(ctx, tx, produitID)
}

// Release increments a product's quantity. Used on order delivery and on
// approval reverts; no upper bound is enforced.
func (l *Ledger) Release(ctx context.Context, tx *sql.Tx, produitID string, amount int) error {
	if amount <= 0 {
		return apperrors.NewValidationError("release amount must be positive")
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE produits SET quantite = quantite + ? WHERE id = ?`,
		amount, produitID,
	)
	if err != nil {
		return apperrors.NewPersistenceError("releasing stock", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewPersistenceError("getting rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", produitID))
	}

	return l.rederiveStatus(ctx, tx, produitID)
}

// Available reports the current quantity of a product inside the caller's
// transaction. Workflows use it to assemble a full shortage list before
// reserving anything.
func (l *Ledger) Available(ctx context.Context, tx *sql.Tx, produitID string) (int, error) {
	quantite, _, err := l.readQuantities(ctx, tx, produitID)
	return quantite, err
}

func (l *Ledger) readQuantities(ctx context.Context, tx *sql.Tx, produitID string) (int, int, error) {
	var quantite, quantiteMinimale int
	err := tx.QueryRowContext(ctx,
		`SELECT quantite, quantite_minimale FROM produits WHERE id = ?`,
		produitID,
	).Scan(&quantite, &quantiteMinimale)

	if err == sql.ErrNoRows {
		return 0, 0, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", produitID))
	}
	if err != nil {
		return 0, 0, apperrors.NewPersistenceError("reading product quantities", err)
	}

	return quantite, quantiteMinimale, nil
}

func (l *Ledger) rederiveStatus(ctx context.Context, tx *sql.Tx, produitID string) error {
	quantite, quantiteMinimale, err := l.readQuantities(ctx, tx, produitID)
	if err != nil {
		return err
	}

	statut := DeriveStatus(quantite, quantiteMinimale)
	if _, err := tx.ExecContext(ctx,
		`UPDATE produits SET statut = ? WHERE id = ?`,
		string(statut), produitID,
	); err != nil {
		return apperrors.NewPersistenceError("updating product status", err)
	}

	return nil
}
