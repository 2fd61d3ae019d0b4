package domain

import "time"

type TypeAlerte string

const (
	AlerteRupture  TypeAlerte = "OUT_OF_STOCK"
	AlerteCritique TypeAlerte = "CRITICAL"
)

// Alerte is engine-owned: at most one live alerte per (produit, type).
type Alerte struct {
	ID          string
	ProduitID   string
	TypeAlerte  TypeAlerte
	Description string
	CreatedAt   time.Time
}
