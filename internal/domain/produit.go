package domain

import "time"

type StatutProduit string

const (
	ProduitNormal    StatutProduit = "NORMAL"
	ProduitCritique  StatutProduit = "CRITICAL"
	ProduitEnRupture StatutProduit = "OUT_OF_STOCK"
)

type Produit struct {
	ID               string
	Nom              string
	Marque           string
	Quantite         int
	QuantiteMinimale int
	Statut           StatutProduit
	CategorieID      string
	Remarque         *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Fournisseur is reference data: rows are seeded by migrations and listed
// for the purchase order form, never mutated by the workflows.
type Fournisseur struct {
	ID        string
	Nom       string
	Email     *string
	Telephone *string
	Adresse   *string
}
