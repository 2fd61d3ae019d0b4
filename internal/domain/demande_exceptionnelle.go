package domain

import "time"

type StatutDemandeExceptionnelle string

const (
	DemandeExcepEnAttente StatutDemandeExceptionnelle = "PENDING"
	DemandeExcepAcceptee  StatutDemandeExceptionnelle = "ACCEPTED"
	DemandeExcepCommandee StatutDemandeExceptionnelle = "ORDERED"
	DemandeExcepRejetee   StatutDemandeExceptionnelle = "REJECTED"
)

var demandeExcepTransitions = map[StatutDemandeExceptionnelle][]StatutDemandeExceptionnelle{
	DemandeExcepEnAttente: {DemandeExcepAcceptee, DemandeExcepRejetee},
	DemandeExcepAcceptee:  {DemandeExcepCommandee, DemandeExcepEnAttente},
	DemandeExcepCommandee: {},
	DemandeExcepRejetee:   {},
}

func (s StatutDemandeExceptionnelle) CanTransition(to StatutDemandeExceptionnelle) bool {
	for _, next := range demandeExcepTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// DemandeExceptionnelle requests goods that are not yet in the catalog, so
// its items carry free-form descriptors instead of product references.
type DemandeExceptionnelle struct {
	ID            string
	DemandeurID   string
	Statut        StatutDemandeExceptionnelle
	ApprobateurID *string
	ApprovedAt    *time.Time
	RaisonRejet   *string
	Produits      []ProduitExceptionnel
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ProduitExceptionnel struct {
	ID          string
	DemandeID   string
	Nom         string
	Marque      string
	Description *string
	Quantite    int
}
