package domain

import "time"

type StatutDemande string

const (
	DemandeEnAttente StatutDemande = "PENDING"
	DemandeApprouvee StatutDemande = "APPROVED"
	DemandeRejetee   StatutDemande = "REJECTED"
)

// demandeTransitions is the closed set of legal status moves. APPROVED back
// to PENDING is the approver's correction path; REJECTED is terminal.
var demandeTransitions = map[StatutDemande][]StatutDemande{
	DemandeEnAttente: {DemandeApprouvee, DemandeRejetee},
	DemandeApprouvee: {DemandeEnAttente},
	DemandeRejetee:   {},
}

func (s StatutDemande) CanTransition(to StatutDemande) bool {
	for _, next := range demandeTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Demande struct {
	ID            string
	DemandeurID   string
	Statut        StatutDemande
	ApprobateurID *string
	ApprovedAt    *time.Time
	RaisonRejet   *string
	Produits      []DemandeProduit
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type DemandeProduit struct {
	ID        string
	DemandeID string
	ProduitID string
	Quantite  int
}
