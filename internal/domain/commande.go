package domain

import "time"

type StatutCommande string

const (
	CommandeNonValidee StatutCommande = "UNVALIDATED"
	CommandeValidee    StatutCommande = "VALIDATED"
	CommandeEnCours    StatutCommande = "IN_PROGRESS"
	CommandeLivree     StatutCommande = "DELIVERED"
	CommandeEnRetour   StatutCommande = "RETURNED"
	CommandeAnnulee    StatutCommande = "CANCELLED"
)

// A returned commande may be delivered again after re-inspection.
// DELIVERED and CANCELLED are terminal.
var commandeTransitions = map[StatutCommande][]StatutCommande{
	CommandeNonValidee: {CommandeValidee, CommandeAnnulee},
	CommandeValidee:    {CommandeEnCours, CommandeAnnulee},
	CommandeEnCours:    {CommandeLivree, CommandeEnRetour, CommandeAnnulee},
	CommandeEnRetour:   {CommandeLivree},
	CommandeLivree:     {},
	CommandeAnnulee:    {},
}

func (s StatutCommande) CanTransition(to StatutCommande) bool {
	for _, next := range commandeTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Commande struct {
	ID            string
	Statut        StatutCommande
	FournisseurID string
	DemandeurID   string
	ValidateurID  *string
	DatePrevue    time.Time
	DateLivraison *time.Time
	Facture       *string
	RaisonRetour  *string
	Produits      []CommandeProduit
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CommandeProduit struct {
	ID         string
	CommandeID string
	ProduitID  string
	Quantite   int
}
