package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatutCommande_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from StatutCommande
		to   StatutCommande
		want bool
	}{
		{"unvalidated to validated", CommandeNonValidee, CommandeValidee, true},
		{"unvalidated to cancelled", CommandeNonValidee, CommandeAnnulee, true},
		{"unvalidated straight to in progress", CommandeNonValidee, CommandeEnCours, false},
		{"validated to in progress", CommandeValidee, CommandeEnCours, true},
		{"validated to cancelled", CommandeValidee, CommandeAnnulee, true},
		{"in progress to delivered", CommandeEnCours, CommandeLivree, true},
		{"in progress to returned", CommandeEnCours, CommandeEnRetour, true},
		{"returned to delivered after re-inspection", CommandeEnRetour, CommandeLivree, true},
		{"returned cannot be cancelled", CommandeEnRetour, CommandeAnnulee, false},
		{"delivered is terminal", CommandeLivree, CommandeEnRetour, false},
		{"cancelled is terminal", CommandeAnnulee, CommandeValidee, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}
