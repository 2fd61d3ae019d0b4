package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"magasin/internal/api"
	"magasin/internal/domain"
)

type AlerteEngine interface {
	Reconcile(ctx context.Context, produitIDs ...string) error
	List(ctx context.Context) ([]domain.Alerte, error)
	Dismiss(ctx context.Context, id string) error
}

type AlerteController struct {
	engine AlerteEngine
	logger *zap.Logger
}

func NewAlerteController(engine AlerteEngine, logger *zap.Logger) *AlerteController {
	return &AlerteController{engine: engine, logger: logger}
}

type alerteResponse struct {
	ID          string    `json:"id"`
	ProduitID   string    `json:"produitId"`
	TypeAlerte  string    `json:"typeAlerte"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c *AlerteController) List(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	alertes, err := c.engine.List(r.Context())
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	responses := make([]alerteResponse, len(alertes))
	for i, a := range alertes {
		responses[i] = alerteResponse{
			ID:          a.ID,
			ProduitID:   a.ProduitID,
			TypeAlerte:  string(a.TypeAlerte),
			Description: a.Description,
			CreatedAt:   a.CreatedAt,
		}
	}

	api.WriteJSON(w, c.logger, http.StatusOK, responses)
}

func (c *AlerteController) Dismiss(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	if err := c.engine.Dismiss(r.Context(), chi.URLParam(r, "alerteId")); err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reconcile triggers a full sweep on demand, mirroring what the periodic
// background sweep does.
func (c *AlerteController) Reconcile(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	if err := c.engine.Reconcile(r.Context()); err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
