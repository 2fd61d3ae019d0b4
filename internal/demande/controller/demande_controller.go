package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"magasin/internal/api"
	"magasin/internal/demande/service"
	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
	"magasin/internal/middleware"
)

type DemandeWorkflow interface {
	Submit(ctx context.Context, demandeurID string, items []service.ItemDemande) (*domain.Demande, error)
	Approve(ctx context.Context, demandeID, approbateurID string) (*domain.Demande, error)
	Reject(ctx context.Context, demandeID, approbateurID, raison string) (*domain.Demande, error)
	Revert(ctx context.Context, demandeID, approbateurID string) (*domain.Demande, error)
	Withdraw(ctx context.Context, demandeID, demandeurID string) error
	Get(ctx context.Context, demandeID string) (*domain.Demande, error)
	ListByStatut(ctx context.Context, statut domain.StatutDemande) ([]domain.Demande, error)
	ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.Demande, error)
}

type DemandeController struct {
	workflow DemandeWorkflow
	logger   *zap.Logger
}

func NewDemandeController(workflow DemandeWorkflow, logger *zap.Logger) *DemandeController {
	return &DemandeController{workflow: workflow, logger: logger}
}

type submitRequest struct {
	Items []struct {
		ProduitID string `json:"produitId"`
		Quantite  int    `json:"quantite"`
	} `json:"items"`
}

type rejectRequest struct {
	Raison string `json:"raison"`
}

type demandeItemResponse struct {
	ProduitID string `json:"produitId"`
	Quantite  int    `json:"quantite"`
}

type demandeResponse struct {
	ID            string                `json:"id"`
	DemandeurID   string                `json:"demandeurId"`
	Statut        string                `json:"statut"`
	ApprobateurID *string               `json:"approbateurId,omitempty"`
	ApprovedAt    *time.Time            `json:"approvedAt,omitempty"`
	RaisonRejet   *string               `json:"raisonRejet,omitempty"`
	Produits      []demandeItemResponse `json:"produits"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func toDemandeResponse(d *domain.Demande) demandeResponse {
	resp := demandeResponse{
		ID:            d.ID,
		DemandeurID:   d.DemandeurID,
		Statut:        string(d.Statut),
		ApprobateurID: d.ApprobateurID,
		ApprovedAt:    d.ApprovedAt,
		RaisonRejet:   d.RaisonRejet,
		Produits:      []demandeItemResponse{},
		CreatedAt:     d.CreatedAt,
	}
	for _, item := range d.Produits {
		resp.Produits = append(resp.Produits, demandeItemResponse{
			ProduitID: item.ProduitID,
			Quantite:  item.Quantite,
		})
	}
	return resp
}

func (c *DemandeController) Submit(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		api.WriteError(w, c.logger, traceID, apperrors.NewUnauthorizedError("authorization required"))
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, c.logger, traceID, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	items := make([]service.ItemDemande, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.ItemDemande{ProduitID: item.ProduitID, Quantite: item.Quantite}
	}

	demande, err := c.workflow.Submit(r.Context(), claims.UserID, items)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusCreated, toDemandeResponse(demande))
}

func (c *DemandeController) Approve(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	demande, err := c.workflow.Approve(r.Context(), chi.URLParam(r, "demandeId"), claims.UserID)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toDemandeResponse(demande))
}

func (c *DemandeController) Reject(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, c.logger, traceID, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	demande, err := c.workflow.Reject(r.Context(), chi.URLParam(r, "demandeId"), claims.UserID, req.Raison)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toDemandeResponse(demande))
}

func (c *DemandeController) Revert(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	demande, err := c.workflow.Revert(r.Context(), chi.URLParam(r, "demandeId"), claims.UserID)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toDemandeResponse(demande))
}

func (c *DemandeController) Withdraw(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	if err := c.workflow.Withdraw(r.Context(), chi.URLParam(r, "demandeId"), claims.UserID); err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *DemandeController) Get(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	demande, err := c.workflow.Get(r.Context(), chi.URLParam(r, "demandeId"))
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toDemandeResponse(demande))
}

func (c *DemandeController) List(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	var demandes []domain.Demande
	var err error
	if claims.Role == domain.RoleDemandeur {
		demandes, err = c.workflow.ListByDemandeur(r.Context(), claims.UserID)
	} else if statut := r.URL.Query().Get("statut"); statut != "" {
		demandes, err = c.workflow.ListByStatut(r.Context(), domain.StatutDemande(statut))
	} else {
		demandes, err = c.workflow.ListByStatut(r.Context(), domain.DemandeEnAttente)
	}
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	responses := make([]demandeResponse, len(demandes))
	for i := range demandes {
		responses[i] = toDemandeResponse(&demandes[i])
	}

	api.WriteJSON(w, c.logger, http.StatusOK, responses)
}
