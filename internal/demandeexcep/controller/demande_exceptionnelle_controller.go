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
	"magasin/internal/demandeexcep/service"
	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
	"magasin/internal/middleware"
)

type ExceptionalWorkflow interface {
	Submit(ctx context.Context, demandeurID string, items []service.ItemExceptionnel) (*domain.DemandeExceptionnelle, error)
	Accept(ctx context.Context, demandeID, approbateurID string) (*domain.DemandeExceptionnelle, error)
	Reject(ctx context.Context, demandeID, approbateurID, raison string) (*domain.DemandeExceptionnelle, error)
	Revert(ctx context.Context, demandeID, approbateurID string) (*domain.DemandeExceptionnelle, error)
	Withdraw(ctx context.Context, demandeID, demandeurID string) error
	Get(ctx context.Context, demandeID string) (*domain.DemandeExceptionnelle, error)
	ListByStatut(ctx context.Context, statut domain.StatutDemandeExceptionnelle) ([]domain.DemandeExceptionnelle, error)
	ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.DemandeExceptionnelle, error)
}

type DemandeExceptionnelleController struct {
	workflow ExceptionalWorkflow
	logger   *zap.Logger
}

func NewDemandeExceptionnelleController(workflow ExceptionalWorkflow, logger *zap.Logger) *DemandeExceptionnelleController {
	return &DemandeExceptionnelleController{workflow: workflow, logger: logger}
}

type submitRequest struct {
	Items []struct {
		Nom         string  `json:"nom"`
		Marque      string  `json:"marque"`
		Description *string `json:"description,omitempty"`
		Quantite    int     `json:"quantite"`
	} `json:"items"`
}

type rejectRequest struct {
	Raison string `json:"raison"`
}

type itemResponse struct {
	Nom         string  `json:"nom"`
	Marque      string  `json:"marque"`
	Description *string `json:"description,omitempty"`
	Quantite    int     `json:"quantite"`
}

type demandeResponse struct {
	ID            string         `json:"id"`
	DemandeurID   string         `json:"demandeurId"`
	Statut        string         `json:"statut"`
	ApprobateurID *string        `json:"approbateurId,omitempty"`
	RaisonRejet   *string        `json:"raisonRejet,omitempty"`
	Produits      []itemResponse `json:"produits"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func toDemandeResponse(d *domain.DemandeExceptionnelle) demandeResponse {
	resp := demandeResponse{
		ID:            d.ID,
		DemandeurID:   d.DemandeurID,
		Statut:        string(d.Statut),
		ApprobateurID: d.ApprobateurID,
		RaisonRejet:   d.RaisonRejet,
		Produits:      []itemResponse{},
		CreatedAt:     d.CreatedAt,
	}
	for _, item := range d.Produits {
		resp.Produits = append(resp.Produits, itemResponse{
			Nom:         item.Nom,
			Marque:      item.Marque,
			Description: item.Description,
			Quantite:    item.Quantite,
		})
	}
	return resp
}

func (c *DemandeExceptionnelleController) Submit(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, c.logger, traceID, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	items := make([]service.ItemExceptionnel, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.ItemExceptionnel{
			Nom:         item.Nom,
			Marque:      item.Marque,
			Description: item.Description,
			Quantite:    item.Quantite,
		}
	}

	demande, err := c.workflow.Submit(r.Context(), claims.UserID, items)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusCreated, toDemandeResponse(demande))
}

func (c *DemandeExceptionnelleController) Accept(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	demande, err := c.workflow.Accept(r.Context(), chi.URLParam(r, "demandeId"), claims.UserID)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toDemandeResponse(demande))
}

func (c *DemandeExceptionnelleController) Reject(w http.ResponseWriter, r *http.Request) {
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

func (c *DemandeExceptionnelleController) Revert(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	demande, err := c.workflow.Revert(r.Context(), chi.URLParam(r, "demandeId"), claims.UserID)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toDemandeResponse(demande))
}

func (c *DemandeExceptionnelleController) Withdraw(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	if err := c.workflow.Withdraw(r.Context(), chi.URLParam(r, "demandeId"), claims.UserID); err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *DemandeExceptionnelleController) Get(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	demande, err := c.workflow.Get(r.Context(), chi.URLParam(r, "demandeId"))
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toDemandeResponse(demande))
}

func (c *DemandeExceptionnelleController) List(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	var demandes []domain.DemandeExceptionnelle
	var err error
	if claims.Role == domain.RoleDemandeur {
		demandes, err = c.workflow.ListByDemandeur(r.Context(), claims.UserID)
	} else if statut := r.URL.Query().Get("statut"); statut != "" {
		demandes, err = c.workflow.ListByStatut(r.Context(), domain.StatutDemandeExceptionnelle(statut))
	} else {
		demandes, err = c.workflow.ListByStatut(r.Context(), domain.DemandeExcepEnAttente)
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
