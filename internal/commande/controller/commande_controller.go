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
	"magasin/internal/commande/service"
	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
	"magasin/internal/middleware"
)

type CommandeWorkflow interface {
	Create(ctx context.Context, demandeurID string, req service.CreateCommande) (*domain.Commande, error)
	Validate(ctx context.Context, commandeID, validateurID string) (*domain.Commande, error)
	MarkInProgress(ctx context.Context, commandeID string) (*domain.Commande, error)
	Cancel(ctx context.Context, commandeID string) (*domain.Commande, error)
	Deliver(ctx context.Context, commandeID string, facture *string) (*domain.Commande, error)
	MarkReturned(ctx context.Context, commandeID, raison string) (*domain.Commande, error)
	Delete(ctx context.Context, commandeID, demandeurID string) error
	Get(ctx context.Context, commandeID string) (*domain.Commande, error)
	ListByStatut(ctx context.Context, statut domain.StatutCommande) ([]domain.Commande, error)
	ListByDemandeur(ctx context.Context, demandeurID string) ([]domain.Commande, error)
	ListFournisseurs(ctx context.Context) ([]domain.Fournisseur, error)
}

type CommandeController struct {
	workflow CommandeWorkflow
	logger   *zap.Logger
}

func NewCommandeController(workflow CommandeWorkflow, logger *zap.Logger) *CommandeController {
	return &CommandeController{workflow: workflow, logger: logger}
}

type createRequest struct {
	FournisseurID           string    `json:"fournisseurId"`
	DatePrevue              time.Time `json:"datePrevue"`
	DemandeExceptionnelleID *string   `json:"demandeExceptionnelleId,omitempty"`
	Items                   []struct {
		ProduitID string `json:"produitId"`
		Quantite  int    `json:"quantite"`
	} `json:"items"`
}

type deliverRequest struct {
	Facture *string `json:"facture,omitempty"`
}

type returnRequest struct {
	RaisonRetour string `json:"raisonRetour"`
}

type commandeItemResponse struct {
	ProduitID string `json:"produitId"`
	Quantite  int    `json:"quantite"`
}

type commandeResponse struct {
	ID            string                 `json:"id"`
	Statut        string                 `json:"statut"`
	FournisseurID string                 `json:"fournisseurId"`
	DemandeurID   string                 `json:"demandeurId"`
	ValidateurID  *string                `json:"validateurId,omitempty"`
	DatePrevue    time.Time              `json:"datePrevue"`
	DateLivraison *time.Time             `json:"dateLivraison,omitempty"`
	Facture       *string                `json:"facture,omitempty"`
	RaisonRetour  *string                `json:"raisonRetour,omitempty"`
	Produits      []commandeItemResponse `json:"produits"`
	CreatedAt     time.Time              `json:"createdAt"`
}

func toCommandeResponse(c *domain.Commande) commandeResponse {
	resp := commandeResponse{
		ID:            c.ID,
		Statut:        string(c.Statut),
		FournisseurID: c.FournisseurID,
		DemandeurID:   c.DemandeurID,
		ValidateurID:  c.ValidateurID,
		DatePrevue:    c.DatePrevue,
		DateLivraison: c.DateLivraison,
		Facture:       c.Facture,
		RaisonRetour:  c.RaisonRetour,
		Produits:      []commandeItemResponse{},
		CreatedAt:     c.CreatedAt,
	}
	for _, item := range c.Produits {
		resp.Produits = append(resp.Produits, commandeItemResponse{
			ProduitID: item.ProduitID,
			Quantite:  item.Quantite,
		})
	}
	return resp
}

func (c *CommandeController) Create(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, c.logger, traceID, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	create := service.CreateCommande{
		FournisseurID:           req.FournisseurID,
		DatePrevue:              req.DatePrevue,
		DemandeExceptionnelleID: req.DemandeExceptionnelleID,
	}
	for _, item := range req.Items {
		create.Items = append(create.Items, service.ItemCommande{
			ProduitID: item.ProduitID,
			Quantite:  item.Quantite,
		})
	}

	commande, err := c.workflow.Create(r.Context(), claims.UserID, create)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusCreated, toCommandeResponse(commande))
}

func (c *CommandeController) Validate(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	commande, err := c.workflow.Validate(r.Context(), chi.URLParam(r, "commandeId"), claims.UserID)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toCommandeResponse(commande))
}

func (c *CommandeController) MarkInProgress(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	commande, err := c.workflow.MarkInProgress(r.Context(), chi.URLParam(r, "commandeId"))
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toCommandeResponse(commande))
}

func (c *CommandeController) Cancel(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	commande, err := c.workflow.Cancel(r.Context(), chi.URLParam(r, "commandeId"))
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toCommandeResponse(commande))
}

func (c *CommandeController) Deliver(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	var req deliverRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, c.logger, traceID, apperrors.NewValidationError("invalid JSON body"))
			return
		}
	}

	commande, err := c.workflow.Deliver(r.Context(), chi.URLParam(r, "commandeId"), req.Facture)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toCommandeResponse(commande))
}

func (c *CommandeController) MarkReturned(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	var req returnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, c.logger, traceID, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	commande, err := c.workflow.MarkReturned(r.Context(), chi.URLParam(r, "commandeId"), req.RaisonRetour)
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toCommandeResponse(commande))
}

func (c *CommandeController) Delete(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	if err := c.workflow.Delete(r.Context(), chi.URLParam(r, "commandeId"), claims.UserID); err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *CommandeController) Get(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	commande, err := c.workflow.Get(r.Context(), chi.URLParam(r, "commandeId"))
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	api.WriteJSON(w, c.logger, http.StatusOK, toCommandeResponse(commande))
}

type fournisseurResponse struct {
	ID        string  `json:"id"`
	Nom       string  `json:"nom"`
	Email     *string `json:"email,omitempty"`
	Telephone *string `json:"telephone,omitempty"`
	Adresse   *string `json:"adresse,omitempty"`
}

func (c *CommandeController) ListFournisseurs(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	fournisseurs, err := c.workflow.ListFournisseurs(r.Context())
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	responses := make([]fournisseurResponse, len(fournisseurs))
	for i, f := range fournisseurs {
		responses[i] = fournisseurResponse{
			ID:        f.ID,
			Nom:       f.Nom,
			Email:     f.Email,
			Telephone: f.Telephone,
			Adresse:   f.Adresse,
		}
	}

	api.WriteJSON(w, c.logger, http.StatusOK, responses)
}

func (c *CommandeController) List(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	claims, _ := middleware.ClaimsFromContext(r.Context())

	var commandes []domain.Commande
	var err error
	if statut := r.URL.Query().Get("statut"); statut != "" {
		commandes, err = c.workflow.ListByStatut(r.Context(), domain.StatutCommande(statut))
	} else {
		commandes, err = c.workflow.ListByDemandeur(r.Context(), claims.UserID)
	}
	if err != nil {
		api.WriteError(w, c.logger, traceID, err)
		return
	}

	responses := make([]commandeResponse, len(commandes))
	for i := range commandes {
		responses[i] = toCommandeResponse(&commandes[i])
	}

	api.WriteJSON(w, c.logger, http.StatusOK, responses)
}
