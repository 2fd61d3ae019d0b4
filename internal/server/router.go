package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	alertectrl "magasin/internal/alerte/controller"
	commandectrl "magasin/internal/commande/controller"
	"magasin/internal/config"
	demandectrl "magasin/internal/demande/controller"
	excepctrl "magasin/internal/demandeexcep/controller"
	"magasin/internal/domain"
	"magasin/internal/infrastructure/redis"
	"magasin/internal/middleware"
	notifctrl "magasin/internal/notification/controller"
)

type RouterDeps struct {
	Demandes      *demandectrl.DemandeController
	Exceptions    *excepctrl.DemandeExceptionnelleController
	Commandes     *commandectrl.CommandeController
	Alertes       *alertectrl.AlerteController
	Notifications *notifctrl.NotificationController
	TokenSvc      middleware.TokenValidator
	RedisClient   redis.Client
	Config        *config.Config
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RateLimiter(deps.RedisClient, deps.Config.RateLimit.MaxRequests, deps.Config.RateLimit.Period))

	approvers := middleware.RequireRoles(domain.RoleAdmin, domain.RoleGestionnaire)
	storekeepers := middleware.RequireRoles(domain.RoleAdmin, domain.RoleGestionnaire, domain.RoleMagasinier)
	admins := middleware.RequireRoles(domain.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.TokenSvc))

		r.Route("/demandes", func(r chi.Router) {
			r.Post("/", deps.Demandes.Submit)
			r.Get("/", deps.Demandes.List)
			r.Get("/{demandeId}", deps.Demandes.Get)
			r.Delete("/{demandeId}", deps.Demandes.Withdraw)

			r.Group(func(r chi.Router) {
				r.Use(approvers)
				r.Post("/{demandeId}/approve", deps.Demandes.Approve)
				r.Post("/{demandeId}/reject", deps.Demandes.Reject)
				r.Post("/{demandeId}/revert", deps.Demandes.Revert)
			})
		})

		r.Route("/demandes-exceptionnelles", func(r chi.Router) {
			r.Post("/", deps.Exceptions.Submit)
			r.Get("/", deps.Exceptions.List)
			r.Get("/{demandeId}", deps.Exceptions.Get)
			r.Delete("/{demandeId}", deps.Exceptions.Withdraw)

			r.Group(func(r chi.Router) {
				r.Use(approvers)
				r.Post("/{demandeId}/accept", deps.Exceptions.Accept)
				r.Post("/{demandeId}/reject", deps.Exceptions.Reject)
				r.Post("/{demandeId}/revert", deps.Exceptions.Revert)
			})
		})

		r.Route("/commandes", func(r chi.Router) {
			r.Use(storekeepers)
			r.Post("/", deps.Commandes.Create)
			r.Get("/", deps.Commandes.List)
			r.Get("/fournisseurs", deps.Commandes.ListFournisseurs)
			r.Get("/{commandeId}", deps.Commandes.Get)
			r.Delete("/{commandeId}", deps.Commandes.Delete)
			r.Post("/{commandeId}/validate", deps.Commandes.Validate)
			r.Post("/{commandeId}/cancel", deps.Commandes.Cancel)
			r.Post("/{commandeId}/in-progress", deps.Commandes.MarkInProgress)
			r.Post("/{commandeId}/deliver", deps.Commandes.Deliver)
			r.Post("/{commandeId}/return", deps.Commandes.MarkReturned)
		})

		r.Route("/alertes", func(r chi.Router) {
			r.Use(admins)
			r.Get("/", deps.Alertes.List)
			r.Delete("/{alerteId}", deps.Alertes.Dismiss)
			r.Post("/reconcile", deps.Alertes.Reconcile)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", deps.Notifications.List)
			r.Get("/unread-count", deps.Notifications.UnreadCount)
			r.Post("/{notificationId}/read", deps.Notifications.MarkRead)
		})
	})

	return r
}
