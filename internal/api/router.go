// Package api implements the agrotwin HTTP API: session lifecycle, wallet
// and investment ledger, cart and checkout, notifications, bookings and the
// read-only catalog.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Eblazecode/Agrolinkernew/internal/auth"
	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
	"github.com/Eblazecode/Agrolinkernew/internal/store"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
)

// Handler holds all API handler state.
type Handler struct {
	store   *store.MemoryStore
	catalog catalog.Repository
	mw      *twincore.Middleware
	issuer  *auth.Issuer
	logger  *slog.Logger
}

func NewHandler(s *store.MemoryStore, mw *twincore.Middleware, issuer *auth.Issuer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: s, catalog: s.Catalog(), mw: mw, issuer: issuer, logger: logger}
}

// Routes mounts the API under /v1.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(h.mw.FaultInjection)

		// Catalog is public.
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/projects", h.ListProjects)
			r.Get("/projects/{id}", h.GetProject)
			r.Get("/projects/{id}/projection", h.ProjectProject)
			r.Get("/trees", h.ListTrees)
			r.Get("/trees/{id}", h.GetTree)
			r.Get("/trees/{id}/projection", h.ProjectTree)
			r.Get("/products", h.ListProducts)
			r.Get("/products/{id}", h.GetProduct)
			r.Get("/equipment", h.ListEquipment)
			r.Get("/storage", h.ListFacilities)
			r.Get("/farmers", h.ListFarmers)
			r.Get("/logistics", h.GetLogisticsOptions)
		})

		r.Post("/sessions", h.CreateSession)

		r.Group(func(r chi.Router) {
			r.Use(h.issuer.Middleware(h.authError))

			r.Get("/session", h.GetSession)
			r.Delete("/session", h.EndSession)
			r.Post("/session/login", h.Login)
			r.Post("/session/register", h.Register)
			r.Post("/session/logout", h.Logout)

			r.Get("/wallet", h.GetWallet)
			r.Post("/wallet/credit", h.Credit)
			r.Post("/wallet/debit", h.Debit)

			r.Get("/investments", h.ListInvestments)
			r.Post("/investments", h.CreateInvestment)
			r.Get("/investments/{id}", h.GetInvestment)
			r.Post("/investments/{id}/mature", h.MatureInvestment)
			r.Post("/investments/{id}/withdraw", h.WithdrawInvestment)
			r.Get("/portfolio", h.GetPortfolio)

			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/items", h.AddCartItem)
			r.Patch("/cart/items/{productID}", h.UpdateCartItem)
			r.Delete("/cart/items/{productID}", h.RemoveCartItem)
			r.With(h.mw.Idempotency(sessionScope)).Post("/cart/checkout", h.Checkout)
			r.Get("/orders", h.ListOrders)

			r.Get("/notifications", h.ListNotifications)
			r.Post("/notifications", h.PushNotification)
			r.Delete("/notifications", h.ClearNotifications)
			r.Post("/notifications/{id}/read", h.MarkNotificationRead)

			r.Get("/bookings", h.ListBookings)
			r.Post("/bookings/equipment", h.BookEquipment)
			r.Post("/bookings/storage", h.BookStorage)

			r.Get("/logistics", h.ListShipments)
			r.Post("/logistics", h.RequestLogistics)

			r.Get("/wizard", h.GetWizard)
			r.Delete("/wizard", h.ResetWizard)
			r.Post("/wizard/steps", h.SubmitWizardStep)
			r.Post("/wizard/back", h.WizardBack)
			r.Post("/wizard/confirm", h.ConfirmContract)
			r.Get("/contracts", h.ListContracts)

			r.Get("/funding-requests", h.ListFundingRequests)
			r.Post("/funding-requests", h.SubmitFundingRequest)
		})
	})
}

// sessionScope keys idempotent replays per session.
func sessionScope(r *http.Request) string {
	sid, _ := auth.SessionFrom(r.Context())
	return sid
}
