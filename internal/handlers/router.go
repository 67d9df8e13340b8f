package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mW "github.com/shrdaa/backend/internal/middleware"
	"github.com/shrdaa/backend/internal/models"
	"github.com/shrdaa/backend/internal/services"
)

// NewRouter wires every API route onto a chi router.
func NewRouter(ledger *services.LedgerService, auth *services.AuthService, receipts *services.ReceiptService, logger *slog.Logger) http.Handler {
	authHandler := NewAuthHandler(auth, logger)
	ledgerHandler := NewLedgerHandler(ledger, auth, logger)
	receiptHandler := NewReceiptHandler(receipts, logger)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mW.SecurityHeaders)
	r.Use(mW.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/projects", ledgerHandler.ListProjects)
		r.Get("/projects/{projectNo}/ledger", ledgerHandler.ProjectLedger)

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.Auth(auth, logger))

			r.Get("/accounts/me", ledgerHandler.Me)
			r.Get("/accounts/me/projects", ledgerHandler.MyProjects)
			r.Post("/transactions", ledgerHandler.CreateTransaction)
			r.Get("/transactions/{txNo}/receipt", receiptHandler.GetReceipt)

			r.With(mW.RequireRole(models.RoleGovtOfficer)).Post("/accounts", ledgerHandler.CreateAccount)
			r.With(mW.RequireRole(models.RoleGovtOfficer)).Post("/projects", ledgerHandler.CreateProject)

			r.With(mW.RequireRole(models.RoleAuditor)).Post("/transactions/{txNo}/verify", ledgerHandler.VerifyTransaction)
			r.With(mW.RequireRole(models.RoleAuditor)).Get("/chain/integrity", ledgerHandler.ChainIntegrity)
		})
	})

	return r
}
