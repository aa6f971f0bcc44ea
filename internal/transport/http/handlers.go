// @title FleetWorks API
// @version 1.0.0
// @description Fleet maintenance management service

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fleetworks/fleetworks/internal/audit"
	"github.com/fleetworks/fleetworks/internal/auth"
	"github.com/fleetworks/fleetworks/internal/billing"
	"github.com/fleetworks/fleetworks/internal/company"
	"github.com/fleetworks/fleetworks/internal/fleet"
	"github.com/fleetworks/fleetworks/internal/identity"
	"github.com/fleetworks/fleetworks/internal/observability/logger"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	companyService  *company.Service
	fleetService    *fleet.Service
	billingService  *billing.Service
	guard           *auth.Guard
	tokenCodec      *auth.TokenCodec
	auditLogger     audit.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	companyService *company.Service,
	fleetService *fleet.Service,
	billingService *billing.Service,
	guard *auth.Guard,
	tokenCodec *auth.TokenCodec,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		identityService: identityService,
		companyService:  companyService,
		fleetService:    fleetService,
		billingService:  billingService,
		guard:           guard,
		tokenCodec:      tokenCodec,
		auditLogger:     auditLogger,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/auth/login", h.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.GetCurrentUser)
			r.Post("/auth/change-password", h.ChangePassword)

			r.Route("/users", func(r chi.Router) {
				r.Post("/", h.ProvisionUser)
				r.Get("/", h.ListUsers)
				r.Get("/{userID}", h.GetUser)
				r.Patch("/{userID}", h.PatchUser)
				r.Delete("/{userID}", h.DeleteUser)
			})

			r.Route("/companies", func(r chi.Router) {
				r.Post("/", h.CreateCompany)
				r.Get("/", h.ListCompanies)
				r.Route("/{companyID}", func(r chi.Router) {
					r.Get("/", h.GetCompany)
					r.Put("/", h.UpdateCompany)
					r.Delete("/", h.DeleteCompany)
					r.Get("/machines", h.ListCompanyMachines)
					r.Get("/maintenances", h.ListCompanyMaintenances)
					r.Get("/invoices", h.ListCompanyInvoices)
				})
			})

			r.Route("/machines", func(r chi.Router) {
				r.Post("/", h.RegisterMachine)
				r.Get("/", h.ListMachines)
				r.Route("/{machineID}", func(r chi.Router) {
					r.Get("/", h.GetMachine)
					r.Put("/", h.UpdateMachine)
					r.Delete("/", h.DeleteMachine)
					r.Post("/maintenances", h.ScheduleMaintenance)
					r.Get("/maintenances", h.ListMachineMaintenances)
				})
			})

			r.Route("/maintenances/{maintenanceID}", func(r chi.Router) {
				r.Get("/", h.GetMaintenance)
				r.Put("/", h.UpdateMaintenance)
				r.Post("/complete", h.CompleteMaintenance)
				r.Delete("/", h.DeleteMaintenance)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Post("/", h.IssueInvoice)
				r.Get("/", h.ListInvoices)
				r.Route("/{invoiceID}", func(r chi.Router) {
					r.Get("/", h.GetInvoice)
					r.Post("/pay", h.MarkInvoicePaid)
					r.Post("/void", h.VoidInvoice)
				})
			})
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "fleetworks",
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username" example:"jdoe"`
	Password string `json:"password" example:"secret123"`
}

// Login authenticates a user and issues a bearer token
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrAccountLocked) {
			respondError(w, http.StatusUnauthorized, "account is locked")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokenCodec.Issue(user.Identity(), h.tokenCodec.DefaultTTL())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"user_id":    user.ID,
		"role":       user.Role,
		"company_id": user.CompanyID,
		"expires_in": int(h.tokenCodec.DefaultTTL().Seconds()),
	})
}

// GetCurrentUser returns the authenticated user
// @Summary Get Current User
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /auth/me [get]
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())

	user, err := h.identityService.Get(r.Context(), ident.UserID)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, userResponse(user))
}

// ChangePasswordRequest represents password change data
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword changes the caller's password
// @Summary Change Password
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/change-password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.identityService.ChangePassword(r.Context(), ident.UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "invalid old password")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "new password does not meet security requirements")
		default:
			respondError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password changed successfully",
	})
}

// respondDenial translates guard denials into status codes. The mapping is
// exhaustive over the denial taxonomy; anything unrecognized is a dependency
// failure and fails closed as 500.
func respondDenial(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, auth.ErrPrivilegeEscalation):
		respondError(w, http.StatusForbidden, "privilege escalation attempt")
	case errors.Is(err, auth.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		respondError(w, http.StatusInternalServerError, "authorization check failed")
	}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
