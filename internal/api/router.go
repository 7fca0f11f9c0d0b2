package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medicos/m/domain"
	"medicos/m/internal/chatbot"
	"medicos/m/internal/checkout"
	"medicos/m/internal/inventory"
	"medicos/m/internal/ledger"
	"medicos/m/internal/logging"
	"medicos/m/internal/metrics"
	"medicos/m/internal/payment"
	"medicos/m/internal/users"
)

// ReceiptSender delivers a receipt synchronously.
type ReceiptSender interface {
	Send(ctx context.Context, sale domain.Sale) error
}

// Deps bundles what the handlers need. Simulator is set only when the
// in-memory gateway is active.
type Deps struct {
	Secret      string
	CORSOrigins []string

	Inventory *inventory.Store
	Ledger    *ledger.Ledger
	Checkout  *checkout.Service
	Receipts  ReceiptSender
	Users     *users.Store
	Chatbot   *chatbot.Bot
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Simulator *payment.Fake
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	Deps
}

// New constructs a Handler.
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	return &Handler{Deps: d}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	}))
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Get("/me", h.me)
			protected.Route("/staff", func(r chi.Router) {
				r.Use(h.requireRole(domain.RoleAdmin))
				r.Post("/", h.createStaff)
				r.Get("/", h.listStaff)
				r.Put("/{id}", h.updateStaff)
				r.Delete("/{id}", h.deactivateStaff)
			})
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.listMedicines)
			r.Get("/available", h.availableMedicines)
			r.Get("/{id}", h.getMedicine)
			r.Group(func(admin chi.Router) {
				admin.Use(h.requireRole(domain.RoleAdmin))
				admin.Post("/", h.createMedicine)
				admin.Put("/{id}", h.updateMedicine)
				admin.Delete("/{id}", h.deleteMedicine)
				admin.Post("/{id}/stock", h.restockMedicine)
			})
		})

		pr.Route("/payment", func(r chi.Router) {
			r.With(h.requireRole(domain.RoleStaff)).Post("/order", h.createOrder)
			r.With(h.requireRole(domain.RoleStaff)).Post("/verify", h.verifyPayment)
			r.With(h.requireRole(domain.RoleAdmin)).Get("/exceptions", h.listExceptions)
			if h.Simulator != nil {
				r.Post("/simulate/{orderID}", h.simulatePayment)
			}
		})

		pr.Route("/sales", func(r chi.Router) {
			r.With(h.requireRole(domain.RoleStaff)).Post("/", h.createSale)
			r.Get("/", h.listSales)
			r.Get("/{id}", h.getSale)
			r.With(h.requireRole(domain.RoleStaff)).Post("/{id}/receipt", h.resendReceipt)
		})

		pr.Get("/dashboard/stats", h.dashboardStats)
		pr.Post("/chat", h.chat)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger tags each request with an id, stores a request-scoped logger
// in the context and records the outcome.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		log := h.Logger.With(zap.String("request_id", reqID))
		ctx := logging.ContextWithLogger(r.Context(), log)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.Metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		log.Info("http_request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
