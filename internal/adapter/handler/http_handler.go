package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/core/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the use cases exposed over HTTP.
type Services struct {
	Inventory *service.InventoryService
	Orders    *service.OrderService
	Alerts    *service.AlertService
	Analytics *service.AnalyticsGateway
	Health    Pinger
	Metrics   http.Handler
}

type Options struct {
	AuthSecret   string
	AuthRequired bool
	Development  bool
	CORSOrigins  []string
}

type HTTPHandler struct {
	inventory *service.InventoryService
	orders    *service.OrderService
	alerts    *service.AlertService
	analytics *service.AnalyticsGateway
	health    Pinger
	metrics   http.Handler
	opts      Options
}

func NewHTTPHandler(svc Services, opts Options) *HTTPHandler {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &HTTPHandler{
		inventory: svc.Inventory,
		orders:    svc.Orders,
		alerts:    svc.Alerts,
		analytics: svc.Analytics,
		health:    svc.Health,
		metrics:   svc.Metrics,
		opts:      opts,
	}
}

// Router wires up the HTTP API.
func (h *HTTPHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(h.identify)

		pr.Route("/entities", func(r chi.Router) {
			r.Get("/", h.listEntities)
			r.Post("/", h.createEntity)
		})

		pr.Route("/inventory", func(r chi.Router) {
			r.Get("/medicines", h.listMedicines)
			r.Post("/medicines", h.createMedicine)
			r.Post("/medicines/{id}/batches", h.addBatch)
			r.Post("/batches/{id}/adjust", h.adjustBatch)
		})

		pr.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Get("/{id}", h.getOrder)
			r.Patch("/{id}/status", h.transitionOrder)
		})

		pr.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.listAlerts)
			r.Post("/", h.createAlert)
		})

		pr.Route("/ai", func(r chi.Router) {
			r.Get("/forecast/{medicineId}", h.forecast)
			r.Get("/expiry-risk/{entityId}", h.expiryRisk)
		})
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			log.Printf("health check failed: %v", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Entities

func (h *HTTPHandler) listEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := h.inventory.ListEntities(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entities)
}

func (h *HTTPHandler) createEntity(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateEntityRequest
	if !h.decode(w, r, &req) {
		return
	}
	entity, err := h.inventory.CreateEntity(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entity)
}

// Inventory

func (h *HTTPHandler) listMedicines(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	medicines, err := h.inventory.ListMedicines(r.Context(), scope)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *HTTPHandler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMedicineRequest
	if !h.decode(w, r, &req) {
		return
	}
	medicine, err := h.inventory.CreateMedicine(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, medicine)
}

func (h *HTTPHandler) addBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.MedicineID = chi.URLParam(r, "id")
	if id, ok := identityFrom(r.Context()); ok && id.Role != domain.RoleSuperAdmin && req.EntityID != id.EntityID {
		h.respondError(w, domain.Unauthorizedf("batches can only be received into your own entity"))
		return
	}
	batch, err := h.inventory.AddBatch(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, batch)
}

func (h *HTTPHandler) adjustBatch(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req domain.AdjustBatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	batch, err := h.inventory.AdjustBatch(r.Context(), scope, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, batch)
}

// Orders

func (h *HTTPHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	orders, err := h.orders.List(r.Context(), scope, page)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *HTTPHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	order, err := h.orders.Get(r.Context(), scope, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if id, ok := identityFrom(r.Context()); ok && id.Role != domain.RoleSuperAdmin && req.FromEntityID != id.EntityID {
		h.respondError(w, domain.Unauthorizedf("orders can only be placed by your own entity"))
		return
	}
	order, err := h.orders.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *HTTPHandler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.TransitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if id, ok := identityFrom(r.Context()); ok && id.Role != domain.RoleSuperAdmin {
		if req.ActingEntityID == "" {
			req.ActingEntityID = id.EntityID
		}
		if req.ActingEntityID != id.EntityID {
			h.respondError(w, domain.Unauthorizedf("cannot act on behalf of entity %s", req.ActingEntityID))
			return
		}
	}
	if err := req.Validate(); err != nil {
		h.respondError(w, err)
		return
	}
	target, _ := domain.ParseOrderStatus(req.Status)
	expected, _ := domain.ParseOrderStatus(req.ExpectedStatus)

	order, err := h.orders.Transition(r.Context(), chi.URLParam(r, "id"), target, req.ActingEntityID, expected)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Alerts

func (h *HTTPHandler) listAlerts(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entityId")
	if id, ok := identityFrom(r.Context()); ok && id.Role != domain.RoleSuperAdmin {
		if entityID == "" {
			entityID = id.EntityID
		}
		if entityID != id.EntityID {
			h.respondError(w, domain.Unauthorizedf("alerts of entity %s are not visible", entityID))
			return
		}
	}
	alerts, err := h.alerts.List(r.Context(), entityID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (h *HTTPHandler) createAlert(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAlertRequest
	if !h.decode(w, r, &req) {
		return
	}
	if id, ok := identityFrom(r.Context()); ok && id.Role != domain.RoleSuperAdmin && req.EntityID != id.EntityID {
		h.respondError(w, domain.Unauthorizedf("alerts may only be raised for the caller's own entity"))
		return
	}
	alert, err := h.alerts.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, alert)
}

// Analytics never fails on the provider: an unavailable provider is reported
// in the body. Demand forecasts are medicine-wide; expiry risk is entity data
// and follows the same own-entity rule as alerts.

func (h *HTTPHandler) forecast(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.analytics.PredictDemand(r.Context(), chi.URLParam(r, "medicineId")))
}

func (h *HTTPHandler) expiryRisk(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityId")
	if id, ok := identityFrom(r.Context()); ok && id.Role != domain.RoleSuperAdmin && entityID != id.EntityID {
		h.respondError(w, domain.Unauthorizedf("expiry risk of entity %s is not visible", entityID))
		return
	}
	respondJSON(w, http.StatusOK, h.analytics.AnalyzeExpiryRisk(r.Context(), entityID))
}

func parsePage(r *http.Request) (domain.Page, error) {
	var page domain.Page
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, domain.Validationf("limit must be a non-negative integer")
		}
		page.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, domain.Validationf("offset must be a non-negative integer")
		}
		page.Offset = n
	}
	return page, nil
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		h.respondError(w, &domain.Error{Kind: domain.KindValidation, Message: msg, Err: err})
		return false
	}
	return true
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

type errorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, err error) {
	status := statusFor(domain.KindOf(err))
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	resp := errorResponse{Message: domain.MessageOf(err)}
	if h.opts.Development {
		resp.Detail = err.Error()
	}
	respondJSON(w, status, resp)
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidTransition, domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
