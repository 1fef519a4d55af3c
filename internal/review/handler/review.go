package handler

import (
	"net/http"

	ledger "bankops/internal/ledger/service"
	"bankops/internal/orchestrator/validator"
	"bankops/internal/review/service"
	"bankops/pkg/auth"
	httputil "bankops/pkg/http"
	"bankops/pkg/logger"
	"bankops/pkg/metrics"
	"bankops/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type ReviewHandler struct {
	service   service.ReviewService
	validator *validator.RequestValidator
	collector metrics.Collector
	log       *logger.Logger
}

func NewReviewHandler(svc service.ReviewService, v *validator.RequestValidator, collector metrics.Collector, log *logger.Logger) *ReviewHandler {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &ReviewHandler{
		service:   svc,
		validator: v,
		collector: collector,
		log:       log,
	}
}

type reasonResponse struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

func (h *ReviewHandler) RegisterRoutes(router *httprouter.Router) {
	h.handle(router, http.MethodGet, "/api/v1/aml/transactions", h.ListPending)
	h.handle(router, http.MethodGet, "/api/v1/aml/reason", h.Reason)
	h.handle(router, http.MethodPost, "/api/v1/aml/accept", h.decide(ledger.DecisionAccept))
	h.handle(router, http.MethodPost, "/api/v1/aml/reject", h.decide(ledger.DecisionReject))
}

func (h *ReviewHandler) handle(router *httprouter.Router, method, path string, handle httprouter.Handle) {
	router.Handle(method, path,
		middleware.InstrumentRoute(h.collector, method, path, middleware.RequireRole(handle, auth.RoleAML)))
}

func (h *ReviewHandler) ListPending(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListPending", err)
		return
	}

	pending, total, err := h.service.ListPending(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListPending", err)
		return
	}

	if err := httputil.WritePaginated(w, pending, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListPending", "operation", "WritePaginated", "error", err)
	}
}

func (h *ReviewHandler) Reason(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("id")
	reason, err := h.service.Reason(r.Context(), id)
	if err != nil {
		h.writeError(w, "Reason", err)
		return
	}

	if err := httputil.WriteSuccess(w, reasonResponse{TransactionID: id, Reason: reason}); err != nil {
		h.log.Error("failed to write success response", "handler", "Reason", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReviewHandler) decide(decision ledger.Decision) httprouter.Handle {
	name := "Decide" + string(decision)
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req validator.DecisionRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.writeError(w, name, err)
			return
		}
		if err := h.validator.Validate(&req); err != nil {
			h.writeError(w, name, err)
			return
		}

		result, err := h.service.Decide(r.Context(), req.ID, decision, req.Note)
		if err != nil {
			h.writeError(w, name, err)
			return
		}

		h.log.Info("Review decision recorded",
			"transaction_id", result.TransactionID,
			"decision", decision,
			"status", result.Status,
		)
		if err := httputil.WriteSuccess(w, result); err != nil {
			h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
		}
	}
}

func (h *ReviewHandler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}
