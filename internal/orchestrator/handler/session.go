package handler

import (
	"net/http"

	"bankops/internal/orchestrator/service"
	"bankops/internal/orchestrator/validator"
	"bankops/pkg/auth"
	apperrors "bankops/pkg/errors"
	httputil "bankops/pkg/http"
	"bankops/pkg/logger"
	"bankops/pkg/metrics"
	"bankops/pkg/middleware"
	"bankops/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SessionHandler struct {
	service   service.OrchestratorService
	validator *validator.RequestValidator
	collector metrics.Collector
	log       *logger.Logger
}

func NewSessionHandler(svc service.OrchestratorService, v *validator.RequestValidator, collector metrics.Collector, log *logger.Logger) *SessionHandler {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &SessionHandler{
		service:   svc,
		validator: v,
		collector: collector,
		log:       log,
	}
}

type confirmationResponse struct {
	Session      *service.SessionView `json:"session"`
	Confirmation *model.Confirmation  `json:"confirmation"`
}

func (h *SessionHandler) RegisterRoutes(router *httprouter.Router) {
	atm := []string{auth.RoleATM, auth.RoleAdmin}
	anyRole := []string{auth.RoleATM, auth.RoleClient, auth.RoleAdmin}

	routes := []struct {
		method string
		path   string
		handle httprouter.Handle
		roles  []string
	}{
		{http.MethodPost, "/api/v1/atm/sessions", h.AssignDevice, atm},
		{http.MethodPost, "/api/v1/atm/sessions/:id/card", h.VerifyCard, atm},
		{http.MethodPost, "/api/v1/atm/sessions/:id/pin", h.VerifyPin, atm},
		{http.MethodPost, "/api/v1/atm/sessions/:id/amount", h.EnterAmount, atm},
		{http.MethodPost, "/api/v1/atm/sessions/:id/submit", h.Submit, atm},
		{http.MethodPost, "/api/v1/atm/sessions/:id/confirmation", h.ConfirmPrint, atm},
		{http.MethodPost, "/api/v1/atm/sessions/:id/finish", h.Finish, atm},
		{http.MethodPost, "/api/v1/sessions/:id/cancel", h.Cancel, anyRole},
		{http.MethodGet, "/api/v1/sessions/:id", h.GetSession, anyRole},
		{http.MethodPost, "/api/v1/transfers", h.Transfer, []string{auth.RoleClient, auth.RoleAdmin}},
		{http.MethodGet, "/api/v1/transactions/:id/confirmation", h.FetchConfirmation, anyRole},
	}
	for _, rt := range routes {
		router.Handle(rt.method, rt.path,
			middleware.InstrumentRoute(h.collector, rt.method, rt.path, middleware.RequireRole(rt.handle, rt.roles...)))
	}
}

func (h *SessionHandler) AssignDevice(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req validator.AssignDeviceRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, "AssignDevice", &req) {
			return
		}
	}

	view, err := h.service.AssignDevice(r.Context(), req.DeviceID)
	h.respondCreated(w, "AssignDevice", view, err)
}

func (h *SessionHandler) VerifyCard(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req validator.VerifyCardRequest
	if !h.decode(w, r, "VerifyCard", &req) {
		return
	}

	view, err := h.service.VerifyCard(r.Context(), ps.ByName("id"), req.CardID)
	h.respond(w, "VerifyCard", view, err)
}

func (h *SessionHandler) VerifyPin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req validator.VerifyPinRequest
	if !h.decode(w, r, "VerifyPin", &req) {
		return
	}

	view, err := h.service.VerifyPin(r.Context(), ps.ByName("id"), req.Pin)
	h.respond(w, "VerifyPin", view, err)
}

func (h *SessionHandler) EnterAmount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req validator.EnterAmountRequest
	if !h.decode(w, r, "EnterAmount", &req) {
		return
	}

	view, err := h.service.EnterAmount(r.Context(), ps.ByName("id"),
		model.TransactionType(req.Operation), model.Amount(req.AmountMinor))
	h.respond(w, "EnterAmount", view, err)
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.Submit(r.Context(), ps.ByName("id"))
	h.respond(w, "Submit", view, err)
}

func (h *SessionHandler) ConfirmPrint(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, conf, err := h.service.ConfirmPrint(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ConfirmPrint", err)
		return
	}
	h.respond(w, "ConfirmPrint", confirmationResponse{Session: view, Confirmation: conf}, nil)
}

func (h *SessionHandler) Finish(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.Finish(r.Context(), ps.ByName("id"))
	h.respond(w, "Finish", view, err)
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, _ := auth.FromContext(r.Context())
	view, err := h.service.Cancel(r.Context(), identity, ps.ByName("id"))
	h.respond(w, "Cancel", view, err)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, _ := auth.FromContext(r.Context())
	view, err := h.service.GetSession(r.Context(), identity, ps.ByName("id"))
	h.respond(w, "GetSession", view, err)
}

func (h *SessionHandler) Transfer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req validator.TransferRequest
	if !h.decode(w, r, "Transfer", &req) {
		return
	}

	identity, _ := auth.FromContext(r.Context())
	view, err := h.service.Transfer(r.Context(), identity, service.TransferInput{
		SourceAccount: req.SourceAccount,
		Destination:   req.Destination,
		Amount:        model.Amount(req.AmountMinor),
	})
	h.respondCreated(w, "Transfer", view, err)
}

func (h *SessionHandler) FetchConfirmation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, _ := auth.FromContext(r.Context())
	conf, err := h.service.FetchConfirmation(r.Context(), identity, ps.ByName("id"))
	h.respond(w, "FetchConfirmation", conf, err)
}

// decode reads and validates the body into req, writing the error response
// itself when it reports false.
func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, name string, req any) bool {
	if err := httputil.DecodeJSON(r, req); err != nil {
		h.writeError(w, name, err)
		return false
	}
	if err := h.validator.Validate(req); err != nil {
		h.writeError(w, name, err)
		return false
	}
	return true
}

func (h *SessionHandler) respond(w http.ResponseWriter, name string, data any, err error) {
	if err != nil {
		h.writeError(w, name, err)
		return
	}
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *SessionHandler) respondCreated(w http.ResponseWriter, name string, data any, err error) {
	if err != nil {
		h.writeError(w, name, err)
		return
	}
	if err := httputil.WriteCreated(w, data); err != nil {
		h.log.Error("failed to write created response", "handler", name, "operation", "WriteCreated", "error", err)
	}
}

func (h *SessionHandler) writeError(w http.ResponseWriter, name string, err error) {
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error("Request failed", "handler", name, "error", err)
	}
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}
