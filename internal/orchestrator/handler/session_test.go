package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bankops/internal/orchestrator/service"
	"bankops/internal/orchestrator/validator"
	"bankops/pkg/auth"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/logger"
	"bankops/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// mockOrchestrator implements only what the tests call; the embedded nil
// interface panics on anything else.
type mockOrchestrator struct {
	service.OrchestratorService
	assignFunc   func(ctx context.Context, deviceID string) (*service.SessionView, error)
	amountFunc   func(ctx context.Context, id string, op model.TransactionType, amount model.Amount) (*service.SessionView, error)
	transferFunc func(ctx context.Context, identity *auth.Identity, in service.TransferInput) (*service.SessionView, error)
	submitFunc   func(ctx context.Context, id string) (*service.SessionView, error)
	getFunc      func(ctx context.Context, identity *auth.Identity, id string) (*service.SessionView, error)
}

func (m *mockOrchestrator) AssignDevice(ctx context.Context, deviceID string) (*service.SessionView, error) {
	return m.assignFunc(ctx, deviceID)
}

func (m *mockOrchestrator) EnterAmount(ctx context.Context, id string, op model.TransactionType, amount model.Amount) (*service.SessionView, error) {
	return m.amountFunc(ctx, id, op, amount)
}

func (m *mockOrchestrator) Transfer(ctx context.Context, identity *auth.Identity, in service.TransferInput) (*service.SessionView, error) {
	return m.transferFunc(ctx, identity, in)
}

func (m *mockOrchestrator) Submit(ctx context.Context, id string) (*service.SessionView, error) {
	return m.submitFunc(ctx, id)
}

func (m *mockOrchestrator) GetSession(ctx context.Context, identity *auth.Identity, id string) (*service.SessionView, error) {
	return m.getFunc(ctx, identity, id)
}

func newTestRouter(svc service.OrchestratorService) *httprouter.Router {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	h := NewSessionHandler(svc, validator.NewRequestValidator(log), nil, log)
	router := httprouter.New()
	h.RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, path, body string, identity *auth.Identity) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var atmIdentity = &auth.Identity{UserID: "atm-terminal", Role: auth.RoleATM}

func TestAssignDevice_EmptyBodyPicksAnyDevice(t *testing.T) {
	var got string
	router := newTestRouter(&mockOrchestrator{
		assignFunc: func(_ context.Context, deviceID string) (*service.SessionView, error) {
			got = deviceID
			return &service.SessionView{SessionID: "s-1", State: model.StateDeviceAssigned, DeviceID: "atm-1"}, nil
		},
	})

	rec := do(router, http.MethodPost, "/api/v1/atm/sessions", "", atmIdentity)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if got != "" {
		t.Errorf("device id = %q, want empty", got)
	}

	var resp struct {
		Data service.SessionView `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.SessionID != "s-1" || resp.Data.State != model.StateDeviceAssigned {
		t.Errorf("response = %+v", resp.Data)
	}
}

func TestEnterAmount_Validation(t *testing.T) {
	called := false
	router := newTestRouter(&mockOrchestrator{
		amountFunc: func(_ context.Context, id string, op model.TransactionType, amount model.Amount) (*service.SessionView, error) {
			called = true
			return &service.SessionView{SessionID: id, State: model.StateAmountEntered, AmountMinor: int64(amount)}, nil
		},
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCall   bool
	}{
		{"valid withdrawal", `{"operation":"withdrawal","amount_minor":30000}`, http.StatusOK, true},
		{"unknown operation", `{"operation":"transfer","amount_minor":100}`, http.StatusUnprocessableEntity, false},
		{"negative amount", `{"operation":"deposit","amount_minor":-5}`, http.StatusUnprocessableEntity, false},
		{"unknown field", `{"operation":"deposit","amount_minor":5,"currency":"PLN"}`, http.StatusBadRequest, false},
		{"malformed", `{"operation":`, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			rec := do(router, http.MethodPost, "/api/v1/atm/sessions/s-1/amount", tt.body, atmIdentity)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if called != tt.wantCall {
				t.Errorf("service called = %v, want %v", called, tt.wantCall)
			}
		})
	}
}

func TestSubmit_ErrorCarriesSessionCoordinates(t *testing.T) {
	router := newTestRouter(&mockOrchestrator{
		submitFunc: func(_ context.Context, id string) (*service.SessionView, error) {
			return nil, apperrors.InsufficientFunds().WithDetails(map[string]any{
				"session_id":     id,
				"state":          model.StateFailure,
				"transaction_id": "tx-1",
			})
		},
	})

	rec := do(router, http.MethodPost, "/api/v1/atm/sessions/s-9/submit", "", atmIdentity)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	var resp apperrors.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != apperrors.CodeInsufficientFunds {
		t.Errorf("code = %q, want %q", resp.Code, apperrors.CodeInsufficientFunds)
	}
	if resp.Details["session_id"] != "s-9" || resp.Details["transaction_id"] != "tx-1" {
		t.Errorf("details = %v", resp.Details)
	}
}

func TestTransfer_PassesCallerIdentity(t *testing.T) {
	var got *auth.Identity
	var input service.TransferInput
	router := newTestRouter(&mockOrchestrator{
		transferFunc: func(_ context.Context, identity *auth.Identity, in service.TransferInput) (*service.SessionView, error) {
			got, input = identity, in
			return &service.SessionView{SessionID: "s-2", State: model.StateReleased}, nil
		},
	})
	client := &auth.Identity{UserID: "alice", Role: auth.RoleClient}

	rec := do(router, http.MethodPost, "/api/v1/transfers",
		`{"source_account":"PL001","destination":"PL002","amount_minor":1500}`, client)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if got == nil || got.UserID != "alice" {
		t.Errorf("identity = %+v, want alice", got)
	}
	if input.Amount != 1500 || input.Destination != "PL002" {
		t.Errorf("input = %+v", input)
	}

	rec = do(router, http.MethodPost, "/api/v1/transfers",
		`{"source_account":"PL001","destination":"PL001","amount_minor":1500}`, client)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("same-account status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestRoutes_RoleChecks(t *testing.T) {
	router := newTestRouter(&mockOrchestrator{
		assignFunc: func(context.Context, string) (*service.SessionView, error) {
			return &service.SessionView{SessionID: "s-1"}, nil
		},
		transferFunc: func(context.Context, *auth.Identity, service.TransferInput) (*service.SessionView, error) {
			return &service.SessionView{SessionID: "s-2"}, nil
		},
	})

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		identity *auth.Identity
		want     int
	}{
		{"client cannot drive an ATM", http.MethodPost, "/api/v1/atm/sessions", "", &auth.Identity{UserID: "c", Role: auth.RoleClient}, http.StatusForbidden},
		{"reviewer cannot transfer", http.MethodPost, "/api/v1/transfers", `{"source_account":"A1","destination":"B2","amount_minor":1}`, &auth.Identity{UserID: "r", Role: auth.RoleAML}, http.StatusForbidden},
		{"admin may drive an ATM", http.MethodPost, "/api/v1/atm/sessions", "", &auth.Identity{UserID: "a", Role: auth.RoleAdmin}, http.StatusCreated},
		{"anonymous", http.MethodPost, "/api/v1/atm/sessions", "", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, tt.method, tt.path, tt.body, tt.identity)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGetSession_PassesCallerIdentity(t *testing.T) {
	router := newTestRouter(&mockOrchestrator{
		getFunc: func(_ context.Context, identity *auth.Identity, id string) (*service.SessionView, error) {
			if identity.UserID != "alice" {
				return nil, apperrors.Forbidden("session belongs to another customer")
			}
			return &service.SessionView{SessionID: id, State: model.StateReleased}, nil
		},
	})

	rec := do(router, http.MethodGet, "/api/v1/sessions/s-1", "", &auth.Identity{UserID: "alice", Role: auth.RoleClient})
	if rec.Code != http.StatusOK {
		t.Errorf("owner status = %d, want %d", rec.Code, http.StatusOK)
	}
	rec = do(router, http.MethodGet, "/api/v1/sessions/s-1", "", &auth.Identity{UserID: "bob", Role: auth.RoleClient})
	if rec.Code != http.StatusForbidden {
		t.Errorf("other client status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
