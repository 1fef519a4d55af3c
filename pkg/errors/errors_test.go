package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDomainErrors_RetryHints(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
		retry  Retry
	}{
		{"no device", NoDeviceAvailable(), CodeNoDeviceAvailable, http.StatusServiceUnavailable, RetryLater},
		{"already locked", AlreadyLocked("device"), CodeAlreadyLocked, http.StatusConflict, RetryLater},
		{"not owner", NotOwner("account"), CodeNotOwner, http.StatusConflict, RetryAbort},
		{"invalid state", InvalidState("IDLE", "submit"), CodeInvalidState, http.StatusConflict, RetryAbort},
		{"insufficient funds", InsufficientFunds(), CodeInsufficientFunds, http.StatusUnprocessableEntity, RetryAbort},
		{"pin failed with attempts left", PinFailed(2), CodePinFailed, http.StatusUnauthorized, RetryNow},
		{"pin failed exhausted", PinFailed(0), CodePinFailed, http.StatusUnauthorized, RetryAbort},
		{"account busy", AccountBusy(), CodeAccountBusy, http.StatusConflict, RetryLater},
		{"already decided", AlreadyDecided("accepted"), CodeAlreadyDecided, http.StatusConflict, RetryAbort},
		{"session changed concurrently", Conflict("session changed").WithRetry(RetryNow), CodeConflict, http.StatusConflict, RetryNow},
		{"store unreachable", Unavailable("credential store"), CodeUnavailable, http.StatusServiceUnavailable, RetryLater},
		{"unknown card", NotFoundWithID("Card", "card-9"), CodeNotFound, http.StatusNotFound, RetryAbort},
		{"frozen card", Forbidden("card is frozen"), CodeForbidden, http.StatusForbidden, RetryAbort},
		{"bad amount", Validation("amount must be positive", nil), CodeValidation, http.StatusUnprocessableEntity, RetryAbort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.status)
			}
			if tt.err.Retry != tt.retry {
				t.Errorf("Retry = %s, want %s", tt.err.Retry, tt.retry)
			}
		})
	}
}

func TestDomainErrors_Details(t *testing.T) {
	if got := PinFailed(1).Details["remaining_attempts"]; got != 1 {
		t.Errorf("remaining_attempts = %v, want 1", got)
	}

	err := InvalidState("CARD_VERIFIED", "submit")
	if err.Details["state"] != "CARD_VERIFIED" || err.Details["operation"] != "submit" {
		t.Errorf("InvalidState details = %v", err.Details)
	}
}

func TestAppError_WithDetailsMerges(t *testing.T) {
	err := PinFailed(2).WithDetails(map[string]any{"session_id": "s-1", "state": "CARD_VERIFIED"})

	want := map[string]any{"remaining_attempts": 2, "session_id": "s-1", "state": "CARD_VERIFIED"}
	for k, v := range want {
		if err.Details[k] != v {
			t.Errorf("Details[%s] = %v, want %v", k, err.Details[k], v)
		}
	}

	bare := InsufficientFunds().WithDetails(map[string]any{"transaction_id": "tx-1"})
	if bare.Details["transaction_id"] != "tx-1" {
		t.Errorf("Details on bare error = %v", bare.Details)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := AlreadyLocked("device")
	wrapped := fmt.Errorf("assign device: %w", appErr)

	if AsAppError(wrapped) != appErr {
		t.Errorf("AsAppError() should find AppError through wrapping")
	}
	if !HasCode(wrapped, CodeAlreadyLocked) {
		t.Errorf("HasCode() should match wrapped code")
	}
	if HasCode(wrapped, CodeNotOwner) {
		t.Errorf("HasCode() should not match a different code")
	}

	cause := errors.New("mongo: no reachable servers")
	internal := AsAppError(cause)
	if internal.Code != CodeInternal || internal.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("AsAppError(plain) = %s/%d, want %s/500", internal.Code, internal.HTTPStatus, CodeInternal)
	}
	if !errors.Is(internal, cause) {
		t.Errorf("AsAppError(plain) should keep the cause")
	}
	if IsAppError(cause) || !IsAppError(wrapped) {
		t.Errorf("IsAppError mismatch")
	}
}

func TestAppError_Error(t *testing.T) {
	if got := InsufficientFunds().Error(); got != "INSUFFICIENT_FUNDS: insufficient funds" {
		t.Errorf("Error() = %q", got)
	}
	err := Internal("Failed to persist session", errors.New("write conflict"))
	if got := err.Error(); got != "INTERNAL_ERROR: Failed to persist session (caused by: write conflict)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := AccountBusy().WithDetails(map[string]any{"session_id": "s-1"})
	if writeErr := WriteError(rec, err); writeErr != nil {
		t.Fatalf("WriteError() error = %v", writeErr)
	}

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	var resp ErrorResponse
	if decodeErr := json.NewDecoder(rec.Body).Decode(&resp); decodeErr != nil {
		t.Fatalf("decode: %v", decodeErr)
	}
	if resp.Code != CodeAccountBusy || resp.Retry != RetryLater || resp.Details["session_id"] != "s-1" {
		t.Errorf("response = %+v", resp)
	}
}
