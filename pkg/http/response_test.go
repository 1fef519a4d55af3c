package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "bankops/pkg/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"app error", apperrors.NotOwner("device"), http.StatusConflict, apperrors.CodeNotOwner},
		{"plain error hidden", errors.New("mongo: connection refused"), http.StatusInternalServerError, apperrors.CodeInternal},
		{"not found", apperrors.NotFoundWithID("session", "s1"), http.StatusNotFound, apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := rec.Body.String()
			if !strings.Contains(body, tt.wantCode) {
				t.Errorf("body %s missing code %s", body, tt.wantCode)
			}
			if strings.Contains(body, "connection refused") {
				t.Errorf("body leaked underlying error: %s", body)
			}
		})
	}
}

func TestExtractLimitOffset(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/aml/transactions?limit=5&offset=10", nil)
	limit, offset, err := ExtractLimitOffset(r)
	if err != nil {
		t.Fatalf("ExtractLimitOffset() error = %v", err)
	}
	if limit != 5 || offset != 10 {
		t.Errorf("got limit=%d offset=%d, want 5 and 10", limit, offset)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/aml/transactions?limit=abc", nil)
	if _, _, err := ExtractLimitOffset(r); err == nil {
		t.Error("expected error for non-numeric limit")
	}
}
