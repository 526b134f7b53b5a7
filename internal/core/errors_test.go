package core

import (
	"errors"
	"net/http"
	"testing"
)

func TestCatalogError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *CatalogError
		want int
	}{
		{"explicit status wins", &CatalogError{Type: ErrorTypeUpstream, StatusCode: http.StatusTeapot}, http.StatusTeapot},
		{"invalid request", &CatalogError{Type: ErrorTypeInvalidRequest}, http.StatusBadRequest},
		{"not found", &CatalogError{Type: ErrorTypeNotFound}, http.StatusNotFound},
		{"upstream", &CatalogError{Type: ErrorTypeUpstream}, http.StatusBadGateway},
		{"unavailable", &CatalogError{Type: ErrorTypeUnavailable}, http.StatusServiceUnavailable},
		{"storage", &CatalogError{Type: ErrorTypeStorage}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCatalogError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUpstreamError(http.StatusBadGateway, "fetching products", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}

	var catalogErr *CatalogError
	if !errors.As(error(err), &catalogErr) {
		t.Fatal("expected errors.As to match *CatalogError")
	}
	if catalogErr.Type != ErrorTypeUpstream {
		t.Errorf("Type = %s, want %s", catalogErr.Type, ErrorTypeUpstream)
	}
}

func TestParseUpstreamError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantType    ErrorType
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "nested error message",
			status:      http.StatusInternalServerError,
			body:        `{"error":{"message":"database down"}}`,
			wantType:    ErrorTypeUpstream,
			wantStatus:  http.StatusBadGateway,
			wantMessage: "database down",
		},
		{
			name:        "flat message",
			status:      http.StatusBadRequest,
			body:        `{"message":"pageSize too large"}`,
			wantType:    ErrorTypeInvalidRequest,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "pageSize too large",
		},
		{
			name:        "problem details title",
			status:      http.StatusNotFound,
			body:        `{"title":"Product not found","status":404}`,
			wantType:    ErrorTypeNotFound,
			wantStatus:  http.StatusNotFound,
			wantMessage: "Product not found",
		},
		{
			name:        "plain text body",
			status:      http.StatusServiceUnavailable,
			body:        "upstream overloaded",
			wantType:    ErrorTypeUpstream,
			wantStatus:  http.StatusBadGateway,
			wantMessage: "upstream overloaded",
		},
		{
			name:        "empty body falls back to status text",
			status:      http.StatusUnprocessableEntity,
			body:        "",
			wantType:    ErrorTypeInvalidRequest,
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "Unprocessable Entity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseUpstreamError(tt.status, []byte(tt.body), nil)
			if err.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", err.Type, tt.wantType)
			}
			if err.HTTPStatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", err.HTTPStatusCode(), tt.wantStatus)
			}
			if err.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMessage)
			}
		})
	}
}
