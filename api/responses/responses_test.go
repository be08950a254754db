package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/types"
)

func decodeError(t *testing.T, body []byte) types.ErrorEnvelope {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope
}

func TestWriteErrorMapsCodesToStatus(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive"), 400, "VALIDATION_ERROR"},
		{"not found", pkgerrors.New(pkgerrors.CodeNotFound, "cart not found"), 404, "NOT_FOUND"},
		{"forbidden", pkgerrors.New(pkgerrors.CodeForbidden, "not your cart"), 403, "FORBIDDEN"},
		{"state conflict", pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not payable"), 422, "STATE_CONFLICT"},
		{"capacity", pkgerrors.New(pkgerrors.CodeCapacity, "tradeline has no remaining spots"), 409, "CAPACITY_EXCEEDED"},
		{"concurrent", pkgerrors.New(pkgerrors.CodeConcurrentModification, "cart was modified"), 409, "CONCURRENT_MODIFICATION"},
		{"untyped", errors.New("dial tcp: connection refused"), 500, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			envelope := decodeError(t, rec.Body.Bytes())
			if envelope.Error.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", envelope.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("password=hunter2 leaked into logs"))
	envelope := decodeError(t, rec.Body.Bytes())
	if envelope.Error.Message != "internal server error" {
		t.Fatalf("internal message leaked: %q", envelope.Error.Message)
	}
}

func TestWriteErrorIncludesAllowedDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails([]string{"display name is required"})
	WriteError(context.Background(), nil, rec, err)
	envelope := decodeError(t, rec.Body.Bytes())
	if envelope.Error.Details == nil {
		t.Fatalf("details missing for validation error")
	}
}

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"status": "ok"})
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if envelope.Data == nil {
		t.Fatalf("data missing")
	}
}
