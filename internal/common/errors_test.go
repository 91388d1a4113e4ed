package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestHTTPStatusErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
		fatal     bool
	}{
		{http.StatusTooManyRequests, true, false},
		{http.StatusInternalServerError, true, false},
		{http.StatusBadGateway, true, false},
		{http.StatusNotFound, false, true},
		{http.StatusForbidden, false, true},
		{http.StatusBadRequest, false, true},
	}
	for _, tt := range tests {
		err := error(&HTTPStatusError{URL: "http://x", StatusCode: tt.status})
		if got := errors.Is(err, ErrTransient); got != tt.transient {
			t.Errorf("status %d: Is(ErrTransient) = %v, want %v", tt.status, got, tt.transient)
		}
		if got := errors.Is(err, ErrFatal); got != tt.fatal {
			t.Errorf("status %d: Is(ErrFatal) = %v, want %v", tt.status, got, tt.fatal)
		}
		if got := IsRetryable(err); got != tt.transient {
			t.Errorf("status %d: IsRetryable = %v", tt.status, got)
		}
	}
}

func TestMalformedRecordErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("normalize: %w", &MalformedRecordError{SubmissionID: 7, Field: "user_id", Reason: "is required"})
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatal("expected ErrMalformedRecord")
	}
	var mre *MalformedRecordError
	if !errors.As(err, &mre) || mre.Field != "user_id" {
		t.Fatalf("errors.As = %+v", mre)
	}
}

func TestClassifyPgError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "renamed_user_id_to_key"}, ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, ErrIntegrity},
		{"check", &pgconn.PgError{Code: "23514"}, ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPgError("op", tt.err); !errors.Is(got, tt.want) {
				t.Errorf("ClassifyPgError = %v, want %v", got, tt.want)
			}
		})
	}

	plain := errors.New("boom")
	got := ClassifyPgError("op", plain)
	if !errors.Is(got, plain) || errors.Is(got, ErrConflict) {
		t.Errorf("unexpected classification %v", got)
	}
	if ClassifyPgError("op", nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestHTTPStatusFromError(t *testing.T) {
	exhausted := fmt.Errorf("giving up after 5 attempts: %w: %w", ErrFatal, &HTTPStatusError{StatusCode: 503})
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", fmt.Errorf("rename: %w", ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("rename: %w", ErrConflict), http.StatusConflict},
		{"lock held", ErrLockHeld, http.StatusConflict},
		{"transient", fmt.Errorf("ping: %w", ErrTransient), http.StatusServiceUnavailable},
		{"retry budget exhausted", exhausted, http.StatusInternalServerError},
		{"integrity", ErrIntegrity, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusFromError(tt.err); got != tt.want {
				t.Errorf("HTTPStatusFromError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
