package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrTransient       = errors.New("transient failure")              // network, 5xx, rate limited: retry
	ErrFatal           = errors.New("fatal failure")                  // 4xx or retry budget exhausted: abort run
	ErrMalformedRecord = errors.New("malformed record")               // single record: skip and log
	ErrConflict        = errors.New("rename conflict")                // rename invariant violated: abort page
	ErrIntegrity       = errors.New("integrity violation")            // missing prerequisite row: abort page
	ErrNotFound        = errors.New("requested resource not found")   // lookup miss
	ErrLockHeld        = errors.New("scrape lock held by another run") // concurrent run refused
)

// HTTPStatusError carries a non-2xx response from the judge API.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	RetryAfter int // seconds, 0 when absent
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: http status %d", e.URL, e.StatusCode)
}

// Unwrap classifies the status: 429 and 5xx are transient, other 4xx fatal.
func (e *HTTPStatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrTransient
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ErrFatal
	default:
		return ErrTransient
	}
}

// MalformedRecordError reports the first required field that failed validation.
type MalformedRecordError struct {
	SubmissionID int64 // 0 when the id itself is missing
	Field        string
	Reason       string
	Raw          []byte
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("submission %d: field %q %s", e.SubmissionID, e.Field, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// IsRetryable reports whether err should be retried by the fetch loop.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) && !errors.Is(err, ErrFatal)
}

// ClassifyPgError maps constraint violations onto the domain taxonomy.
// Anything else is returned wrapped with op.
func ClassifyPgError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, ErrIntegrity)
		case "23514": // check_violation
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// HTTPStatusFromError maps domain errors to HTTP status codes for the status API.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrLockHeld) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrFatal) {
		return http.StatusInternalServerError
	}
	if errors.Is(err, ErrTransient) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
