package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf_UnwrapsChain(t *testing.T) {
	base := Unauthenticated("Invalid or expired token")
	wrapped := fmt.Errorf("verify: %w", base)

	if got := KindOf(wrapped); got != KindUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", got)
	}
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected unclassified errors to be internal, got %s", got)
	}
}

func TestRetryable_OnlyInternal(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{Unauthenticated("x"), false},
		{Forbidden("x"), false},
		{NotFound("x"), false},
		{Validation("x", nil), false},
		{Conflict("x"), false},
		{New(KindRateLimited, "x"), false},
		{Internal(errors.New("db down")), true},
		{errors.New("unclassified"), true},
		{nil, false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	if HTTPStatus(KindForbidden) != http.StatusForbidden {
		t.Fatalf("forbidden should map to 403")
	}
	if HTTPStatus(KindValidation) != http.StatusBadRequest {
		t.Fatalf("validation should map to 400")
	}
	if HTTPStatus(KindUnavailable) != http.StatusServiceUnavailable {
		t.Fatalf("unavailable should map to 503")
	}
	if HTTPStatus(Kind("unknown")) != http.StatusInternalServerError {
		t.Fatalf("unknown kinds should map to 500")
	}
}

func TestError_MessageIncludesCause(t *testing.T) {
	err := Internal(errors.New("connection refused"))
	if err.Error() != "Internal server error: connection refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, err.Err) {
		t.Fatalf("expected Unwrap to expose cause")
	}
}
