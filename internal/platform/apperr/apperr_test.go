package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("name required"), http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("client: %w", ErrNotFound), http.StatusNotFound},
		{ErrExpired, http.StatusGone},
		{ErrAlreadyApproved, http.StatusConflict},
		{ErrNothingToImport, http.StatusConflict},
		{Persistence(errors.New("tcp reset")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestPersistence_KeepsClassifiedErrors(t *testing.T) {
	if err := Persistence(ErrNotFound); !errors.Is(err, ErrNotFound) || errors.Is(err, ErrPersistence) {
		t.Fatalf("expected not found to pass through, got %v", err)
	}
	if err := Persistence(errors.New("duplicate key")); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if Persistence(nil) != nil {
		t.Fatalf("expected nil")
	}
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	if got := PublicMessage(Persistence(errors.New("pq: secret table"))); got != "internal error" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := PublicMessage(Validation("password too short")); got != "validation error: password too short" {
		t.Fatalf("unexpected message %q", got)
	}
}
