package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad field"), http.StatusBadRequest},
		{Transition("not in window"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Permission("nope"), http.StatusForbidden},
		{Internal(errors.New("pq: boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestPublicMessageNeverLeaksInternals(t *testing.T) {
	err := Internal(errors.New("pq: connection refused host=10.0.0.5"))
	if msg := PublicMessage(err); msg != "internal error" {
		t.Fatalf("internal details leaked: %q", msg)
	}
	if msg := PublicMessage(NotFound("student not found")); msg != "student not found" {
		t.Fatalf("PublicMessage = %q", msg)
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := NotFound("missing")
	wrapped := errors.Join(errors.New("outer"), err)
	if !IsKind(wrapped, KindNotFound) {
		t.Fatal("kind lost through wrapping")
	}
}
