package auth

import (
	"testing"
	"time"
)

func TestIssueParseRoundTrip(t *testing.T) {
	token, exp, err := Issue("u1", RoleFaculty, "priya", "collegehub", "test-key", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatal("expiry should be in the future")
	}

	claims, err := Parse(token, "test-key", "collegehub")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != RoleFaculty || claims.Username != "priya" {
		t.Fatalf("claims round trip mismatch: %+v", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, _, err := Issue("u1", RoleStudent, "asha", "collegehub", "key-a", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := Parse(token, "key-b", "collegehub"); err == nil {
		t.Fatal("Parse accepted a token signed with another key")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token, _, err := Issue("u1", RoleStudent, "asha", "someone-else", "test-key", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := Parse(token, "test-key", "collegehub"); err == nil {
		t.Fatal("Parse accepted a token from another issuer")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, _, err := Issue("u1", RoleStudent, "asha", "collegehub", "test-key", -time.Minute)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := Parse(token, "test-key", "collegehub"); err == nil {
		t.Fatal("Parse accepted an expired token")
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleStudent, RoleFaculty, RoleAdmin, RoleSuperadmin} {
		if !ValidRole(role) {
			t.Fatalf("ValidRole(%q) = false", role)
		}
	}
	if ValidRole("janitor") {
		t.Fatal("ValidRole accepted an unknown role")
	}
}
