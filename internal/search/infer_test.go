package search

import "testing"

func TestInferTypeSQLBlocksInference(t *testing.T) {
	resolved, reason := InferType("SELECT * FROM users")
	if resolved != "code" {
		t.Fatalf("expected code, got %q", resolved)
	}
	if reason == "" {
		t.Fatal("expected a blocked reason")
	}
}

func TestInferTypeAPI(t *testing.T) {
	cases := []string{"/api/v1/login", "GET /users"}
	for _, q := range cases {
		if resolved, _ := InferType(q); resolved != "api" {
			t.Fatalf("InferType(%q) = %q, want api", q, resolved)
		}
	}
}

func TestInferTypeSymbol(t *testing.T) {
	cases := []string{"LoginService", "auth.login", "Namespace::Method"}
	for _, q := range cases {
		if resolved, _ := InferType(q); resolved != "symbol" {
			t.Fatalf("InferType(%q) = %q, want symbol", q, resolved)
		}
	}
}

func TestInferTypeCodeDefault(t *testing.T) {
	if resolved, _ := InferType("how to login user"); resolved != "code" {
		t.Fatalf("expected code, got %q", resolved)
	}
}
