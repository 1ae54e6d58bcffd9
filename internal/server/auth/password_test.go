package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Correct-horse1!")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if !VerifyPassword(hash, "Correct-horse1!") {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword(hash, "wrong-password") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashPassword_UsesConfiguredCost(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Correct-horse1!")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost error: %v", err)
	}
	if cost != BcryptCost {
		t.Fatalf("cost mismatch: got %d want %d", cost, BcryptCost)
	}
}
