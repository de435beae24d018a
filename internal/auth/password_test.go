package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	encoded, err := HashPassword("Password1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	if !VerifyPassword(encoded, "Password1") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(encoded, "Password2") {
		t.Fatal("wrong password accepted")
	}
	if VerifyPassword("not-an-encoded-hash", "Password1") {
		t.Fatal("malformed hash accepted")
	}

	// Salted: hashing twice never repeats.
	again, err := HashPassword("Password1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if again == encoded {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestSessionTokens(t *testing.T) {
	raw1, hash1, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	raw2, hash2, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if raw1 == raw2 || hash1 == hash2 {
		t.Fatal("tokens must be unique")
	}
	if len(hash1) != 64 {
		t.Fatalf("hash length = %d, want 64", len(hash1))
	}
	if HashToken(raw1) != hash1 {
		t.Fatal("HashToken must reproduce the stored hash")
	}
	if raw1 == hash1 {
		t.Fatal("raw token must not equal its hash")
	}
}
