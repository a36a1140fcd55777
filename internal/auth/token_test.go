package auth

import (
	"errors"
	"strings"
	"testing"
)

const testToken = "s3cret-admin-token-for-tests"

func TestHashToken(t *testing.T) {
	hash, err := HashToken(testToken)
	if err != nil {
		t.Fatalf("HashToken error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$") {
		t.Errorf("unexpected hash prefix: %s", hash)
	}

	again, _ := HashToken(testToken)
	if again == hash {
		t.Error("hashes of the same token should use different salts")
	}
}

func TestHashToken_RejectsShort(t *testing.T) {
	if _, err := HashToken("short"); !errors.Is(err, ErrWeakToken) {
		t.Fatalf("expected ErrWeakToken, got %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	hash, err := HashToken(testToken)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := VerifyToken(testToken, hash)
	if err != nil || !ok {
		t.Fatalf("correct token rejected: %v %v", ok, err)
	}

	ok, err = VerifyToken(testToken+"x", hash)
	if err != nil || ok {
		t.Fatalf("wrong token accepted: %v %v", ok, err)
	}
}

func TestVerifyToken_ForeignParameters(t *testing.T) {
	// Hash produced with m=65536,t=1,p=4 for "changeme".
	hash := "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544"

	ok, err := VerifyToken("changeme", hash)
	if err != nil || !ok {
		t.Fatalf("hash with other parameters rejected: %v %v", ok, err)
	}
}

func TestVerifyToken_InvalidHash(t *testing.T) {
	tests := []string{
		"",
		"not-a-hash",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
	}
	for _, h := range tests {
		if ok, err := VerifyToken(testToken, h); err == nil || ok {
			t.Errorf("VerifyToken(%q) = %v, %v; want error", h, ok, err)
		}
	}
}

func TestVerifier(t *testing.T) {
	hash, err := HashToken(testToken)
	if err != nil {
		t.Fatal(err)
	}
	v := NewVerifier(hash)

	if !v.Enabled() {
		t.Fatal("verifier with hash should be enabled")
	}
	for range 2 {
		ok, err := v.Verify(testToken)
		if err != nil || !ok {
			t.Fatalf("Verify = %v, %v", ok, err)
		}
	}
	if ok, _ := v.Verify("nope-nope-nope-nope-nope"); ok {
		t.Error("wrong token accepted")
	}
	if ok, _ := v.Verify(""); ok {
		t.Error("empty token accepted")
	}

	var disabled *Verifier
	if disabled.Enabled() {
		t.Error("nil verifier should be disabled")
	}
	if ok, _ := NewVerifier("").Verify(testToken); ok {
		t.Error("verifier without hash must reject everything")
	}
}

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken()
	if err != nil {
		t.Fatal(err)
	}
	if len(tok) < MinTokenLength {
		t.Errorf("generated token too short: %d", len(tok))
	}
}
