package security

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal plaintext")
	}
	if !VerifyPassword("s3cret-pass", hash) {
		t.Fatal("expected correct password to verify")
	}
	if VerifyPassword("wrong-pass", hash) {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	if VerifyPassword("anything", "not-a-bcrypt-hash") {
		t.Fatal("expected malformed hash to fail verification")
	}
	if VerifyPassword("anything", "!") {
		t.Fatal("expected placeholder hash to fail verification")
	}
}
