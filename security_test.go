package cachegate

import (
	"bytes"
	"testing"
)

func TestHashKeyIsDeterministicAndDistinct(t *testing.T) {
	a := HashKey("http://example.com/a")
	b := HashKey("http://example.com/a")
	c := HashKey("http://example.com/b")

	if a != b {
		t.Error("HashKey should be deterministic for the same input")
	}
	if a == c {
		t.Error("HashKey should differ for different inputs")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars (SHA-256), got %d", len(a))
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	passphrase := []byte("correct horse battery staple")
	salt := []byte("fixed-salt-value")
	plaintext := []byte("cached response body")

	ciphertext, err := Encrypt(passphrase, salt, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("ciphertext should not equal plaintext")
	}

	got, err := Decrypt(passphrase, salt, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Decrypt = %q, want %q", got, plaintext)
	}
}

func TestDecryptWrongPassphraseFails(t *testing.T) {
	salt := []byte("fixed-salt-value")
	ciphertext, err := Encrypt([]byte("right"), salt, []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt([]byte("wrong"), salt, ciphertext); err == nil {
		t.Error("expected Decrypt with wrong passphrase to fail")
	}
}

func TestDecryptTooShortCiphertext(t *testing.T) {
	if _, err := Decrypt([]byte("key"), []byte("salt"), []byte("x")); err != ErrCiphertextTooShort {
		t.Errorf("error = %v, want ErrCiphertextTooShort", err)
	}
}
