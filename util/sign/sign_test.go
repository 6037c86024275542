package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"testing"
)

func newKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey, []byte) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	return pub, priv, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func TestParsePrivateKey(t *testing.T) {
	_, priv, pemData := newKey(t)

	parsed, err := parsePrivateKey(pemData)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !parsed.Equal(priv) {
		t.Error("Parsed key differs from the original")
	}

	if _, err := parsePrivateKey([]byte("garbage")); err == nil {
		t.Error("Expected error for non-PEM input")
	}
}

func TestSignChallenge(t *testing.T) {
	pub, priv, _ := newKey(t)
	challenge := []byte("0123456789abcdef0123456789abcdef")

	sig, err := signChallenge(priv, " "+base64.StdEncoding.EncodeToString(challenge)+"\n")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		t.Fatalf("Signature is not base64: %v", err)
	}
	if !ed25519.Verify(pub, challenge, raw) {
		t.Error("Signature does not verify")
	}

	if _, err := signChallenge(priv, "not base64!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}

func TestRepl(t *testing.T) {
	_, priv, _ := newKey(t)

	in := strings.NewReader("\n" + base64.StdEncoding.EncodeToString([]byte("hi")) + "\n!!!\nquit\nnever read\n")
	var out bytes.Buffer
	if err := repl(priv, in, &out); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := strings.Count(out.String(), "Signature: "); got != 1 {
		t.Errorf("Expected one signature, got %d in %q", got, out.String())
	}
	if !strings.Contains(out.String(), "Error: invalid base64") {
		t.Errorf("Expected an error for the bad line, got %q", out.String())
	}
}
