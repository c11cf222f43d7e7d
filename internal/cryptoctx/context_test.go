package cryptoctx

import (
	"bytes"
	"testing"
)

func TestHandshakeBothSidesDeriveSameKey(t *testing.T) {
	initiator, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	responder, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := initiator.AcceptRemote(responder.PublicKey()); err != nil {
		t.Fatalf("initiator.AcceptRemote() error = %v", err)
	}
	if _, err := responder.AcceptRemote(initiator.PublicKey()); err != nil {
		t.Fatalf("responder.AcceptRemote() error = %v", err)
	}

	ik, rk := initiator.SharedKey(), responder.SharedKey()
	if ik == nil || rk == nil {
		t.Fatal("expected both sides to have a shared key")
	}
	if !bytes.Equal(ik, rk) {
		t.Fatalf("shared keys differ: initiator=%x responder=%x", ik, rk)
	}
}

func TestAcceptRemoteIsIdempotent(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	peerA, _ := New()
	peerB, _ := New()

	result, err := c.AcceptRemote(peerA.PublicKey())
	if err != nil {
		t.Fatalf("first AcceptRemote() error = %v", err)
	}
	if result != Fresh {
		t.Fatalf("first AcceptRemote() = %v, want Fresh", result)
	}
	firstKey := c.SharedKey()

	result, err = c.AcceptRemote(peerB.PublicKey())
	if err != nil {
		t.Fatalf("second AcceptRemote() error = %v", err)
	}
	if result != AlreadySet {
		t.Fatalf("second AcceptRemote() = %v, want AlreadySet", result)
	}
	if !bytes.Equal(firstKey, c.SharedKey()) {
		t.Fatal("shared key changed after a second Hello")
	}
}

func TestSharedKeyNilBeforeHello(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.SharedKey() != nil {
		t.Fatal("expected nil shared key before any Hello")
	}
}

func TestEncryptBeforeHelloFails(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, _, err := c.Encrypt([]byte("hi")); err == nil {
		t.Fatal("expected error encrypting before a shared key exists")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	a, _ := New()
	b, _ := New()
	if _, err := a.AcceptRemote(b.PublicKey()); err != nil {
		t.Fatalf("a.AcceptRemote() error = %v", err)
	}
	if _, err := b.AcceptRemote(a.PublicKey()); err != nil {
		t.Fatalf("b.AcceptRemote() error = %v", err)
	}

	nonce, ciphertext, err := a.Encrypt([]byte("hello"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Contains(ciphertext, []byte("hello")) {
		t.Fatal("ciphertext leaks plaintext bytes")
	}

	plaintext, err := b.Decrypt(nonce, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(plaintext) != "hello" {
		t.Fatalf("Decrypt() = %q, want %q", plaintext, "hello")
	}
}

func TestDecryptTagMismatchFails(t *testing.T) {
	a, _ := New()
	b, _ := New()
	_, _ = a.AcceptRemote(b.PublicKey())
	_, _ = b.AcceptRemote(a.PublicKey())

	nonce, ciphertext, err := a.Encrypt([]byte("hello"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF

	if _, err := b.Decrypt(nonce, ciphertext); err == nil {
		t.Fatal("expected AEAD failure on tampered ciphertext")
	}
}
