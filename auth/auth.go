// Package auth gates requests on a detached signature.
//
// A caller sends three headers: public_key (hex), address, and signature (hex),
// where signature signs the address header's bytes. Requests that fail the
// check never reach a handler.
package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
)

const (
	HeaderPublicKey = "public_key"
	HeaderAddress   = "address"
	HeaderSignature = "signature"
)

var ErrInvalidSignature = errors.New("Invalid signature")

// Verifier checks a detached signature over message.
// Malformed input is a failed check, never a panic.
type Verifier interface {
	Verify(publicKey, message, signature string) bool
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(publicKey, message, signature string) bool

func (f VerifierFunc) Verify(publicKey, message, signature string) bool {
	return f(publicKey, message, signature)
}

// Ed25519 verifies hex-encoded ed25519 keys and signatures.
type Ed25519 struct{}

var _ Verifier = Ed25519{}

func (Ed25519) Verify(publicKey, message, signature string) bool {
	pk, err := hex.DecodeString(publicKey)
	if err != nil || len(pk) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pk), []byte(message), sig)
}

// Check applies v to the three header values. Empty values fail.
func Check(v Verifier, publicKey, address, signature string) error {
	if publicKey == "" || signature == "" {
		return ErrInvalidSignature
	}
	if !v.Verify(publicKey, address, signature) {
		return ErrInvalidSignature
	}
	return nil
}
