// Package signedcookie produces tamper-evident cookie values of the form
// <b64url(HMAC-SHA256(payload))>.<b64url(payload)>. Values are signed, not
// encrypted: anyone holding the cookie can read the payload.
package signedcookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const separator = "."

// Unpadded and strict so that each byte string has exactly one encoding.
var encoding = base64.RawURLEncoding.Strict()

// Envelope is a payload together with the MAC computed over it.
type Envelope struct {
	Signature []byte
	Payload   []byte
}

// Seal signs payload with secret.
func Seal(payload, secret []byte) Envelope {
	return Envelope{
		Signature: sign(payload, secret),
		Payload:   payload,
	}
}

// ParseEnvelope splits a cookie value into its two segments. It does not
// check the signature.
func ParseEnvelope(value string) (Envelope, bool) {
	parts := strings.Split(value, separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Envelope{}, false
	}

	signature, err := encoding.DecodeString(parts[0])
	if err != nil || len(signature) != sha256.Size {
		return Envelope{}, false
	}
	payload, err := encoding.DecodeString(parts[1])
	if err != nil {
		return Envelope{}, false
	}
	return Envelope{Signature: signature, Payload: payload}, true
}

// Verify reports whether the signature matches the payload under secret.
func (e Envelope) Verify(secret []byte) bool {
	if len(e.Signature) != sha256.Size {
		return false
	}
	return hmac.Equal(e.Signature, sign(e.Payload, secret))
}

func (e Envelope) String() string {
	return encoding.EncodeToString(e.Signature) + separator + encoding.EncodeToString(e.Payload)
}

// Encode serialises v as JSON and returns the signed cookie value.
func Encode(v any, secret []byte) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("[signedcookie.Encode] marshal payload: %w", err)
	}
	return Seal(payload, secret).String(), nil
}

// Decode verifies value and unmarshals its payload into a new T. Any
// structural, signature or JSON problem yields (nil, false).
func Decode[T any](value string, secret []byte) (*T, bool) {
	envelope, ok := ParseEnvelope(value)
	if !ok || !envelope.Verify(secret) {
		return nil, false
	}

	var out T
	if err := json.Unmarshal(envelope.Payload, &out); err != nil {
		return nil, false
	}
	return &out, true
}

func sign(payload, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
