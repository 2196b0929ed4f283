package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"hash"
	"log/slog"
	"strings"
)

// SignaturePrefix is prepended to the hex digest in the signature header.
const SignaturePrefix = "sha256="

var (
	// ErrMissingSignature is returned when a secret is configured but the
	// request carries no signature.
	ErrMissingSignature = errors.New("missing signature")

	// ErrSignatureMismatch is returned when the claimed signature does not
	// match the payload.
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// newMAC is swapped in tests to observe when a digest is computed.
var newMAC = func(key []byte) hash.Hash {
	return hmac.New(sha256.New, key)
}

// Sign returns "sha256=" followed by the lowercase hex HMAC-SHA256 of
// payload keyed with secret.
func Sign(secret, payload []byte) string {
	mac := newMAC(secret)
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature authenticates payload against the claimed signature.
//
// An empty secret disables verification and always returns nil. A blank
// signature is treated as absent. The comparison is constant time over the
// full signature string; only the length is revealed.
func VerifySignature(secret, payload []byte, signature string) error {
	if len(secret) == 0 {
		return nil
	}
	if strings.TrimSpace(signature) == "" {
		return ErrMissingSignature
	}

	expected := Sign(secret, payload)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

// Authenticator verifies payloads with a fixed shared secret and reports
// when verification is disabled.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator. An empty secret puts it in
// permissive mode.
func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// Enabled reports whether a secret is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Verify checks the signature for payload. In permissive mode it logs a
// warning and accepts.
func (a *Authenticator) Verify(payload []byte, signature string) error {
	if !a.Enabled() {
		a.logger.Warn("webhook secret not configured, skipping signature verification")
		return nil
	}
	return VerifySignature(a.secret, payload, signature)
}
