package config

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// Digest returns the BLAKE3 hex digest of a raw configuration document.
// Two loads of byte-identical documents report the same digest.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestLocator reads the document at locator and returns its digest
// without decoding or validating it.
func (l *Loader) DigestLocator(locator string) (string, error) {
	if strings.TrimSpace(locator) == "" {
		return "", &LoadError{Kind: ErrPathMissing}
	}
	data, err := l.read(locator)
	if err != nil {
		return "", &LoadError{Kind: ErrResourceNotFound, Locator: locator, Err: err}
	}
	return Digest(data), nil
}
