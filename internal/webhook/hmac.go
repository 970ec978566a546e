package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// Signature verification errors. The handler maps ErrMissingSignature to
// HTTP 400 and ErrInvalidSignature to HTTP 401.
var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("invalid signature")
)

// VerifySignature checks an HMAC-SHA256 signature over the raw request
// body, exactly as it arrived on the wire. The header value may carry a
// "sha256=" prefix (GitHub style) or be plain hex; a malformed value
// counts as an invalid signature. Comparison is constant-time.
func VerifySignature(body []byte, header string, secret []byte) error {
	if header == "" {
		return ErrMissingSignature
	}
	if len(secret) == 0 {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	actual, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
	if err != nil {
		return ErrInvalidSignature
	}

	if subtle.ConstantTimeCompare(expected, actual) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// computeSignature returns the hex HMAC-SHA256 of body. Used by tests.
func computeSignature(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// signatureHeader formats a hex digest the way webhook senders do.
func signatureHeader(hexSig string) string {
	return "sha256=" + hexSig
}
