// Package hmacauth implements the request-authentication protocol shared by
// the PhotoDrop server and client: HMAC-SHA256 signatures over a canonical
// "method:path:timestamp" message, plus the server-side gate that enforces
// them. HMAC is easy in Go thanks to the standard library crypto packages.
package hmacauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// SignatureLength is the expected length of the hex-encoded signature.
// SHA-256 digests are 32 bytes, which render as 64 hex characters.
const SignatureLength = 64

var (
	// ErrMalformedSignature indicates the candidate was not valid hex of the
	// right length. Distinct from ErrSignatureMismatch so operators can tell a
	// broken client apart from a forgery attempt, even though both map to the
	// same 401 externally.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrSignatureMismatch indicates well-formed hex that does not match.
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Signer generates and validates HMAC based signatures. It holds no state
// beyond the shared secret, so a single instance is safe for concurrent use.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the hex signature for the canonical message. The timestamp is
// taken as a string because the protocol signs the exact bytes sent in the
// X-Timestamp header, not a re-rendering of the parsed number.
func (s *Signer) Sign(method, path, timestamp string) string {
	return hex.EncodeToString(s.digest(method, path, timestamp))
}

// Verify recomputes the expected signature and compares it against candidate.
// The length check short-circuits, but the content comparison is constant time
// via hmac.Equal. Hex input is accepted case-insensitively.
func (s *Signer) Verify(method, path, timestamp, candidate string) error {
	if len(candidate) != SignatureLength {
		return ErrMalformedSignature
	}
	got, err := hex.DecodeString(strings.ToLower(candidate))
	if err != nil {
		return ErrMalformedSignature
	}
	// hmac.Equal performs constant-time comparison to avoid timing attacks.
	if !hmac.Equal(got, s.digest(method, path, timestamp)) {
		return ErrSignatureMismatch
	}
	return nil
}

func (s *Signer) digest(method, path, timestamp string) []byte {
	// hmac.New accepts a hash constructor (sha256.New) plus the secret key.
	mac := hmac.New(sha256.New, s.secret)
	// The canonical payload deliberately excludes the query string; only
	// method, path, and timestamp are covered by the signature.
	fmt.Fprintf(mac, "%s:%s:%s", method, path, timestamp)
	return mac.Sum(nil)
}
