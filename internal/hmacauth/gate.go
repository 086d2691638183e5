package hmacauth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"
)

const (
	// HeaderTimestamp carries the decimal Unix seconds the client signed.
	HeaderTimestamp = "X-Timestamp"
	// HeaderSignature carries the 64-char hex HMAC.
	HeaderSignature = "X-Signature"

	// MaxClockDrift is the symmetric replay window. A request whose claimed
	// timestamp differs from server time by more than this is rejected.
	// Exactly MaxClockDrift of drift is still accepted (the policy is <=).
	MaxClockDrift = 300 * time.Second

	// PlaceholderSecret is the well-known development value. The gate refuses
	// to serve while the deployed secret equals it, so a forgotten environment
	// variable fails closed instead of running unauthenticated.
	PlaceholderSecret = "development-secret-change-me"
)

// Errors returned by the per-request check chain. Only errMisconfigured maps
// to a 500; everything else is a 401 with a generic body.
var (
	errMisconfigured    = errors.New("shared secret missing or still set to the development placeholder")
	errMissingTimestamp = errors.New("missing or non-numeric " + HeaderTimestamp + " header")
	errExpiredTimestamp = errors.New("timestamp outside the allowed drift window")
)

// Gate is the server-side request filter. It is stateless per request except
// for the read-only secret and the clock, so concurrent requests need no
// locking.
type Gate struct {
	signer *Signer
	secret string
	now    func() time.Time
}

// NewGate builds a Gate around the shared secret.
func NewGate(secret string) *Gate {
	return &Gate{
		signer: NewSigner([]byte(secret)),
		secret: secret,
		now:    time.Now,
	}
}

// Middleware wraps next with the authentication chain. Routes mounted outside
// this middleware (the health check) skip authentication entirely.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.check(r); err != nil {
			// The log line keeps the specific failing check for diagnosis; the
			// response body stays generic so it does not aid forgery.
			log.Printf("auth rejected %s %s: %v", r.Method, r.URL.Path, err)
			if errors.Is(err, errMisconfigured) {
				respondError(w, http.StatusInternalServerError, "server misconfigured")
				return
			}
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check walks the linear state machine: secret configured, timestamp header,
// signature header shape, freshness, then signature. The first failure is
// terminal; in particular freshness is checked before the signature, so an
// expired request never reports a mismatch.
func (g *Gate) check(r *http.Request) error {
	if g.secret == "" || g.secret == PlaceholderSecret {
		return errMisconfigured
	}
	rawTimestamp := r.Header.Get(HeaderTimestamp)
	requestTime, err := strconv.ParseInt(rawTimestamp, 10, 64)
	if rawTimestamp == "" || err != nil {
		return errMissingTimestamp
	}
	candidate := r.Header.Get(HeaderSignature)
	if len(candidate) != SignatureLength || !isHex(candidate) {
		return ErrMalformedSignature
	}
	drift := g.now().Unix() - requestTime
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(MaxClockDrift/time.Second) {
		return errExpiredTimestamp
	}
	// The signed message uses the raw header string and the escaped request
	// path (asset ids may contain percent-encoded slashes); the query string
	// is never part of the signature.
	return g.signer.Verify(r.Method, r.URL.EscapedPath(), rawTimestamp, candidate)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		log.Printf("encode error response: %v", err)
	}
}

// SignRequest stamps X-Timestamp and X-Signature headers onto an outbound
// request using the current time. The client side of the protocol.
func SignRequest(r *http.Request, secret []byte, now time.Time) {
	timestamp := strconv.FormatInt(now.Unix(), 10)
	signature := NewSigner(secret).Sign(r.Method, r.URL.EscapedPath(), timestamp)
	r.Header.Set(HeaderTimestamp, timestamp)
	r.Header.Set(HeaderSignature, signature)
}
