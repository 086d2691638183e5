package hmacauth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

const testSecret = "topsecret"

// fixedNow pins the gate's clock so drift-window tests are deterministic.
var fixedNow = time.Unix(1700000000, 0)

func newTestGate(secret string) *Gate {
	g := NewGate(secret)
	g.now = func() time.Time { return fixedNow }
	return g
}

func signedRequest(t *testing.T, secret, method, target string, offset time.Duration) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	SignRequest(r, []byte(secret), fixedNow.Add(offset))
	return r
}

func serveGate(g *Gate, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	g.Middleware(next).ServeHTTP(rec, r)
	return rec
}

func TestGateAcceptsValidRequest(t *testing.T) {
	g := newTestGate(testSecret)
	rec := serveGate(g, signedRequest(t, testSecret, http.MethodGet, "/photos", 0))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestGateIgnoresQueryString(t *testing.T) {
	// The signature covers only method:path:timestamp, so the same signature
	// is valid regardless of query parameters. Documented protocol boundary.
	g := newTestGate(testSecret)
	r := httptest.NewRequest(http.MethodGet, "/photos?since=1700000000", nil)
	timestamp := strconv.FormatInt(fixedNow.Unix(), 10)
	r.Header.Set(HeaderTimestamp, timestamp)
	r.Header.Set(HeaderSignature, NewSigner([]byte(testSecret)).Sign("GET", "/photos", timestamp))
	if rec := serveGate(g, r); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGateFailsClosedOnPlaceholderSecret(t *testing.T) {
	for _, secret := range []string{"", PlaceholderSecret} {
		g := newTestGate(secret)
		rec := serveGate(g, signedRequest(t, secret, http.MethodGet, "/photos", 0))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("secret %q: status = %d, want 500", secret, rec.Code)
		}
	}
}

func TestGateRejectsMissingHeaders(t *testing.T) {
	g := newTestGate(testSecret)
	timestamp := strconv.FormatInt(fixedNow.Unix(), 10)
	signature := NewSigner([]byte(testSecret)).Sign("GET", "/photos", timestamp)

	cases := []struct {
		name      string
		timestamp string
		signature string
	}{
		{"no headers", "", ""},
		{"missing signature", timestamp, ""},
		{"missing timestamp", "", signature},
		{"non-numeric timestamp", "yesterday", signature},
		{"short signature", timestamp, signature[:40]},
		{"non-hex signature", timestamp, signature[:62] + "zz"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/photos", nil)
		if tc.timestamp != "" {
			r.Header.Set(HeaderTimestamp, tc.timestamp)
		}
		if tc.signature != "" {
			r.Header.Set(HeaderSignature, tc.signature)
		}
		if rec := serveGate(g, r); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", tc.name, rec.Code)
		}
	}
}

func TestGateDriftWindowBoundaries(t *testing.T) {
	g := newTestGate(testSecret)
	cases := []struct {
		offset time.Duration
		want   int
	}{
		{-301 * time.Second, http.StatusUnauthorized},
		{-300 * time.Second, http.StatusOK},
		{-299 * time.Second, http.StatusOK},
		{299 * time.Second, http.StatusOK},
		{300 * time.Second, http.StatusOK},
		{301 * time.Second, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		rec := serveGate(g, signedRequest(t, testSecret, http.MethodGet, "/photos", tc.offset))
		if rec.Code != tc.want {
			t.Fatalf("offset %v: status = %d, want %d", tc.offset, rec.Code, tc.want)
		}
	}
}

func TestGateChecksFreshnessBeforeSignature(t *testing.T) {
	// An expired request with an otherwise-correct signature must be rejected
	// as expired, never reported as a signature mismatch.
	g := newTestGate(testSecret)
	r := signedRequest(t, testSecret, http.MethodGet, "/photos", -600*time.Second)
	err := g.check(r)
	if !errors.Is(err, errExpiredTimestamp) {
		t.Fatalf("check() = %v, want expired timestamp", err)
	}
}

func TestGateRejectsWrongSecret(t *testing.T) {
	g := newTestGate(testSecret)
	rec := serveGate(g, signedRequest(t, "wrong-secret", http.MethodGet, "/photos", 0))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGateSignsEscapedPath(t *testing.T) {
	// Asset ids may contain encoded slashes; the client signs the escaped
	// path and the gate must verify against the same bytes.
	g := newTestGate(testSecret)
	rec := serveGate(g, signedRequest(t, testSecret, http.MethodGet, "/photos/burst%2F42/download", 0))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
