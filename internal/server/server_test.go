package server

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"photodrop/internal/config"
	"photodrop/internal/hmacauth"
	"photodrop/internal/library"
	"photodrop/internal/model"
)

const testSecret = "unit-test-secret"

func timePtr(t time.Time) *time.Time { return &t }

func newTestLibrary() *library.MemoryLibrary {
	lib := library.NewMemoryLibrary()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lib.Add(model.Asset{
		ID:        "A1",
		Kind:      model.KindImage,
		CreatedAt: timePtr(base),
		Width:     4032,
		Height:    3024,
	}, library.Export{Filename: "IMG_0001.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")}, nil)
	lib.Add(model.Asset{
		ID:        "L2",
		Kind:      model.KindImage,
		Subtypes:  []string{model.SubtypeLivePhoto},
		CreatedAt: timePtr(base.Add(time.Hour)),
	}, library.Export{Filename: "IMG_0002.jpg", ContentType: "image/jpeg", Data: []byte("live-still")},
		&library.Export{Filename: "IMG_0002.mov", ContentType: "video/quicktime", Data: []byte("live-motion")})
	lib.Add(model.Asset{
		ID:        "burst/42",
		Kind:      model.KindImage,
		CreatedAt: timePtr(base.Add(2 * time.Hour)),
	}, library.Export{Filename: "burst_42.jpg", ContentType: "image/jpeg", Data: []byte("burst-bytes")}, nil)
	return lib
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := New(&config.Config{Address: ":0", SharedSecret: testSecret}, newTestLibrary())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// doSigned issues a GET with valid HMAC headers for the request path.
func doSigned(t *testing.T, ts *httptest.Server, pathAndQuery string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+pathAndQuery, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	hmacauth.SignRequest(req, []byte(testSecret), time.Now())
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestHealthIsOpen(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "OK" {
		t.Fatalf("body = %q, want OK", body)
	}
}

func TestUnsignedRequestRejected(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/photos")
	if err != nil {
		t.Fatalf("get photos: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("error body missing generic message: %v", body)
	}
}

func TestListPhotos(t *testing.T) {
	ts := newTestServer(t)
	resp := doSigned(t, ts, "/photos")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var list model.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 3 || len(list.Photos) != 3 {
		t.Fatalf("count = %d / %d photos, want 3", list.Count, len(list.Photos))
	}
	if list.Photos[0].ID != "A1" {
		t.Fatalf("first asset = %s, want A1 (ascending order)", list.Photos[0].ID)
	}
}

func TestListPhotosSince(t *testing.T) {
	ts := newTestServer(t)
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	resp := doSigned(t, ts, "/photos?since="+strconv.FormatInt(since, 10))
	defer resp.Body.Close()
	var list model.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	// since filtering is strictly-after, so A1 (created exactly at since) is
	// excluded.
	if list.Count != 2 {
		t.Fatalf("count = %d, want 2", list.Count)
	}

	resp = doSigned(t, ts, "/photos?since=not-a-number")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("garbage since: status = %d, want 400", resp.StatusCode)
	}
}

func TestPhotoMetadata(t *testing.T) {
	ts := newTestServer(t)
	resp := doSigned(t, ts, "/photos/A1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var asset model.Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if asset.ID != "A1" || asset.Width != 4032 {
		t.Fatalf("unexpected asset %+v", asset)
	}

	resp = doSigned(t, ts, "/photos/unknown")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown id: status = %d, want 404", resp.StatusCode)
	}
}

func TestPhotoMetadataEncodedSlashID(t *testing.T) {
	ts := newTestServer(t)
	resp := doSigned(t, ts, "/photos/"+url.PathEscape("burst/42"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var asset model.Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if asset.ID != "burst/42" {
		t.Fatalf("asset id = %q", asset.ID)
	}
}

func TestDownloadHeaders(t *testing.T) {
	ts := newTestServer(t)
	resp := doSigned(t, ts, "/photos/A1/download")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := resp.Header.Get("X-Original-Filename"); got != "IMG_0001.jpg" {
		t.Fatalf("X-Original-Filename = %q", got)
	}
	if got := resp.Header.Get("X-Media-Type"); got != "image" {
		t.Fatalf("X-Media-Type = %q", got)
	}
	if got := resp.Header.Get("X-Creation-Date"); got != "2024-01-01T00:00:00Z" {
		t.Fatalf("X-Creation-Date = %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Fatalf("Content-Disposition = %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "jpeg-bytes" {
		t.Fatalf("body = %q", body)
	}
}

func TestLivePhotoMultipart(t *testing.T) {
	ts := newTestServer(t)
	resp := doSigned(t, ts, "/photos/L2/livephoto")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("content type = %q (%v)", resp.Header.Get("Content-Type"), err)
	}
	reader := multipart.NewReader(resp.Body, params["boundary"])
	parts := map[string][]byte{}
	types := map[string]string{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		parts[part.FormName()] = data
		types[part.FormName()] = part.Header.Get("Content-Type")
	}
	if string(parts["photo"]) != "live-still" {
		t.Fatalf("photo part = %q", parts["photo"])
	}
	if string(parts["video"]) != "live-motion" {
		t.Fatalf("video part = %q", parts["video"])
	}
	if types["video"] != "video/quicktime" {
		t.Fatalf("video content type = %q", types["video"])
	}
}

func TestLivePhotoWithoutVideoEmitsSinglePart(t *testing.T) {
	lib := library.NewMemoryLibrary()
	lib.Add(model.Asset{
		ID:        "L9",
		Kind:      model.KindImage,
		Subtypes:  []string{model.SubtypeLivePhoto},
		CreatedAt: timePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}, library.Export{Filename: "IMG_0009.jpg", ContentType: "image/jpeg", Data: []byte("still-only")}, nil)
	srv := New(&config.Config{Address: ":0", SharedSecret: testSecret}, lib)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := doSigned(t, ts, "/photos/L9/livephoto")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("content type: %v", err)
	}
	reader := multipart.NewReader(resp.Body, params["boundary"])
	part, err := reader.NextPart()
	if err != nil {
		t.Fatalf("next part: %v", err)
	}
	if part.FormName() != "photo" {
		t.Fatalf("part name = %q, want photo", part.FormName())
	}
	data, _ := io.ReadAll(part)
	if string(data) != "still-only" {
		t.Fatalf("photo part = %q", data)
	}
	// The video part is optional; a missing clip means exactly one part.
	if _, err := reader.NextPart(); err != io.EOF {
		t.Fatalf("expected exactly one part, got %v", err)
	}
}

func TestLivePhotoOnRegularAssetIsBadRequest(t *testing.T) {
	ts := newTestServer(t)
	resp := doSigned(t, ts, "/photos/A1/livephoto")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	resp = doSigned(t, ts, "/photos/unknown/livephoto")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown id: status = %d, want 404", resp.StatusCode)
	}
}

