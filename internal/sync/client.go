package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"photodrop/internal/hmacauth"
	"photodrop/internal/model"
)

// StatusError reports a non-2xx server response. The engine uses the code to
// decide whether an attempt is worth retrying.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d for %s", e.Code, e.Path)
}

// IsTransient reports whether an error is worth retrying: transport failures
// and 5xx/429 responses. Authentication and protocol errors are terminal, by
// the propagation policy they never retry.
func IsTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}
	// Everything else at this level is a transport problem: timeouts,
	// connection resets, DNS hiccups.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Download is one retrieved component: the complete bytes plus the filename
// and media type the server attached. MediaType always holds the asset-kind
// vocabulary ("image", "video", ...); Role names the component within a
// composite asset ("photo" or "video") and is empty for plain downloads.
type Download struct {
	Filename  string
	MediaType string
	Role      string
	Data      []byte
}

// Client talks to the PhotoDrop server, signing every request with the shared
// secret.
type Client struct {
	baseURL string
	secret  []byte
	http    *http.Client
	now     func() time.Time
}

// NewClient builds a Client. Every request carries the configured timeout via
// the underlying http.Client, so no call blocks indefinitely.
func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Health probes the unauthenticated liveness route.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Path: "/health"}
	}
	return nil
}

// ListPhotos returns assets created strictly after since, in server order
// (ascending creation time). A zero since lists everything.
func (c *Client) ListPhotos(ctx context.Context, since time.Time) ([]model.Asset, error) {
	path := "/photos"
	query := ""
	if !since.IsZero() {
		query = "?since=" + strconv.FormatInt(since.Unix(), 10)
	}
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var list model.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return list.Photos, nil
}

// DownloadAsset retrieves the primary component of one asset.
func (c *Client) DownloadAsset(ctx context.Context, id string) (*Download, error) {
	resp, err := c.get(ctx, "/photos/"+url.PathEscape(id)+"/download", "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	return &Download{
		Filename:  resp.Header.Get("X-Original-Filename"),
		MediaType: resp.Header.Get("X-Media-Type"),
		Data:      data,
	}, nil
}

// DownloadLivePhoto retrieves both components of a composite asset. The
// returned slice holds the photo part and, when the server has one, the
// video part; a missing video part is valid.
func (c *Client) DownloadLivePhoto(ctx context.Context, id string) ([]Download, error) {
	resp, err := c.get(ctx, "/photos/"+url.PathEscape(id)+"/livephoto", "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parse live photo content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return nil, fmt.Errorf("live photo response is not multipart (%s)", mediaType)
	}
	reader := multipart.NewReader(resp.Body, params["boundary"])
	var parts []Download
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read live photo part: %w", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("read live photo part body: %w", err)
		}
		role := part.FormName()
		kind := model.KindImage
		if role == "video" {
			kind = model.KindVideo
		}
		parts = append(parts, Download{
			Filename:  part.FileName(),
			MediaType: string(kind),
			Role:      role,
			Data:      data,
		})
	}
	if len(parts) == 0 {
		return nil, errors.New("live photo response had no parts")
	}
	return parts, nil
}

// get issues a signed GET. The signature covers the escaped path only; the
// query string is deliberately excluded from the signed message.
func (c *Client) get(ctx context.Context, path, query string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+query, nil)
	if err != nil {
		return nil, err
	}
	hmacauth.SignRequest(req, c.secret, c.now())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Path: path}
	}
	return resp, nil
}
