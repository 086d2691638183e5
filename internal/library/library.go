// Package library defines the Asset Store surface the HTTP server serves
// from: listing metadata since a timestamp and exporting asset bytes. Two
// backends implement it, an in-memory library for dev mode and tests, and a
// Postgres+object-storage catalog for real deployments.
package library

import (
	"context"
	"errors"
	"time"

	"photodrop/internal/model"
)

var (
	// ErrNotFound is exported so callers elsewhere can compare errors using
	// errors.Is; Go encourages sentinel errors for simple cases.
	ErrNotFound = errors.New("asset not found")

	// ErrNotComposite is returned when a live-photo export is requested for an
	// asset that has only one physical component. Distinct from ErrNotFound so
	// the server can answer 400 rather than 404.
	ErrNotComposite = errors.New("asset is not a live photo")

	// ErrUnavailable covers backends that exist but cannot currently be
	// reached or queried (object store down, access not yet granted).
	ErrUnavailable = errors.New("asset store unavailable")
)

// Export is one whole-object download: the complete bytes plus the metadata
// the HTTP layer turns into response headers.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// LiveExport carries the named parts of a composite asset. Video is nil when
// the motion clip is missing, which is valid, not an error.
type LiveExport struct {
	Photo Export
	Video *Export
}

// Library is the read surface of the media catalog.
type Library interface {
	// List returns assets created strictly after since, ordered by ascending
	// creation time. A zero since means "everything".
	List(ctx context.Context, since time.Time) ([]model.Asset, error)
	// Get returns the metadata for one asset.
	Get(ctx context.Context, id string) (*model.Asset, error)
	// Export returns the complete primary component of an asset.
	Export(ctx context.Context, id string) (*Export, error)
	// ExportLive returns the named parts of a composite asset.
	ExportLive(ctx context.Context, id string) (*LiveExport, error)
}
