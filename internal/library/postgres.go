package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photodrop/internal/blobstore"
	"photodrop/internal/catalog"
	"photodrop/internal/model"
)

// CatalogLibrary implements Library over the Postgres catalog and the object
// store. Metadata queries hit the catalog; exports fetch bytes from storage.
type CatalogLibrary struct {
	repo  *catalog.Repository
	blobs *blobstore.Store
}

// NewCatalogLibrary wires the two backends together.
func NewCatalogLibrary(repo *catalog.Repository, blobs *blobstore.Store) *CatalogLibrary {
	return &CatalogLibrary{repo: repo, blobs: blobs}
}

// List returns assets created strictly after since, ascending.
func (c *CatalogLibrary) List(ctx context.Context, since time.Time) ([]model.Asset, error) {
	records, err := c.repo.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	out := make([]model.Asset, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Asset)
	}
	return out, nil
}

// Get returns the metadata for one asset.
func (c *CatalogLibrary) Get(ctx context.Context, id string) (*model.Asset, error) {
	rec, err := c.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	asset := rec.Asset
	return &asset, nil
}

// Export fetches the primary component from the object store.
func (c *CatalogLibrary) Export(ctx context.Context, id string) (*Export, error) {
	rec, err := c.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := c.blobs.Fetch(ctx, rec.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Export{
		Filename:    rec.FileName,
		ContentType: rec.ContentType,
		Data:        data,
	}, nil
}

// ExportLive fetches the photo and, when present, the paired motion clip.
func (c *CatalogLibrary) ExportLive(ctx context.Context, id string) (*LiveExport, error) {
	rec, err := c.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.Asset.IsLivePhoto() {
		return nil, ErrNotComposite
	}
	photo, err := c.blobs.Fetch(ctx, rec.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	live := &LiveExport{
		Photo: Export{Filename: rec.FileName, ContentType: rec.ContentType, Data: photo},
	}
	if rec.LiveVideoKey != "" {
		video, err := c.blobs.Fetch(ctx, rec.LiveVideoKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		live.Video = &Export{
			Filename:    rec.LiveVideoName,
			ContentType: "video/quicktime",
			Data:        video,
		}
	}
	return live, nil
}

func (c *CatalogLibrary) lookup(ctx context.Context, id string) (*catalog.Record, error) {
	rec, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rec, nil
}
