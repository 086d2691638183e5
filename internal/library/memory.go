package library

import (
	"context"
	"sort"
	"sync"
	"time"

	"photodrop/internal/model"
)

type memoryEntry struct {
	asset model.Asset
	photo Export
	video *Export
}

// MemoryLibrary is an in-memory Library guarded by an RWMutex. RWMutex lets
// us differentiate read locks (multiple concurrent readers) from write locks
// (single writer), which suits the request-heavy nature of the server.
type MemoryLibrary struct {
	mu     sync.RWMutex
	assets map[string]*memoryEntry
}

// NewMemoryLibrary constructs an empty MemoryLibrary.
func NewMemoryLibrary() *MemoryLibrary {
	return &MemoryLibrary{
		assets: make(map[string]*memoryEntry),
	}
}

// Add inserts or replaces an asset together with its exported bytes. video
// may be nil for single-component assets.
func (m *MemoryLibrary) Add(asset model.Asset, photo Export, video *Export) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[asset.ID] = &memoryEntry{asset: asset, photo: photo, video: video}
}

// List returns metadata for assets created strictly after since, ascending by
// creation time. Assets without a creation time only appear in full listings.
func (m *MemoryLibrary) List(ctx context.Context, since time.Time) ([]model.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Asset, 0, len(m.assets))
	for _, e := range m.assets {
		if !since.IsZero() {
			if e.asset.CreatedAt == nil || !e.asset.CreatedAt.After(since) {
				continue
			}
		}
		out = append(out, e.asset)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if ti == nil || tj == nil {
			// Undated assets sort first so they never gate cursor advancement.
			return tj != nil
		}
		if ti.Equal(*tj) {
			return out[i].ID < out[j].ID
		}
		return ti.Before(*tj)
	})
	return out, nil
}

// Get returns a copy of the asset metadata.
func (m *MemoryLibrary) Get(ctx context.Context, id string) (*model.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Returning a copy prevents callers from mutating internal state.
	asset := e.asset
	return &asset, nil
}

// Export returns the primary component bytes.
func (m *MemoryLibrary) Export(ctx context.Context, id string) (*Export, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	exp := e.photo
	return &exp, nil
}

// ExportLive returns the photo and optional video parts of a live photo.
func (m *MemoryLibrary) ExportLive(ctx context.Context, id string) (*LiveExport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.asset.IsLivePhoto() {
		return nil, ErrNotComposite
	}
	live := &LiveExport{Photo: e.photo}
	if e.video != nil {
		video := *e.video
		live.Video = &video
	}
	return live, nil
}
