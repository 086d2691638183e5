package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sethvargo/go-retry"

	"photodrop/internal/config"
	"photodrop/internal/model"
)

// Engine drives the incremental sync loop: list assets newer than the
// cursor, download each one, then advance the cursor past everything that
// fully succeeded. One Engine runs a single logical stream of control; cycles
// never overlap.
type Engine struct {
	client       *Client
	downloadDir  string
	statePath    string
	maxAttempts  int
	pollInterval time.Duration

	// backoffBase seeds the exponential retry schedule; tests shrink it.
	backoffBase time.Duration
}

// NewEngine builds an Engine from configuration.
func NewEngine(cfg *config.Config, client *Client) *Engine {
	return &Engine{
		client:       client,
		downloadDir:  cfg.DownloadDir,
		statePath:    cfg.StateFile,
		maxAttempts:  cfg.MaxAttempts,
		pollInterval: cfg.PollInterval,
		backoffBase:  500 * time.Millisecond,
	}
}

// CycleStats summarizes one completed sync cycle.
type CycleStats struct {
	Listed     int
	Downloaded int
	Failed     int
	Cursor     time.Time
}

// RunCycle performs one full poll cycle. The cursor is only written after
// every per-item outcome is finalized, and never advances past the timestamp
// of an item that failed permanently, so failed assets reappear in the next
// cycle's listing. Cancellation aborts the cycle before any cursor write.
func (e *Engine) RunCycle(ctx context.Context) (*CycleStats, error) {
	cursor, err := LoadCursor(e.statePath)
	if err != nil {
		// A corrupt state file degrades to a full resync, which is safe
		// because downloads are idempotent.
		log.Printf("sync state unreadable, starting from scratch: %v", err)
		cursor = time.Time{}
	}
	if err := os.MkdirAll(e.downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	log.Printf("sync cycle starting, cursor at %s", formatCursor(cursor))

	var assets []model.Asset
	err = e.withRetry(ctx, func(ctx context.Context) error {
		listed, listErr := e.client.ListPhotos(ctx, cursor)
		if listErr != nil {
			return listErr
		}
		assets = listed
		return nil
	})
	if err != nil {
		// Listing never succeeded; the cursor stays put so the same window is
		// retried next cycle.
		return nil, fmt.Errorf("list photos: %w", err)
	}

	stats := &CycleStats{Listed: len(assets), Cursor: cursor}
	var maxSuccess, earliestFailure time.Time
	var undatedFailure bool
	for i := range assets {
		asset := &assets[i]
		if ctx.Err() != nil {
			// Shutdown mid-cycle: abort without touching the cursor; the
			// in-flight item is simply retried next cycle.
			return nil, ctx.Err()
		}
		if err := e.downloadAsset(ctx, asset); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			stats.Failed++
			log.Printf("asset %s failed permanently this cycle: %v", asset.ID, err)
			if asset.CreatedAt == nil {
				// Undated assets only ever appear in full listings, so there
				// is no timestamp to clamp to. Advancing the cursor would drop
				// the asset from every future incremental listing.
				undatedFailure = true
				continue
			}
			if earliestFailure.IsZero() || asset.CreatedAt.Before(earliestFailure) {
				earliestFailure = *asset.CreatedAt
			}
			continue
		}
		stats.Downloaded++
		if asset.CreatedAt != nil && asset.CreatedAt.After(maxSuccess) {
			maxSuccess = *asset.CreatedAt
		}
	}

	candidate := maxSuccess
	if !earliestFailure.IsZero() {
		// Clamp to just below the earliest permanent failure so it is listed
		// again next cycle. Successful items at or after that timestamp will
		// be re-downloaded, which is safe.
		clamped := earliestFailure.Add(-time.Second)
		if candidate.IsZero() || clamped.Before(candidate) {
			candidate = clamped
		}
	}
	if undatedFailure {
		// The only way an undated asset reappears is another full listing, so
		// the cursor must not move this cycle.
		candidate = time.Time{}
		log.Printf("undated asset failed; cursor stays at %s", formatCursor(cursor))
	}
	// The cursor is monotonically non-decreasing: a cycle that downloaded
	// nothing new leaves it untouched.
	if !candidate.IsZero() && candidate.After(cursor) {
		if err := SaveCursor(e.statePath, candidate); err != nil {
			return nil, fmt.Errorf("persist cursor: %w", err)
		}
		stats.Cursor = candidate
	}
	log.Printf("sync cycle complete: %d listed, %d downloaded, %d failed, cursor at %s",
		stats.Listed, stats.Downloaded, stats.Failed, formatCursor(stats.Cursor))
	return stats, nil
}

// Run loops RunCycle on the poll interval until the context is cancelled.
// The first cycle starts immediately.
func (e *Engine) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("sync loop stopping")
			return nil
		case <-timer.C:
		}
		if err := e.client.Health(ctx); err != nil {
			log.Printf("server health check failed, skipping cycle: %v", err)
		} else if _, err := e.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				log.Printf("sync loop stopping")
				return nil
			}
			log.Printf("sync cycle failed: %v", err)
		}
		timer.Reset(e.pollInterval)
	}
}

// downloadAsset retrieves one asset, composite or not, retrying transient
// failures up to the attempt budget.
func (e *Engine) downloadAsset(ctx context.Context, asset *model.Asset) error {
	return e.withRetry(ctx, func(ctx context.Context) error {
		if asset.IsLivePhoto() {
			parts, err := e.client.DownloadLivePhoto(ctx, asset.ID)
			if err != nil {
				return err
			}
			for i := range parts {
				if err := e.saveDownload(asset, &parts[i]); err != nil {
					return err
				}
			}
			return nil
		}
		d, err := e.client.DownloadAsset(ctx, asset.ID)
		if err != nil {
			return err
		}
		return e.saveDownload(asset, d)
	})
}

func (e *Engine) saveDownload(asset *model.Asset, d *Download) error {
	name := downloadFilename(asset, d)
	if err := writeFile(e.downloadDir, name, d.Data); err != nil {
		return err
	}
	log.Printf("downloaded %s (%d bytes)", name, len(d.Data))
	return nil
}

// withRetry runs op with bounded exponential backoff. Only transient errors
// are retried; authentication and protocol failures surface immediately. The
// backoff sleep honors context cancellation.
func (e *Engine) withRetry(ctx context.Context, op func(context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(e.maxAttempts-1), retry.NewExponential(e.backoffBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err != nil && IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
