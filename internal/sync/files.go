package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photodrop/internal/model"
)

// sanitizeFilename replaces characters that are unsafe on common filesystems.
func sanitizeFilename(name string) string {
	const invalid = `<>:"/\|?*`
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalid, r) {
			return '_'
		}
		return r
	}, name)
}

// downloadFilename derives the local filename for one downloaded component.
// The server-provided original filename wins; otherwise a name is generated
// from the creation date (or the asset id) with an extension matching the
// media type.
func downloadFilename(asset *model.Asset, d *Download) string {
	if d.Filename != "" {
		return sanitizeFilename(d.Filename)
	}
	base := sanitizeFilename(asset.ID)
	if asset.CreatedAt != nil {
		base = asset.CreatedAt.UTC().Format("20060102_150405")
	}
	ext := ".jpg"
	if d.MediaType == string(model.KindVideo) {
		ext = ".mp4"
	}
	return base + ext
}

// writeFile persists a download atomically: temp file plus rename, the same
// discipline as the cursor. Re-downloading an asset simply replaces the
// previous bytes, which keeps downloads idempotent.
func writeFile(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp download: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close download: %w", err)
	}
	target := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace download: %w", err)
	}
	return nil
}

// formatCursor renders a cursor for log lines; the zero value means a full
// first sync.
func formatCursor(cursor time.Time) string {
	if cursor.IsZero() {
		return "beginning of time"
	}
	return cursor.UTC().Format(time.RFC3339)
}
