package library

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestFromDirectoryPairsLivePhotos(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "IMG_0001.jpg", []byte("not-a-real-jpeg"))
	writeFile(t, dir, "IMG_0001.mov", []byte("motion-clip"))
	writeFile(t, dir, "clip.mp4", []byte("standalone-video"))
	writeFile(t, dir, "shot.png", pngBytes(t, 32, 24))
	writeFile(t, dir, "notes.txt", []byte("ignored"))

	lib, err := FromDirectory(dir)
	if err != nil {
		t.Fatalf("FromDirectory: %v", err)
	}
	ctx := context.Background()

	assets, err := lib.List(ctx, time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	// The .mov companion folds into the image asset and the .txt is skipped.
	if len(assets) != 3 {
		t.Fatalf("listing has %d assets, want 3", len(assets))
	}

	live, err := lib.ExportLive(ctx, "IMG_0001.jpg")
	if err != nil {
		t.Fatalf("ExportLive: %v", err)
	}
	if string(live.Video.Data) != "motion-clip" {
		t.Fatalf("video part = %q", live.Video.Data)
	}
	if live.Video.ContentType != "video/quicktime" {
		t.Fatalf("video content type = %q", live.Video.ContentType)
	}

	shot, err := lib.Get(ctx, "shot.png")
	if err != nil {
		t.Fatalf("Get shot.png: %v", err)
	}
	if shot.Width != 32 || shot.Height != 24 {
		t.Fatalf("dimensions = %dx%d, want 32x24", shot.Width, shot.Height)
	}

	if _, err := lib.Get(ctx, "IMG_0001.mov"); err == nil {
		t.Fatalf("companion clip should not be listed as its own asset")
	}
}
