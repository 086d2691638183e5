package worker

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"photodrop/internal/model"
)

func TestDescribeMediaPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 48, 36))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	desc := DescribeMedia(buf.Bytes(), "shot.png")
	if desc.Kind != model.KindImage {
		t.Fatalf("kind = %s, want image", desc.Kind)
	}
	if desc.ContentType != "image/png" {
		t.Fatalf("content type = %s", desc.ContentType)
	}
	if desc.Width != 48 || desc.Height != 36 {
		t.Fatalf("dimensions = %dx%d, want 48x36", desc.Width, desc.Height)
	}
}

func TestDescribeMediaExtensionFallback(t *testing.T) {
	// Bytes the sniffer cannot classify fall back to the file extension.
	desc := DescribeMedia([]byte{0x00, 0x01, 0x02, 0x03}, "IMG_0042.heic")
	if desc.ContentType != "image/heic" {
		t.Fatalf("content type = %s, want image/heic", desc.ContentType)
	}
	if desc.Kind != model.KindImage {
		t.Fatalf("kind = %s, want image", desc.Kind)
	}
}

func TestDescribeMediaUnknown(t *testing.T) {
	desc := DescribeMedia([]byte{0x00, 0x01}, "mystery.bin")
	if desc.Kind != model.KindUnknown {
		t.Fatalf("kind = %s, want unknown", desc.Kind)
	}
}
