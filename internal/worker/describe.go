package worker

import (
	"bytes"
	"image"
	"net/http"
	"path/filepath"
	"strings"

	// Blank imports register the decoders with image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"photodrop/internal/model"
)

// MediaDescription is the metadata sniffed from raw media bytes.
type MediaDescription struct {
	Kind        model.Kind
	ContentType string
	Width       int
	Height      int
}

// DescribeMedia classifies raw media bytes. Content sniffing via
// http.DetectContentType covers the common container formats; the file
// extension is a fallback for types the sniffer reports as octet-stream
// (HEIC notably).
func DescribeMedia(data []byte, filename string) MediaDescription {
	contentType := http.DetectContentType(data)
	if contentType == "application/octet-stream" {
		if byExt := extensionContentType(filename); byExt != "" {
			contentType = byExt
		}
	}
	desc := MediaDescription{
		Kind:        kindForContentType(contentType),
		ContentType: contentType,
	}
	if desc.Kind == model.KindImage {
		// DecodeConfig reads only the header, not the pixel data.
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			desc.Width = cfg.Width
			desc.Height = cfg.Height
		}
	}
	return desc
}

func kindForContentType(contentType string) model.Kind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return model.KindImage
	case strings.HasPrefix(contentType, "video/"):
		return model.KindVideo
	case strings.HasPrefix(contentType, "audio/"):
		return model.KindAudio
	default:
		return model.KindUnknown
	}
}

func extensionContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".heic":
		return "image/heic"
	case ".mov":
		return "video/quicktime"
	case ".m4a":
		return "audio/mp4"
	default:
		return ""
	}
}
