package library

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Blank imports register the decoders with image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"photodrop/internal/model"
)

var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".heic": "image/heic",
}

var videoExts = map[string]string{
	".mp4": "video/mp4",
	".mov": "video/quicktime",
	".m4v": "video/x-m4v",
}

var audioExts = map[string]string{
	".mp3": "audio/mpeg",
	".m4a": "audio/mp4",
	".wav": "audio/wav",
}

// FromDirectory scans dir into a MemoryLibrary so the dev-mode server has
// something real to serve. An image file with a same-stem .mov companion
// (IMG_0001.JPG + IMG_0001.MOV) is treated as a live photo; the companion is
// attached as the video part instead of being listed as its own asset.
func FromDirectory(dir string) (*MemoryLibrary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read media dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	companions := liveCompanions(names)
	lib := NewMemoryLibrary()
	for _, name := range names {
		if _, isCompanion := companions[strings.ToLower(name)]; isCompanion {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		kind, contentType := classifyExt(ext)
		if kind == model.KindUnknown {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		created := info.ModTime().UTC()
		asset := model.Asset{
			ID:        name,
			CreatedAt: &created,
			Kind:      kind,
		}
		if kind == model.KindImage {
			// DecodeConfig reads only the header, not the pixel data.
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
				asset.Width = cfg.Width
				asset.Height = cfg.Height
			}
		}
		var video *Export
		if companionName, ok := findCompanion(name, names); ok {
			videoData, err := os.ReadFile(filepath.Join(dir, companionName))
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", companionName, err)
			}
			asset.Subtypes = append(asset.Subtypes, model.SubtypeLivePhoto)
			video = &Export{
				Filename:    companionName,
				ContentType: videoExts[strings.ToLower(filepath.Ext(companionName))],
				Data:        videoData,
			}
		}
		lib.Add(asset, Export{Filename: name, ContentType: contentType, Data: data}, video)
	}
	return lib, nil
}

// liveCompanions returns the lowercase names of video files that pair with an
// image of the same stem; those are folded into the image asset.
func liveCompanions(names []string) map[string]struct{} {
	stems := make(map[string]struct{})
	for _, n := range names {
		ext := strings.ToLower(filepath.Ext(n))
		if _, ok := imageExts[ext]; ok {
			stems[strings.ToLower(strings.TrimSuffix(n, filepath.Ext(n)))] = struct{}{}
		}
	}
	out := make(map[string]struct{})
	for _, n := range names {
		ext := strings.ToLower(filepath.Ext(n))
		if _, ok := videoExts[ext]; !ok {
			continue
		}
		stem := strings.ToLower(strings.TrimSuffix(n, filepath.Ext(n)))
		if _, ok := stems[stem]; ok {
			out[strings.ToLower(n)] = struct{}{}
		}
	}
	return out
}

func findCompanion(imageName string, names []string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(imageName))
	if _, ok := imageExts[ext]; !ok {
		return "", false
	}
	stem := strings.ToLower(strings.TrimSuffix(imageName, filepath.Ext(imageName)))
	for _, n := range names {
		nExt := strings.ToLower(filepath.Ext(n))
		if _, ok := videoExts[nExt]; !ok {
			continue
		}
		if strings.ToLower(strings.TrimSuffix(n, filepath.Ext(n))) == stem {
			return n, true
		}
	}
	return "", false
}

func classifyExt(ext string) (model.Kind, string) {
	if ct, ok := imageExts[ext]; ok {
		return model.KindImage, ct
	}
	if ct, ok := videoExts[ext]; ok {
		return model.KindVideo, ct
	}
	if ct, ok := audioExts[ext]; ok {
		return model.KindAudio, ct
	}
	return model.KindUnknown, ""
}
