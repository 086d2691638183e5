package server

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"photodrop/internal/library"
)

// handleLivePhoto streams the named parts of a composite asset as
// multipart/form-data. multipart.NewWriter picks a fresh random boundary for
// every response.
func (s *Server) handleLivePhoto(w http.ResponseWriter, r *http.Request, id string) {
	live, err := s.lib.ExportLive(r.Context(), id)
	if err != nil {
		s.respondLibraryError(w, r, err)
		return
	}
	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", mw.FormDataContentType())
	w.WriteHeader(http.StatusOK)
	if err := writePart(mw, "photo", live.Photo); err != nil {
		log.Printf("write live photo part for %s: %v", id, err)
		return
	}
	// The video part is optional; its absence is a valid response.
	if live.Video != nil {
		if err := writePart(mw, "video", *live.Video); err != nil {
			log.Printf("write live video part for %s: %v", id, err)
			return
		}
	}
	if err := mw.Close(); err != nil {
		log.Printf("close multipart writer for %s: %v", id, err)
	}
}

func writePart(mw *multipart.Writer, name string, export library.Export) error {
	// CreateFormFile hardcodes application/octet-stream, so build the part
	// headers by hand to carry the real content type.
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, export.Filename))
	h.Set("Content-Type", export.ContentType)
	pw, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = pw.Write(export.Data)
	return err
}
