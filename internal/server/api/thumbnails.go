package api

import (
	"bytes"
	"errors"
	"image"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/ayusman/signcapture/internal/dataset"
)

const (
	defaultThumbWidth = 160
	maxThumbWidth     = 1024
	thumbJPEGQuality  = 85
	thumbWebPQuality  = 80
)

// ThumbnailHandler serves downscaled copies of stored sample images.
type ThumbnailHandler struct {
	dataset *dataset.Store
}

// NewThumbnailHandler creates a ThumbnailHandler for ds.
func NewThumbnailHandler(ds *dataset.Store) *ThumbnailHandler {
	return &ThumbnailHandler{dataset: ds}
}

// thumbnailKinds maps URL segments to image directories.
var thumbnailKinds = map[string]dataset.Kind{
	"original":                    dataset.KindOriginal,
	"annotated":                   dataset.KindAnnotated,
	string(dataset.KindOriginal):  dataset.KindOriginal,
	string(dataset.KindAnnotated): dataset.KindAnnotated,
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/thumbnails/{sign}/{kind}/{filename}?w=160&format=jpeg|webp
func (h *ThumbnailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/thumbnails/"), "/")
	if len(parts) != 3 {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}
	sign, kindName, filename := parts[0], parts[1], parts[2]

	kind, ok := thumbnailKinds[kindName]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}

	width := defaultThumbWidth
	if v := r.URL.Query().Get("w"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxThumbWidth {
			writeMessage(w, http.StatusBadRequest, "Invalid width")
			return
		}
		width = n
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "jpeg"
	}
	if format != "jpeg" && format != "webp" {
		writeMessage(w, http.StatusBadRequest, "Invalid format")
		return
	}

	path, err := h.dataset.Path(sign, kind, filename)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid path")
		return
	}

	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeMessage(w, http.StatusNotFound, "Image not found")
			return
		}
		log.Printf("open thumbnail source %s: %v", path, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to read image")
		return
	}

	data, contentType, err := encodeThumbnail(imaging.Fit(img, width, width, imaging.Lanczos), format)
	if err != nil {
		log.Printf("encode thumbnail %s: %v", path, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to encode thumbnail")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Write(data)
}

func encodeThumbnail(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	if format == "webp" {
		if err := webp.Encode(&buf, img, &webp.Options{Quality: thumbWebPQuality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/webp", nil
	}
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(thumbJPEGQuality)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/jpeg", nil
}
