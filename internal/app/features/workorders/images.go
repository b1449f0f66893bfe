// internal/app/features/workorders/images.go
package workorders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/app/system/blobstore"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Upload limits for POST /workorders/{id}/images.
const (
	MaxImages     = 10
	MaxImageBytes = 10 << 20
	imageField    = "images"
)

// HandleImages handles POST /workorders/{id}/images: a multipart form with
// up to MaxImages files in the "images" field. Every file must be an image.
// The files are stored first, then attached in one write; if the attach
// fails the stored files are removed.
func (h *Handler) HandleImages(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if h.Blobs == nil {
		respond.Message(w, http.StatusServiceUnavailable, "Image storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxImages*MaxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		h.fail(w, r, apperr.Invalid(imageField, "Upload must be a multipart form of images."))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[imageField]
	if err := checkFiles(files); err != nil {
		h.fail(w, r, err)
		return
	}

	ident := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	// Resolve first so nothing is stored for an order the caller cannot see.
	if _, err := h.Orders.Get(ctx, caller, ident); err != nil {
		h.fail(w, r, err)
		return
	}

	now := time.Now()
	var keys, urls []string
	for _, fh := range files {
		key := blobstore.OrderImageKey(now, fh.Filename)
		url, err := h.store(ctx, key, fh)
		if err != nil {
			h.cleanup(keys)
			h.fail(w, r, err)
			return
		}
		keys = append(keys, key)
		urls = append(urls, url)
	}

	o, err := h.Orders.AddImages(ctx, caller, ident, urls)
	if err != nil {
		h.cleanup(keys)
		h.fail(w, r, err)
		return
	}
	respond.OK(w, o)
}

func checkFiles(files []*multipart.FileHeader) error {
	switch {
	case len(files) == 0:
		return apperr.Invalid(imageField, "At least one image is required.")
	case len(files) > MaxImages:
		return apperr.Invalid(imageField, fmt.Sprintf("At most %d images per upload.", MaxImages))
	}
	for _, fh := range files {
		if fh.Size > MaxImageBytes {
			return apperr.Invalid(imageField, fmt.Sprintf("%s is larger than %d MB.", fh.Filename, MaxImageBytes>>20))
		}
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			return apperr.Invalid(imageField, fh.Filename+" is not an image.")
		}
	}
	return nil
}

// store copies one part to the blob store. The declared content type must
// agree with the sniffed one.
func (h *Handler) store(ctx context.Context, key string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	sniffed := http.DetectContentType(head[:n])
	if !strings.HasPrefix(sniffed, "image/") {
		return "", apperr.Invalid(imageField, fh.Filename+" is not an image.")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if err := h.Blobs.Put(ctx, key, io.LimitReader(f, fh.Size), &storage.PutOptions{ContentType: sniffed}); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	return h.Blobs.URL(key), nil
}

// cleanup removes stored blobs after a failed attach. It runs on its own
// context so a cancelled request still cleans up.
func (h *Handler) cleanup(keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()
	for _, k := range keys {
		if err := h.Blobs.Delete(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
			h.Log.Warn("remove orphaned image", zap.String("key", k), zap.Error(err))
		}
	}
}
