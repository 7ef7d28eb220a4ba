// Package media stores payment-proof uploads and hands back the reference
// string recorded on a payment event. The core never reads the bytes.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/apperr"
	"github.com/google/uuid"
)

const (
	// MaxUploadSize matches the limit enforced on the upload form.
	MaxUploadSize = 2 << 20

	// RefPrefix is the path prefix of every stored reference.
	RefPrefix = "/payment-media/"
)

var allowedTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

var (
	ErrUnsupportedType = apperr.Validation("only jpg, jpeg, png and pdf files are allowed")
	ErrTooLarge        = apperr.Validation("file exceeds the 2MB upload limit")
	ErrInvalidRef      = apperr.NotFound("media not found")
)

type Store interface {
	// Save persists r and returns its reference.
	Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error)
	// URL resolves a reference to a fetchable location.
	URL(ctx context.Context, ref string) (string, error)
}

// Validate checks the extension and declared size. It returns the content
// type to store, derived from the extension when the client omitted it.
func Validate(filename, contentType string, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := allowedTypes[ext]
	if !ok {
		return "", ErrUnsupportedType
	}
	if size > MaxUploadSize {
		return "", ErrTooLarge
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = want
	}
	return contentType, nil
}

// objectName yields "<unix-millis>-<short-uuid><ext>".
func objectName(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString()[:8], ext)
}

// objectFromRef strips RefPrefix and rejects anything that could escape it.
func objectFromRef(ref string) (string, error) {
	name := strings.TrimPrefix(ref, RefPrefix)
	if name == ref || name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return "", ErrInvalidRef
	}
	return name, nil
}

// RedirectHandler answers GET <RefPrefix><object> with a redirect to the
// location s resolves the reference to.
func RedirectHandler(s Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.URL(r.Context(), r.URL.Path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, u, http.StatusFound)
	})
}
