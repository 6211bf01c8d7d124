package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
	"github.com/google/uuid"
)

type objectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFor(urlOrKey string) (string, error)
}

// UploadResult describes a stored image.
type UploadResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Service stores admin uploaded images.
type Service interface {
	Upload(ctx context.Context, kind enums.MediaKind, body io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, urlOrKey string) error
}

type service struct {
	store    objectStore
	maxBytes int64
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(store objectStore, maxBytes int64, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	return &service{store: store, maxBytes: maxBytes, logg: logg, now: time.Now}, nil
}

// Upload sniffs the body, rejects anything that is not an allowed image or is
// larger than the cap, and stores it under <kind>/<yyyy>/<mm>/<uuid><ext>.
func (s *service) Upload(ctx context.Context, kind enums.MediaKind, body io.Reader) (*UploadResult, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media kind").
			OnField("kind")
	}

	mediaType, ext, rest, err := sniff(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload")
	}
	if ext == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").
			WithDetails(map[string]any{"content_type": mediaType, "allowed": allowedDescription()})
	}

	// one extra byte tells an exact-size file from an oversized one
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(rest, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload")
	}
	if n > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file too large").
			WithDetails(map[string]any{"max_bytes": s.maxBytes})
	}

	now := s.now().UTC()
	key := path.Join(kind.String(), now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
	if err := s.store.Put(ctx, key, &buf, n, mediaType); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"object_key": key, "size": n}), "media.uploaded")
	}
	return &UploadResult{URL: s.store.PublicURL(key), Key: key, ContentType: mediaType, Size: n}, nil
}

// Delete removes an image by public URL or key. Only keys under a media kind
// prefix can be removed.
func (s *service) Delete(ctx context.Context, urlOrKey string) error {
	key, err := s.store.KeyFor(urlOrKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image reference")
	}
	if !ownedKey(key) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid image reference")
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image")
	}
	return nil
}

func ownedKey(key string) bool {
	if strings.Contains(key, "..") {
		return false
	}
	prefix, rest, ok := strings.Cut(key, "/")
	if !ok || prefix == "" || rest == "" {
		return false
	}
	_, err := enums.ParseMediaKind(prefix)
	return err == nil
}
