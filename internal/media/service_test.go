package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pngMagic = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

type fakeStore struct {
	puts    map[string][]byte
	types   map[string]string
	deleted []string
	putErr  error
	delErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{puts: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	f.puts[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (f *fakeStore) KeyFor(urlOrKey string) (string, error) {
	if strings.HasPrefix(urlOrKey, "https://cdn.example.com/") {
		return strings.TrimPrefix(urlOrKey, "https://cdn.example.com/"), nil
	}
	if strings.Contains(urlOrKey, "://") {
		return "", errors.New("foreign url")
	}
	return urlOrKey, nil
}

func newTestService(t *testing.T, store *fakeStore, maxBytes int64) *service {
	t.Helper()
	svc, err := NewService(store, maxBytes, nil)
	require.NoError(t, err)
	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }
	return s
}

func pngBody(size int) []byte {
	body := make([]byte, size)
	copy(body, pngMagic)
	return body
}

func TestUploadStoresImageUnderKindAndMonth(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, 1024)

	res, err := svc.Upload(context.Background(), enums.MediaKindCast, bytes.NewReader(pngBody(200)))
	require.NoError(t, err)

	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, int64(200), res.Size)
	assert.True(t, strings.HasPrefix(res.Key, "cast/2026/03/"), res.Key)
	assert.True(t, strings.HasSuffix(res.Key, ".png"), res.Key)
	assert.Equal(t, "https://cdn.example.com/"+res.Key, res.URL)
	assert.Len(t, store.puts[res.Key], 200)
	assert.Equal(t, "image/png", store.types[res.Key])
}

func TestUploadAcceptsExactlyMaxBytes(t *testing.T) {
	svc := newTestService(t, newFakeStore(), 64)

	_, err := svc.Upload(context.Background(), enums.MediaKindDrink, bytes.NewReader(pngBody(64)))
	require.NoError(t, err)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, 64)

	_, err := svc.Upload(context.Background(), enums.MediaKindCast, bytes.NewReader(pngBody(65)))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "file too large")
	assert.Empty(t, store.puts)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, 1024)

	_, err := svc.Upload(context.Background(), enums.MediaKindCast, strings.NewReader("just some plain text"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "unsupported image type")
	assert.Empty(t, store.puts)
}

func TestUploadDetectsJPEG(t *testing.T) {
	svc := newTestService(t, newFakeStore(), 1024)
	body := append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), make([]byte, 50)...)

	res, err := svc.Upload(context.Background(), enums.MediaKindBadge, bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.ContentType)
	assert.True(t, strings.HasSuffix(res.Key, ".jpg"))
}

func TestUploadRejectsUnknownKind(t *testing.T) {
	svc := newTestService(t, newFakeStore(), 1024)

	_, err := svc.Upload(context.Background(), enums.MediaKind("license"), bytes.NewReader(pngBody(20)))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUploadStoreFailureIsDependencyError(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("bucket offline")
	svc := newTestService(t, store, 1024)

	_, err := svc.Upload(context.Background(), enums.MediaKindCast, bytes.NewReader(pngBody(20)))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestDeleteAcceptsURLAndKey(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, 1024)

	require.NoError(t, svc.Delete(context.Background(), "https://cdn.example.com/cast/2026/03/a.png"))
	require.NoError(t, svc.Delete(context.Background(), "drink/2026/03/b.jpg"))
	assert.Equal(t, []string{"cast/2026/03/a.png", "drink/2026/03/b.jpg"}, store.deleted)
}

func TestDeleteRejectsForeignOrUnownedReferences(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, 1024)

	cases := []string{
		"https://elsewhere.example.com/cast/a.png",
		"secrets/keys.txt",
		"cast/../secrets/keys.txt",
		"cast",
		"/cast/a.png",
	}
	for _, ref := range cases {
		err := svc.Delete(context.Background(), ref)
		require.Error(t, err, ref)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), ref)
	}
	assert.Empty(t, store.deleted)
}

func TestNewServiceRequiresStoreAndLimit(t *testing.T) {
	_, err := NewService(nil, 10, nil)
	require.Error(t, err)

	_, err = NewService(newFakeStore(), 0, nil)
	require.Error(t, err)
}
