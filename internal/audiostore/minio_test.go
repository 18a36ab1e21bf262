package audiostore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeS3 answers just enough of the S3 API for bucket checks, single-part
// uploads and deletes.
type fakeS3 struct {
	mu      sync.Mutex
	puts    map[string]string // path -> content type
	deletes []string
	bucket  bool
	made    bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodHead:
		if !f.bucket {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		if strings.Count(strings.Trim(r.URL.Path, "/"), "/") == 0 {
			f.bucket, f.made = true, true
			w.WriteHeader(http.StatusOK)
			return
		}
		f.puts[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		f.deletes = append(f.deletes, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newFakeMinio(t *testing.T, bucketExists bool) (*MinioStore, *fakeS3) {
	t.Helper()
	f := &fakeS3{puts: map[string]string{}, bucket: bucketExists}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	s, err := NewMinioStore(context.Background(), MinioOptions{
		Endpoint:  u.Host,
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "echo-audio",
		Region:    "us-east-1",
		URLTTL:    10 * time.Minute,
	})
	require.NoError(t, err)
	return s, f
}

func TestMinioStore_SaveReturnsPresignedURL(t *testing.T) {
	s, f := newFakeMinio(t, true)

	loc, err := s.Save(context.Background(), "tts/a.mp3", strings.NewReader("ID3"), "audio/mpeg")
	require.NoError(t, err)

	u, err := url.Parse(loc)
	require.NoError(t, err)
	require.Equal(t, "/echo-audio/tts/a.mp3", u.Path)
	require.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	require.Equal(t, "600", u.Query().Get("X-Amz-Expires"))

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, "audio/mpeg", f.puts["/echo-audio/tts/a.mp3"])
}

func TestMinioStore_CreatesMissingBucket(t *testing.T) {
	_, f := newFakeMinio(t, false)
	f.mu.Lock()
	defer f.mu.Unlock()
	require.True(t, f.made)
}

func TestMinioStore_DeleteAndInvalidKey(t *testing.T) {
	s, f := newFakeMinio(t, true)
	require.NoError(t, s.Delete(context.Background(), "tts/a.mp3"))
	_, err := s.Save(context.Background(), "../x", strings.NewReader("x"), "")
	require.ErrorIs(t, err, ErrInvalidKey)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, []string{"/echo-audio/tts/a.mp3"}, f.deletes)
}
