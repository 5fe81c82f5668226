// Package storagetest provides an in-memory S3 endpoint for tests.
package storagetest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"fightcancer/internal/storage"
)

// Fake serves path-style PUT and GET requests from memory. Objects are
// keyed by "/<bucket>/<key>".
type Fake struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *Fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = b
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		b, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return
		}
		_, _ = w.Write(b)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Object returns the stored body of bucket/key.
func (f *Fake) Object(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects["/"+bucket+"/"+key]
	return b, ok
}

// NewClient starts a Fake and returns a client writing to bucket.
func NewClient(t testing.TB, bucket string) (*storage.Client, *Fake) {
	t.Helper()
	fake := &Fake{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := storage.New(context.Background(), storage.Options{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Bucket:    bucket,
		AccessKey: "k",
		SecretKey: "s",
	})
	require.NoError(t, err)
	return c, fake
}
