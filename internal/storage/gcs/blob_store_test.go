package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := Dial(context.Background(), Config{Bucket: "pages"},
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutObjectUploadsToBucket(t *testing.T) {
	var gotPath, gotBody string
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		fmt.Fprintln(w, `{"name": "run-1/Q/misheard-queen.html", "bucket": "pages"}`)
	}))

	uri, err := store.PutObject(context.Background(), "/run-1/Q/misheard-queen.html", "text/html",
		strings.NewReader("<html>queen</html>"))
	require.NoError(t, err)
	assert.Equal(t, "gs://pages/run-1/Q/misheard-queen.html", uri)
	assert.Contains(t, gotPath, "/upload/storage/v1/b/pages/o")
	assert.Contains(t, gotBody, "<html>queen</html>")
}

func TestPutObjectSurfacesServerErrors(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := store.PutObject(context.Background(), "run-1/A/x.html", "text/html", strings.NewReader("x"))
	require.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)
	_, err = Dial(context.Background(), Config{})
	require.Error(t, err)

	store := &BlobStore{}
	_, err = store.PutObject(context.Background(), " ", "", strings.NewReader(""))
	require.Error(t, err)
}
