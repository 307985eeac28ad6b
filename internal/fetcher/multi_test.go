package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheme(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.org/a.geojson", "https"},
		{"HTTP://example.org/a.geojson", "http"},
		{"ftp://example.org/a.geojson", "ftp"},
		{"file:///tmp/a.geojson", "file"},
		{"/tmp/a.geojson", "file"},
		{"data/a.geojson", "file"},
		{`C:\data\a.geojson`, "file"},
		{"s3://bucket/a.geojson", "s3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Scheme(tt.in), tt.in)
	}
	assert.True(t, IsRemote("https://example.org/x"))
	assert.False(t, IsRemote("../data/x.geojson"))
}

func TestMultiFetcher_Dispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "local.geojson")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o644))

	m := NewMultiFetcher(HTTPOptions{RatePerHost: 1000, BaseBackoff: time.Millisecond}, FTPOptions{})
	ctx := context.Background()

	for src, want := range map[string]string{srv.URL + "/x": "remote", path: "local"} {
		body, err := m.Download(ctx, src)
		require.NoError(t, err)
		data, _ := io.ReadAll(body)
		body.Close()
		assert.Equal(t, want, string(data))
	}

	_, err := m.Download(ctx, "s3://bucket/key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")

	_, _, _, err = (&MultiFetcher{}).DownloadIfChanged(ctx, srv.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fetcher configured")
}
