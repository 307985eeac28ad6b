package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// FileFetcher reads sources from the local filesystem. It accepts plain paths
// and file:// URLs.
type FileFetcher struct{}

// LocalPath resolves a file:// URL or plain path to a filesystem path.
func LocalPath(raw string) (string, error) {
	if !strings.HasPrefix(raw, "file:") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrap(err, "parse file url")
	}
	if u.Path == "" {
		return "", eris.Errorf("empty path in file url %q", raw)
	}
	return u.Path, nil
}

// Download opens the file.
func (FileFetcher) Download(ctx context.Context, raw string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "file: context")
	}
	path, err := LocalPath(raw)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "file: open")
	}
	return f, nil
}

// DownloadIfChanged derives the ETag from size and modification time.
func (ff FileFetcher) DownloadIfChanged(ctx context.Context, raw string, etag string) (io.ReadCloser, string, bool, error) {
	path, err := LocalPath(raw)
	if err != nil {
		return nil, "", false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", false, eris.Wrap(err, "file: stat")
	}
	newETag := fmt.Sprintf(`"%x-%x"`, info.Size(), info.ModTime().UnixNano())
	if newETag == etag {
		return nil, etag, false, nil
	}
	rc, err := ff.Download(ctx, raw)
	if err != nil {
		return nil, "", false, err
	}
	return rc, newETag, true, nil
}
