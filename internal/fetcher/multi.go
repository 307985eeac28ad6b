package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// MultiFetcher dispatches to a scheme-specific fetcher.
type MultiFetcher struct {
	HTTP Fetcher
	FTP  Fetcher
	File Fetcher
}

// NewMultiFetcher builds a MultiFetcher with HTTP, FTP and file support.
func NewMultiFetcher(httpOpts HTTPOptions, ftpOpts FTPOptions) *MultiFetcher {
	return &MultiFetcher{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
		File: FileFetcher{},
	}
}

// Scheme returns the lower-cased URL scheme of a source, or "file" for
// plain paths.
func Scheme(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || len(u.Scheme) <= 1 {
		// one-letter schemes are Windows drive letters
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// IsRemote reports whether a source needs the network.
func IsRemote(raw string) bool {
	s := Scheme(raw)
	return s != "file"
}

func (m *MultiFetcher) pick(raw string) (Fetcher, error) {
	var f Fetcher
	switch Scheme(raw) {
	case "http", "https":
		f = m.HTTP
	case "ftp":
		f = m.FTP
	case "file":
		f = m.File
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme in %q", raw)
	}
	if f == nil {
		return nil, eris.Errorf("fetcher: no fetcher configured for %q", raw)
	}
	return f, nil
}

// Download implements Fetcher.
func (m *MultiFetcher) Download(ctx context.Context, raw string) (io.ReadCloser, error) {
	f, err := m.pick(raw)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, raw)
}

// DownloadIfChanged implements Fetcher.
func (m *MultiFetcher) DownloadIfChanged(ctx context.Context, raw string, etag string) (io.ReadCloser, string, bool, error) {
	f, err := m.pick(raw)
	if err != nil {
		return nil, "", false, err
	}
	return f.DownloadIfChanged(ctx, raw, etag)
}
