package fetcher

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Options configures an Opener.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

// Opener resolves a dataset source to a readable GeoJSON stream. Sources are
// local paths, file:// URLs, http(s):// URLs, or ftp:// URLs. A source ending
// in .zip is unpacked and its first GeoJSON entry is returned.
type Opener struct {
	schemes map[string]Fetcher
}

// NewOpener creates an Opener with HTTP and FTP fetchers built from opts.
func NewOpener(opts Options) *Opener {
	httpF := NewHTTPFetcher(HTTPOptions{
		UserAgent:  opts.UserAgent,
		Timeout:    opts.Timeout,
		MaxRetries: opts.MaxRetries,
	})
	ftpF := NewFTPFetcher(FTPOptions{Timeout: opts.Timeout})
	return &Opener{schemes: map[string]Fetcher{
		"http":  httpF,
		"https": httpF,
		"ftp":   ftpF,
	}}
}

// WithFetcher registers f for a URL scheme, replacing any existing one.
func (o *Opener) WithFetcher(scheme string, f Fetcher) *Opener {
	o.schemes[strings.ToLower(scheme)] = f
	return o
}

// Open returns a stream for source. The caller must close it.
func (o *Opener) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.TrimSpace(source) == "" {
		return nil, eris.New("fetcher: empty source")
	}

	scheme, path := splitSource(source)
	log := zap.L().With(zap.String("source", source), zap.String("scheme", scheme))

	if scheme == "file" {
		if isZIP(path) {
			return OpenZIPGeoJSON(path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		return f, nil
	}

	f, ok := o.schemes[scheme]
	if !ok {
		return nil, eris.Errorf("fetcher: unsupported scheme %q", scheme)
	}

	log.Debug("fetcher: downloading")
	body, err := f.Download(ctx, source)
	if err != nil {
		return nil, err
	}
	if !isZIP(path) {
		return body, nil
	}

	// Archives need random access, so spool to disk first.
	defer body.Close() //nolint:errcheck
	tmp, err := os.CreateTemp("", "lotes-*.zip")
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create temp file")
	}
	_, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, eris.Wrap(err, "fetcher: spool archive")
	}

	rc, err := OpenZIPGeoJSON(tmp.Name())
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	return &spooledReader{ReadCloser: rc, path: tmp.Name()}, nil
}

// spooledReader deletes its spool file once the entry and archive are closed.
type spooledReader struct {
	io.ReadCloser
	path string
}

func (r *spooledReader) Close() error {
	closeErr := r.ReadCloser.Close()
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(errors.Join(closeErr, err), "fetcher: remove spool file")
	}
	return closeErr
}

// splitSource returns the lower-cased scheme ("file" for bare paths) and the
// path component used for extension checks.
func splitSource(source string) (string, string) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// len 1 covers Windows drive letters.
		return "file", source
	}
	return strings.ToLower(u.Scheme), u.Path
}

func isZIP(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}
