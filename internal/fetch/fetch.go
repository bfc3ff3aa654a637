// Package fetch opens the text sources licmatch reads: license files in the
// catalog and the query document, which may be a local path, "-" for standard
// input, or an http(s) URL.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Size limits. License texts are small; anything larger is almost certainly
// the wrong input.
var (
	MaxFileBytes int64 = 10 * 1024 * 1024
	MaxHTTPBytes int64 = 20 * 1024 * 1024
)

// RequestTimeout bounds a whole HTTP fetch.
const RequestTimeout = 30 * time.Second

// ErrTooLarge is returned when a source exceeds its size limit.
var ErrTooLarge = errors.New("content exceeds size limit")

var httpClient = &http.Client{
	Timeout: RequestTimeout,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: RequestTimeout / 6,
		}).DialContext,
		TLSHandshakeTimeout:   RequestTimeout / 6,
		ResponseHeaderTimeout: RequestTimeout / 2,
		DisableKeepAlives:     true,
	},
}

// Source is an opened input.
type Source struct {
	Name string
	Body io.ReadCloser
	// MediaType is "text/html" for HTML pages and files, "text/plain" for
	// other files, and empty when unknown (stdin).
	MediaType string
	// URL is set for http(s) sources.
	URL *url.URL
}

// IsHTML reports whether the source is known to hold HTML.
func (s *Source) IsHTML() bool {
	return s.MediaType == "text/html" || s.MediaType == "application/xhtml+xml"
}

// Open opens source for reading. The caller closes Body.
func Open(ctx context.Context, source string) (*Source, error) {
	switch {
	case source == "-":
		return &Source{
			Name: "stdin",
			Body: &limitedReadCloser{rc: os.Stdin, remaining: MaxFileBytes, source: "stdin"},
		}, nil
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		return openURL(ctx, source)
	default:
		return openFile(source)
	}
}

// ReadAll reads the whole of source as text.
func ReadAll(ctx context.Context, source string) (string, error) {
	src, err := Open(ctx, source)
	if err != nil {
		return "", err
	}
	defer src.Body.Close()

	b, err := io.ReadAll(src.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", src.Name, err)
	}
	return string(b), nil
}

func openURL(ctx context.Context, rawURL string) (*Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %q: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", "licmatch/0.1")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %q: status %s", rawURL, resp.Status)
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if size, err := strconv.ParseInt(cl, 10, 64); err == nil && size > MaxHTTPBytes {
			resp.Body.Close()
			return nil, fmt.Errorf("%q is %d bytes, limit %d: %w", rawURL, size, MaxHTTPBytes, ErrTooLarge)
		}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	slog.Debug("Fetched URL", "url", rawURL, "mediaType", mediaType)

	return &Source{
		Name:      rawURL,
		Body:      &limitedReadCloser{rc: resp.Body, remaining: MaxHTTPBytes, source: rawURL},
		MediaType: mediaType,
		URL:       u,
	}, nil
}

func openFile(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("accessing %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%q is a directory", path)
	}
	if info.Size() > MaxFileBytes {
		return nil, fmt.Errorf("%q is %d bytes, limit %d: %w", path, info.Size(), MaxFileBytes, ErrTooLarge)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}

	mediaType := "text/plain"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		mediaType = "text/html"
	case ".xhtml":
		mediaType = "application/xhtml+xml"
	}
	return &Source{Name: path, Body: f, MediaType: mediaType}, nil
}

// limitedReadCloser fails once more than remaining bytes have been read.
type limitedReadCloser struct {
	rc        io.ReadCloser
	remaining int64
	source    string
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, fmt.Errorf("%s: %w", l.source, ErrTooLarge)
	}
	// allow one byte past the limit so an input of exactly the limit still ends in EOF
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.rc.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n - 1, fmt.Errorf("%s: %w", l.source, ErrTooLarge)
	}
	return n, err
}

func (l *limitedReadCloser) Close() error {
	return l.rc.Close()
}
