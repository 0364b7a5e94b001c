// Package fetch retrieves raw page markup for the content extractor.
// Unlike a reader-style scraper, the markup is returned unstripped: the
// extractor needs script blocks and meta tags intact.
package fetch

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

const maxBodyBytes = 512 * 1024

// Fetcher retrieves a URL's markup as text.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (string, error)
}

// HTTPFetcher fetches pages via net/http with block detection.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// Option configures the fetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = hc
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// New creates an HTTPFetcher with sensible defaults.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: "Mozilla/5.0 (compatible; PlaceScanBot/1.0)",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves a URL and returns its raw markup. Bot walls, error
// statuses, and near-empty bodies are reported as errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "fetch: request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "fetch: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return "", eris.Errorf("fetch: blocked (%s)", blockType)
	}

	if resp.StatusCode >= 400 {
		return "", eris.Errorf("fetch: status %d", resp.StatusCode)
	}

	if len(body) < 100 {
		return "", eris.New("fetch: empty page")
	}

	return decodeCharset(body, resp.Header.Get("Content-Type")), nil
}

// decodeCharset converts the body to UTF-8 when the Content-Type declares
// a different charset. Undeclared or unknown charsets pass through as-is.
func decodeCharset(body []byte, contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body)
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" {
		return string(body)
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
