package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/nao1215/biblioscan/internal/locator"
	"github.com/nao1215/biblioscan/internal/model"
)

// Default transport settings.
const (
	// DefaultTimeout bounds one request end to end.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the crawler to servers.
	DefaultUserAgent = "biblioscan/1.0 (+https://github.com/nao1215/biblioscan)"

	// maxRedirects caps redirect chains to prevent loops.
	maxRedirects = 10
)

// Config holds the transport settings for a Fetcher.
type Config struct {
	// UserAgent is sent with every request. Empty means DefaultUserAgent.
	UserAgent string

	// Cookie is a raw cookie string (e.g. "session=abc123") injected
	// into every request, for sites that gate book files behind a
	// session.
	Cookie string

	// Headers are extra headers injected into every request.
	Headers map[string]string

	// TLSSkipVerify disables certificate verification, for sites with
	// self-signed certificates.
	TLSSkipVerify bool

	// Timeout bounds one request. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxBodySize caps response bodies. Zero means model.MaxBodySize.
	MaxBodySize int64
}

// Fetcher retrieves resources from remote URLs and local paths.
// A Fetcher is safe for concurrent use.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// New creates a Fetcher from config.
func New(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	maxBodySize := cfg.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = model.MaxBodySize
	}

	transport := http.RoundTripper(&http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in per site config
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	})
	if cfg.Cookie != "" || len(cfg.Headers) > 0 {
		transport = &headerInjectingTransport{
			base:    transport,
			cookie:  cfg.Cookie,
			headers: cfg.Headers,
		}
	}

	// Cookie jar keeps sessions alive across a crawl.
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			Jar:       jar,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:   userAgent,
		maxBodySize: maxBodySize,
	}
}

// Fetch retrieves the resource behind loc. Remote locators are fetched
// over HTTP(S); local locators are read from disk with the content type
// sniffed from the bytes. The returned resource always has its hash
// computed.
func (f *Fetcher) Fetch(ctx context.Context, loc locator.Locator) (*model.Resource, error) {
	if !loc.IsRemote() {
		return f.fetchLocal(loc)
	}
	return f.fetchRemote(ctx, loc)
}

func (f *Fetcher) fetchLocal(loc locator.Locator) (*model.Resource, error) {
	body, err := os.ReadFile(loc.Path())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, loc.String(), len(body))
	}

	r := &model.Resource{
		Locator:     loc,
		ContentType: mimetype.Detect(body).String(),
		Body:        body,
	}
	r.ComputeHash()
	return r, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, loc locator.Locator) (*model.Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetch, loc.String(), resp.StatusCode)
	}

	// Read one byte past the limit to distinguish "exactly at the cap"
	// from "over the cap".
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, loc.String())
	}

	r := &model.Resource{
		Locator:     loc,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	if r.ContentType == "" {
		r.ContentType = mimetype.Detect(body).String()
	}
	r.ComputeHash()
	return r, nil
}

// Probe issues a HEAD request and returns the Content-Type header,
// letting callers decide whether a URL is worth a full GET. Local
// locators sniff the first bytes of the file instead. An empty string
// with nil error means the server did not say.
func (f *Fetcher) Probe(ctx context.Context, loc locator.Locator) (string, error) {
	if !loc.IsRemote() {
		// 3072 bytes covers every magic number mimetype knows about.
		fh, err := os.Open(loc.Path())
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrFetch, err)
		}
		defer fh.Close()
		head := make([]byte, 3072)
		n, err := fh.Read(head)
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("%w: %v", ErrFetch, err)
		}
		return mimetype.Detect(head[:n]).String(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, loc.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s returned status %d", ErrFetch, loc.String(), resp.StatusCode)
	}
	return resp.Header.Get("Content-Type"), nil
}

// headerInjectingTransport wraps an http.RoundTripper to inject custom
// headers and cookies into every request, including redirects.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
