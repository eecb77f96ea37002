// SPDX-License-Identifier: MPL-2.0

package iana

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// maxPageBytes is the upper bound on the scraped page size (4 MB).
// Prevents unbounded memory consumption from a malformed response.
const maxPageBytes = 4 << 20

var (
	// ErrReleaseNotFound is returned when the requested release archive does
	// not exist at the distribution point (HTTP 404).
	ErrReleaseNotFound = errors.New("release not found")

	// ErrSourceUnreachable is returned when the distribution host cannot be
	// reached at all (DNS failure or connection failure).
	ErrSourceUnreachable = errors.New("release source unreachable")

	// ErrVersionMarkerNotFound is returned when the scraped page does not
	// contain the expected version marker.
	ErrVersionMarkerNotFound = errors.New("version marker not found in page")
)

type (
	// FetchError reports a download failure that is neither a missing release
	// nor an unreachable host, carrying the underlying cause.
	FetchError struct {
		URL string
		Err error
	}

	// Client queries the IANA distribution point for release information and
	// archive downloads.
	Client struct {
		httpClient    *http.Client
		pageURL       string // Page scraped for the latest release token
		archiveURL    string // Per-release archive URL template (one %s verb)
		versionMarker string // Text marker preceding the release token on the page
		userAgent     string // User-Agent header value
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Error formats the fetch failure with its redacted URL.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", redactURL(e.URL), e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *FetchError) Unwrap() error { return e.Err }

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithPageURL overrides the page scraped for the latest release token,
// primarily for test servers.
func WithPageURL(u string) ClientOption {
	return func(cl *Client) {
		cl.pageURL = u
	}
}

// WithArchiveURL overrides the archive URL template. The template must contain
// exactly one %s verb, replaced with the release identifier.
func WithArchiveURL(tmpl string) ClientOption {
	return func(cl *Client) {
		cl.archiveURL = tmpl
	}
}

// WithVersionMarker overrides the text marker that precedes the release token
// on the scraped page.
func WithVersionMarker(marker string) ClientOption {
	return func(cl *Client) {
		cl.versionMarker = marker
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// NewClient creates a Client with the production IANA endpoints as defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:    http.DefaultClient,
		pageURL:       "https://www.iana.org/time-zones",
		archiveURL:    "https://data.iana.org/time-zones/releases/tzdata%s.tar.gz",
		versionMarker: "Latest version:",
		userAgent:     "tzup/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestVersion scrapes the configured page and returns the release token
// immediately following the version marker. The token is validated by
// requiring its first four characters to parse as a numeric year.
//
// Any failure (fetch, marker absent, unparseable token) is an error the
// caller must treat as "cannot determine", not as fatal.
func (c *Client) LatestVersion(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, c.pageURL)
	if err != nil {
		return "", classifyTransportError(c.pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: c.pageURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	text, err := pageText(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", &FetchError{URL: c.pageURL, Err: err}
	}

	token, err := tokenAfterMarker(text, c.versionMarker)
	if err != nil {
		return "", err
	}

	if err := validateReleaseToken(token); err != nil {
		return "", err
	}

	return token, nil
}

// ArchiveURL returns the download URL for the given release identifier.
func (c *Client) ArchiveURL(version string) string {
	return fmt.Sprintf(c.archiveURL, version)
}

// DownloadArchive downloads the release archive for the given identifier and
// returns the response body as a streaming reader. The caller is responsible
// for closing the returned ReadCloser.
//
// Failures are classified: ErrReleaseNotFound for a missing release,
// ErrSourceUnreachable for DNS/connection failures, and *FetchError for
// everything else.
func (c *Client) DownloadArchive(ctx context.Context, version string) (io.ReadCloser, error) {
	archiveURL := c.ArchiveURL(version)

	resp, err := c.doRequest(ctx, archiveURL)
	if err != nil {
		return nil, classifyTransportError(archiveURL, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("release %q: %w", version, ErrReleaseNotFound)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, &FetchError{URL: archiveURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	return resp.Body, nil
}

// DownloadDigests fetches the digest file at the given URL, used for optional
// archive verification. The same failure classification as DownloadArchive
// applies, except a missing digest file is a plain FetchError: digests are an
// auxiliary artifact, not a release.
func (c *Client) DownloadDigests(ctx context.Context, digestURL string) (io.ReadCloser, error) {
	resp, err := c.doRequest(ctx, digestURL)
	if err != nil {
		return nil, classifyTransportError(digestURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &FetchError{URL: digestURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	return resp.Body, nil
}

// doRequest creates and executes a GET request with common headers.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	return c.httpClient.Do(req)
}

// classifyTransportError maps a transport-level failure onto the typed
// variants: DNS and connection errors become ErrSourceUnreachable, anything
// else a *FetchError.
func classifyTransportError(reqURL string, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %s", ErrSourceUnreachable, dnsErr.Error())
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %s", ErrSourceUnreachable, opErr.Error())
	}

	return &FetchError{URL: reqURL, Err: err}
}

// pageText flattens an HTML document into its visible text content, with
// single spaces between text nodes. Script and style bodies are skipped.
func pageText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)

	var (
		sb   strings.Builder
		skip int // depth inside script/style elements
	)

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return sb.String(), nil
			}
			return "", fmt.Errorf("parsing page: %w", z.Err())
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if t := strings.TrimSpace(string(z.Text())); t != "" {
				sb.WriteString(t)
				sb.WriteByte(' ')
			}
		}
	}
}

// tokenAfterMarker returns the whitespace-delimited token immediately
// following the first occurrence of marker in text.
func tokenAfterMarker(text, marker string) (string, error) {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return "", ErrVersionMarkerNotFound
	}

	rest := strings.Fields(text[idx+len(marker):])
	if len(rest) == 0 {
		return "", ErrVersionMarkerNotFound
	}

	return rest[0], nil
}

// validateReleaseToken checks that the token looks like a release identifier:
// at least four characters, the first four parsing as a numeric year.
func validateReleaseToken(token string) error {
	if len(token) < 4 {
		return fmt.Errorf("release token %q too short", token)
	}
	if _, err := strconv.Atoi(token[:4]); err != nil {
		return fmt.Errorf("release token %q does not start with a year", token)
	}
	return nil
}

// redactURL strips query parameters and fragments from a URL for safe
// inclusion in error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
