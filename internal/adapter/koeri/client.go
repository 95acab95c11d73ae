// Package koeri fetches the Kandilli Observatory recent-earthquakes page and
// returns the plain-text table it wraps.
package koeri

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultURL is the observatory's recent-earthquakes listing.
const DefaultURL = "http://www.koeri.boun.edu.tr/scripts/lst1.asp"

// The page is a few hundred KB; anything far larger is not the feed.
const maxBodyBytes = 8 << 20

// Client implements pipeline.FeedFetcher over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
	charset    encoding.Encoding
	logger     *slog.Logger
}

// NewClient creates a feed client. charset is a WHATWG encoding label such
// as "windows-1254", "iso-8859-9" or "utf-8".
func NewClient(url string, timeout time.Duration, charset string, logger *slog.Logger) (*Client, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("feed charset %q: %w", charset, err)
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		charset: enc,
		logger:  logger,
	}, nil
}

// Fetch downloads the page, decodes it to UTF-8 and returns the contents of
// its <pre> element, or the whole body when there is none.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,text/plain")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("feed error: status %d: %s", resp.StatusCode, body)
	}

	decoded, err := io.ReadAll(c.charset.NewDecoder().Reader(io.LimitReader(resp.Body, maxBodyBytes)))
	if err != nil {
		return "", fmt.Errorf("read feed body: %w", err)
	}

	table, found := extractPre(string(decoded))
	c.logger.Debug("feed fetched",
		"bytes", len(decoded),
		"pre_found", found,
		"duration", time.Since(start),
	)
	return table, nil
}

// extractPre returns the text of every <pre> element in document order.
// found is false, and the input is returned unchanged, when there is none.
func extractPre(doc string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	depth := 0
	found := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a truncated document; either way use what was read.
			if !found {
				return doc, false
			}
			return b.String(), true
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "pre" {
				depth++
				found = true
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "pre" && depth > 0 {
				depth--
				b.WriteByte('\n')
			}
		case html.TextToken:
			if depth > 0 {
				b.Write(z.Text())
			}
		}
	}
}
