// Package webfetch retrieves web pages and reduces them to plain text for
// research and mid-turn lookups.
package webfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const userAgent = "Mozilla/5.0 (compatible; CEOVirtual/1.0)"

// maxBodyBytes caps how much of a page is read before sanitizing.
const maxBodyBytes = 1 << 20

// Fetcher retrieves and sanitizes pages.
type Fetcher struct {
	httpClient *http.Client
}

// New creates a fetcher with a bounded per-request timeout.
func New() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// FetchText fetches url, strips markup, collapses whitespace, and truncates
// the result to maxChars.
func (f *Fetcher) FetchText(ctx context.Context, url string, maxChars int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	return StripTags(string(raw), maxChars), nil
}

// StripTags removes markup from an HTML document, dropping script and style
// contents entirely, and returns whitespace-collapsed text capped at
// maxChars.
func StripTags(page string, maxChars int) string {
	tokenizer := html.NewTokenizer(strings.NewReader(page))

	var b strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return collapse(b.String(), maxChars)
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func skippedTag(name string) bool {
	return name == "script" || name == "style" || name == "noscript"
}

func collapse(s string, maxChars int) string {
	out := strings.Join(strings.Fields(s), " ")
	if maxChars > 0 && len(out) > maxChars {
		out = out[:maxChars]
	}
	return strings.TrimSpace(out)
}
