package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DuckDuckGo searches the keyless DuckDuckGo Lite HTML endpoint.
type DuckDuckGo struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGo creates a client from cfg. Blank BaseURL selects
// DefaultBaseURL and a non-positive Timeout selects 10s.
func NewDuckDuckGo(cfg Config) *DuckDuckGo {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DuckDuckGo{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
	}
}

// Search fetches the results page for query and parses up to limit results.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	u, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base url: %v", ErrSearchFailed, err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrSearchFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrSearchFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %v", ErrSearchFailed, err)
	}
	return parseLiteResults(doc, limit), nil
}

// parseLiteResults walks result links and snippets in document order; a
// snippet belongs to the most recent link.
func parseLiteResults(doc *goquery.Document, limit int) []Result {
	var results []Result
	var current *Result

	flush := func() {
		if current != nil && current.URL != "" {
			results = append(results, *current)
		}
		current = nil
	}

	doc.Find("a.result-link, td.result-snippet").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == "a" {
			flush()
			if len(results) >= limit {
				return false
			}
			href, _ := s.Attr("href")
			current = &Result{
				Title: collapseSpace(s.Text()),
				URL:   cleanRedirectURL(href),
			}
			return true
		}
		if current != nil {
			current.Snippet = collapseSpace(s.Text())
		}
		return true
	})
	if len(results) < limit {
		flush()
	}
	return results
}

// cleanRedirectURL extracts the target from DuckDuckGo's /l/?uddg= redirect.
func cleanRedirectURL(raw string) string {
	idx := strings.Index(raw, "uddg=")
	if idx == -1 {
		return raw
	}
	encoded := raw[idx+len("uddg="):]
	if amp := strings.Index(encoded, "&"); amp != -1 {
		encoded = encoded[:amp]
	}
	if decoded, err := url.QueryUnescape(encoded); err == nil {
		return decoded
	}
	return raw
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
