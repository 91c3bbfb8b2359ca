// Package repository scrapes a third-party scholarly eprints archive:
// paginated keyword search plus per-page metadata extraction. Network
// failures degrade to empty or partial results; callers never see a
// wholesale error from a single bad page.
package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html"

	"github.com/ramavio/paperchat/internal/config"
	"github.com/ramavio/paperchat/internal/domain"
	"github.com/ramavio/paperchat/internal/logging"
)

const (
	searchPath = "/cgi/search/archive/simple"
	eprintPath = "/id/eprint/"
)

// Client fetches and parses repository pages. All calls are bounded by the
// configured timeout; no retries are performed — a failed fetch is simply
// absent from results.
type Client struct {
	baseURL    string
	maxResults int
	http       *http.Client
	log        *logging.Logger
}

// New creates a repository client.
func New(cfg config.RepositoryConfig, log *logging.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		maxResults: maxResults,
		http:       &http.Client{Timeout: timeout},
		log:        log.Sub("repository"),
	}
}

// Search runs a simple-search query and returns up to maxResults result
// stubs in source order. Zero matches and request failures both yield an
// empty slice.
func (c *Client) Search(ctx context.Context, query string) []domain.ResultStub {
	searchURL := fmt.Sprintf(
		"%s%s?screen=Search&dataset=archive&order=&q=%s&_action_search=Search",
		c.baseURL, searchPath, url.QueryEscape(query),
	)

	doc, err := c.fetch(ctx, searchURL)
	if err != nil {
		c.log.Warn().Err(err).Str("query", query).Msg("repository search failed")
		return nil
	}

	base, err := url.Parse(c.baseURL + searchPath)
	if err != nil {
		return nil
	}

	stubs := parseSearchResults(doc, base, c.maxResults)
	if len(stubs) == 0 {
		c.log.Info().Str("query", query).Msg("no results for keyword")
	}
	return stubs
}

// FetchMetadata fetches each stub's detail page and extracts citation,
// abstract, and repository code. Per-item failures are logged and skipped;
// partial results are acceptable.
func (c *Client) FetchMetadata(ctx context.Context, stubs []domain.ResultStub) []domain.Paper {
	papers := make([]domain.Paper, 0, len(stubs))
	for _, stub := range stubs {
		doc, err := c.fetch(ctx, stub.Link)
		if err != nil {
			c.log.Warn().Err(err).Str("link", stub.Link).Msg("metadata fetch failed, skipping")
			continue
		}
		papers = append(papers, parsePaperMeta(doc))
	}
	return papers
}

// SearchPapers is the complete lookup used by the orchestration loop: keyword
// search followed by metadata enrichment.
func (c *Client) SearchPapers(ctx context.Context, keyword string) []domain.Paper {
	stubs := c.Search(ctx, keyword)
	if len(stubs) == 0 {
		return nil
	}
	return c.FetchMetadata(ctx, stubs)
}

// ExtractMetadata fetches a single paper's detail page by repository code.
// On failure the returned record carries a human-readable Err value instead
// of an error return; callers must check it.
func (c *Client) ExtractMetadata(ctx context.Context, code string) domain.PaperDetail {
	pageURL := c.baseURL + eprintPath + code

	doc, err := c.fetch(ctx, pageURL)
	if err != nil {
		return domain.PaperDetail{
			Code: code,
			Err:  fmt.Sprintf("Error fetching paper: %v", err),
		}
	}

	detail := parsePaperDetail(doc)
	detail.URL = pageURL
	detail.Code = code
	return detail
}

// fetch GETs a URL and parses its HTML body.
func (c *Client) fetch(ctx context.Context, rawURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	return html.Parse(resp.Body)
}
