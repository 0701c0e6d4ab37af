package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newsradar/newsradar/internal/analysis"
	"github.com/newsradar/newsradar/internal/config"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

const (
	userAgent = "Mozilla/5.0 (compatible; newsradar/1.0; +https://github.com/newsradar/newsradar)"

	// extracted page text shorter than this is treated as a failed extraction
	minExtractedWords = 40
	maxBodyBytes      = 5 << 20
)

// RawArticle is a feed item before dedup and analysis.
type RawArticle struct {
	URL           string
	Title         string
	SourceName    string
	PublishedDate time.Time
	Text          string
	Language      string
}

type FeedClient interface {
	Fetch(ctx context.Context, src config.FeedSource, limit int) ([]RawArticle, error)
}

type rssClient struct {
	http            *http.Client
	extractFullText bool
	defaultLanguage string
	logger          *log.Logger
	now             func() time.Time
}

func NewRSSClient(httpClient *http.Client, extractFullText bool, defaultLanguage string, logger *log.Logger) FeedClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &rssClient{
		http:            httpClient,
		extractFullText: extractFullText,
		defaultLanguage: defaultLanguage,
		logger:          logger,
		now:             time.Now,
	}
}

func (c *rssClient) Fetch(ctx context.Context, src config.FeedSource, limit int) ([]RawArticle, error) {
	body, err := c.get(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	lang := c.language(feed.Language, src.Language)
	fetchedAt := c.now().UTC()

	out := make([]RawArticle, 0, min(limit, len(feed.Items)))
	for _, item := range feed.Items {
		if len(out) >= limit {
			break
		}
		raw, ok := mapItem(item, src, lang, fetchedAt)
		if !ok {
			continue
		}
		if c.extractFullText {
			if text, err := c.extract(ctx, raw.URL); err != nil {
				c.logger.Printf("ingest: full text for %s unavailable, using feed text: %v", raw.URL, err)
			} else {
				raw.Text = text
			}
		}
		out = append(out, raw)
	}
	return out, nil
}

// extract downloads the article page and returns its readable text.
func (c *rssClient) extract(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", err
	}

	body, err := c.get(ctx, link)
	if err != nil {
		return "", err
	}
	defer body.Close()

	page, err := readability.FromReader(io.LimitReader(body, maxBodyBytes), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	text := strings.Join(strings.Fields(page.TextContent), " ")
	if len(strings.Fields(text)) < minExtractedWords {
		return "", fmt.Errorf("extracted text too short")
	}
	return text, nil
}

func (c *rssClient) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *rssClient) language(declared, configured string) string {
	for _, tag := range []string{declared, configured, c.defaultLanguage} {
		if base := analysis.BaseLanguage(tag); base != "" {
			return base
		}
	}
	return c.defaultLanguage
}
