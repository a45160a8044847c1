// Package newsapi queries the NewsAPI everything endpoint for query-based
// sources.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dains/internal/core"
	"dains/internal/dedup"
	"dains/internal/sources"
)

const defaultBaseURL = "https://newsapi.org/v2/everything"

// Client talks to NewsAPI. A client with an empty API key is valid and
// returns no items, so query sources degrade gracefully when the key is
// not configured.
type Client struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	lookback time.Duration
	pageSize int
}

// New returns a NewsAPI client. apiKey may be empty.
func New(apiKey string, timeout, lookback time.Duration, pageSize int) *Client {
	return &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: timeout},
		lookback: lookback,
		pageSize: pageSize,
	}
}

// Enabled reports whether the client has an API key to work with.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type response struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     string    `json:"content"`
}

// Search runs the source's query against the everything endpoint, restricted
// to the lookback window ending at now.
func (c *Client) Search(ctx context.Context, source sources.Source, now time.Time) ([]core.RawItem, error) {
	if !c.Enabled() {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", source.Query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("apiKey", c.apiKey)
	params.Set("from", now.Add(-c.lookback).UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", source.ID, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query newsapi for %s: %w", source.ID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode newsapi response for %s: %w", source.ID, err)
	}
	if body.Status != "ok" {
		if body.Message == "" {
			body.Message = "newsapi error"
		}
		return nil, fmt.Errorf("newsapi query %s failed: %s", source.ID, body.Message)
	}

	items := make([]core.RawItem, 0, len(body.Articles))
	for _, a := range body.Articles {
		publisher := a.Source.Name
		if publisher == "" {
			publisher = "Unknown"
		}
		content := a.Content
		if content == "" {
			content = a.Description
		}
		items = append(items, core.RawItem{
			Title:          a.Title,
			Publisher:      publisher,
			URL:            dedup.CanonicalURL(a.URL),
			PublishedAt:    a.PublishedAt.UTC(),
			Snippet:        a.Description,
			Content:        content,
			SourcePriority: source.Priority,
			SourceID:       source.ID,
		})
	}
	return items, nil
}
