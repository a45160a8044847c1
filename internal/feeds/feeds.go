// Package feeds fetches and parses RSS/Atom sources into raw scan items.
package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dains/internal/core"
	"dains/internal/dedup"
	"dains/internal/sources"
)

const userAgent = "DailyAIIntelScan/1.0 (victordelrosal.com)"

// rss represents an RSS feed document
type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Encoded     string `xml:"encoded"` // content:encoded
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// atom represents an Atom feed document
type atom struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Link      []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	ID        string     `xml:"id"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// Fetcher retrieves feed items for configured sources.
type Fetcher struct {
	client          *http.Client
	lookback        time.Duration
	defaultMaxItems int
}

// NewFetcher returns a Fetcher. timeout bounds each HTTP request; lookback is
// the freshness window items must fall inside; defaultMaxItems caps the item
// count per source unless the source overrides it.
func NewFetcher(timeout, lookback time.Duration, defaultMaxItems int) *Fetcher {
	return &Fetcher{
		client:          &http.Client{Timeout: timeout},
		lookback:        lookback,
		defaultMaxItems: defaultMaxItems,
	}
}

// Fetch pulls one source's feed and returns its fresh items, newest first as
// the feed lists them. Items older than the lookback window are dropped and
// the per-source cap applies after filtering.
func (f *Fetcher) Fetch(ctx context.Context, source sources.Source, now time.Time) ([]core.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", source.ID, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", source.ID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status %d", source.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", source.ID, err)
	}

	items, err := f.parse(body, source)
	if err != nil {
		return nil, err
	}

	cutoff := now.Add(-f.lookback)
	maxItems := source.MaxItems
	if maxItems <= 0 {
		maxItems = f.defaultMaxItems
	}

	var fresh []core.RawItem
	for _, item := range items {
		if item.PublishedAt.Before(cutoff) {
			continue
		}
		fresh = append(fresh, item)
		if len(fresh) == maxItems {
			break
		}
	}
	return fresh, nil
}

// parse tries RSS first, then Atom, over the same bytes.
func (f *Fetcher) parse(body []byte, source sources.Source) ([]core.RawItem, error) {
	var rssDoc rss
	if err := xml.Unmarshal(body, &rssDoc); err == nil && len(rssDoc.Channel.Items) > 0 {
		return f.fromRSS(rssDoc, source), nil
	}

	var atomDoc atom
	if err := xml.Unmarshal(body, &atomDoc); err == nil && len(atomDoc.Entries) > 0 {
		return f.fromAtom(atomDoc, source), nil
	}

	return nil, fmt.Errorf("feed %s is neither parseable RSS nor Atom", source.ID)
}

func (f *Fetcher) fromRSS(doc rss, source sources.Source) []core.RawItem {
	var items []core.RawItem
	for _, item := range doc.Channel.Items {
		link := item.Link
		if link == "" {
			link = item.GUID
		}
		snippet := StripHTML(item.Description)
		content := StripHTML(item.Encoded)
		if content == "" {
			content = snippet
		}
		items = append(items, core.RawItem{
			Title:          strings.TrimSpace(item.Title),
			Publisher:      source.Name,
			URL:            dedup.CanonicalURL(link),
			PublishedAt:    parseFeedDate(item.PubDate),
			Snippet:        snippet,
			Content:        content,
			SourcePriority: source.Priority,
			SourceID:       source.ID,
		})
	}
	return items
}

func (f *Fetcher) fromAtom(doc atom, source sources.Source) []core.RawItem {
	var items []core.RawItem
	for _, entry := range doc.Entries {
		var link string
		for _, l := range entry.Link {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
		published := entry.Published
		if published == "" {
			published = entry.Updated
		}
		snippet := StripHTML(entry.Summary)
		content := StripHTML(entry.Content)
		if content == "" {
			content = snippet
		}
		items = append(items, core.RawItem{
			Title:          strings.TrimSpace(entry.Title),
			Publisher:      source.Name,
			URL:            dedup.CanonicalURL(link),
			PublishedAt:    parseFeedDate(published),
			Snippet:        snippet,
			Content:        content,
			SourcePriority: source.Priority,
			SourceID:       source.ID,
		})
	}
	return items
}

// StripHTML reduces feed markup to plain text for entity matching and prompt
// assembly. Non-HTML input passes through trimmed.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	doc.Find("script, style").Remove()
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

// parseFeedDate walks the common RSS/Atom date formats. Unknown formats yield
// the zero time, which the lookback filter then discards.
func parseFeedDate(dateStr string) time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
