package core

import "time"

// RawItem represents a single news item pulled from an RSS/Atom feed or news API.
// Items are created fresh on every scan run and discarded afterwards; only the
// final published briefing is persisted.
type RawItem struct {
	Title          string    `json:"title"`           // Item headline as published by the source
	Publisher      string    `json:"publisher"`       // Human-readable source name
	URL            string    `json:"url"`             // Canonical URL (tracking params stripped)
	PublishedAt    time.Time `json:"published_at"`    // Publication timestamp
	Snippet        string    `json:"snippet"`         // Short description/summary
	Content        string    `json:"content"`         // Full item content when available, else snippet
	SourcePriority int       `json:"source_priority"` // Lower value = more trusted source
	SourceID       string    `json:"source_id"`       // Identifier of the configured source
}

// NewsletterItem is one news item extracted from an ingested newsletter email.
// Rows are written by the external ingest worker; the scan pipeline reads the
// unprocessed ones (ProcessedAt null) and marks them processed after a
// successful publish.
type NewsletterItem struct {
	ID              string     `json:"id"`                // Opaque row key
	NewsletterName  string     `json:"newsletter_name"`   // Which newsletter covered the story
	EmailSubject    string     `json:"email_subject"`     // Subject line of the source email
	Headline        string     `json:"headline"`          // Extracted headline
	Summary         string     `json:"summary"`           // One-sentence summary
	SourceURL       string     `json:"source_url"`        // Primary source URL, empty if none found
	Entities        []string   `json:"entities"`          // Named entities (case preserved, compared case-insensitively)
	EmailReceivedAt time.Time  `json:"email_received_at"` // When the email arrived
	ProcessedAt     *time.Time `json:"processed_at"`      // Nil until a scan consumes this item
	ScanSlug        string     `json:"scan_slug"`         // Slug of the scan this item contributed to
}

// Hit records one newsletter's coverage of a clustered story.
type Hit struct {
	ItemID         string `json:"item_id"`
	NewsletterName string `json:"newsletter_name"`
	Headline       string `json:"headline"`
}

// PrimarySource is the RSS/API item chosen as the authoritative citation for a
// cluster or story.
type PrimarySource struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Publisher string `json:"publisher"`
}

// Cluster groups newsletter items judged to refer to the same underlying
// story. Hits is never empty; Entities is the case-insensitive union of all
// member entities at every point in time. Clusters live for one scan run only.
type Cluster struct {
	Headline      string         `json:"headline"` // Representative headline (first member's)
	Summary       string         `json:"summary"`  // Representative summary (first member's)
	SourceURL     string         `json:"source_url"`
	Entities      []string       `json:"entities"`
	Hits          []Hit          `json:"hits"` // In arrival order
	PrimarySource *PrimarySource `json:"primary_source"`
}

// Story is the unified shape handed to the synthesis step: either a cluster
// projected down, or (fallback mode) a raw RSS item with empty hits/entities.
type Story struct {
	Headline      string         `json:"headline"`
	Summary       string         `json:"summary"`
	SourceURL     string         `json:"source_url"` // Newsletter-extracted URL, used when no primary source matched
	PrimarySource *PrimarySource `json:"primary_source"`
	Hits          []Hit          `json:"hits"`
	Entities      []string       `json:"entities"`
}

// ClusterStory projects a cluster into the Story shape.
func ClusterStory(c Cluster) Story {
	return Story{
		Headline:      c.Headline,
		Summary:       c.Summary,
		SourceURL:     c.SourceURL,
		PrimarySource: c.PrimarySource,
		Hits:          c.Hits,
		Entities:      c.Entities,
	}
}

// FallbackStory projects a raw RSS item into the Story shape. The item itself
// becomes the primary source; hits and entities stay empty.
func FallbackStory(item RawItem) Story {
	return Story{
		Headline: item.Title,
		Summary:  item.Snippet,
		PrimarySource: &PrimarySource{
			Title:     item.Title,
			URL:       item.URL,
			Publisher: item.Publisher,
		},
	}
}

// Briefing is the synthesized output of one scan run.
type Briefing struct {
	HTML          string    `json:"html"`           // Full briefing markup from the model
	DateString    string    `json:"date_string"`    // YYYY-MM-DD used in the slug
	FormattedDate string    `json:"formatted_date"` // Human-readable date for the title
	GeneratedAt   time.Time `json:"generated_at"`
}

// PublishedPost is a row in the published_posts table, keyed by slug so that
// re-running the same day's scan overwrites instead of duplicating.
type PublishedPost struct {
	Slug        string    `json:"slug"`
	NoteID      string    `json:"note_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Image       string    `json:"image"`
	PublishedAt time.Time `json:"published_at"`
}
