// Package store persists scan state in SQLite: newsletter items written by
// the ingest worker, and the published scan posts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"dains/internal/core"
)

// Store wraps the SQLite database backing the scan pipeline.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "dains.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	// newsletter_items mirrors the ingest worker's schema. entities is a
	// JSON array.
	newsletterItemsTable := `
	CREATE TABLE IF NOT EXISTS newsletter_items (
		id TEXT PRIMARY KEY,
		newsletter_name TEXT,
		email_subject TEXT,
		headline TEXT,
		summary TEXT,
		source_url TEXT,
		entities TEXT,
		raw_content TEXT,
		email_received_at DATETIME,
		processed_at DATETIME,
		scan_slug TEXT
	);`

	publishedPostsTable := `
	CREATE TABLE IF NOT EXISTS published_posts (
		slug TEXT PRIMARY KEY,
		note_id TEXT,
		title TEXT,
		content TEXT,
		image TEXT,
		published_at DATETIME
	);`

	tables := []string{newsletterItemsTable, publishedPostsTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertNewsletterItem stores one extracted newsletter item. The ingest
// worker is the usual writer; this also backs tests and manual backfills.
// Items without an ID get a deterministic one derived from their identity
// fields, so re-ingesting the same email replaces instead of duplicating.
func (s *Store) InsertNewsletterItem(item core.NewsletterItem) error {
	if item.ID == "" {
		seed := item.NewsletterName + "|" + item.Headline + "|" + item.EmailReceivedAt.UTC().Format(time.RFC3339)
		item.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
	}

	entities, err := json.Marshal(item.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO newsletter_items
	(id, newsletter_name, email_subject, headline, summary, source_url, entities, email_received_at, processed_at, scan_slug)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var processedAt interface{}
	if item.ProcessedAt != nil {
		processedAt = item.ProcessedAt.UTC()
	}

	_, err = s.db.Exec(query,
		item.ID,
		item.NewsletterName,
		item.EmailSubject,
		item.Headline,
		item.Summary,
		item.SourceURL,
		string(entities),
		item.EmailReceivedAt.UTC(),
		processedAt,
		item.ScanSlug,
	)
	if err != nil {
		return fmt.Errorf("failed to insert newsletter item: %w", err)
	}
	return nil
}

// UnprocessedItems returns newsletter items not yet attached to a scan,
// received within the lookback window ending at now, newest first.
func (s *Store) UnprocessedItems(now time.Time, lookback time.Duration) ([]core.NewsletterItem, error) {
	query := `
	SELECT id, newsletter_name, email_subject, headline, summary, source_url, entities, email_received_at
	FROM newsletter_items
	WHERE processed_at IS NULL AND email_received_at >= ?
	ORDER BY email_received_at DESC`

	cutoff := now.UTC().Add(-lookback)
	rows, err := s.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query newsletter items: %w", err)
	}
	defer rows.Close()

	var items []core.NewsletterItem
	for rows.Next() {
		var item core.NewsletterItem
		var entities string
		err := rows.Scan(
			&item.ID,
			&item.NewsletterName,
			&item.EmailSubject,
			&item.Headline,
			&item.Summary,
			&item.SourceURL,
			&entities,
			&item.EmailReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan newsletter item: %w", err)
		}
		if entities != "" {
			if err := json.Unmarshal([]byte(entities), &item.Entities); err != nil {
				return nil, fmt.Errorf("failed to unmarshal entities for item %s: %w", item.ID, err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkProcessed stamps the given items with the scan they contributed to.
func (s *Store) MarkProcessed(itemIDs []string, slug string, processedAt time.Time) error {
	if len(itemIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	query := fmt.Sprintf(`
	UPDATE newsletter_items
	SET processed_at = ?, scan_slug = ?
	WHERE id IN (%s)`, placeholders)

	args := make([]interface{}, 0, len(itemIDs)+2)
	args = append(args, processedAt.UTC(), slug)
	for _, id := range itemIDs {
		args = append(args, id)
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to mark items processed: %w", err)
	}
	return nil
}

// PostExists reports whether a post with the given slug has been published.
func (s *Store) PostExists(slug string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM published_posts WHERE slug = ?`, slug).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return true, nil
}

// UpsertPost inserts or overwrites the post for its slug.
func (s *Store) UpsertPost(post core.PublishedPost) error {
	query := `
	INSERT OR REPLACE INTO published_posts
	(slug, note_id, title, content, image, published_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		post.Slug,
		post.NoteID,
		post.Title,
		post.Content,
		post.Image,
		post.PublishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert post %s: %w", post.Slug, err)
	}
	return nil
}

// GetPost retrieves a published post by slug. Returns nil on a miss.
func (s *Store) GetPost(slug string) (*core.PublishedPost, error) {
	query := `
	SELECT slug, note_id, title, content, image, published_at
	FROM published_posts
	WHERE slug = ?`

	var post core.PublishedPost
	err := s.db.QueryRow(query, slug).Scan(
		&post.Slug,
		&post.NoteID,
		&post.Title,
		&post.Content,
		&post.Image,
		&post.PublishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", slug, err)
	}
	return &post, nil
}

// LatestScanPost returns the most recently published post whose slug starts
// with the given prefix, or nil when none exists.
func (s *Store) LatestScanPost(slugPrefix string) (*core.PublishedPost, error) {
	query := `
	SELECT slug, note_id, title, content, image, published_at
	FROM published_posts
	WHERE slug LIKE ?
	ORDER BY published_at DESC
	LIMIT 1`

	var post core.PublishedPost
	err := s.db.QueryRow(query, slugPrefix+"%").Scan(
		&post.Slug,
		&post.NoteID,
		&post.Title,
		&post.Content,
		&post.Image,
		&post.PublishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scan post: %w", err)
	}
	return &post, nil
}
