// Package alerts sends operational email through the Resend API: critical
// failure alerts, a morning digest of auto-resolved issues, and test
// deliveries of published scans.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"dains/internal/core"
)

const defaultBaseURL = "https://api.resend.com/emails"

// Client sends email through Resend.
type Client struct {
	apiKey  string
	from    string
	to      string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// New returns a Resend client. from is the sender identity, to the alert
// recipient.
func New(apiKey, from, to string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required, set RESEND_API_KEY")
	}
	if to == "" {
		return nil, fmt.Errorf("alert recipient is required, set ALERT_EMAIL")
	}
	return &Client{
		apiKey:  apiKey,
		from:    from,
		to:      to,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

// CriticalAlert describes a pipeline failure that needs attention.
type CriticalAlert struct {
	Subject     string
	Body        string
	Layer       string
	Error       string
	Action      string
	WorkflowURL string
	LiveURL     string
}

// DigestItem is one auto-resolved issue in the morning digest.
type DigestItem struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Icon maps the item's severity to a display marker.
func (d DigestItem) Icon() string {
	if d.Severity == "warning" {
		return "⚠️"
	}
	return "ℹ️"
}

// SendCritical sends a critical alert email.
func (c *Client) SendCritical(ctx context.Context, alert CriticalAlert) error {
	data := struct {
		CriticalAlert
		Time string
	}{alert, time.Now().UTC().Format(time.RFC3339)}

	var body bytes.Buffer
	if err := criticalTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render critical alert: %w", err)
	}
	return c.send(ctx, alert.Subject, body.String())
}

// SendDigest sends the morning digest. An empty item list is a logged no-op.
func (c *Client) SendDigest(ctx context.Context, items []DigestItem) error {
	if len(items) == 0 {
		c.log.Info().Msg("no digest items, skipping email")
		return nil
	}

	data := struct {
		Items []DigestItem
		Time  string
	}{items, time.Now().UTC().Format(time.RFC3339)}

	var body bytes.Buffer
	if err := digestTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render digest: %w", err)
	}

	subject := fmt.Sprintf("DAINS Morning Digest - %d issue(s)", len(items))
	return c.send(ctx, subject, body.String())
}

// SendPost delivers a published scan to the alert address, wrapped in a test
// banner. The post content is trusted HTML produced by our own pipeline.
func (c *Client) SendPost(ctx context.Context, post core.PublishedPost) error {
	data := struct {
		Slug        string
		PublishedAt string
		Content     template.HTML
	}{post.Slug, post.PublishedAt.UTC().Format(time.RFC3339), template.HTML(post.Content)}

	var body bytes.Buffer
	if err := postTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render post email: %w", err)
	}

	subject := "[TEST] " + post.Title
	return c.send(ctx, subject, body.String())
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (c *Client) send(ctx context.Context, subject, html string) error {
	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      c.to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode resend response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if result.Message == "" {
			result.Message = resp.Status
		}
		return fmt.Errorf("resend rejected email: %s", result.Message)
	}

	c.log.Info().Str("id", result.ID).Str("subject", subject).Msg("email sent")
	return nil
}
