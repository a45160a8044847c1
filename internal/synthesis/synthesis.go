// Package synthesis turns the selected stories into a published briefing via
// the Gemini API.
package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"dains/internal/core"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// Generator produces briefing HTML from a system and user prompt. The Gemini
// client satisfies it; tests substitute a fake.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// GeminiGenerator wraps the Gemini SDK.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, maxTokens int, temperature float64) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required, set GEMINI_API_KEY")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: float32(temperature),
	}, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// Generate runs one completion against the configured model.
func (g *GeminiGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	if g.maxTokens > 0 {
		model.SetMaxOutputTokens(g.maxTokens)
	}
	model.SetTemperature(g.temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text in model response")
	}
	return b.String(), nil
}

// Synthesizer assembles prompts, calls the generator and validates the
// resulting briefing.
type Synthesizer struct {
	generator      Generator
	headerImageURL string
	log            zerolog.Logger
}

// New returns a Synthesizer. headerImageURL may be empty to skip the image.
func New(generator Generator, headerImageURL string, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		generator:      generator,
		headerImageURL: headerImageURL,
		log:            log,
	}
}

// Synthesize produces the day's briefing from the selected stories.
// newsletterRanked controls whether coverage counts are included in the
// prompt.
func (s *Synthesizer) Synthesize(ctx context.Context, stories []core.Story, newsletterRanked bool, now time.Time) (*core.Briefing, error) {
	if len(stories) == 0 {
		return nil, fmt.Errorf("no stories to synthesize")
	}

	dateString := now.UTC().Format("2006-01-02")
	formattedDate := now.UTC().Format("Monday, January 2, 2006")

	s.log.Info().
		Int("stories", len(stories)).
		Bool("newsletter_ranked", newsletterRanked).
		Str("date", dateString).
		Msg("synthesizing briefing")

	aggregated := formatStories(stories, newsletterRanked)
	prompt := userPrompt(dateString, formattedDate, aggregated, newsletterRanked)

	html, err := s.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize briefing: %w", err)
	}

	html = strings.TrimSpace(html)
	if err := validateBriefingHTML(html); err != nil {
		return nil, err
	}

	if s.headerImageURL != "" {
		html = injectHeaderImage(html, s.headerImageURL)
	}

	return &core.Briefing{
		HTML:          html,
		DateString:    dateString,
		FormattedDate: formattedDate,
		GeneratedAt:   now.UTC(),
	}, nil
}

func validateBriefingHTML(html string) error {
	if html == "" {
		return fmt.Errorf("model returned empty briefing")
	}
	if !strings.Contains(strings.ToLower(html), "<h1") {
		return fmt.Errorf("briefing is missing its <h1> heading")
	}
	return nil
}

// injectHeaderImage places the header image directly after the closing h1
// tag. After, not before: the site's loader strips the first element of a
// post.
func injectHeaderImage(html, imageURL string) string {
	imageTag := fmt.Sprintf(`<img src="%s" alt="Daily AI News Scan" style="width: 100%%; max-width: 800px; height: auto; margin-bottom: 2rem; border-radius: 8px;">`, imageURL)

	idx := strings.Index(strings.ToLower(html), "</h1>")
	if idx < 0 {
		return html
	}
	end := idx + len("</h1>")
	return html[:end] + "\n" + imageTag + "\n" + html[end:]
}

// Slug derives the post slug for a scan date string (YYYY-MM-DD).
func Slug(dateString string) string {
	return "daily-ai-news-scan-" + dateString
}

// SlugPrefix is the common prefix of all scan post slugs.
const SlugPrefix = "daily-ai-news-scan-"

// NoteID derives the note identifier for a scan date string, matching the
// site's note naming scheme (YYYYMMDDHHMMSS.md with a fixed 05:00:00 stamp).
func NoteID(dateString string) string {
	return "ai-news-scan-" + strings.ReplaceAll(dateString, "-", "") + "050000.md"
}

// Title derives the post title from the formatted date.
func Title(formattedDate string) string {
	return "Daily AI News Scan — " + formattedDate
}
