package synthesis

import (
	"fmt"
	"strings"

	"dains/internal/core"
)

const systemPrompt = `You are an automated AI news scanner producing a daily intelligence scan for victordelrosal.com.

Rules:
- Signal over noise. Hype is failure.
- Use ONLY the items provided. Never invent sources.
- Every development MUST include a source URL.
- Prefer primary sources when duplicates exist.
- If sources conflict, acknowledge it explicitly.
- Tone: factual, analytical, no editorializing.
- This is automated - do not pretend to be human.
- Output clean, valid HTML only. No markdown.`

func userPrompt(dateString, formattedDate, aggregatedItems string, newsletterRanked bool) string {
	var ranking string
	if newsletterRanked {
		ranking = `
The items are ranked by newsletter coverage: each carries the number of
newsletters that covered it and their names. Lead with the most-covered
stories.
`
	}

	return fmt.Sprintf(`Today's date: %s

Here are today's AI news items:

%s
%s
Write a scan with this exact structure in clean HTML:

<h1>Daily AI News Scan — %s</h1>

<h2>Executive Summary</h2>
<p>50-70 words covering the 2-3 most significant developments. No fluff.</p>

<h2>Key Developments</h2>
For each of 3-5 key developments:
<h3>Development Title</h3>
<p>2-3 sentence factual summary of what happened and why it matters.</p>
<p><strong>Source:</strong> <a href="URL">Publisher Name</a></p>

<hr>
<p><em>This scan is automatically generated at 05:00 GMT daily. Sources are fetched, deduplicated, and synthesized by AI. No human editorial review. <a href="/daily-ai-news-scan-about/">How this works</a></em></p>

Important:
- Output ONLY valid HTML, no markdown
- Total length: 400-500 words
- If fewer than 3 meaningful developments exist, say so explicitly
- Never invent or hallucinate sources`,
		dateString, aggregatedItems, ranking, formattedDate)
}

// formatStories renders the selected stories as ---ITEM N--- blocks. For
// newsletter-ranked stories the block carries the coverage count and the
// contributing newsletters so the model can weight by consensus.
func formatStories(stories []core.Story, newsletterRanked bool) string {
	blocks := make([]string, 0, len(stories))
	for i, story := range stories {
		var b strings.Builder
		fmt.Fprintf(&b, "---ITEM %d---\n", i+1)
		fmt.Fprintf(&b, "TITLE: %s\n", story.Headline)

		if story.PrimarySource != nil {
			fmt.Fprintf(&b, "PUBLISHER: %s\n", story.PrimarySource.Publisher)
			fmt.Fprintf(&b, "URL: %s\n", story.PrimarySource.URL)
		} else if story.SourceURL != "" {
			fmt.Fprintf(&b, "URL: %s\n", story.SourceURL)
		}

		if newsletterRanked && len(story.Hits) > 0 {
			names := newsletterNames(story.Hits)
			fmt.Fprintf(&b, "COVERAGE: %d newsletters (%s)\n", len(story.Hits), strings.Join(names, ", "))
		}

		content := story.Summary
		if content == "" {
			content = "No content available"
		}
		fmt.Fprintf(&b, "CONTENT: %s\n", content)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}

func newsletterNames(hits []core.Hit) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, hit := range hits {
		if hit.NewsletterName == "" {
			continue
		}
		if _, dup := seen[hit.NewsletterName]; dup {
			continue
		}
		seen[hit.NewsletterName] = struct{}{}
		names = append(names, hit.NewsletterName)
	}
	return names
}
