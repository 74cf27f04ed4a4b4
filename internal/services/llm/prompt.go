package llm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// DefaultSystemPrompt is sent with every enrichment request unless configured otherwise
const DefaultSystemPrompt = "You are a helpful assistant that analyzes books and provides concise summaries and relevance scores."

var (
	summaryPattern   = regexp.MustCompile(`Summary: ([^\n]*)`)
	relevancePattern = regexp.MustCompile(`Relevance Score: (\d+)`)
)

// BuildPrompt renders the enrichment request for one book
func BuildPrompt(book models.Book, topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Book Title: %s\n", book.Title)
	fmt.Fprintf(&b, "Book Author: %s\n", book.Author)
	fmt.Fprintf(&b, "Book Description: %s\n", book.Description)
	fmt.Fprintf(&b, "Theme: %s\n\n", topic)
	b.WriteString("I need two things:\n")
	b.WriteString("1. A concise 1-2 sentence summary of this book based on the description.\n")
	fmt.Fprintf(&b, "2. A relevance score from 0 to 100 (as a number) indicating how well this book matches the theme %q.\n\n", topic)
	b.WriteString("Format your response exactly like this:\n")
	b.WriteString("Summary: <your 1-2 sentence summary>\n")
	b.WriteString("Relevance Score: <number between 0 and 100>")
	return b.String()
}

// BuildMessages returns the system and user messages for one book
func BuildMessages(book models.Book, topic, systemPrompt string) []interfaces.Message {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return []interfaces.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: BuildPrompt(book, topic)},
	}
}

// ParseEnrichment extracts the summary and relevance score from a model reply.
// A missing or blank summary yields models.DefaultSummary; a missing score yields
// models.DefaultRelevanceScore.
func ParseEnrichment(reply string) (summary string, relevance int) {
	summary = models.DefaultSummary
	if m := summaryPattern.FindStringSubmatch(reply); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			summary = s
		}
	}

	relevance = models.DefaultRelevanceScore
	if m := relevancePattern.FindStringSubmatch(reply); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			relevance = n
		}
	}

	return summary, relevance
}
