package models

import "math"

const (
	// DefaultRelevanceScore is used when an enrichment response carries no parsable score
	DefaultRelevanceScore = 50
	// DefaultSummary is used when an enrichment response carries no summary line
	DefaultSummary = "No summary available"
	// FallbackSummary marks a book whose enrichment call failed
	FallbackSummary = "No summary available due to processing error."
)

// Book is one catalogue entry discovered on the source site
type Book struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	CurrentPrice  float64  `json:"currentPrice"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"` // Only present when the listing shows a struck-through price
	Description   string   `json:"description"`
	ProductURL    string   `json:"productUrl"`
}

// ScoredBook is a Book annotated by the enrichment stage
type ScoredBook struct {
	Book
	Summary            string   `json:"summary"`
	RelevanceScore     int      `json:"relevanceScore"`
	DiscountAmount     *float64 `json:"discountAmount,omitempty"`
	DiscountPercentage *float64 `json:"discountPercentage,omitempty"`
	ValueScore         float64  `json:"valueScore"`
}

// NewScoredBook derives value and discount fields for book from an enrichment outcome.
// The relevance score is clamped to 0-100.
func NewScoredBook(book Book, summary string, relevance int) ScoredBook {
	if relevance < 0 {
		relevance = 0
	}
	if relevance > 100 {
		relevance = 100
	}

	scored := ScoredBook{
		Book:           book,
		Summary:        summary,
		RelevanceScore: relevance,
		ValueScore:     ValueScore(relevance, book.CurrentPrice),
	}

	// originalPrice below currentPrice is reported as scraped, without discount fields
	if book.OriginalPrice != nil && *book.OriginalPrice > book.CurrentPrice {
		amount := *book.OriginalPrice - book.CurrentPrice
		percentage := amount / *book.OriginalPrice * 100
		scored.DiscountAmount = &amount
		scored.DiscountPercentage = &percentage
	}

	return scored
}

// FallbackScoredBook is the value substituted for a book whose enrichment call failed
func FallbackScoredBook(book Book) ScoredBook {
	return ScoredBook{
		Book:           book,
		Summary:        FallbackSummary,
		RelevanceScore: 0,
		ValueScore:     0,
	}
}

// ValueScore is relevance per unit of price, with the price floored at 1
func ValueScore(relevance int, price float64) float64 {
	return float64(relevance) / math.Max(price, 1)
}

// Float64 returns a pointer to v
func Float64(v float64) *float64 {
	return &v
}
