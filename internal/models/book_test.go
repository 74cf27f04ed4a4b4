package models

import (
	"math"
	"testing"
)

func TestNewScoredBook(t *testing.T) {
	tests := []struct {
		name           string
		book           Book
		relevance      int
		wantRelevance  int
		wantValue      float64
		wantDiscount   bool
		wantAmount     float64
		wantPercentage float64
	}{
		{
			name:          "plain price",
			book:          Book{Title: "A", CurrentPrice: 10},
			relevance:     80,
			wantRelevance: 80,
			wantValue:     8,
		},
		{
			name:           "discounted",
			book:           Book{Title: "B", CurrentPrice: 15, OriginalPrice: Float64(20)},
			relevance:      60,
			wantRelevance:  60,
			wantValue:      4,
			wantDiscount:   true,
			wantAmount:     5,
			wantPercentage: 25,
		},
		{
			name:          "original below current is not a discount",
			book:          Book{Title: "C", CurrentPrice: 20, OriginalPrice: Float64(18)},
			relevance:     40,
			wantRelevance: 40,
			wantValue:     2,
		},
		{
			name:          "free book uses price floor",
			book:          Book{Title: "D", CurrentPrice: 0},
			relevance:     70,
			wantRelevance: 70,
			wantValue:     70,
		},
		{
			name:          "sub-dollar price uses price floor",
			book:          Book{Title: "E", CurrentPrice: 0.5},
			relevance:     30,
			wantRelevance: 30,
			wantValue:     30,
		},
		{
			name:          "relevance clamped",
			book:          Book{Title: "F", CurrentPrice: 100},
			relevance:     250,
			wantRelevance: 100,
			wantValue:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewScoredBook(tt.book, "summary", tt.relevance)

			if got.RelevanceScore != tt.wantRelevance {
				t.Errorf("RelevanceScore = %d, want %d", got.RelevanceScore, tt.wantRelevance)
			}
			if math.Abs(got.ValueScore-tt.wantValue) > 1e-9 {
				t.Errorf("ValueScore = %f, want %f", got.ValueScore, tt.wantValue)
			}
			if (got.DiscountAmount != nil) != tt.wantDiscount {
				t.Fatalf("DiscountAmount presence = %v, want %v", got.DiscountAmount != nil, tt.wantDiscount)
			}
			if tt.wantDiscount {
				if math.Abs(*got.DiscountAmount-tt.wantAmount) > 1e-9 {
					t.Errorf("DiscountAmount = %f, want %f", *got.DiscountAmount, tt.wantAmount)
				}
				if math.Abs(*got.DiscountPercentage-tt.wantPercentage) > 1e-9 {
					t.Errorf("DiscountPercentage = %f, want %f", *got.DiscountPercentage, tt.wantPercentage)
				}
			}
		})
	}
}

func TestFallbackScoredBook(t *testing.T) {
	book := Book{Title: "Broken", CurrentPrice: 12, OriginalPrice: Float64(20)}
	got := FallbackScoredBook(book)

	if got.Summary != FallbackSummary {
		t.Errorf("Summary = %q", got.Summary)
	}
	if got.RelevanceScore != 0 || got.ValueScore != 0 {
		t.Errorf("expected zero scores, got relevance=%d value=%f", got.RelevanceScore, got.ValueScore)
	}
	if got.DiscountAmount != nil || got.DiscountPercentage != nil {
		t.Error("fallback must not carry discount fields")
	}
	if got.Title != "Broken" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestJobResult_Clone(t *testing.T) {
	original := JobResult{
		JobID: "job-1",
		Books: []ScoredBook{NewScoredBook(Book{Title: "A", CurrentPrice: 10, OriginalPrice: Float64(12)}, "s", 50)},
	}

	clone := original.Clone()
	clone.Books[0].Title = "changed"
	*clone.Books[0].OriginalPrice = 99

	if original.Books[0].Title != "A" {
		t.Error("clone shares the books slice")
	}
	if *original.Books[0].OriginalPrice != 12 {
		t.Error("clone shares price pointers")
	}
}
