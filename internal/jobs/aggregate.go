package jobs

import "github.com/iamwebwiz/smart-book-discovery-agent/internal/models"

// BuildMetadata summarises scored books. Ties on relevance or value keep the
// earliest book in discovery order.
func BuildMetadata(books []models.ScoredBook) models.ResultMetadata {
	if len(books) == 0 {
		return models.EmptyMetadata()
	}

	var totalPrice float64
	var totalRelevance int
	mostRelevant, bestValue := 0, 0

	for i, book := range books {
		totalPrice += book.CurrentPrice
		totalRelevance += book.RelevanceScore

		if book.RelevanceScore > books[mostRelevant].RelevanceScore {
			mostRelevant = i
		}
		if book.ValueScore > books[bestValue].ValueScore {
			bestValue = i
		}
	}

	count := float64(len(books))
	return models.ResultMetadata{
		TotalBooks:       len(books),
		AveragePrice:     totalPrice / count,
		AverageRelevance: float64(totalRelevance) / count,
		MostRelevantBook: books[mostRelevant].Title,
		BestValueBook:    books[bestValue].Title,
	}
}
