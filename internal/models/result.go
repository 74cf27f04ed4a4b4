package models

import "time"

// NoneTitle is reported for the best-book fields of an empty result
const NoneTitle = "None"

// ResultMetadata summarises the scored books of one job
type ResultMetadata struct {
	TotalBooks       int     `json:"totalBooks"`
	AveragePrice     float64 `json:"averagePrice"`
	AverageRelevance float64 `json:"averageRelevance"`
	MostRelevantBook string  `json:"mostRelevantBook"`
	BestValueBook    string  `json:"bestValueBook"`
}

// EmptyMetadata is the metadata of a job that discovered no books
func EmptyMetadata() ResultMetadata {
	return ResultMetadata{
		MostRelevantBook: NoneTitle,
		BestValueBook:    NoneTitle,
	}
}

// JobResult is the terminal artifact of a completed job
type JobResult struct {
	JobID     string         `json:"jobId"`
	Topic     string         `json:"theme"`
	Books     []ScoredBook   `json:"books"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  ResultMetadata `json:"metadata"`
}

// Clone returns a copy of the result that shares no mutable state with r
func (r JobResult) Clone() JobResult {
	out := r
	out.Books = make([]ScoredBook, len(r.Books))
	for i, b := range r.Books {
		out.Books[i] = b.clone()
	}
	return out
}

func (b ScoredBook) clone() ScoredBook {
	out := b
	out.OriginalPrice = clonePtr(b.OriginalPrice)
	out.DiscountAmount = clonePtr(b.DiscountAmount)
	out.DiscountPercentage = clonePtr(b.DiscountPercentage)
	return out
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
