package models

import (
	"fmt"
	"time"
)

// FeedbackType classifies a feedback event on a discovered paper.
type FeedbackType string

const (
	// FeedbackRating is an explicit 1..5 star rating.
	FeedbackRating FeedbackType = "rating"
	// FeedbackSaved means the user saved the paper to a library.
	FeedbackSaved FeedbackType = "saved"
	// FeedbackDismissed means the user removed the paper from view.
	FeedbackDismissed FeedbackType = "dismissed"
	// FeedbackClicked means the user opened the paper.
	FeedbackClicked FeedbackType = "clicked"
)

// FeedbackEvent records one user signal about a discovered paper.
// Events never mutate cached results; they bias the next cold scoring
// run for the same (source paper, discovered paper) pair.
type FeedbackEvent struct {
	UserID        string       `json:"user_id"`
	SourcePaperID string       `json:"source_paper_id"`
	DiscoveredKey string       `json:"discovered_key"`
	Type          FeedbackType `json:"type"`
	Rating        *int         `json:"rating,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Validate checks the event fields.
func (e FeedbackEvent) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("feedback: user_id is required")
	}
	if e.SourcePaperID == "" {
		return fmt.Errorf("feedback: source_paper_id is required")
	}
	if e.DiscoveredKey == "" {
		return fmt.Errorf("feedback: discovered_key is required")
	}
	switch e.Type {
	case FeedbackRating:
		if e.Rating == nil {
			return fmt.Errorf("feedback: rating is required for type %q", e.Type)
		}
		if *e.Rating < 1 || *e.Rating > 5 {
			return fmt.Errorf("feedback: rating must be 1..5, got %d", *e.Rating)
		}
	case FeedbackSaved, FeedbackDismissed, FeedbackClicked:
	default:
		return fmt.Errorf("feedback: unrecognized type %q", e.Type)
	}
	return nil
}

// NormalizedRating maps the event to a score in [-1, 1]. Explicit
// ratings map linearly (1 star = -1, 3 stars = 0, 5 stars = +1);
// interactions carry fixed weights.
func (e FeedbackEvent) NormalizedRating() float64 {
	switch e.Type {
	case FeedbackRating:
		if e.Rating == nil {
			return 0
		}
		return (float64(*e.Rating) - 3.0) / 2.0
	case FeedbackSaved:
		return 1.0
	case FeedbackClicked:
		return 0.25
	case FeedbackDismissed:
		return -1.0
	}
	return 0
}
