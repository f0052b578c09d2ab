package models

import "time"

// ReviewItem is one unit of survey content: an AI-generated review comment
// paired with the ground-truth human comment and supporting context.
// Items are seeded out-of-band and read-only afterwards; Hash is the
// content-addressed key responses are recorded under.
type ReviewItem struct {
	ID             string
	Hash           string
	ChainOfThought string
	GroundTruth    string
	Prediction     string
	Summary        string
	Patch          string
	CreatedAt      time.Time
}

// Assignment links a ReviewItem to the Evaluator who must rate it.
type Assignment struct {
	EvaluatorID string
	ReviewID    string
}

// Response is one recorded answer: (evaluator, item hash, question) -> answer.
// Upsert semantics, last write wins; responses are never deleted.
type Response struct {
	EvaluatorUUID string
	Hash          string
	QuestionID    int
	Answer        string
	UpdatedAt     time.Time
}
