package models

// QuestionType distinguishes how a question is rendered and answered.
type QuestionType string

const (
	QuestionTypeSelect QuestionType = "select"
	QuestionTypeLikert QuestionType = "likert"
)

// Question is one catalog entry: a profile select or a review Likert scale.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Text        string       `json:"text"`
	Description string       `json:"description,omitempty"`
	Options     []string     `json:"options,omitempty"`
	// OptionDescriptions holds per-option tooltip text keyed by option label.
	// Options without an entry render no tooltip.
	OptionDescriptions map[string]string `json:"option_descriptions,omitempty"`
	Required           bool              `json:"required"`
}
