package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crsurvey/internal/models"
)

func TestProfileQuestions(t *testing.T) {
	qs := ProfileQuestions()
	require.Len(t, qs, 4)

	assert.Equal(t, "dev_experience", qs[0].ID)
	assert.Equal(t, "review_giving_experience", qs[1].ID)
	assert.Equal(t, "review_receiving_experience", qs[2].ID)
	assert.Equal(t, "review_expertise", qs[3].ID)

	for _, q := range qs {
		assert.Equal(t, models.QuestionTypeSelect, q.Type)
		assert.True(t, q.Required, "profile question %s should be required", q.ID)
		assert.NotEmpty(t, q.Options)
	}
}

func TestReviewQuestions(t *testing.T) {
	qs := ReviewQuestions()
	require.Len(t, qs, 3)

	assert.Equal(t, "actionable", qs[0].ID)
	assert.Equal(t, "clarity", qs[1].ID)
	assert.Equal(t, "relevance", qs[2].ID)

	for _, q := range qs {
		assert.Equal(t, models.QuestionTypeLikert, q.Type)
		assert.True(t, q.Required)
		assert.Len(t, q.Options, 3)
		assert.NotEmpty(t, q.Description)
		assert.NotEmpty(t, q.OptionDescriptions)
	}
}

func TestReviewQuestionOptionTooltips(t *testing.T) {
	qs := ReviewQuestions()
	require.Len(t, qs, 3)

	assert.Equal(t,
		"Vague, subjective, lacks specific direction, or doesn't relate to a concrete code change.",
		qs[0].OptionDescriptions["Not Actionable"])
	assert.Equal(t,
		"Suggests a specific, understandable change. Example: \"Rename variable `tmp` to `elapsed_time` for clarity.\"",
		qs[0].OptionDescriptions["Clearly Actionable"])

	assert.Equal(t,
		"Confusing, irrelevant, illogical, or missing. Does not explain the comment at all.",
		qs[1].OptionDescriptions["Not Clear"])
	assert.Equal(t,
		"Direct, logical explanation. Easy to follow the AI's reasoning for the comment.",
		qs[1].OptionDescriptions["Very Clear"])

	assert.Equal(t,
		"Completely unrelated to the code change, or misunderstands the change's purpose.",
		qs[2].OptionDescriptions["No Relevance"])
	assert.Equal(t,
		"Directly addresses code in the diff and relates closely to the change's purpose/impact. Improves the change.",
		qs[2].OptionDescriptions["Very Relevant"])

	// Every tooltip key must be an option the question actually offers; the
	// midpoint options carry no tooltip.
	for _, q := range qs {
		offered := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			offered[o] = true
		}
		for label := range q.OptionDescriptions {
			assert.True(t, offered[label], "tooltip for unknown option %q on %s", label, q.ID)
		}
		assert.NotContains(t, q.OptionDescriptions, q.Options[1])
	}
}

func TestReviewQuestionNumber(t *testing.T) {
	assert.Equal(t, 1, ReviewQuestionNumber("actionable"))
	assert.Equal(t, 2, ReviewQuestionNumber("clarity"))
	assert.Equal(t, 3, ReviewQuestionNumber("relevance"))
	assert.Equal(t, 0, ReviewQuestionNumber("nope"))
}

func TestAccessorsReturnCopies(t *testing.T) {
	qs := ReviewQuestions()
	qs[0].ID = "mutated"
	assert.Equal(t, "actionable", ReviewQuestions()[0].ID)

	qs[0].Options[0] = "mutated"
	assert.Equal(t, "Not Actionable", ReviewQuestions()[0].Options[0])

	qs[0].OptionDescriptions["Not Actionable"] = "mutated"
	assert.Equal(t,
		"Vague, subjective, lacks specific direction, or doesn't relate to a concrete code change.",
		ReviewQuestions()[0].OptionDescriptions["Not Actionable"])

	groups := LanguageGroups()
	require.NotEmpty(t, groups)
	groups[0].Name = "mutated"
	assert.Equal(t, "Web", LanguageGroups()[0].Name)
}
