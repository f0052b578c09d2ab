// Package catalog holds the static survey content: the developer-profile
// questionnaire and the per-item review rating questions. Accessors are pure;
// nothing here touches storage or the network.
package catalog

import "crsurvey/internal/models"

var profileQuestions = []models.Question{
	{
		ID:       "dev_experience",
		Type:     models.QuestionTypeSelect,
		Text:     "How many years of professional software development experience do you have?",
		Options:  []string{"0-1", "1-3", "3-5", "5-10", "10+"},
		Required: true,
	},
	{
		ID:       "review_giving_experience",
		Type:     models.QuestionTypeSelect,
		Text:     "How many years of experience do you have giving code reviews (peer reviews)?",
		Options:  []string{"0-1", "1-3", "3-5", "5-10", "10+"},
		Required: true,
	},
	{
		ID:       "review_receiving_experience",
		Type:     models.QuestionTypeSelect,
		Text:     "How many years of experience do you have receiving code reviews on your code?",
		Options:  []string{"0-1", "1-3", "3-5", "5-10", "10+"},
		Required: true,
	},
	{
		ID:       "review_expertise",
		Type:     models.QuestionTypeSelect,
		Text:     "How would you rate your expertise in performing code reviews?",
		Options:  []string{"Novice", "Intermediate", "Advanced", "Expert"},
		Required: true,
	},
}

var reviewQuestions = []models.Question{
	{
		ID:          "actionable",
		Type:        models.QuestionTypeLikert,
		Text:        "Actionable",
		Description: "Does the explanation in the reasoning trace suggest actionable changes (asks user to make a change)?",
		Options:     []string{"Not Actionable", "Partially Actionable", "Clearly Actionable"},
		OptionDescriptions: map[string]string{
			"Not Actionable":     "Vague, subjective, lacks specific direction, or doesn't relate to a concrete code change.",
			"Clearly Actionable": "Suggests a specific, understandable change. Example: \"Rename variable `tmp` to `elapsed_time` for clarity.\"",
		},
		Required: true,
	},
	{
		ID:          "clarity",
		Type:        models.QuestionTypeLikert,
		Text:        "Clarity",
		Description: "How well the reasoning trace explains the AI's logic for its comment.",
		Options:     []string{"Not Clear", "Somewhat Clear", "Very Clear"},
		OptionDescriptions: map[string]string{
			"Not Clear":  "Confusing, irrelevant, illogical, or missing. Does not explain the comment at all.",
			"Very Clear": "Direct, logical explanation. Easy to follow the AI's reasoning for the comment.",
		},
		Required: true,
	},
	{
		ID:          "relevance",
		Type:        models.QuestionTypeLikert,
		Text:        "Relevance",
		Description: "How well the AI comment pertains to the specific code changed (diff) and the goal of that change.",
		Options:     []string{"No Relevance", "Somewhat Relevant", "Very Relevant"},
		OptionDescriptions: map[string]string{
			"No Relevance":  "Completely unrelated to the code change, or misunderstands the change's purpose.",
			"Very Relevant": "Directly addresses code in the diff and relates closely to the change's purpose/impact. Improves the change.",
		},
		Required: true,
	},
}

// reviewQuestionNumbers maps review question ids to the numeric question_id
// stored in the responses table.
var reviewQuestionNumbers = map[string]int{
	"actionable": 1,
	"clarity":    2,
	"relevance":  3,
}

// LanguageGroup bundles languages for the proficiency section of the profile.
type LanguageGroup struct {
	Name      string   `json:"name"`
	Languages []string `json:"languages"`
}

var languageGroups = []LanguageGroup{
	{Name: "Web", Languages: []string{"Go", "JavaScript", "Java", "PHP", "Python"}},
}

// ProficiencyLevels are the allowed values for each language proficiency answer.
var ProficiencyLevels = []string{"not_applicable", "basic", "proficient", "expert"}

// ProfileQuestions returns the ordered developer-profile questionnaire.
func ProfileQuestions() []models.Question {
	return copyQuestions(profileQuestions)
}

// ReviewQuestions returns the ordered rating questions asked for every review item.
func ReviewQuestions() []models.Question {
	return copyQuestions(reviewQuestions)
}

func copyQuestions(qs []models.Question) []models.Question {
	out := make([]models.Question, len(qs))
	copy(out, qs)
	for i := range out {
		out[i].Options = append([]string(nil), out[i].Options...)
		if out[i].OptionDescriptions != nil {
			m := make(map[string]string, len(out[i].OptionDescriptions))
			for k, v := range out[i].OptionDescriptions {
				m[k] = v
			}
			out[i].OptionDescriptions = m
		}
	}
	return out
}

// ReviewQuestionNumber returns the numeric id a review question is stored
// under in the responses table, or 0 if the id is unknown.
func ReviewQuestionNumber(id string) int {
	return reviewQuestionNumbers[id]
}

// LanguageGroups returns the language-proficiency groups shown on the profile.
func LanguageGroups() []LanguageGroup {
	out := make([]LanguageGroup, len(languageGroups))
	copy(out, languageGroups)
	return out
}
