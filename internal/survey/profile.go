package survey

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crsurvey/internal/catalog"
	"crsurvey/internal/store"
)

// ProfileAnswers carries a submitted developer profile: one answer per
// catalog question plus the per-language proficiency map.
type ProfileAnswers struct {
	Answers             map[string]string `json:"answers"`
	LanguageProficiency map[string]string `json:"language_proficiency"`
}

// ValidateProfile checks every required question and every listed language
// for a non-empty answer. Returns a question-id (or language) keyed error
// map; an empty map means the profile is complete.
func ValidateProfile(p *ProfileAnswers) map[string]string {
	errs := map[string]string{}

	for _, q := range catalog.ProfileQuestions() {
		if q.Required && strings.TrimSpace(p.Answers[q.ID]) == "" {
			errs[q.ID] = requiredMsg
		}
	}
	for _, group := range catalog.LanguageGroups() {
		for _, lang := range group.Languages {
			if strings.TrimSpace(p.LanguageProficiency[lang]) == "" {
				errs[lang] = requiredMsg
			}
		}
	}
	return errs
}

// SubmitProfile validates and persists a developer profile: the combined
// answers go onto the evaluator row as its dev_experience attribute, and
// are mirrored into the draft store under the original composite keys.
// Validation failures come back as the first return value with a nil error.
func SubmitProfile(ctx context.Context, st store.Store, ds DraftStore, evaluatorUUID string, p *ProfileAnswers) (map[string]string, error) {
	if errs := ValidateProfile(p); len(errs) > 0 {
		return errs, nil
	}

	combined := make(map[string]any, len(p.Answers)+1)
	for id, v := range p.Answers {
		combined[id] = v
	}
	combined["language_proficiency"] = p.LanguageProficiency

	blob, err := json.Marshal(combined)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	if err := st.SetDevExperience(ctx, evaluatorUUID, string(blob)); err != nil {
		return nil, err
	}

	// Merge into existing drafts rather than dropping any survey answers
	// saved before a profile re-submit.
	draft := ds.Load(evaluatorUUID)
	for id, v := range p.Answers {
		draft[id] = v
	}
	draft["language_proficiency"] = p.LanguageProficiency
	if err := ds.Save(evaluatorUUID, draft); err != nil {
		return nil, err
	}
	return nil, nil
}
