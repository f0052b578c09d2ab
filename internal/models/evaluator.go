package models

import "time"

// Evaluator represents one survey participant slot.
// Rows are seeded ahead of time; a participant claims one on first visit.
type Evaluator struct {
	ID            string
	UUID          string
	SpotTaken     bool
	DevExperience string // JSON blob of profile answers; empty until the profile is submitted
	DateCompleted *time.Time
	CreatedAt     time.Time
}

// ProfileDone reports whether the evaluator has submitted the developer profile.
func (e *Evaluator) ProfileDone() bool {
	return e.DevExperience != ""
}
