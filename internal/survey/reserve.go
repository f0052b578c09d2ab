// Package survey implements the participant flow: slot reservation, the
// assignment resolver, the per-evaluator progression state machine, and
// developer-profile validation. Handlers dispatch events into this package
// and render whatever state comes back.
package survey

import (
	"context"

	"crsurvey/internal/store"
)

// Client-facing routes the flow hands back after each transition.
const (
	RouteEntry    = "/"
	RouteProfile  = "/profile"
	RouteSurvey   = "/survey"
	RouteThankYou = "/thank-you"
)

// ReserveResult is the outcome of the one-time entry gate.
type ReserveResult struct {
	EvaluatorUUID string `json:"evaluator_uuid"`
	NextRoute     string `json:"next_route"`
}

// ReserveOrResume claims an evaluator slot for a new participant, or resumes
// a remembered one. A remembered uuid that no longer resolves is discarded
// and falls through to a fresh claim. Returns store.ErrNoFreeSlot when the
// pool is exhausted.
func ReserveOrResume(ctx context.Context, s store.Store, existingUUID string) (*ReserveResult, error) {
	if existingUUID != "" {
		e, err := s.GetEvaluatorByUUID(ctx, existingUUID)
		if err == nil {
			// Re-assert the claim for idempotency, then route on whether
			// the profile was already filled in.
			if err := s.MarkSpotTaken(ctx, e.UUID); err != nil {
				return nil, err
			}
			route := RouteProfile
			if e.ProfileDone() {
				route = RouteSurvey
			}
			return &ReserveResult{EvaluatorUUID: e.UUID, NextRoute: route}, nil
		}
		// Stale identity: fall through and claim fresh.
	}

	e, err := s.ClaimFreeEvaluator(ctx)
	if err != nil {
		return nil, err
	}
	return &ReserveResult{EvaluatorUUID: e.UUID, NextRoute: RouteProfile}, nil
}
