package store

import (
	"context"
	"errors"
	"time"

	"crsurvey/internal/models"
)

// ErrNoFreeSlot is returned by ClaimFreeEvaluator when every evaluator row
// already has its spot taken.
var ErrNoFreeSlot = errors.New("no free evaluator slot")

// Store defines the persistence interface for crsurvey.
type Store interface {
	// Evaluators
	CreateEvaluator(ctx context.Context, e *models.Evaluator) error
	GetEvaluatorByUUID(ctx context.Context, uuid string) (*models.Evaluator, error)
	ListEvaluators(ctx context.Context) ([]*models.Evaluator, error)
	// ClaimFreeEvaluator atomically flips one not-taken row to taken and
	// returns it, or ErrNoFreeSlot.
	ClaimFreeEvaluator(ctx context.Context) (*models.Evaluator, error)
	MarkSpotTaken(ctx context.Context, uuid string) error
	SetDevExperience(ctx context.Context, uuid, devExperience string) error
	SetDateCompleted(ctx context.Context, uuid string, at time.Time) error

	// Review items
	CreateReviewItem(ctx context.Context, item *models.ReviewItem) error
	ListReviewItemsByIDs(ctx context.Context, ids []string) ([]*models.ReviewItem, error)

	// Assignments
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	ListAssignedReviewIDs(ctx context.Context, evaluatorID string) ([]string, error)

	// Responses
	UpsertResponses(ctx context.Context, responses []*models.Response) error
	ListAnsweredHashes(ctx context.Context, evaluatorUUID string) (map[string]bool, error)
	CountAnsweredItems(ctx context.Context, evaluatorUUID string) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
