package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"crsurvey/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single connection
	// serializes all DB access through Go's connection pool, preventing
	// "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Evaluators ---

func (s *SQLiteStore) CreateEvaluator(ctx context.Context, e *models.Evaluator) error {
	if e.ID == "" {
		e.ID = newULID()
	}
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluators (id, uuid, spot_taken, dev_experience, date_completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UUID, boolToInt(e.SpotTaken), e.DevExperience, e.DateCompleted, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create evaluator: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetEvaluatorByUUID(ctx context.Context, uuid string) (*models.Evaluator, error) {
	e := &models.Evaluator{}
	var dateCompleted sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, uuid, spot_taken, dev_experience, date_completed, created_at
		FROM evaluators WHERE uuid = ?`, uuid,
	).Scan(&e.ID, &e.UUID, &e.SpotTaken, &e.DevExperience, &dateCompleted, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("evaluator not found: %s", uuid)
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluator: %w", err)
	}

	if dateCompleted.Valid {
		e.DateCompleted = &dateCompleted.Time
	}
	return e, nil
}

func (s *SQLiteStore) ListEvaluators(ctx context.Context) ([]*models.Evaluator, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, uuid, spot_taken, dev_experience, date_completed, created_at
		FROM evaluators ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list evaluators: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var evaluators []*models.Evaluator
	for rows.Next() {
		e := &models.Evaluator{}
		var dateCompleted sql.NullTime
		if err := rows.Scan(&e.ID, &e.UUID, &e.SpotTaken, &e.DevExperience, &dateCompleted, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluator: %w", err)
		}
		if dateCompleted.Valid {
			e.DateCompleted = &dateCompleted.Time
		}
		evaluators = append(evaluators, e)
	}
	return evaluators, rows.Err()
}

// ClaimFreeEvaluator claims one not-taken row in a single conditional UPDATE,
// so two concurrent participants can never claim the same slot.
func (s *SQLiteStore) ClaimFreeEvaluator(ctx context.Context) (*models.Evaluator, error) {
	e := &models.Evaluator{}
	var dateCompleted sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`UPDATE evaluators SET spot_taken = 1
		WHERE id = (SELECT id FROM evaluators WHERE spot_taken = 0 LIMIT 1)
		RETURNING id, uuid, spot_taken, dev_experience, date_completed, created_at`,
	).Scan(&e.ID, &e.UUID, &e.SpotTaken, &e.DevExperience, &dateCompleted, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoFreeSlot
	}
	if err != nil {
		return nil, fmt.Errorf("claim free evaluator: %w", err)
	}

	if dateCompleted.Valid {
		e.DateCompleted = &dateCompleted.Time
	}
	return e, nil
}

func (s *SQLiteStore) MarkSpotTaken(ctx context.Context, uuid string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE evaluators SET spot_taken = 1 WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("mark spot taken: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("evaluator not found: %s", uuid)
	}
	return nil
}

func (s *SQLiteStore) SetDevExperience(ctx context.Context, uuid, devExperience string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE evaluators SET dev_experience = ? WHERE uuid = ?", devExperience, uuid)
	if err != nil {
		return fmt.Errorf("set dev experience: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("evaluator not found: %s", uuid)
	}
	return nil
}

func (s *SQLiteStore) SetDateCompleted(ctx context.Context, uuid string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE evaluators SET date_completed = ? WHERE uuid = ?", at.UTC(), uuid)
	if err != nil {
		return fmt.Errorf("set date completed: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("evaluator not found: %s", uuid)
	}
	return nil
}

// --- Review items ---

func (s *SQLiteStore) CreateReviewItem(ctx context.Context, item *models.ReviewItem) error {
	if item.ID == "" {
		item.ID = newULID()
	}
	item.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO review_items (id, hash, chain_of_thought, ground_truth, prediction, summary, patch, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Hash, item.ChainOfThought, item.GroundTruth,
		item.Prediction, item.Summary, item.Patch, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create review item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListReviewItemsByIDs(ctx context.Context, ids []string) ([]*models.ReviewItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT id, hash, chain_of_thought, ground_truth, prediction, summary, patch, created_at
		FROM review_items WHERE id IN (` + strings.Join(placeholders, ",") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*models.ReviewItem
	for rows.Next() {
		item := &models.ReviewItem{}
		if err := rows.Scan(&item.ID, &item.Hash, &item.ChainOfThought, &item.GroundTruth,
			&item.Prediction, &item.Summary, &item.Patch, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// --- Assignments ---

func (s *SQLiteStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO assignments (evaluator_id, review_id, position)
		VALUES (?, ?, (SELECT COUNT(*) FROM assignments WHERE evaluator_id = ?))`,
		a.EvaluatorID, a.ReviewID, a.EvaluatorID,
	)
	if err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAssignedReviewIDs(ctx context.Context, evaluatorID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT review_id FROM assignments WHERE evaluator_id = ? ORDER BY position", evaluatorID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Responses ---

// UpsertResponses writes all responses for one item in a single transaction,
// so a partial write across an item's questions never persists.
func (s *SQLiteStore) UpsertResponses(ctx context.Context, responses []*models.Response) error {
	if len(responses) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, r := range responses {
		r.UpdatedAt = now
		_, err := tx.ExecContext(ctx,
			`INSERT INTO responses (evaluator_id, hash, question_id, answer, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (evaluator_id, hash, question_id) DO UPDATE SET
				answer = excluded.answer,
				updated_at = excluded.updated_at`,
			r.EvaluatorUUID, r.Hash, r.QuestionID, r.Answer, r.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert response: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAnsweredHashes(ctx context.Context, evaluatorUUID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT hash FROM responses WHERE evaluator_id = ?", evaluatorUUID)
	if err != nil {
		return nil, fmt.Errorf("list answered hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	answered := make(map[string]bool)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan answered hash: %w", err)
		}
		answered[hash] = true
	}
	return answered, rows.Err()
}

func (s *SQLiteStore) CountAnsweredItems(ctx context.Context, evaluatorUUID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT hash) FROM responses WHERE evaluator_id = ?", evaluatorUUID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count answered items: %w", err)
	}
	return count, nil
}
