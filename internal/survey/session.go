package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"crsurvey/internal/catalog"
	"crsurvey/internal/models"
	"crsurvey/internal/store"
)

// requiredMsg is the per-field message for a missing required answer.
const requiredMsg = "This field is required"

// ErrValidation reports that advancing was blocked by missing required
// answers; the session's error map says which ones.
var ErrValidation = errors.New("missing required answers")

// DraftStore is the slice of the drafts package the session needs.
type DraftStore interface {
	Save(evaluatorUUID string, all map[string]any) error
	Load(evaluatorUUID string) map[string]any
	Clear(evaluatorUUID string) error
}

// Session is the progression state machine for one evaluator: the current
// item index, the draft answer map mirrored to the draft store on every
// edit, and the transient validation errors. The index is never persisted;
// resuming recomputes it implicitly through the resolver's
// unanswered-first ordering.
type Session struct {
	mu            sync.Mutex
	evaluatorUUID string
	items         []*models.ReviewItem
	index         int
	draft         map[string]any
	errs          map[string]string
	completed     bool
	stamped       bool

	store  store.Store
	drafts DraftStore
	logger *slog.Logger
}

// NewSession builds a session over the resolver's item ordering, loading any
// drafts left from a previous visit.
func NewSession(st store.Store, ds DraftStore, logger *slog.Logger, e *models.Evaluator, items []*models.ReviewItem) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		evaluatorUUID: e.UUID,
		items:         items,
		draft:         ds.Load(e.UUID),
		errs:          map[string]string{},
		completed:     e.DateCompleted != nil,
		stamped:       e.DateCompleted != nil,
		store:         st,
		drafts:        ds,
		logger:        logger,
	}
}

// CurrentIndex returns the 0-based index of the item being rated.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Total returns how many items are assigned.
func (s *Session) Total() int {
	return len(s.items)
}

// Items returns a copy of the resolved item ordering.
func (s *Session) Items() []*models.ReviewItem {
	out := make([]*models.ReviewItem, len(s.items))
	copy(out, s.items)
	return out
}

// Current returns the item under rating, or nil for an empty assignment.
func (s *Session) Current() *models.ReviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *Session) current() *models.ReviewItem {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[s.index]
}

// Completed reports whether the terminal state was reached.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Progress returns the completion percentage shown above the survey.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return 0
	}
	return float64(s.index+1) / float64(len(s.items)) * 100
}

// Errors returns the validation error map from the last blocked advance.
func (s *Session) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.errs))
	for k, v := range s.errs {
		out[k] = v
	}
	return out
}

// Drafts returns the draft answer map for repopulating the page.
func (s *Session) Drafts() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.draft))
	for k, v := range s.draft {
		out[k] = v
	}
	return out
}

// SetAnswer records a draft answer for the current item, mirrors the full
// draft map to the draft store, and clears any validation error on that
// question.
func (s *Session) SetAnswer(questionID, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current()
	if cur == nil {
		return
	}
	s.draft[cur.Hash+"_"+questionID] = value
	delete(s.errs, questionID)

	if err := s.drafts.Save(s.evaluatorUUID, s.draft); err != nil {
		s.logger.Error("save drafts", "evaluator", s.evaluatorUUID, "error", err)
	}
}

func (s *Session) draftString(key string) string {
	v, _ := s.draft[key].(string)
	return v
}

// Advance validates the current item, submits its responses, and moves
// forward one step. A missing required answer aborts the transition with
// ErrValidation and a populated error map. On the last item it records the
// completion timestamp (once per evaluator) and transitions to Completed.
// A failed response submit is logged and does not block progression.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed {
		return nil
	}
	cur := s.current()
	if cur == nil {
		s.complete(ctx)
		return nil
	}

	errs := map[string]string{}
	for _, q := range catalog.ReviewQuestions() {
		if q.Required && s.draftString(cur.Hash+"_"+q.ID) == "" {
			errs[q.ID] = requiredMsg
		}
	}
	if len(errs) > 0 {
		s.errs = errs
		return ErrValidation
	}
	s.errs = map[string]string{}

	var batch []*models.Response
	for _, q := range catalog.ReviewQuestions() {
		answer := s.draftString(cur.Hash + "_" + q.ID)
		if answer == "" {
			continue
		}
		batch = append(batch, &models.Response{
			EvaluatorUUID: s.evaluatorUUID,
			Hash:          cur.Hash,
			QuestionID:    catalog.ReviewQuestionNumber(q.ID),
			Answer:        answer,
		})
	}
	if err := s.store.UpsertResponses(ctx, batch); err != nil {
		s.logger.Error("save responses", "evaluator", s.evaluatorUUID, "hash", cur.Hash, "error", err)
	}

	if s.index >= len(s.items)-1 {
		s.complete(ctx)
		return nil
	}
	s.index++
	return nil
}

func (s *Session) complete(ctx context.Context) {
	if !s.stamped {
		if err := s.store.SetDateCompleted(ctx, s.evaluatorUUID, time.Now()); err != nil {
			s.logger.Error("set completion timestamp", "evaluator", s.evaluatorUUID, "error", err)
		} else {
			s.stamped = true
		}
	}
	s.completed = true
}

// Retreat persists the draft answers without any validation gate and steps
// back one item, staying put at index zero.
func (s *Session) Retreat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.drafts.Save(s.evaluatorUUID, s.draft); err != nil {
		s.logger.Error("save drafts", "evaluator", s.evaluatorUUID, "error", err)
	}
	if s.index > 0 {
		s.index--
	}
}

// JumpTo moves directly to a visited index from the item picker. Drafts are
// already mirrored on every edit, so no save is forced here.
func (s *Session) JumpTo(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("item index out of range: %d", i)
	}
	s.errs = map[string]string{}
	s.index = i
	return nil
}

// Manager hands out one live session per evaluator.
type Manager struct {
	mu       sync.Mutex
	store    store.Store
	drafts   DraftStore
	resolver *Resolver
	logger   *slog.Logger
	sessions map[string]*Session
}

// NewManager creates a session manager over the given stores.
func NewManager(st store.Store, ds DraftStore, logger *slog.Logger) *Manager {
	return &Manager{
		store:    st,
		drafts:   ds,
		resolver: NewResolver(st),
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Drafts exposes the manager's draft store.
func (m *Manager) Drafts() DraftStore {
	return m.drafts
}

// Session returns the evaluator's session, building it from the resolver
// ordering on first access. An unknown evaluator is an error; the caller
// must not render a survey page for it.
func (m *Manager) Session(ctx context.Context, evaluatorUUID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[evaluatorUUID]; ok {
		return s, nil
	}

	e, err := m.store.GetEvaluatorByUUID(ctx, evaluatorUUID)
	if err != nil {
		return nil, err
	}
	items, err := m.resolver.ResolveAssignedItems(ctx, evaluatorUUID)
	if err != nil {
		return nil, err
	}

	s := NewSession(m.store, m.drafts, m.logger, e, items)
	m.sessions[evaluatorUUID] = s
	return s, nil
}
