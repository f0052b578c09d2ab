// Package api exposes the survey flow as a REST API. Handlers only decode
// requests, dispatch into the survey package, and render its state; all
// transition logic lives there.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"crsurvey/internal/catalog"
	"crsurvey/internal/store"
	"crsurvey/internal/survey"
)

// validationAlert is the page-level banner shown with any field errors.
const validationAlert = "Please complete all required fields before proceeding."

// Server provides the REST API handlers.
type Server struct {
	store    store.Store
	sessions *survey.Manager
	logger   *slog.Logger
}

// NewServer creates a new API server.
func NewServer(s store.Store, ds survey.DraftStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    s,
		sessions: survey.NewManager(s, ds, logger),
		logger:   logger,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/slots/reserve", s.reserveSlot)

	mux.HandleFunc("GET /api/v1/catalog/profile", s.profileCatalog)
	mux.HandleFunc("GET /api/v1/catalog/review", s.reviewCatalog)

	mux.HandleFunc("PUT /api/v1/evaluators/{uuid}/profile", s.submitProfile)

	mux.HandleFunc("GET /api/v1/evaluators/{uuid}/session", s.getSession)
	mux.HandleFunc("POST /api/v1/evaluators/{uuid}/session/answers", s.setAnswer)
	mux.HandleFunc("POST /api/v1/evaluators/{uuid}/session/advance", s.advance)
	mux.HandleFunc("POST /api/v1/evaluators/{uuid}/session/retreat", s.retreat)
	mux.HandleFunc("POST /api/v1/evaluators/{uuid}/session/jump", s.jumpTo)

	return corsMiddleware(s.logMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Slot reservation ---

func (s *Server) reserveSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EvaluatorUUID string `json:"evaluator_uuid"`
	}
	// An empty body means a first visit with no remembered identity.
	_ = json.NewDecoder(r.Body).Decode(&req)

	res, err := survey.ReserveOrResume(r.Context(), s.store, req.EvaluatorUUID)
	if err != nil {
		if errors.Is(err, store.ErrNoFreeSlot) {
			writeError(w, http.StatusConflict, "No available evaluator slot. Please try again later.")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Catalog ---

func (s *Server) profileCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"questions":          catalog.ProfileQuestions(),
		"language_groups":    catalog.LanguageGroups(),
		"proficiency_levels": catalog.ProficiencyLevels,
	})
}

func (s *Server) reviewCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"questions": catalog.ReviewQuestions(),
	})
}

// --- Developer profile ---

func (s *Server) submitProfile(w http.ResponseWriter, r *http.Request) {
	uuid := r.PathValue("uuid")

	var answers survey.ProfileAnswers
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	fieldErrs, err := survey.SubmitProfile(r.Context(), s.store, s.sessions.Drafts(), uuid, &answers)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": validationAlert,
			"errors":  fieldErrs,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"next_route": survey.RouteSurvey})
}

// --- Survey session ---

// itemPayload is the review item content rendered for the current page.
type itemPayload struct {
	Hash           string `json:"hash"`
	ChainOfThought string `json:"chain_of_thought"`
	GroundTruth    string `json:"ground_truth"`
	Prediction     string `json:"prediction"`
	Summary        string `json:"summary"`
	Patch          string `json:"patch,omitempty"`
}

// sessionState is the full controller state the client renders from.
type sessionState struct {
	EvaluatorUUID string            `json:"evaluator_uuid"`
	CurrentIndex  int               `json:"current_index"`
	Total         int               `json:"total"`
	Progress      float64           `json:"progress"`
	Completed     bool              `json:"completed"`
	NextRoute     string            `json:"next_route,omitempty"`
	Item          *itemPayload      `json:"item,omitempty"`
	Hashes        []string          `json:"hashes"`
	Drafts        map[string]any    `json:"drafts"`
	Errors        map[string]string `json:"errors,omitempty"`
}

func stateOf(uuid string, sess *survey.Session) *sessionState {
	st := &sessionState{
		EvaluatorUUID: uuid,
		CurrentIndex:  sess.CurrentIndex(),
		Total:         sess.Total(),
		Progress:      sess.Progress(),
		Completed:     sess.Completed(),
		Drafts:        sess.Drafts(),
	}
	for _, item := range sess.Items() {
		st.Hashes = append(st.Hashes, item.Hash)
	}
	if errs := sess.Errors(); len(errs) > 0 {
		st.Errors = errs
	}
	if sess.Completed() {
		st.NextRoute = survey.RouteThankYou
		return st
	}
	if cur := sess.Current(); cur != nil {
		st.Item = &itemPayload{
			Hash:           cur.Hash,
			ChainOfThought: cur.ChainOfThought,
			GroundTruth:    cur.GroundTruth,
			Prediction:     cur.Prediction,
			Summary:        cur.Summary,
			Patch:          cur.Patch,
		}
	}
	return st
}

// session resolves the evaluator's live session or writes the error response.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*survey.Session, string, bool) {
	uuid := r.PathValue("uuid")
	sess, err := s.sessions.Session(r.Context(), uuid)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return nil, "", false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, "", false
	}
	return sess, uuid, true
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, uuid, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(uuid, sess))
}

func (s *Server) setAnswer(w http.ResponseWriter, r *http.Request) {
	sess, uuid, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		QuestionID string `json:"question_id"`
		Value      string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "question_id is required")
		return
	}

	sess.SetAnswer(req.QuestionID, req.Value)
	writeJSON(w, http.StatusOK, stateOf(uuid, sess))
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	sess, uuid, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := sess.Advance(r.Context()); err != nil {
		if errors.Is(err, survey.ErrValidation) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"message": validationAlert,
				"errors":  sess.Errors(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stateOf(uuid, sess))
}

func (s *Server) retreat(w http.ResponseWriter, r *http.Request) {
	sess, uuid, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Retreat()
	writeJSON(w, http.StatusOK, stateOf(uuid, sess))
}

func (s *Server) jumpTo(w http.ResponseWriter, r *http.Request) {
	sess, uuid, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := sess.JumpTo(req.Index); err != nil {
		// Out-of-range navigation sends the participant back to the entry page.
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":      err.Error(),
			"next_route": survey.RouteEntry,
		})
		return
	}
	writeJSON(w, http.StatusOK, stateOf(uuid, sess))
}
