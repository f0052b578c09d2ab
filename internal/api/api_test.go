package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crsurvey/internal/drafts"
	"crsurvey/internal/models"
	"crsurvey/internal/store"
	"crsurvey/internal/survey"
)

func setupTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	ds, err := drafts.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	return NewServer(s, ds, nil), s
}

// seedSurvey creates one evaluator with two assigned review items.
func seedSurvey(t *testing.T, s store.Store, uuid string, hashes ...string) {
	t.Helper()
	ctx := context.Background()

	e := &models.Evaluator{UUID: uuid}
	require.NoError(t, s.CreateEvaluator(ctx, e))
	for _, hash := range hashes {
		item := &models.ReviewItem{Hash: hash, GroundTruth: "gt", Prediction: "pred", Summary: "sum"}
		require.NoError(t, s.CreateReviewItem(ctx, item))
		require.NoError(t, s.CreateAssignment(ctx, &models.Assignment{EvaluatorID: e.ID, ReviewID: item.ID}))
	}
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) *sessionState {
	t.Helper()
	var st sessionState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return &st
}

// --- Reservation ---

func TestReserveSlot(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	require.NoError(t, s.CreateEvaluator(context.Background(), &models.Evaluator{UUID: "a"}))

	w := doJSON(t, router, "POST", "/api/v1/slots/reserve", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var res survey.ReserveResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "a", res.EvaluatorUUID)
	assert.Equal(t, "/profile", res.NextRoute)

	// Pool exhausted
	w = doJSON(t, router, "POST", "/api/v1/slots/reserve", "{}")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "No available evaluator slot")
}

func TestReserveSlot_Resume(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	ctx := context.Background()
	require.NoError(t, s.CreateEvaluator(ctx, &models.Evaluator{UUID: "a"}))
	require.NoError(t, s.SetDevExperience(ctx, "a", `{"dev_experience":"3-5"}`))

	w := doJSON(t, router, "POST", "/api/v1/slots/reserve", `{"evaluator_uuid":"a"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var res survey.ReserveResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "/survey", res.NextRoute)
}

// --- Catalog ---

func TestCatalogEndpoints(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, "GET", "/api/v1/catalog/profile", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dev_experience")
	assert.Contains(t, w.Body.String(), "language_groups")

	w = doJSON(t, router, "GET", "/api/v1/catalog/review", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "actionable")
	assert.Contains(t, w.Body.String(), "relevance")
	assert.Contains(t, w.Body.String(), "option_descriptions")
	assert.Contains(t, w.Body.String(), "Vague, subjective, lacks specific direction")
}

// --- Profile ---

func TestSubmitProfile_API(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	require.NoError(t, s.CreateEvaluator(context.Background(), &models.Evaluator{UUID: "a"}))

	body := `{
		"answers": {
			"dev_experience": "5-10",
			"review_giving_experience": "3-5",
			"review_receiving_experience": "5-10",
			"review_expertise": "Expert"
		},
		"language_proficiency": {
			"Go": "expert", "JavaScript": "basic", "Java": "basic",
			"PHP": "not_applicable", "Python": "proficient"
		}
	}`
	w := doJSON(t, router, "PUT", "/api/v1/evaluators/a/profile", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/survey")

	e, err := s.GetEvaluatorByUUID(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, e.ProfileDone())
}

func TestSubmitProfile_Validation(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	require.NoError(t, s.CreateEvaluator(context.Background(), &models.Evaluator{UUID: "a"}))

	w := doJSON(t, router, "PUT", "/api/v1/evaluators/a/profile", `{"answers":{}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please complete all required fields")
	assert.Contains(t, w.Body.String(), "dev_experience")
}

func TestSubmitProfile_UnknownEvaluator(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, "PUT", "/api/v1/evaluators/ghost/profile", `{"answers":{
		"dev_experience":"5-10","review_giving_experience":"3-5",
		"review_receiving_experience":"5-10","review_expertise":"Expert"},
		"language_proficiency":{"Go":"expert","JavaScript":"basic","Java":"basic","PHP":"basic","Python":"basic"}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Survey session ---

func answerCurrent(t *testing.T, router http.Handler, uuid string) {
	t.Helper()
	for _, q := range []string{"actionable", "clarity", "relevance"} {
		w := doJSON(t, router, "POST", "/api/v1/evaluators/"+uuid+"/session/answers",
			`{"question_id":"`+q+`","value":"option"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestSurveyFlow_API(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	seedSurvey(t, s, "a", "h1", "h2")

	// Initial session state
	w := doJSON(t, router, "GET", "/api/v1/evaluators/a/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decodeState(t, w)
	assert.Equal(t, 0, st.CurrentIndex)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, []string{"h1", "h2"}, st.Hashes)
	require.NotNil(t, st.Item)
	assert.Equal(t, "h1", st.Item.Hash)

	// Advance without answers is blocked
	w = doJSON(t, router, "POST", "/api/v1/evaluators/a/session/advance", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required")

	// Answer and advance
	answerCurrent(t, router, "a")
	w = doJSON(t, router, "POST", "/api/v1/evaluators/a/session/advance", "")
	require.Equal(t, http.StatusOK, w.Code)
	st = decodeState(t, w)
	assert.Equal(t, 1, st.CurrentIndex)
	assert.False(t, st.Completed)

	// Finish the last item
	answerCurrent(t, router, "a")
	w = doJSON(t, router, "POST", "/api/v1/evaluators/a/session/advance", "")
	require.Equal(t, http.StatusOK, w.Code)
	st = decodeState(t, w)
	assert.True(t, st.Completed)
	assert.Equal(t, "/thank-you", st.NextRoute)

	e, err := s.GetEvaluatorByUUID(context.Background(), "a")
	require.NoError(t, err)
	assert.NotNil(t, e.DateCompleted)
}

func TestSession_CompletedSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewSQLiteStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	ds, err := drafts.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	router := NewServer(s, ds, nil).Router()
	seedSurvey(t, s, "a", "h1")

	answerCurrent(t, router, "a")
	w := doJSON(t, router, "POST", "/api/v1/evaluators/a/session/advance", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decodeState(t, w).Completed)

	// A new server over the same database, as after a restart, must route a
	// finished evaluator straight to the thank-you state.
	restarted := NewServer(s, ds, nil).Router()
	w = doJSON(t, restarted, "GET", "/api/v1/evaluators/a/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decodeState(t, w)
	assert.True(t, st.Completed)
	assert.Equal(t, "/thank-you", st.NextRoute)
}

func TestAdvance_PartialAnswersBlocked(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	seedSurvey(t, s, "a", "h1")

	for _, q := range []string{"actionable", "clarity"} {
		w := doJSON(t, router, "POST", "/api/v1/evaluators/a/session/answers",
			`{"question_id":"`+q+`","value":"option"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, router, "POST", "/api/v1/evaluators/a/session/advance", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"relevance": "This field is required"}, body.Errors)

	// Index unchanged, nothing upserted
	w = doJSON(t, router, "GET", "/api/v1/evaluators/a/session", "")
	assert.Equal(t, 0, decodeState(t, w).CurrentIndex)
	answered, err := s.ListAnsweredHashes(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, answered)
}

func TestRetreatAndJump_API(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	seedSurvey(t, s, "a", "h1", "h2", "h3")

	answerCurrent(t, router, "a")
	w := doJSON(t, router, "POST", "/api/v1/evaluators/a/session/advance", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/evaluators/a/session/retreat", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeState(t, w).CurrentIndex)

	w = doJSON(t, router, "POST", "/api/v1/evaluators/a/session/jump", `{"index":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeState(t, w).CurrentIndex)

	// Out-of-range jump redirects to the entry page
	w = doJSON(t, router, "POST", "/api/v1/evaluators/a/session/jump", `{"index":7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"next_route":"/"`)
}

func TestSession_UnknownEvaluator(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, "GET", "/api/v1/evaluators/ghost/session", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSession_ResumeOrdering(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	seedSurvey(t, s, "a", "h1", "h2")
	ctx := context.Background()

	// h1 already answered from an earlier visit
	require.NoError(t, s.UpsertResponses(ctx, []*models.Response{
		{EvaluatorUUID: "a", Hash: "h1", QuestionID: 1, Answer: "Clearly Actionable"},
	}))

	w := doJSON(t, router, "GET", "/api/v1/evaluators/a/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decodeState(t, w)
	assert.Equal(t, []string{"h2", "h1"}, st.Hashes)
	assert.Equal(t, "h2", st.Item.Hash)
}
