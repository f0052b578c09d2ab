package drafts

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	draft := map[string]any{
		"abc123_actionable": "Clearly Actionable",
		"abc123_clarity":    "Very Clear",
		"dev_experience":    "5-10",
		"language_proficiency": map[string]any{
			"Go":     "expert",
			"Python": "basic",
		},
	}
	require.NoError(t, s.Save("eval-1", draft))

	got := s.Load("eval-1")
	assert.Equal(t, draft, got)
}

func TestSaveIsFullOverwrite(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("eval-1", map[string]any{"a": "1", "b": "2"}))
	require.NoError(t, s.Save("eval-1", map[string]any{"c": "3"}))

	got := s.Load("eval-1")
	assert.Equal(t, map[string]any{"c": "3"}, got)
}

func TestLoadMissingReturnsEmpty(t *testing.T) {
	s := newTestStore(t)

	got := s.Load("never-saved")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadMalformedReturnsEmpty(t *testing.T) {
	s := newTestStore(t)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(draftKey("eval-1"), []byte("{not json"))
	})
	require.NoError(t, err)

	got := s.Load("eval-1")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("eval-1", map[string]any{"a": "1"}))
	require.NoError(t, s.Clear("eval-1"))
	assert.Empty(t, s.Load("eval-1"))

	// Clearing an absent key is fine
	require.NoError(t, s.Clear("eval-1"))
}

func TestDraftsScopedPerEvaluator(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("eval-1", map[string]any{"a": "1"}))
	require.NoError(t, s.Save("eval-2", map[string]any{"b": "2"}))

	assert.Equal(t, map[string]any{"a": "1"}, s.Load("eval-1"))
	assert.Equal(t, map[string]any{"b": "2"}, s.Load("eval-2"))
}

func TestOpenPersistent(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save("eval-1", map[string]any{"a": "1"}))
	require.NoError(t, s.Close())

	// Drafts survive a reopen, the reload-survival property
	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, map[string]any{"a": "1"}, s.Load("eval-1"))
}
