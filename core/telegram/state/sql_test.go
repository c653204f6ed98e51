package state

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../../migrations/000001_dialogue_sessions.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	s, err := NewSQLStore(db)
	require.NoError(t, err)
	return s
}

func TestNewSQLStoreNil(t *testing.T) {
	_, err := NewSQLStore(nil)
	assert.ErrorIs(t, err, ErrNilStore)
}

func TestSQLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	_, ok, err := s.Get(ctx, 100)
	require.NoError(t, err)
	assert.False(t, ok)

	sess := Session{State: "CONFIRM_NAME", Attributes: map[string]string{
		"gender": "gender_female",
		"name":   "Ёлка",
	}}
	require.NoError(t, s.Put(ctx, 100, sess))

	got, ok, err := s.Get(ctx, 100)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sess.State, got.State)
	assert.Equal(t, sess.Attributes, got.Attributes)
}

func TestSQLStoreUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	require.NoError(t, s.Put(ctx, 5, Session{State: "AWAIT_NAME"}))
	require.NoError(t, s.Put(ctx, 5, Session{State: "AWAIT_GENDER"}))
	require.NoError(t, s.Put(ctx, 6, Session{State: "START"}))

	got, ok, err := s.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, State("AWAIT_GENDER"), got.State)
	assert.Empty(t, got.Attributes)

	n, err := s.(Counter).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, 5))
	_, ok, err = s.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}
