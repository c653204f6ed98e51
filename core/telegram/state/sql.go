package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/arcanumbot/core/logger"
)

type sqlStore struct {
	db *sqlx.DB
}

type sessionRow struct {
	State      string `db:"state"`
	Attributes string `db:"attributes"`
}

// NewSQLStore returns a Store backed by the dialogue_sessions table.
// Queries are written with ? placeholders and rebound for the driver, so the
// same store serves postgres and sqlite.
func NewSQLStore(db *sqlx.DB) (Store, error) {
	if db == nil {
		return nil, ErrNilStore
	}
	return &sqlStore{db: db}, nil
}

func (s *sqlStore) Get(ctx context.Context, userID int64) (Session, bool, error) {
	var row sessionRow
	q := s.db.Rebind(`SELECT state, attributes FROM dialogue_sessions WHERE user_id = ?`)
	err := s.db.GetContext(ctx, &row, q, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("state: get session %d: %w", userID, err)
	}

	sess := Session{State: State(row.State), Attributes: map[string]string{}}
	if row.Attributes != "" {
		if err := json.Unmarshal([]byte(row.Attributes), &sess.Attributes); err != nil {
			return Session{}, false, fmt.Errorf("state: decode attributes for %d: %w", userID, err)
		}
	}
	return sess, true, nil
}

func (s *sqlStore) Put(ctx context.Context, userID int64, sess Session) error {
	attrs := sess.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("state: encode attributes for %d: %w", userID, err)
	}

	q := s.db.Rebind(`
		INSERT INTO dialogue_sessions (user_id, state, attributes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			state = excluded.state,
			attributes = excluded.attributes,
			updated_at = excluded.updated_at`)
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, q, userID, string(sess.State), string(raw), time.Now().UTC()); err != nil {
		logger.Error(ctx, "sessions", "session.put",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("state: put session %d: %w", userID, err)
	}
	logger.Debug(ctx, "sessions", "session.put",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(sess.State)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, userID int64) error {
	q := s.db.Rebind(`DELETE FROM dialogue_sessions WHERE user_id = ?`)
	if _, err := s.db.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("state: delete session %d: %w", userID, err)
	}
	return nil
}

func (s *sqlStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM dialogue_sessions`); err != nil {
		return 0, fmt.Errorf("state: count sessions: %w", err)
	}
	return n, nil
}
