package state

import (
	"context"
	"errors"
)

// State identifies a finite-state-machine step used in conversations.
type State string

// ErrNilStore is returned when a nil backend is handed to a constructor.
var ErrNilStore = errors.New("state: nil store")

// Session stores conversation state and collected answers for a user.
type Session struct {
	State      State
	Attributes map[string]string
}

// Clone returns a deep copy so callers never share attribute maps with a store.
func (s Session) Clone() Session {
	out := Session{State: s.State, Attributes: make(map[string]string, len(s.Attributes))}
	for k, v := range s.Attributes {
		out.Attributes[k] = v
	}
	return out
}

// Attr returns the attribute value and whether it is present.
func (s Session) Attr(key string) (string, bool) {
	if s.Attributes == nil {
		return "", false
	}
	v, ok := s.Attributes[key]
	return v, ok
}

// SetAttr stores an attribute, allocating the map on first use.
func (s *Session) SetAttr(key, value string) {
	if s.Attributes == nil {
		s.Attributes = make(map[string]string)
	}
	s.Attributes[key] = value
}

// Store persists sessions keyed by Telegram user ID.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored session; ok is false when the user has none yet.
	Get(ctx context.Context, userID int64) (sess Session, ok bool, err error)
	Put(ctx context.Context, userID int64, sess Session) error
	Delete(ctx context.Context, userID int64) error
}

// Counter is implemented by stores able to report how many sessions they hold.
type Counter interface {
	Count(ctx context.Context) (int, error)
}
