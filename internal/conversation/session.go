package conversation

import (
	"time"

	"motomaster/internal/domain"
)

// Session holds what has been collected so far for one chat. A fresh value
// is allocated on every /start; transitions return copies and never mutate
// the session they were given.
type Session struct {
	ChatID      int64
	State       State
	ServiceCode domain.ServiceCode
	DisplayName string
	Phone       string
	UpdatedAt   time.Time
}

func newSession(chatID int64, now time.Time) *Session {
	return &Session{
		ChatID:    chatID,
		State:     StateChoosingService,
		UpdatedAt: now,
	}
}

func (s *Session) stateOrIdle() State {
	if s == nil {
		return StateIdle
	}
	return s.State
}

func (s *Session) with(fn func(next *Session), now time.Time) *Session {
	next := *s
	fn(&next)
	next.UpdatedAt = now
	return &next
}

// Expired reports whether the session saw no input for longer than ttl.
// A non-positive ttl disables expiry.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}
