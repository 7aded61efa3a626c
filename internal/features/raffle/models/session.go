package models

import (
	"time"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/errors"
)

// SessionStatus is the session lifecycle state. Closed is terminal.
type SessionStatus string

const (
	SessionStatusCreated SessionStatus = "created"
	SessionStatusActive  SessionStatus = "active"
	SessionStatusClosed  SessionStatus = "closed"
)

// ClientRole identifies what a connection is: a submission kiosk or the shared
// display. Wire values match the device types of the floor hardware.
type ClientRole string

const (
	RoleKiosk   ClientRole = "ipad"
	RoleDisplay ClientRole = "tv"
)

// ValidRole reports whether s names a known client role.
func ValidRole(s string) bool {
	return ClientRole(s) == RoleKiosk || ClientRole(s) == RoleDisplay
}

// Session is one live show instance scoping submissions and draws.
type Session struct {
	ID            string        `json:"session_id"`
	Status        SessionStatus `json:"status"`
	StartedAt     time.Time     `json:"start_time"`
	EndedAt       time.Time     `json:"end_time,omitempty"`
	TotalEntries  int64         `json:"total_entries"`
	PrizesAwarded int64         `json:"prizes_awarded"`
}

// Active reports whether the session accepts submissions and draws.
func (s *Session) Active() bool {
	return s.Status == SessionStatusActive
}

// EnsureActive returns SESSION_CLOSED unless the session is active.
func (s *Session) EnsureActive() error {
	if !s.Active() {
		return errors.Newf(errors.CodeSessionClosed, "session %s is %s", s.ID, s.Status)
	}
	return nil
}

// Close transitions the session to its terminal state. Closing twice is an
// error; no submissions or draws attach after this.
func (s *Session) Close(now time.Time) error {
	if s.Status == SessionStatusClosed {
		return errors.Newf(errors.CodeSessionClosed, "session %s already closed", s.ID)
	}
	s.Status = SessionStatusClosed
	s.EndedAt = now
	return nil
}

// SessionInfo is the recovery payload for clients joining after events were
// broadcast.
type SessionInfo struct {
	SessionID     string     `json:"session_id"`
	IsActive      bool       `json:"is_active"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	TotalEntries  int64      `json:"total_entries"`
	PrizesAwarded int64      `json:"prizes_awarded"`
	EmailStats    EmailStats `json:"email_stats"`
}

// EmailStats mirrors the aggregation the display shows between draws.
type EmailStats struct {
	TotalEmails   int64 `json:"total_emails"`
	PrizesAwarded int64 `json:"prizes_awarded"`
}
