package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/errors"
)

// Same address pattern the kiosk clients validate against.
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// Submission is one attendee entry. The (Email, SessionID) pair is unique per
// session; PrizeID is attached at most once, after a successful draw.
type Submission struct {
	Email       string    `json:"email"`
	SessionID   string    `json:"session_id"`
	SubmittedAt time.Time `json:"timestamp"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	PrizeID     string    `json:"prize_id,omitempty"`
}

// SubmissionMeta carries the request metadata recorded alongside an entry.
type SubmissionMeta struct {
	IPAddress string
	UserAgent string
}

// NormalizeEmail lowercases and trims an address and validates it against the
// standard pattern. Returns VALIDATION_ERROR for malformed input.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", errors.New(errors.CodeValidation, "email is required")
	}
	if !emailPattern.MatchString(email) {
		return "", errors.Newf(errors.CodeValidation, "invalid email address: %s", email)
	}
	return email, nil
}
