package ws

import (
	"encoding/json"
	"time"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/models"
)

// Wire event names. These match the protocol the kiosk and display clients
// already speak.
const (
	// inbound
	EventRegisterClient = "register-client"
	EventSubmitEmail    = "submit-email"
	EventStartRaffle    = "start-raffle"
	EventSelectPrize    = "select-prize"
	EventGetSessionInfo = "get-session-info"
	EventPing           = "ping"

	// outbound
	EventClientRegistered      = "client-registered"
	EventClientRegistrationErr = "client-registration-error"
	EventEmailSubmitted        = "email-submitted"
	EventEmailSubmissionErr    = "email-submission-error"
	EventEmailAdded            = "email-added"
	EventRaffleStarted         = "raffle-started"
	EventRaffleStartErr        = "raffle-start-error"
	EventPrizeSelected         = "prize-selected"
	EventPrizeSelectionErr     = "prize-selection-error"
	EventSessionInfo           = "session-info"
	EventSessionInfoErr        = "session-info-error"
	EventSessionClosed         = "session-closed"
	EventClientConnected       = "client-connected"
	EventClientDisconnected    = "client-disconnected"
	EventPong                  = "pong"
)

// Envelope is the frame format: a named event with a JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is an outbound event before marshalling.
type Message struct {
	Event string
	Data  interface{}
}

func (m Message) envelope() ([]byte, error) {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: m.Event, Data: data})
}

// --- inbound payloads ---

type RegisterClientData struct {
	ClientType string `json:"clientType"`
	SessionID  string `json:"sessionId,omitempty"`
}

type SubmitEmailData struct {
	Email     string `json:"email"`
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

type SelectPrizeData struct {
	// Email optionally names the submission the prize is attached to.
	Email string `json:"email,omitempty"`
}

type PingData struct {
	Timestamp int64 `json:"timestamp"`
}

// --- outbound payloads ---

type RegisteredData struct {
	Success    bool   `json:"success"`
	SessionID  string `json:"sessionId"`
	ClientType string `json:"clientType"`
	Timestamp  string `json:"timestamp"`
}

type ErrorData struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type EmailSubmittedData struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

type EmailAddedData struct {
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId"`
}

type RaffleStartedData struct {
	SessionID    string `json:"sessionId"`
	TotalEntries int64  `json:"totalEntries"`
	Timestamp    string `json:"timestamp"`
}

type PrizeData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tier        int    `json:"tier"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type TierData struct {
	Tier   int     `json:"tier"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type PrizeSelectedData struct {
	Prize     PrizeData `json:"prize"`
	Tier      TierData  `json:"tier"`
	SessionID string    `json:"sessionId"`
	Timestamp string    `json:"timestamp"`
}

type SessionInfoData struct {
	Success bool                `json:"success"`
	Data    *models.SessionInfo `json:"data"`
}

type SessionClosedData struct {
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
}

type ClientPresenceData struct {
	ClientType string `json:"clientType"`
	SessionID  string `json:"sessionId"`
	Timestamp  string `json:"timestamp"`
}

type PongData struct {
	Timestamp int64 `json:"timestamp"`
}
