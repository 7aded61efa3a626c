package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/errors"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/models"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/service"
)

// RaffleService is the slice of the raffle service the dispatcher consumes.
type RaffleService interface {
	ResolveSession(ctx context.Context, id string) (*models.Session, error)
	SubmitEmail(ctx context.Context, sessionID, rawEmail string, meta models.SubmissionMeta) (*models.Submission, error)
	SelectPrize(ctx context.Context, sessionID, winnerEmail string) (*service.DrawResult, error)
	SessionInfo(ctx context.Context, sessionID string) (*models.SessionInfo, error)
}

// ClientState is the per-connection registration the dispatcher mutates. A
// connection may not submit or draw before registering.
type ClientState struct {
	ID         string
	Role       models.ClientRole
	SessionID  string
	Registered bool
}

// Result is a dispatch outcome: Replies go only to the requesting connection,
// Broadcasts fan out to every connection. Broadcasts are built strictly after
// the producing store call returned, which is what keeps events ordered
// behind their commits.
type Result struct {
	Replies    []Message
	Broadcasts []Message
}

func reply(event string, data interface{}) Result {
	return Result{Replies: []Message{{Event: event, Data: data}}}
}

func errorReply(event string, err error) Result {
	return reply(event, ErrorData{
		Success: false,
		Code:    string(errors.CodeOf(err)),
		Message: errorMessage(err),
	})
}

func errorMessage(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Message
	}
	return "internal error"
}

// HandlerFunc handles one inbound event for one connection.
type HandlerFunc func(ctx context.Context, client *ClientState, payload json.RawMessage) Result

// Dispatcher maps inbound event names to handlers. It holds no transport
// state, so the whole protocol is unit-testable without a live connection.
type Dispatcher struct {
	svc      RaffleService
	handlers map[string]HandlerFunc
}

func NewDispatcher(svc RaffleService) *Dispatcher {
	d := &Dispatcher{svc: svc}
	d.handlers = map[string]HandlerFunc{
		EventRegisterClient: d.handleRegisterClient,
		EventSubmitEmail:    d.handleSubmitEmail,
		EventStartRaffle:    d.handleStartRaffle,
		EventSelectPrize:    d.handleSelectPrize,
		EventGetSessionInfo: d.handleGetSessionInfo,
		EventPing:           d.handlePing,
	}
	return d
}

// Dispatch parses one frame and routes it. Unknown events are dropped with a
// debug log; malformed frames produce no response at all.
func (d *Dispatcher) Dispatch(ctx context.Context, client *ClientState, frame []byte) Result {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		log.Debug().Str("client_id", client.ID).Err(err).Msg("malformed frame dropped")
		return Result{}
	}
	handler, ok := d.handlers[env.Event]
	if !ok {
		log.Debug().Str("client_id", client.ID).Str("event", env.Event).Msg("unknown event dropped")
		return Result{}
	}
	return handler(ctx, client, env.Data)
}

func (d *Dispatcher) handleRegisterClient(ctx context.Context, client *ClientState, payload json.RawMessage) Result {
	var data RegisterClientData
	if err := json.Unmarshal(payload, &data); err != nil {
		return errorReply(EventClientRegistrationErr, errors.New(errors.CodeValidation, "malformed registration payload"))
	}
	if !models.ValidRole(data.ClientType) {
		return errorReply(EventClientRegistrationErr, errors.Newf(errors.CodeValidation, "unknown client type: %s", data.ClientType))
	}

	session, err := d.svc.ResolveSession(ctx, data.SessionID)
	if err != nil {
		return errorReply(EventClientRegistrationErr, err)
	}

	client.Role = models.ClientRole(data.ClientType)
	client.SessionID = session.ID
	client.Registered = true

	now := time.Now().UTC().Format(time.RFC3339)
	log.Info().
		Str("client_id", client.ID).
		Str("role", data.ClientType).
		Str("session_id", session.ID).
		Msg("client registered")

	return Result{
		Replies: []Message{{Event: EventClientRegistered, Data: RegisteredData{
			Success:    true,
			SessionID:  session.ID,
			ClientType: data.ClientType,
			Timestamp:  now,
		}}},
		Broadcasts: []Message{{Event: EventClientConnected, Data: ClientPresenceData{
			ClientType: data.ClientType,
			SessionID:  session.ID,
			Timestamp:  now,
		}}},
	}
}

func (d *Dispatcher) handleSubmitEmail(ctx context.Context, client *ClientState, payload json.RawMessage) Result {
	if !client.Registered {
		return errorReply(EventEmailSubmissionErr, errors.New(errors.CodeNotRegistered, "client not registered with session"))
	}
	var data SubmitEmailData
	if err := json.Unmarshal(payload, &data); err != nil {
		return errorReply(EventEmailSubmissionErr, errors.New(errors.CodeValidation, "malformed submission payload"))
	}

	sub, err := d.svc.SubmitEmail(ctx, client.SessionID, data.Email, models.SubmissionMeta{
		IPAddress: data.IPAddress,
		UserAgent: data.UserAgent,
	})
	if err != nil {
		// Rejections answer the requester only, never the room.
		return errorReply(EventEmailSubmissionErr, err)
	}

	return Result{
		Replies: []Message{{Event: EventEmailSubmitted, Data: EmailSubmittedData{
			Success:   true,
			Message:   "Email submitted successfully",
			Email:     sub.Email,
			Timestamp: sub.SubmittedAt,
		}}},
		Broadcasts: []Message{{Event: EventEmailAdded, Data: EmailAddedData{
			Email:     sub.Email,
			Timestamp: sub.SubmittedAt,
			SessionID: sub.SessionID,
		}}},
	}
}

func (d *Dispatcher) handleStartRaffle(ctx context.Context, client *ClientState, _ json.RawMessage) Result {
	if !client.Registered {
		return errorReply(EventRaffleStartErr, errors.New(errors.CodeNotRegistered, "client not registered with session"))
	}
	info, err := d.svc.SessionInfo(ctx, client.SessionID)
	if err != nil {
		return errorReply(EventRaffleStartErr, err)
	}
	return Result{
		Broadcasts: []Message{{Event: EventRaffleStarted, Data: RaffleStartedData{
			SessionID:    client.SessionID,
			TotalEntries: info.TotalEntries,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
		}}},
	}
}

func (d *Dispatcher) handleSelectPrize(ctx context.Context, client *ClientState, payload json.RawMessage) Result {
	if !client.Registered {
		return errorReply(EventPrizeSelectionErr, errors.New(errors.CodeNotRegistered, "client not registered with session"))
	}
	var data SelectPrizeData
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &data); err != nil {
			return errorReply(EventPrizeSelectionErr, errors.New(errors.CodeValidation, "malformed draw payload"))
		}
	}

	result, err := d.svc.SelectPrize(ctx, client.SessionID, data.Email)
	if err != nil {
		// Exhausted-pool and contention answers stay with the requester.
		return errorReply(EventPrizeSelectionErr, err)
	}

	return Result{
		Broadcasts: []Message{{Event: EventPrizeSelected, Data: PrizeSelectedData{
			Prize: PrizeData{
				ID:          result.Prize.ID,
				Name:        result.Prize.Name,
				Description: result.Prize.Description,
				Tier:        result.Prize.Tier,
				ImageURL:    result.Prize.ImageURL,
			},
			Tier: TierData{
				Tier:   result.Tier.Tier,
				Name:   result.Tier.Name,
				Weight: result.Tier.Weight,
			},
			SessionID: client.SessionID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}}},
	}
}

func (d *Dispatcher) handleGetSessionInfo(ctx context.Context, client *ClientState, _ json.RawMessage) Result {
	if !client.Registered {
		return errorReply(EventSessionInfoErr, errors.New(errors.CodeNotRegistered, "client not registered with session"))
	}
	info, err := d.svc.SessionInfo(ctx, client.SessionID)
	if err != nil {
		return errorReply(EventSessionInfoErr, err)
	}
	return reply(EventSessionInfo, SessionInfoData{Success: true, Data: info})
}

func (d *Dispatcher) handlePing(_ context.Context, _ *ClientState, _ json.RawMessage) Result {
	return reply(EventPong, PongData{Timestamp: time.Now().UnixMilli()})
}
