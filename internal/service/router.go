package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/codepair/peercall/internal/domain"
	"github.com/codepair/peercall/internal/repository"
	"github.com/codepair/peercall/lib/logger/sl"
)

var (
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyJoined = errors.New("connection already joined another room")
)

// Rooms host exactly one two-party call.
const maxRoomMembers = 2

// SignalingRouter bridges channel events to room-scoped relay and owns all
// RoomStore mutation. Membership and the reverse connection->room index live
// here so a disconnect can be scoped to the room the connection belonged to.
type SignalingRouter struct {
	store       repository.RoomStore
	log         *slog.Logger
	reapOnEmpty bool

	mu      sync.RWMutex
	members map[string]map[string]*domain.Participant
	roomOf  map[string]string
}

func NewSignalingRouter(store repository.RoomStore, log *slog.Logger, reapOnEmpty bool) *SignalingRouter {
	if log == nil {
		log = slog.Default()
	}
	return &SignalingRouter{
		store:       store,
		log:         log,
		reapOnEmpty: reapOnEmpty,
		members:     make(map[string]map[string]*domain.Participant),
		roomOf:      make(map[string]string),
	}
}

// Join registers the connection in the room, announces it to the members
// already present and answers with a state snapshot. Repeated joins to the
// same room are idempotent: the snapshot is re-sent, nothing is re-announced.
func (r *SignalingRouter) Join(ctx context.Context, p *domain.Participant, roomID string) error {
	const op = "service.router.join"
	log := r.log.With(
		slog.String("op", op),
		slog.String("room_id", roomID),
		slog.String("connection_id", p.ID),
	)

	r.mu.Lock()
	if current, ok := r.roomOf[p.ID]; ok {
		r.mu.Unlock()
		if current == roomID {
			snapshot, err := r.store.Snapshot(ctx, roomID)
			if err != nil {
				return err
			}
			r.send(p, domain.NewEvent(domain.EventRoomData, snapshot))
			return nil
		}
		log.Warn("join rejected, already in another room", slog.String("current_room", current))
		r.send(p, domain.NewEvent(domain.EventError, domain.ErrorPayload{Error: "already in a room"}))
		return ErrAlreadyJoined
	}

	if len(r.members[roomID]) >= maxRoomMembers {
		r.mu.Unlock()
		log.Info("join rejected, room full")
		r.send(p, domain.NewEvent(domain.EventRoomFull, domain.RoomFullPayload{RoomID: roomID}))
		return ErrRoomFull
	}

	if r.members[roomID] == nil {
		r.members[roomID] = make(map[string]*domain.Participant)
	}
	others := r.othersLocked(roomID, p.ID)
	r.members[roomID][p.ID] = p
	r.roomOf[p.ID] = roomID
	r.mu.Unlock()

	if _, err := r.store.GetOrCreate(ctx, roomID); err != nil {
		return err
	}

	connected := domain.NewEvent(domain.EventUserConnected, domain.PresencePayload{ConnectionID: p.ID})
	for _, member := range others {
		r.send(member, connected)
	}

	snapshot, err := r.store.Snapshot(ctx, roomID)
	if err != nil {
		return err
	}
	r.send(p, domain.NewEvent(domain.EventRoomData, snapshot))

	log.Info("connection joined", slog.Int("members", len(others)+1))
	return nil
}

// HandleEvent dispatches one inbound channel event. Unknown event types are
// ignored, matching the original relay's behavior of not registering a
// handler for them.
func (r *SignalingRouter) HandleEvent(ctx context.Context, p *domain.Participant, event domain.Event) error {
	switch event.Type {
	case domain.EventJoinRoom:
		var payload domain.JoinRoomPayload
		if err := event.Decode(&payload); err != nil {
			// join-room may also carry a bare string room id.
			var roomID string
			if err2 := event.Decode(&roomID); err2 != nil {
				r.log.Debug("malformed join-room payload", sl.Err(err))
				return nil
			}
			payload.RoomID = roomID
		}
		return r.Join(ctx, p, payload.RoomID)
	case domain.EventOffer:
		return r.relayOffer(p, event)
	case domain.EventAnswer:
		return r.relayAnswer(p, event)
	case domain.EventICECandidate:
		return r.relayCandidate(p, event)
	case domain.EventUserControl:
		return r.relayControl(p, event)
	case domain.EventChatMessage:
		return r.handleChat(ctx, p, event)
	case domain.EventEditorUpdate:
		return r.handleEditorUpdate(ctx, p, event)
	default:
		r.log.Debug("ignoring unknown event", slog.String("type", event.Type), slog.String("connection_id", p.ID))
		return nil
	}
}

// Disconnect removes the connection from its room, if any, and notifies the
// remaining members. The notice is scoped to that one room.
func (r *SignalingRouter) Disconnect(ctx context.Context, p *domain.Participant) error {
	const op = "service.router.disconnect"

	r.mu.Lock()
	roomID, ok := r.roomOf[p.ID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.roomOf, p.ID)
	delete(r.members[roomID], p.ID)
	empty := len(r.members[roomID]) == 0
	if empty {
		delete(r.members, roomID)
	}
	remaining := r.othersLocked(roomID, p.ID)
	r.mu.Unlock()

	disconnected := domain.NewEvent(domain.EventUserDisconnected, domain.PresencePayload{ConnectionID: p.ID})
	for _, member := range remaining {
		r.send(member, disconnected)
	}

	r.log.Info("connection left",
		slog.String("op", op),
		slog.String("room_id", roomID),
		slog.String("connection_id", p.ID),
		slog.Int("remaining", len(remaining)),
	)

	if empty && r.reapOnEmpty {
		if err := r.store.Delete(ctx, roomID); err != nil {
			return err
		}
		r.log.Info("empty room reaped", slog.String("op", op), slog.String("room_id", roomID))
	}
	return nil
}

// Relay handlers forward the payload to the other room members with the
// sender id injected. SDP and candidate contents pass through unvalidated.

func (r *SignalingRouter) relayOffer(p *domain.Participant, event domain.Event) error {
	var payload domain.OfferPayload
	if err := event.Decode(&payload); err != nil {
		r.log.Debug("malformed offer payload", sl.Err(err))
		return nil
	}
	roomID := payload.RoomID
	payload.RoomID = ""
	payload.From = p.ID
	r.relay(roomID, p.ID, domain.NewEvent(domain.EventOffer, payload))
	return nil
}

func (r *SignalingRouter) relayAnswer(p *domain.Participant, event domain.Event) error {
	var payload domain.AnswerPayload
	if err := event.Decode(&payload); err != nil {
		r.log.Debug("malformed answer payload", sl.Err(err))
		return nil
	}
	roomID := payload.RoomID
	payload.RoomID = ""
	payload.From = p.ID
	r.relay(roomID, p.ID, domain.NewEvent(domain.EventAnswer, payload))
	return nil
}

func (r *SignalingRouter) relayCandidate(p *domain.Participant, event domain.Event) error {
	var payload domain.ICECandidatePayload
	if err := event.Decode(&payload); err != nil {
		r.log.Debug("malformed ice-candidate payload", sl.Err(err))
		return nil
	}
	roomID := payload.RoomID
	payload.RoomID = ""
	payload.From = p.ID
	r.relay(roomID, p.ID, domain.NewEvent(domain.EventICECandidate, payload))
	return nil
}

func (r *SignalingRouter) relayControl(p *domain.Participant, event domain.Event) error {
	var payload domain.UserControlPayload
	if err := event.Decode(&payload); err != nil {
		r.log.Debug("malformed user-control payload", sl.Err(err))
		return nil
	}
	roomID := payload.RoomID
	payload.RoomID = ""
	payload.From = p.ID
	r.relay(roomID, p.ID, domain.NewEvent(domain.EventUserControl, payload))
	return nil
}

func (r *SignalingRouter) handleChat(ctx context.Context, p *domain.Participant, event domain.Event) error {
	var payload domain.ChatSendPayload
	if err := event.Decode(&payload); err != nil {
		r.log.Debug("malformed chat payload", sl.Err(err))
		return nil
	}

	msg := domain.NewChatMessage(p.ID, payload.Message)
	if err := r.store.AppendMessage(ctx, payload.RoomID, msg); err != nil {
		r.log.Error("failed to append chat message", sl.Err(err))
		return err
	}

	// The sender gets the echo too and reconciles by comparing sender ids.
	r.broadcastAll(payload.RoomID, domain.NewEvent(domain.EventChatMessage, msg))
	return nil
}

func (r *SignalingRouter) handleEditorUpdate(ctx context.Context, p *domain.Participant, event domain.Event) error {
	var payload domain.EditorUpdatePayload
	if err := event.Decode(&payload); err != nil {
		r.log.Debug("malformed editor-update payload", sl.Err(err))
		return nil
	}

	roomID := payload.RoomID
	if err := r.store.SetEditorContent(ctx, roomID, payload.Content); err != nil {
		r.log.Error("failed to set editor content", sl.Err(err))
		return err
	}

	payload.RoomID = ""
	payload.From = p.ID
	r.relay(roomID, p.ID, domain.NewEvent(domain.EventEditorUpdate, payload))
	return nil
}

// relay delivers the event to every room member except the sender. An empty
// or unknown room means zero recipients, which is not an error.
func (r *SignalingRouter) relay(roomID string, senderID string, event domain.Event) {
	r.mu.RLock()
	targets := r.othersLocked(roomID, senderID)
	r.mu.RUnlock()

	for _, member := range targets {
		r.send(member, event)
	}
}

func (r *SignalingRouter) broadcastAll(roomID string, event domain.Event) {
	r.mu.RLock()
	targets := make([]*domain.Participant, 0, len(r.members[roomID]))
	for _, member := range r.members[roomID] {
		targets = append(targets, member)
	}
	r.mu.RUnlock()

	for _, member := range targets {
		r.send(member, event)
	}
}

func (r *SignalingRouter) othersLocked(roomID string, excludeID string) []*domain.Participant {
	others := make([]*domain.Participant, 0, len(r.members[roomID]))
	for id, member := range r.members[roomID] {
		if id == excludeID {
			continue
		}
		others = append(others, member)
	}
	return others
}

func (r *SignalingRouter) send(p *domain.Participant, event domain.Event) {
	if !p.EnqueueEvent(event) {
		r.log.Debug("dropping event, participant buffer full",
			slog.String("connection_id", p.ID),
			slog.String("type", event.Type),
		)
	}
}
