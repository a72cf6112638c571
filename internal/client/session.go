package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v3"

	"github.com/codepair/peercall/internal/client/rtc"
	"github.com/codepair/peercall/internal/domain"
	"github.com/codepair/peercall/lib/logger/sl"
)

// State tracks local negotiation progress. It is driven only by channel
// events and local calls; ICE connectivity changes are observational and do
// not move the state.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingMedia State = "awaiting-media"
	StateOffering      State = "offering"
	StateAnswering     State = "answering"
	StateConnected     State = "connected"
	StateClosed        State = "closed"
)

var (
	ErrMediaUnavailable = errors.New("local media unavailable")
	ErrSessionClosed    = errors.New("session closed")
)

// PeerSession owns one peer connection and its negotiation state machine for
// a two-party room. The side already present when the second peer joins
// becomes the offerer.
type PeerSession struct {
	channel Channel
	media   rtc.MediaSource
	engine  rtc.Engine
	roomID  string
	log     *slog.Logger

	Editor *EditorSync
	Chat   *ChatSync

	mu        sync.Mutex
	state     State
	stream    rtc.MediaStream
	pc        rtc.PeerConnection
	remoteSet bool
	pending   []webrtc.ICECandidateInit

	onRemoteControl func(payload domain.UserControlPayload)
}

func NewPeerSession(channel Channel, media rtc.MediaSource, engine rtc.Engine, roomID string, log *slog.Logger) *PeerSession {
	if log == nil {
		log = slog.Default()
	}
	return &PeerSession{
		channel: channel,
		media:   media,
		engine:  engine,
		roomID:  roomID,
		log:     log.With(slog.String("room_id", roomID)),
		Editor:  NewEditorSync(channel, roomID),
		Chat:    NewChatSync(channel, roomID),
		state:   StateIdle,
	}
}

// OnRemoteControl registers the hook for advisory mute/camera notices from
// the remote peer. The embedder decides how to reflect them.
func (s *PeerSession) OnRemoteControl(fn func(payload domain.UserControlPayload)) {
	s.mu.Lock()
	s.onRemoteControl = fn
	s.mu.Unlock()
}

func (s *PeerSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run acquires media, joins the room and processes channel events until the
// session closes. Media acquisition failure is fatal to the session.
func (s *PeerSession) Run(ctx context.Context) error {
	if err := s.start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case event, ok := <-s.channel.Events():
			if !ok {
				s.Close()
				return ErrSessionClosed
			}
			s.handleEvent(event)
			if s.State() == StateClosed {
				return nil
			}
		}
	}
}

func (s *PeerSession) start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.state = StateAwaitingMedia
	s.mu.Unlock()

	stream, err := s.media.Acquire(ctx)
	if err != nil {
		s.log.Error("media acquisition failed", sl.Err(err))
		s.Close()
		return fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
	}

	pc, err := s.engine.NewConnection(stream)
	if err != nil {
		s.log.Error("peer connection setup failed", sl.Err(err))
		stream.Close()
		s.Close()
		return err
	}

	pc.OnICECandidate(func(candidate webrtc.ICECandidateInit) {
		c := candidate
		_ = s.channel.Send(domain.NewEvent(domain.EventICECandidate, domain.ICECandidatePayload{
			Candidate: &c,
			RoomID:    s.roomID,
		}))
	})

	s.mu.Lock()
	s.stream = stream
	s.pc = pc
	s.mu.Unlock()

	return s.channel.Send(domain.NewEvent(domain.EventJoinRoom, domain.JoinRoomPayload{RoomID: s.roomID}))
}

func (s *PeerSession) handleEvent(event domain.Event) {
	switch event.Type {
	case domain.EventRoomData:
		var data domain.RoomData
		if err := event.Decode(&data); err != nil {
			s.log.Debug("malformed room-data", sl.Err(err))
			return
		}
		s.Editor.Seed(data)
		s.Chat.Seed(data)
	case domain.EventUserConnected:
		s.handleUserConnected()
	case domain.EventOffer:
		var payload domain.OfferPayload
		if err := event.Decode(&payload); err != nil {
			s.log.Debug("malformed offer", sl.Err(err))
			return
		}
		s.handleOffer(payload)
	case domain.EventAnswer:
		var payload domain.AnswerPayload
		if err := event.Decode(&payload); err != nil {
			s.log.Debug("malformed answer", sl.Err(err))
			return
		}
		s.handleAnswer(payload)
	case domain.EventICECandidate:
		var payload domain.ICECandidatePayload
		if err := event.Decode(&payload); err != nil {
			s.log.Debug("malformed ice-candidate", sl.Err(err))
			return
		}
		s.handleCandidate(payload)
	case domain.EventUserControl:
		var payload domain.UserControlPayload
		if err := event.Decode(&payload); err != nil {
			s.log.Debug("malformed user-control", sl.Err(err))
			return
		}
		s.mu.Lock()
		fn := s.onRemoteControl
		s.mu.Unlock()
		if fn != nil {
			fn(payload)
		}
	case domain.EventChatMessage:
		var msg domain.ChatMessage
		if err := event.Decode(&msg); err != nil {
			s.log.Debug("malformed chat-message", sl.Err(err))
			return
		}
		s.Chat.Apply(msg)
	case domain.EventEditorUpdate:
		var payload domain.EditorUpdatePayload
		if err := event.Decode(&payload); err != nil {
			s.log.Debug("malformed editor-update", sl.Err(err))
			return
		}
		s.Editor.ApplyRemote(payload)
	case domain.EventUserDisconnected:
		s.log.Info("remote peer disconnected")
		s.Close()
	case domain.EventRoomFull:
		s.log.Error("room is full, closing session")
		s.Close()
	case domain.EventError:
		var payload domain.ErrorPayload
		_ = event.Decode(&payload)
		s.log.Warn("server error event", slog.String("error", payload.Error))
	default:
		s.log.Debug("ignoring unknown event", slog.String("type", event.Type))
	}
}

// handleUserConnected fires when a second peer joins while this side is
// already in the room: this side becomes the offerer.
func (s *PeerSession) handleUserConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingMedia {
		s.log.Warn("ignoring user-connected", slog.String("state", string(s.state)))
		return
	}

	offer, err := s.pc.CreateOffer()
	if err != nil {
		s.log.Error("failed to create offer", sl.Err(err))
		return
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		s.log.Error("failed to set local description", sl.Err(err))
		return
	}

	s.state = StateOffering
	_ = s.channel.Send(domain.NewEvent(domain.EventOffer, domain.OfferPayload{
		Offer:  &offer,
		RoomID: s.roomID,
	}))
}

// handleOffer fires on the side that joined second: apply the remote offer,
// answer, and consider the session connected once both descriptions are set.
func (s *PeerSession) handleOffer(payload domain.OfferPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pc == nil || payload.Offer == nil {
		s.log.Debug("dropping offer without connection or description")
		return
	}
	if s.state != StateIdle && s.state != StateAwaitingMedia {
		s.log.Warn("ignoring offer", slog.String("state", string(s.state)))
		return
	}

	s.state = StateAnswering

	if err := s.pc.SetRemoteDescription(*payload.Offer); err != nil {
		s.log.Error("failed to set remote description", sl.Err(err))
		return
	}
	s.remoteSet = true
	s.flushPendingLocked()

	answer, err := s.pc.CreateAnswer()
	if err != nil {
		s.log.Error("failed to create answer", sl.Err(err))
		return
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		s.log.Error("failed to set local description", sl.Err(err))
		return
	}

	_ = s.channel.Send(domain.NewEvent(domain.EventAnswer, domain.AnswerPayload{
		Answer: &answer,
		RoomID: s.roomID,
	}))
	s.state = StateConnected
}

func (s *PeerSession) handleAnswer(payload domain.AnswerPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOffering {
		s.log.Warn("ignoring answer", slog.String("state", string(s.state)))
		return
	}
	if payload.Answer == nil {
		s.log.Debug("dropping answer without description")
		return
	}

	if err := s.pc.SetRemoteDescription(*payload.Answer); err != nil {
		s.log.Error("failed to set remote description", sl.Err(err))
		return
	}
	s.remoteSet = true
	s.flushPendingLocked()
	s.state = StateConnected
}

// handleCandidate applies a relayed candidate, buffering it until the peer
// connection exists and the remote description is applied. Buffered
// candidates flush in arrival order.
func (s *PeerSession) handleCandidate(payload domain.ICECandidatePayload) {
	if payload.Candidate == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	if s.pc == nil || !s.remoteSet {
		s.pending = append(s.pending, *payload.Candidate)
		return
	}

	if err := s.pc.AddICECandidate(*payload.Candidate); err != nil {
		s.log.Error("failed to add ice candidate", sl.Err(err))
	}
}

func (s *PeerSession) flushPendingLocked() {
	for _, candidate := range s.pending {
		if err := s.pc.AddICECandidate(candidate); err != nil {
			s.log.Error("failed to add buffered ice candidate", sl.Err(err))
		}
	}
	s.pending = nil
}

// ToggleAudio flips the local audio track and notifies the remote peer. The
// notice is advisory only; no renegotiation happens. Reports the new enabled
// state.
func (s *PeerSession) ToggleAudio() bool {
	return s.toggleTrack("audio")
}

func (s *PeerSession) ToggleVideo() bool {
	return s.toggleTrack("video")
}

func (s *PeerSession) toggleTrack(kind string) bool {
	s.mu.Lock()
	if s.stream == nil || s.state == StateClosed {
		s.mu.Unlock()
		return false
	}

	var enabled bool
	switch kind {
	case "audio":
		enabled = !s.stream.AudioEnabled()
		s.stream.SetAudioEnabled(enabled)
	case "video":
		enabled = !s.stream.VideoEnabled()
		s.stream.SetVideoEnabled(enabled)
	}
	s.mu.Unlock()

	_ = s.channel.Send(domain.NewEvent(domain.EventUserControl, domain.UserControlPayload{
		Kind:   kind,
		Value:  enabled,
		RoomID: s.roomID,
	}))
	return enabled
}

// Close releases local media and the peer connection. Idempotent.
func (s *PeerSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	s.state = StateClosed

	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	if s.pc != nil {
		s.pc.Close()
		s.pc = nil
	}
	s.pending = nil
}
