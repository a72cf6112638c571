package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/require"

	"github.com/codepair/peercall/internal/domain"
	"github.com/codepair/peercall/internal/repository"
)

func newTestRouter(t *testing.T, reapOnEmpty bool) (*SignalingRouter, *repository.InMemoryRoomStore) {
	t.Helper()
	store := repository.NewInMemoryRoomStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSignalingRouter(store, log, reapOnEmpty), store
}

// Delivery is synchronous with the triggering call, so an empty channel
// means no event was produced.
func nextEvent(t *testing.T, p *domain.Participant) domain.Event {
	t.Helper()
	select {
	case event := <-p.Events:
		return event
	default:
		t.Fatal("expected a queued event")
		return domain.Event{}
	}
}

func requireNoEvent(t *testing.T, p *domain.Participant) {
	t.Helper()
	select {
	case event := <-p.Events:
		t.Fatalf("unexpected event %q", event.Type)
	default:
	}
}

func drain(p *domain.Participant) {
	for {
		select {
		case <-p.Events:
		default:
			return
		}
	}
}

func join(t *testing.T, r *SignalingRouter, p *domain.Participant, roomID string) {
	t.Helper()
	event := domain.NewEvent(domain.EventJoinRoom, domain.JoinRoomPayload{RoomID: roomID})
	require.NoError(t, r.HandleEvent(context.Background(), p, event))
}

func TestJoinSendsSnapshotOfEarlierState(t *testing.T) {
	router, _ := newTestRouter(t, false)
	ctx := context.Background()

	a := domain.NewParticipant()
	join(t, router, a, "r1")
	drain(a)

	require.NoError(t, router.HandleEvent(ctx, a,
		domain.NewEvent(domain.EventEditorUpdate, domain.EditorUpdatePayload{Content: "shared text", RoomID: "r1"})))
	require.NoError(t, router.HandleEvent(ctx, a,
		domain.NewEvent(domain.EventChatMessage, domain.ChatSendPayload{Message: "hi there", RoomID: "r1"})))
	drain(a)

	b := domain.NewParticipant()
	join(t, router, b, "r1")

	event := nextEvent(t, b)
	require.Equal(t, domain.EventRoomData, event.Type)

	var data domain.RoomData
	require.NoError(t, event.Decode(&data))
	require.Equal(t, "shared text", data.EditorContent)
	require.Len(t, data.Messages, 1)
	require.Equal(t, "hi there", data.Messages[0].Content)
	require.Equal(t, a.ID, data.Messages[0].Sender)

	// The earlier member learns about the new arrival.
	event = nextEvent(t, a)
	require.Equal(t, domain.EventUserConnected, event.Type)
	var presence domain.PresencePayload
	require.NoError(t, event.Decode(&presence))
	require.Equal(t, b.ID, presence.ConnectionID)
}

func TestChatRoundTrip(t *testing.T) {
	router, store := newTestRouter(t, false)
	ctx := context.Background()

	a := domain.NewParticipant()
	b := domain.NewParticipant()
	join(t, router, a, "r1")
	join(t, router, b, "r1")
	drain(a)
	drain(b)

	require.NoError(t, router.HandleEvent(ctx, a,
		domain.NewEvent(domain.EventChatMessage, domain.ChatSendPayload{Message: "round trip", RoomID: "r1"})))

	for _, p := range []*domain.Participant{a, b} {
		event := nextEvent(t, p)
		require.Equal(t, domain.EventChatMessage, event.Type)

		var msg domain.ChatMessage
		require.NoError(t, event.Decode(&msg))
		require.Equal(t, "round trip", msg.Content)
		require.Equal(t, a.ID, msg.Sender)
		require.NotZero(t, msg.ID)
	}

	snapshot, err := store.Snapshot(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, snapshot.Messages, 1)
}

func TestDuplicateJoinIsIdempotent(t *testing.T) {
	router, _ := newTestRouter(t, false)

	a := domain.NewParticipant()
	b := domain.NewParticipant()
	join(t, router, a, "r1")
	join(t, router, b, "r1")
	drain(a)
	drain(b)

	join(t, router, a, "r1")

	event := nextEvent(t, a)
	require.Equal(t, domain.EventRoomData, event.Type)
	requireNoEvent(t, a)
	// No second user-connected broadcast.
	requireNoEvent(t, b)
}

func TestJoinSecondRoomRejected(t *testing.T) {
	router, _ := newTestRouter(t, false)
	ctx := context.Background()

	a := domain.NewParticipant()
	join(t, router, a, "r1")
	drain(a)

	event := domain.NewEvent(domain.EventJoinRoom, domain.JoinRoomPayload{RoomID: "r2"})
	err := router.HandleEvent(ctx, a, event)
	require.ErrorIs(t, err, ErrAlreadyJoined)

	got := nextEvent(t, a)
	require.Equal(t, domain.EventError, got.Type)
}

func TestThirdJoinerRejectedRoomFull(t *testing.T) {
	router, _ := newTestRouter(t, false)
	ctx := context.Background()

	a := domain.NewParticipant()
	b := domain.NewParticipant()
	c := domain.NewParticipant()
	join(t, router, a, "r1")
	join(t, router, b, "r1")
	drain(a)
	drain(b)

	err := router.HandleEvent(ctx, c,
		domain.NewEvent(domain.EventJoinRoom, domain.JoinRoomPayload{RoomID: "r1"}))
	require.ErrorIs(t, err, ErrRoomFull)

	event := nextEvent(t, c)
	require.Equal(t, domain.EventRoomFull, event.Type)
	requireNoEvent(t, a)
	requireNoEvent(t, b)

	// The rejected connection is free to join elsewhere.
	join(t, router, c, "r2")
	event = nextEvent(t, c)
	require.Equal(t, domain.EventRoomData, event.Type)
}

func TestOfferAnswerRelay(t *testing.T) {
	router, _ := newTestRouter(t, false)
	ctx := context.Background()

	a := domain.NewParticipant()
	b := domain.NewParticipant()
	join(t, router, a, "r1")
	join(t, router, b, "r1")
	drain(a)
	drain(b)

	offer := &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 fake offer"}
	require.NoError(t, router.HandleEvent(ctx, a,
		domain.NewEvent(domain.EventOffer, domain.OfferPayload{Offer: offer, RoomID: "r1"})))

	requireNoEvent(t, a)
	event := nextEvent(t, b)
	require.Equal(t, domain.EventOffer, event.Type)

	var relayed domain.OfferPayload
	require.NoError(t, event.Decode(&relayed))
	require.Equal(t, a.ID, relayed.From)
	require.Empty(t, relayed.RoomID)
	require.Equal(t, offer.SDP, relayed.Offer.SDP)

	answer := &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 fake answer"}
	require.NoError(t, router.HandleEvent(ctx, b,
		domain.NewEvent(domain.EventAnswer, domain.AnswerPayload{Answer: answer, RoomID: "r1"})))

	event = nextEvent(t, a)
	require.Equal(t, domain.EventAnswer, event.Type)
	var relayedAnswer domain.AnswerPayload
	require.NoError(t, event.Decode(&relayedAnswer))
	require.Equal(t, b.ID, relayedAnswer.From)
	require.Equal(t, answer.SDP, relayedAnswer.Answer.SDP)
}

func TestUserControlRelay(t *testing.T) {
	router, _ := newTestRouter(t, false)
	ctx := context.Background()

	a := domain.NewParticipant()
	b := domain.NewParticipant()
	join(t, router, a, "r1")
	join(t, router, b, "r1")
	drain(a)
	drain(b)

	require.NoError(t, router.HandleEvent(ctx, a,
		domain.NewEvent(domain.EventUserControl, domain.UserControlPayload{Kind: "audio", Value: false, RoomID: "r1"})))

	requireNoEvent(t, a)
	event := nextEvent(t, b)
	require.Equal(t, domain.EventUserControl, event.Type)

	var control domain.UserControlPayload
	require.NoError(t, event.Decode(&control))
	require.Equal(t, "audio", control.Kind)
	require.False(t, control.Value)
	require.Equal(t, a.ID, control.From)
}

func TestRelayWithNoOtherMembersIsNoop(t *testing.T) {
	router, _ := newTestRouter(t, false)
	ctx := context.Background()

	a := domain.NewParticipant()
	join(t, router, a, "r1")
	drain(a)

	candidate := &webrtc.ICECandidateInit{Candidate: "candidate:0 1 UDP 1 192.0.2.1 3000 typ host"}
	require.NoError(t, router.HandleEvent(ctx, a,
		domain.NewEvent(domain.EventICECandidate, domain.ICECandidatePayload{Candidate: candidate, RoomID: "r1"})))
	requireNoEvent(t, a)

	// Signaling before any join is a relay into an empty room, not a crash.
	stranger := domain.NewParticipant()
	require.NoError(t, router.HandleEvent(ctx, stranger,
		domain.NewEvent(domain.EventOffer, domain.OfferPayload{RoomID: "never-created"})))
	requireNoEvent(t, stranger)
}

func TestEditorUpdatesKeepSenderOrder(t *testing.T) {
	router, store := newTestRouter(t, false)
	ctx := context.Background()

	a := domain.NewParticipant()
	b := domain.NewParticipant()
	join(t, router, a, "r1")
	join(t, router, b, "r1")
	drain(a)
	drain(b)

	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, router.HandleEvent(ctx, a,
			domain.NewEvent(domain.EventEditorUpdate, domain.EditorUpdatePayload{Content: content, RoomID: "r1"})))
	}

	// Sender gets no echo.
	requireNoEvent(t, a)

	for _, want := range []string{"one", "two", "three"} {
		event := nextEvent(t, b)
		require.Equal(t, domain.EventEditorUpdate, event.Type)
		var update domain.EditorUpdatePayload
		require.NoError(t, event.Decode(&update))
		require.Equal(t, want, update.Content)
		require.Equal(t, a.ID, update.From)
	}

	snapshot, err := store.Snapshot(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "three", snapshot.EditorContent)
}

func TestDisconnectScopedToRoom(t *testing.T) {
	router, _ := newTestRouter(t, false)
	ctx := context.Background()

	a := domain.NewParticipant()
	b := domain.NewParticipant()
	other := domain.NewParticipant()
	join(t, router, a, "r1")
	join(t, router, b, "r1")
	join(t, router, other, "r2")
	drain(a)
	drain(b)
	drain(other)

	require.NoError(t, router.Disconnect(ctx, b))

	event := nextEvent(t, a)
	require.Equal(t, domain.EventUserDisconnected, event.Type)
	var presence domain.PresencePayload
	require.NoError(t, event.Decode(&presence))
	require.Equal(t, b.ID, presence.ConnectionID)

	requireNoEvent(t, other)

	// Disconnecting a connection that never joined is a no-op.
	require.NoError(t, router.Disconnect(ctx, domain.NewParticipant()))
}

func TestRoomStateOutlivesMembershipByDefault(t *testing.T) {
	router, store := newTestRouter(t, false)
	ctx := context.Background()

	a := domain.NewParticipant()
	join(t, router, a, "r1")
	drain(a)
	require.NoError(t, router.HandleEvent(ctx, a,
		domain.NewEvent(domain.EventEditorUpdate, domain.EditorUpdatePayload{Content: "kept", RoomID: "r1"})))
	require.NoError(t, router.Disconnect(ctx, a))

	snapshot, err := store.Snapshot(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "kept", snapshot.EditorContent)
}

func TestReapOnEmptyDeletesRoomState(t *testing.T) {
	router, store := newTestRouter(t, true)
	ctx := context.Background()

	a := domain.NewParticipant()
	join(t, router, a, "r1")
	drain(a)
	require.NoError(t, router.HandleEvent(ctx, a,
		domain.NewEvent(domain.EventEditorUpdate, domain.EditorUpdatePayload{Content: "gone", RoomID: "r1"})))
	require.NoError(t, router.Disconnect(ctx, a))

	snapshot, err := store.Snapshot(ctx, "r1")
	require.NoError(t, err)
	require.Empty(t, snapshot.EditorContent)
}

func TestUnknownEventIgnored(t *testing.T) {
	router, _ := newTestRouter(t, false)

	a := domain.NewParticipant()
	join(t, router, a, "r1")
	drain(a)

	require.NoError(t, router.HandleEvent(context.Background(), a, domain.Event{Type: "mystery"}))
	requireNoEvent(t, a)
}
