package client

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v3"

	"github.com/codepair/peercall/internal/client/rtc"
	"github.com/codepair/peercall/internal/domain"
)

type fakeChannel struct {
	id     string
	events chan domain.Event

	mu   sync.Mutex
	sent []domain.Event
}

func newFakeChannel(id string) *fakeChannel {
	return &fakeChannel{
		id:     id,
		events: make(chan domain.Event, 32),
	}
}

func (f *fakeChannel) Send(event domain.Event) error {
	f.mu.Lock()
	f.sent = append(f.sent, event)
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) Events() <-chan domain.Event { return f.events }
func (f *fakeChannel) ConnectionID() string        { return f.id }
func (f *fakeChannel) Close() error                { return nil }

func (f *fakeChannel) sentOfType(eventType string) []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Event
	for _, event := range f.sent {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type fakeStream struct {
	mu           sync.Mutex
	audioEnabled bool
	videoEnabled bool
	closed       bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{audioEnabled: true, videoEnabled: true}
}

func (s *fakeStream) Tracks() []webrtc.TrackLocal { return nil }

func (s *fakeStream) SetAudioEnabled(enabled bool) {
	s.mu.Lock()
	s.audioEnabled = enabled
	s.mu.Unlock()
}

func (s *fakeStream) SetVideoEnabled(enabled bool) {
	s.mu.Lock()
	s.videoEnabled = enabled
	s.mu.Unlock()
}

func (s *fakeStream) AudioEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioEnabled
}

func (s *fakeStream) VideoEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoEnabled
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type fakeMediaSource struct {
	stream *fakeStream
	err    error
}

func (m *fakeMediaSource) Acquire(ctx context.Context) (rtc.MediaStream, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stream, nil
}

type fakeConnection struct {
	mu         sync.Mutex
	localDesc  *webrtc.SessionDescription
	remoteDesc *webrtc.SessionDescription
	added      []webrtc.ICECandidateInit
	onICE      func(webrtc.ICECandidateInit)
	closed     bool
}

func (c *fakeConnection) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 local offer"}, nil
}

func (c *fakeConnection) CreateAnswer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 local answer"}, nil
}

func (c *fakeConnection) SetLocalDescription(desc webrtc.SessionDescription) error {
	c.mu.Lock()
	c.localDesc = &desc
	c.mu.Unlock()
	return nil
}

func (c *fakeConnection) SetRemoteDescription(desc webrtc.SessionDescription) error {
	c.mu.Lock()
	c.remoteDesc = &desc
	c.mu.Unlock()
	return nil
}

func (c *fakeConnection) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	c.mu.Lock()
	c.added = append(c.added, candidate)
	c.mu.Unlock()
	return nil
}

func (c *fakeConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type fakeEngine struct {
	conn *fakeConnection
	err  error
}

func (e *fakeEngine) NewConnection(stream rtc.MediaStream) (rtc.PeerConnection, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.conn, nil
}
