package rtc

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v3"
)

// PionEngine builds real peer connections configured with the given STUN
// servers.
type PionEngine struct {
	config webrtc.Configuration
}

func NewPionEngine(stunServers []string) *PionEngine {
	return &PionEngine{
		config: webrtc.Configuration{
			ICEServers: []webrtc.ICEServer{
				{URLs: stunServers},
			},
		},
	}
}

func (e *PionEngine) NewConnection(stream MediaStream) (PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(e.config)
	if err != nil {
		return nil, err
	}

	for _, track := range stream.Tracks() {
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			return nil, err
		}
	}

	return &pionConnection{pc: pc}, nil
}

type pionConnection struct {
	pc *webrtc.PeerConnection
}

func (c *pionConnection) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *pionConnection) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *pionConnection) SetLocalDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(desc)
}

func (c *pionConnection) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *pionConnection) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(candidate)
}

func (c *pionConnection) OnICECandidate(fn func(candidate webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		fn(candidate.ToJSON())
	})
}

func (c *pionConnection) Close() error {
	return c.pc.Close()
}

// StaticSource produces an Opus+VP8 RTP track pair, for headless peers that
// feed pre-encoded media rather than capture devices.
type StaticSource struct{}

func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

func (s *StaticSource) Acquire(ctx context.Context) (MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audio, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	}, "audio", "peercall")
	if err != nil {
		return nil, err
	}

	video, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeVP8,
		ClockRate: 90000,
	}, "video", "peercall")
	if err != nil {
		return nil, err
	}

	return &staticStream{
		audio:        audio,
		video:        video,
		audioEnabled: true,
		videoEnabled: true,
	}, nil
}

type staticStream struct {
	mu           sync.Mutex
	audio        *webrtc.TrackLocalStaticRTP
	video        *webrtc.TrackLocalStaticRTP
	audioEnabled bool
	videoEnabled bool
}

func (s *staticStream) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{s.audio, s.video}
}

func (s *staticStream) SetAudioEnabled(enabled bool) {
	s.mu.Lock()
	s.audioEnabled = enabled
	s.mu.Unlock()
}

func (s *staticStream) SetVideoEnabled(enabled bool) {
	s.mu.Lock()
	s.videoEnabled = enabled
	s.mu.Unlock()
}

func (s *staticStream) AudioEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioEnabled
}

func (s *staticStream) VideoEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoEnabled
}

func (s *staticStream) Close() error {
	return nil
}
