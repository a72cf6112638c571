// Package rtc abstracts local media capture and the peer-to-peer connection
// so the negotiation state machine can be driven without real devices.
package rtc

import (
	"context"

	"github.com/pion/webrtc/v3"
)

type MediaSource interface {
	Acquire(ctx context.Context) (MediaStream, error)
}

// MediaStream is a set of local tracks. Enabled flags are advisory: toggling
// does not renegotiate, it only changes what the track feeds out.
type MediaStream interface {
	Tracks() []webrtc.TrackLocal
	SetAudioEnabled(enabled bool)
	SetVideoEnabled(enabled bool)
	AudioEnabled() bool
	VideoEnabled() bool
	Close() error
}

type PeerConnection interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	OnICECandidate(fn func(candidate webrtc.ICECandidateInit))
	Close() error
}

// Engine builds peer connections with the local stream already attached.
type Engine interface {
	NewConnection(stream MediaStream) (PeerConnection, error)
}
