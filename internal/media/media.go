// Package media declares the narrow surface consumed from a real-time
// audio/video transport SDK.
package media

import (
	"context"

	"github.com/vovakirdan/wirecall/internal/callengine"
)

// Network quality levels reported by transports. Higher is worse.
const (
	QualityUnknown      = 0
	QualityExcellent    = 1
	QualityGood         = 2
	QualityFair         = 3
	QualityPoor         = 4
	QualityBad          = 5
	QualityDisconnected = 6
)

// PlayerState is a playback state change reported by a stream.
type PlayerState struct {
	Track  string // "audio" or "video"
	State  string // "PLAYING", "PAUSED" or "STOPPED"
	Reason string
}

// Stream is a playable media handle owned by the session.
type Stream interface {
	ID() string
	UserID() string
	HasAudio() bool
	HasVideo() bool
	// Play renders the stream on the named target.
	Play(ctx context.Context, target string) error
	Stop()
	Close()
	Resume(ctx context.Context) error
	// OnPlayerState installs the playback listener, replacing any previous one.
	OnPlayerState(func(PlayerState))
}

// LocalStream is the captured local media.
type LocalStream interface {
	Stream
	SetVideoProfile(profile string) error
	// Initialize acquires the capture devices. Device failures are *DeviceError.
	Initialize(ctx context.Context) error
	MuteAudio() bool
	UnmuteAudio() bool
	MuteVideo() bool
	UnmuteVideo() bool
	RemoveVideoTrack(ctx context.Context) error
}

// StreamOptions configures local capture.
type StreamOptions struct {
	UserID string
	Audio  bool
	Video  bool
}

// Transport is one connection to a media room.
type Transport interface {
	Join(ctx context.Context, roomID int64) error
	Leave(ctx context.Context) error
	CreateLocalStream(opts StreamOptions) LocalStream
	Publish(ctx context.Context, s LocalStream) error
	Unpublish(ctx context.Context, s LocalStream) error
	Subscribe(ctx context.Context, s Stream) error
	// On installs the raw event listener, replacing any previous one.
	On(func(RawEvent))
	// Off detaches the raw event listener.
	Off()
}

// Dialer opens a transport with backend credentials.
type Dialer interface {
	Dial(ctx context.Context, info callengine.JoinInfo) (Transport, error)
}

// DeviceChecker reports whether the capture devices a call needs are present.
type DeviceChecker interface {
	Check(ctx context.Context, microphone, camera bool) error
}

// RawKind is an event as emitted by the transport.
type RawKind int

const (
	RawError RawKind = iota + 1
	RawClientBanned
	RawPeerJoin
	RawPeerLeave
	RawStreamAdded
	RawStreamSubscribed
	RawStreamRemoved
	RawStreamUpdated
	RawMuteAudio
	RawUnmuteAudio
	RawMuteVideo
	RawUnmuteVideo
	RawNetworkQuality
)

// RawEvent is a transport callback payload.
type RawEvent struct {
	Kind     RawKind
	UserID   string
	Stream   Stream
	Err      error
	Uplink   int
	Downlink int
}
