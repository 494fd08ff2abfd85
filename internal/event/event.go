// Package event defines the normalized session event vocabulary and the
// per-subscriber handler registry.
package event

import (
	"strconv"

	"github.com/vovakirdan/wirecall/internal/media"
)

// Kind is a normalized session event.
type Kind int

const (
	// JoinSuccess fires once the room join completed.
	JoinSuccess Kind = iota + 1
	// JoinError fires when the room join failed.
	JoinError
	// InitializeSuccess fires once local capture is ready.
	InitializeSuccess
	// InitializeError fires when local capture could not start. Err carries a *media.DeviceError when the cause is a device.
	InitializeError
	// PlayerStateChanged relays a stream's playback state.
	PlayerStateChanged
	// PublishSuccess fires once the local stream is pushed to the room.
	PublishSuccess
	// PublishError fires when the local stream could not be pushed.
	PublishError
	// Error is a fatal transport error.
	Error
	// ClientBanned fires when the transport evicted this client.
	ClientBanned
	PeerJoin
	PeerLeave
	StreamAdded
	StreamSubscribed
	StreamRemoved
	StreamUpdated
	MuteAudio
	UnmuteAudio
	MuteVideo
	UnmuteVideo
	// NetworkQuality is a periodic uplink/downlink quality sample.
	NetworkQuality
	// BadNetworkQuality fires once per run of consecutive disconnected samples.
	BadNetworkQuality

	kindCount = iota
)

// Kinds lists every event kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := JoinSuccess; k <= BadNetworkQuality; k++ {
		out = append(out, k)
	}
	return out
}

var kindNames = [...]string{
	JoinSuccess:        "join-success",
	JoinError:          "join-error",
	InitializeSuccess:  "initialize-success",
	InitializeError:    "initialize-error",
	PlayerStateChanged: "player-state-changed",
	PublishSuccess:     "publish-success",
	PublishError:       "publish-error",
	Error:              "error",
	ClientBanned:       "client-banned",
	PeerJoin:           "peer-join",
	PeerLeave:          "peer-leave",
	StreamAdded:        "stream-added",
	StreamSubscribed:   "stream-subscribed",
	StreamRemoved:      "stream-removed",
	StreamUpdated:      "stream-updated",
	MuteAudio:          "mute-audio",
	UnmuteAudio:        "unmute-audio",
	MuteVideo:          "mute-video",
	UnmuteVideo:        "unmute-video",
	NetworkQuality:     "network-quality",
	BadNetworkQuality:  "bad-network-quality",
}

var kindHooks = [...]string{
	JoinSuccess:        "onJoinSuccess",
	JoinError:          "onJoinError",
	InitializeSuccess:  "onInitializeSuccess",
	InitializeError:    "onInitializeError",
	PlayerStateChanged: "onPlayerStateChanged",
	PublishSuccess:     "onPublishSuccess",
	PublishError:       "onPublishError",
	Error:              "onError",
	ClientBanned:       "onClientBanned",
	PeerJoin:           "onPeerJoin",
	PeerLeave:          "onPeerLeave",
	StreamAdded:        "onStreamAdded",
	StreamSubscribed:   "onStreamSubscribed",
	StreamRemoved:      "onStreamRemoved",
	StreamUpdated:      "onStreamUpdated",
	MuteAudio:          "onMuteAudio",
	UnmuteAudio:        "onUnmuteAudio",
	MuteVideo:          "onMuteVideo",
	UnmuteVideo:        "onUnmuteVideo",
	NetworkQuality:     "onNetworkQuality",
	BadNetworkQuality:  "onBadNetworkQuality",
}

// Valid reports whether k is a declared kind.
func (k Kind) Valid() bool {
	return k >= JoinSuccess && k <= BadNetworkQuality
}

func (k Kind) String() string {
	if !k.Valid() {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Hook is the extension hook name bound to k.
func (k Kind) Hook() string {
	if !k.Valid() {
		return ""
	}
	return kindHooks[k]
}

// Quality is one network-quality sample.
type Quality struct {
	Uplink   int
	Downlink int
}

// Event is the payload handed to handlers. Only the fields relevant to Kind are set.
type Event struct {
	Kind    Kind
	UserID  string
	Stream  media.Stream
	Err     error
	Code    int
	Quality Quality
	Player  media.PlayerState
}

// Handler consumes one event.
type Handler func(Event)
