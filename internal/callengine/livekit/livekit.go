package livekit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
	lkproto "github.com/livekit/protocol/livekit"

	"github.com/vovakirdan/wirecall/internal/callengine"
	"github.com/vovakirdan/wirecall/internal/media"
)

// DefaultTokenTTL bounds how long a join token stays valid.
const DefaultTokenTTL = time.Hour

var errMissingCredentials = errors.New("livekit api key and secret are required")

// LiveKitEngine implements callengine.Engine using LiveKit as the media backend.
type LiveKitEngine struct {
	apiKey    string
	apiSecret string
	wsURL     string
	ttl       time.Duration
}

// New creates a new LiveKitEngine.
func New(apiKey, apiSecret, wsURL string) *LiveKitEngine {
	return &LiveKitEngine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
		ttl:       DefaultTokenTTL,
	}
}

// RoomName returns the LiveKit room backing a call room.
// LiveKit creates rooms on demand when the first participant joins.
func (e *LiveKitEngine) RoomName(roomID int64) string {
	return fmt.Sprintf("wirecall-%d", roomID)
}

// JoinInfo creates join credentials for account in the given call room.
func (e *LiveKitEngine) JoinInfo(_ context.Context, roomID int64, account, nickname string) (*callengine.JoinInfo, error) {
	if e.apiKey == "" || e.apiSecret == "" {
		return nil, errMissingCredentials
	}
	if account == "" {
		return nil, fmt.Errorf("join info: empty identity")
	}

	room := e.RoomName(roomID)

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     room,
	}
	name := nickname
	if name == "" {
		name = account
	}
	at.SetVideoGrant(grant).
		SetIdentity(account).
		SetName(name).
		SetValidFor(e.ttl)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &callengine.JoinInfo{
		URL:      e.wsURL,
		Token:    token,
		RoomName: room,
		Identity: account,
	}, nil
}

// QualityLevel maps a LiveKit connection quality onto the session's
// 0..6 scale, where media.QualityDisconnected means the link is gone.
func QualityLevel(q lkproto.ConnectionQuality) int {
	switch q {
	case lkproto.ConnectionQuality_EXCELLENT:
		return media.QualityExcellent
	case lkproto.ConnectionQuality_GOOD:
		return media.QualityGood
	case lkproto.ConnectionQuality_POOR:
		return media.QualityPoor
	case lkproto.ConnectionQuality_LOST:
		return media.QualityDisconnected
	default:
		return media.QualityUnknown
	}
}

// QualitySample builds the raw network-quality event for a LiveKit
// connection-quality update.
func QualitySample(uplink, downlink lkproto.ConnectionQuality) media.RawEvent {
	return media.RawEvent{
		Kind:     media.RawNetworkQuality,
		Uplink:   QualityLevel(uplink),
		Downlink: QualityLevel(downlink),
	}
}

// Ensure LiveKitEngine implements callengine.Engine
var _ callengine.Engine = (*LiveKitEngine)(nil)
