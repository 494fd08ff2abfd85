package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/callengine"
	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/media"
)

// CredentialSource supplies media backend credentials for a call room.
type CredentialSource interface {
	JoinInfo(ctx context.Context, roomID int64) (*callengine.JoinInfo, error)
}

// Factory builds one Client per call.
type Factory struct {
	UserID             string
	Credentials        CredentialSource // optional
	Dialer             media.Dialer
	VideoProfile       string
	BadNetworkMaxCount int
	Logger             zerolog.Logger
}

// NewSession dials the media backend for roomID and wraps the transport.
func (f *Factory) NewSession(ctx context.Context, roomID int64, callType domain.CallType) (*Client, error) {
	if f.Dialer == nil {
		return nil, errors.New("session factory: no dialer")
	}
	if roomID == 0 || f.UserID == "" {
		return nil, fmt.Errorf("session factory: room %d user %q: missing parameters", roomID, f.UserID)
	}

	info := callengine.JoinInfo{Identity: f.UserID}
	if f.Credentials != nil {
		creds, err := f.Credentials.JoinInfo(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("join credentials: %w", err)
		}
		info = *creds
	}

	transport, err := f.Dialer.Dial(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("dial media backend: %w", err)
	}

	return New(transport, Options{
		RoomID:             roomID,
		UserID:             f.UserID,
		AudioOnly:          callType != domain.CallVideo,
		VideoProfile:       f.VideoProfile,
		BadNetworkMaxCount: f.BadNetworkMaxCount,
	}, f.Logger), nil
}
