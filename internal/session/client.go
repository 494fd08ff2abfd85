// Package session wraps a media transport into the normalized session
// event surface and owns every stream handle of one call.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/vovakirdan/wirecall/internal/event"
	"github.com/vovakirdan/wirecall/internal/media"
)

// DefaultVideoProfile is the capture profile used when none is configured.
const DefaultVideoProfile = "360p"

var (
	// ErrNoLocalStream is returned by local-media operations before publish.
	ErrNoLocalStream = errors.New("session: no local stream")
	// ErrSessionClosed is returned by Join and Publish after Leave.
	ErrSessionClosed = errors.New("session: closed")
)

// Options configures a Client.
type Options struct {
	RoomID             int64
	UserID             string
	AudioOnly          bool
	VideoProfile       string
	BadNetworkMaxCount int
}

type subscription struct {
	id  string
	reg *event.Registry
}

// Client is one participant's connection to a media room.
type Client struct {
	opts      Options
	transport media.Transport
	log       zerolog.Logger
	quality   *qualityMonitor

	// opMu serializes join, publish, unpublish and leave.
	opMu sync.Mutex

	mu              sync.Mutex
	joined          bool
	published       bool
	leaving         bool
	closed          bool
	localAudioMuted bool
	localVideoMuted bool
	local           media.LocalStream
	remote          []media.Stream
	members         map[string]media.Stream
	subs            []subscription
}

// New wraps transport. The client starts listening to transport events immediately.
func New(transport media.Transport, opts Options, logger zerolog.Logger) *Client {
	if opts.VideoProfile == "" {
		opts.VideoProfile = DefaultVideoProfile
	}
	c := &Client{
		opts:      opts,
		transport: transport,
		log: logger.With().
			Str("component", "session").
			Int64("room_id", opts.RoomID).
			Str("user_id", opts.UserID).
			Logger(),
		quality: newQualityMonitor(opts.BadNetworkMaxCount),
		members: make(map[string]media.Stream),
	}
	transport.On(c.handleRaw)
	return c
}

// RoomID is the room this client connects to.
func (c *Client) RoomID() int64 { return c.opts.RoomID }

// UserID is the local participant identity.
func (c *Client) UserID() string { return c.opts.UserID }

// Subscribe registers reg for every future event and returns its subscription id.
func (c *Client) Subscribe(reg *event.Registry) string {
	id := uuid.NewString()
	c.mu.Lock()
	c.subs = append(c.subs, subscription{id: id, reg: reg})
	c.mu.Unlock()
	return id
}

// Unsubscribe removes one subscription, or all of them when id is empty.
func (c *Client) Unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" {
		c.subs = nil
		return
	}
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

// Join connects to the room. Repeated calls while joined return nil without
// touching the network.
func (c *Client) Join(ctx context.Context) error {
	events, err := c.join(ctx)
	c.emitAll(events)
	return err
}

func (c *Client) join(ctx context.Context) ([]event.Event, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	joined, closed := c.joined, c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}
	if joined {
		return nil, nil
	}

	c.transport.On(c.handleRaw)
	if err := c.transport.Join(ctx, c.opts.RoomID); err != nil {
		c.log.Error().Err(err).Msg("join room failed")
		return []event.Event{{Kind: event.JoinError, Err: err}}, fmt.Errorf("join room %d: %w", c.opts.RoomID, err)
	}

	c.mu.Lock()
	c.joined = true
	c.mu.Unlock()
	c.log.Info().Msg("joined room")
	return []event.Event{{Kind: event.JoinSuccess, UserID: c.opts.UserID}}, nil
}

// Publish captures local media and, once joined, pushes it to the room.
// Publishing before Join only captures; a later Publish pushes.
func (c *Client) Publish(ctx context.Context) error {
	events, err := c.publish(ctx)
	c.emitAll(events)
	return err
}

func (c *Client) publish(ctx context.Context) ([]event.Event, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	var events []event.Event

	c.mu.Lock()
	local, closed := c.local, c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	if local == nil {
		local = c.transport.CreateLocalStream(media.StreamOptions{
			UserID: c.opts.UserID,
			Audio:  true,
			Video:  !c.opts.AudioOnly,
		})
		if err := local.SetVideoProfile(c.opts.VideoProfile); err != nil {
			c.log.Warn().Err(err).Str("profile", c.opts.VideoProfile).Msg("set video profile")
		}
		if err := local.Initialize(ctx); err != nil {
			c.log.Error().Err(err).Msg("initialize local stream failed")
			local.Close()
			return []event.Event{{Kind: event.InitializeError, Err: err}}, fmt.Errorf("initialize local stream: %w", err)
		}
		events = append(events, event.Event{Kind: event.InitializeSuccess, UserID: c.opts.UserID, Stream: local})

		userID := c.opts.UserID
		local.OnPlayerState(func(ps media.PlayerState) {
			c.emit(event.Event{Kind: event.PlayerStateChanged, UserID: userID, Stream: local, Player: ps})
		})

		c.mu.Lock()
		c.local = local
		c.members[c.opts.UserID] = local
		c.mu.Unlock()
	}

	c.mu.Lock()
	joined, published := c.joined, c.published
	c.mu.Unlock()
	if !joined || published {
		return events, nil
	}

	if err := c.transport.Publish(ctx, local); err != nil {
		c.log.Error().Err(err).Msg("publish local stream failed")
		events = append(events, event.Event{Kind: event.PublishError, Err: err})
		return events, fmt.Errorf("publish local stream: %w", err)
	}

	c.mu.Lock()
	c.published = true
	c.mu.Unlock()
	c.log.Info().Msg("published local stream")
	return append(events, event.Event{Kind: event.PublishSuccess, UserID: c.opts.UserID, Stream: local}), nil
}

// Unpublish withdraws the local stream from the room. It warns and returns
// nil when not joined or not published.
func (c *Client) Unpublish(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.unpublish(ctx)
}

func (c *Client) unpublish(ctx context.Context) error {
	c.mu.Lock()
	joined, published, local := c.joined, c.published, c.local
	c.mu.Unlock()

	if !joined {
		c.log.Warn().Msg("unpublish called before join")
		return nil
	}
	if !published {
		c.log.Warn().Msg("unpublish called but not published")
		return nil
	}

	var err error
	if local != nil {
		if uerr := c.transport.Unpublish(ctx, local); uerr != nil {
			err = fmt.Errorf("unpublish local stream: %w", uerr)
		}
	}
	c.mu.Lock()
	c.published = false
	c.mu.Unlock()
	return err
}

// Leave unpublishes, leaves the room, releases every stream and detaches
// from the transport. Every step runs even when an earlier one fails; the
// failures are returned together. Calling Leave when not joined only
// releases a captured local stream. A left client cannot join or publish again.
func (c *Client) Leave(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.closed = true
	if !c.joined {
		local := c.local
		c.local = nil
		c.members = make(map[string]media.Stream)
		c.mu.Unlock()
		c.log.Warn().Msg("leave called before join")
		if local != nil {
			local.Stop()
			local.Close()
		}
		return nil
	}
	c.leaving = true
	c.mu.Unlock()

	var err error
	err = multierr.Append(err, c.unpublish(ctx))
	if lerr := c.transport.Leave(ctx); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("leave room: %w", lerr))
	}

	c.mu.Lock()
	local, remote := c.local, c.remote
	c.mu.Unlock()

	if local != nil {
		local.Stop()
		local.Close()
	}
	for _, s := range remote {
		s.Stop()
		s.Close()
	}
	c.transport.Off()
	c.quality.reset()

	c.mu.Lock()
	c.local = nil
	c.remote = nil
	c.members = make(map[string]media.Stream)
	c.subs = nil
	c.joined = false
	c.published = false
	c.localAudioMuted = false
	c.localVideoMuted = false
	c.leaving = false
	c.mu.Unlock()

	if err != nil {
		c.log.Warn().Err(err).Msg("left room with errors")
	} else {
		c.log.Info().Msg("left room")
	}
	return err
}

// RemoveVideoTrack drops the camera track from the local stream.
func (c *Client) RemoveVideoTrack(ctx context.Context) error {
	local := c.LocalStream()
	if local == nil {
		c.log.Warn().Msg("remove video track without local stream")
		return ErrNoLocalStream
	}
	if err := local.RemoveVideoTrack(ctx); err != nil {
		return fmt.Errorf("remove video track: %w", err)
	}
	return nil
}

// MuteLocalAudio mutes the microphone. No-op without a local stream.
func (c *Client) MuteLocalAudio() {
	if local := c.LocalStream(); local != nil && local.MuteAudio() {
		c.setLocalMute(&c.localAudioMuted, true)
	}
}

// UnmuteLocalAudio unmutes the microphone. No-op without a local stream.
func (c *Client) UnmuteLocalAudio() {
	if local := c.LocalStream(); local != nil && local.UnmuteAudio() {
		c.setLocalMute(&c.localAudioMuted, false)
	}
}

// MuteLocalVideo mutes the camera. No-op without a local stream.
func (c *Client) MuteLocalVideo() {
	if local := c.LocalStream(); local != nil && local.MuteVideo() {
		c.setLocalMute(&c.localVideoMuted, true)
	}
}

// UnmuteLocalVideo unmutes the camera. No-op without a local stream.
func (c *Client) UnmuteLocalVideo() {
	if local := c.LocalStream(); local != nil && local.UnmuteVideo() {
		c.setLocalMute(&c.localVideoMuted, false)
	}
}

func (c *Client) setLocalMute(flag *bool, v bool) {
	c.mu.Lock()
	*flag = v
	c.mu.Unlock()
}

// ResumeStreams resumes playback of the local and every remote stream.
func (c *Client) ResumeStreams(ctx context.Context) error {
	c.mu.Lock()
	local := c.local
	remote := append([]media.Stream(nil), c.remote...)
	c.mu.Unlock()

	var err error
	if local != nil {
		err = multierr.Append(err, local.Resume(ctx))
	}
	for _, s := range remote {
		err = multierr.Append(err, s.Resume(ctx))
	}
	return err
}

// Members returns a copy of the identity to stream map.
func (c *Client) Members() map[string]media.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]media.Stream, len(c.members))
	for k, v := range c.members {
		out[k] = v
	}
	return out
}

// StreamOf returns the stream registered for userID, or nil.
func (c *Client) StreamOf(userID string) media.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members[userID]
}

// LocalStream returns the captured local stream, or nil.
func (c *Client) LocalStream() media.LocalStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// RemoteStreams returns the subscribed remote streams in subscription order.
func (c *Client) RemoteStreams() []media.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]media.Stream(nil), c.remote...)
}

// Joined reports whether the room join completed.
func (c *Client) Joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

// Published reports whether the local stream is pushed to the room.
func (c *Client) Published() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published
}

// LocalAudioMuted reports the local microphone mute state.
func (c *Client) LocalAudioMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localAudioMuted
}

// LocalVideoMuted reports the local camera mute state.
func (c *Client) LocalVideoMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localVideoMuted
}
