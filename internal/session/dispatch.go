package session

import (
	"context"

	"github.com/vovakirdan/wirecall/internal/event"
	"github.com/vovakirdan/wirecall/internal/media"
)

// emitAll delivers events in order. Callers must not hold any lock.
func (c *Client) emitAll(events []event.Event) {
	for _, ev := range events {
		c.emit(ev)
	}
}

// emit runs the handler bound to ev.Kind on every subscriber, in
// subscription order. A panicking handler does not stop the others.
func (c *Client) emit(ev event.Event) {
	c.mu.Lock()
	subs := append([]subscription(nil), c.subs...)
	c.mu.Unlock()

	for _, s := range subs {
		h, ok := s.reg.GetEvent(ev.Kind)
		if !ok {
			continue
		}
		c.invoke(s.id, h, ev)
	}
}

func (c *Client) invoke(id string, h event.Handler, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Interface("panic", r).
				Str("subscription", id).
				Str("event", ev.Kind.String()).
				Msg("event handler panicked")
		}
	}()
	h(ev)
}

func (c *Client) handleRaw(raw media.RawEvent) {
	c.mu.Lock()
	leaving := c.leaving
	c.mu.Unlock()
	if leaving {
		return
	}

	switch raw.Kind {
	case media.RawError:
		code := media.ErrorCode(raw.Err)
		c.log.Error().Err(raw.Err).Int("code", code).Msg("transport error")
		c.emit(event.Event{Kind: event.Error, Err: raw.Err, Code: code})
	case media.RawClientBanned:
		c.log.Warn().Msg("client banned from room")
		c.emit(event.Event{Kind: event.ClientBanned, UserID: raw.UserID})
	case media.RawPeerJoin:
		c.log.Debug().Str("peer", raw.UserID).Msg("peer joined")
		c.emit(event.Event{Kind: event.PeerJoin, UserID: raw.UserID})
	case media.RawPeerLeave:
		c.log.Debug().Str("peer", raw.UserID).Msg("peer left")
		c.emit(event.Event{Kind: event.PeerLeave, UserID: raw.UserID})
	case media.RawStreamAdded:
		c.onStreamAdded(raw)
	case media.RawStreamSubscribed:
		c.onStreamSubscribed(raw)
	case media.RawStreamRemoved:
		c.onStreamRemoved(raw)
	case media.RawStreamUpdated:
		c.emit(event.Event{Kind: event.StreamUpdated, UserID: streamUser(raw), Stream: raw.Stream})
	case media.RawMuteAudio:
		c.onMute(raw, event.MuteAudio, &c.localAudioMuted, true)
	case media.RawUnmuteAudio:
		c.onMute(raw, event.UnmuteAudio, &c.localAudioMuted, false)
	case media.RawMuteVideo:
		c.onMute(raw, event.MuteVideo, &c.localVideoMuted, true)
	case media.RawUnmuteVideo:
		c.onMute(raw, event.UnmuteVideo, &c.localVideoMuted, false)
	case media.RawNetworkQuality:
		c.onNetworkQuality(raw)
	default:
		c.log.Warn().Int("kind", int(raw.Kind)).Msg("unknown transport event")
	}
}

func streamUser(raw media.RawEvent) string {
	if raw.Stream != nil {
		return raw.Stream.UserID()
	}
	return raw.UserID
}

// onStreamAdded registers the remote stream and subscribes to it right away.
func (c *Client) onStreamAdded(raw media.RawEvent) {
	s := raw.Stream
	if s == nil {
		c.log.Warn().Msg("stream-added without stream")
		return
	}
	c.mu.Lock()
	c.members[s.UserID()] = s
	c.mu.Unlock()

	c.log.Debug().Str("stream_id", s.ID()).Str("peer", s.UserID()).Msg("remote stream added")
	c.emit(event.Event{Kind: event.StreamAdded, UserID: s.UserID(), Stream: s})

	if err := c.transport.Subscribe(context.Background(), s); err != nil {
		c.log.Warn().Err(err).Str("stream_id", s.ID()).Msg("subscribe remote stream")
	}
}

// onStreamSubscribed inserts the stream, or replaces the entry with the same id.
func (c *Client) onStreamSubscribed(raw media.RawEvent) {
	s := raw.Stream
	if s == nil {
		c.log.Warn().Msg("stream-subscribed without stream")
		return
	}
	c.mu.Lock()
	replaced := false
	for i, existing := range c.remote {
		if existing.ID() == s.ID() {
			c.remote[i] = s
			replaced = true
			break
		}
	}
	if !replaced {
		c.remote = append(c.remote, s)
	}
	c.mu.Unlock()

	userID := s.UserID()
	s.OnPlayerState(func(ps media.PlayerState) {
		c.emit(event.Event{Kind: event.PlayerStateChanged, UserID: userID, Stream: s, Player: ps})
	})
	c.emit(event.Event{Kind: event.StreamSubscribed, UserID: userID, Stream: s})
}

// onStreamRemoved stops the stream and forgets it.
func (c *Client) onStreamRemoved(raw media.RawEvent) {
	s := raw.Stream
	if s == nil {
		c.log.Warn().Msg("stream-removed without stream")
		return
	}
	s.Stop()

	c.mu.Lock()
	kept := c.remote[:0]
	for _, existing := range c.remote {
		if existing.ID() != s.ID() {
			kept = append(kept, existing)
		}
	}
	c.remote = kept
	if m, ok := c.members[s.UserID()]; ok && m.ID() == s.ID() {
		delete(c.members, s.UserID())
	}
	c.mu.Unlock()

	c.log.Debug().Str("stream_id", s.ID()).Str("peer", s.UserID()).Msg("remote stream removed")
	c.emit(event.Event{Kind: event.StreamRemoved, UserID: s.UserID(), Stream: s})
}

func (c *Client) onMute(raw media.RawEvent, kind event.Kind, flag *bool, muted bool) {
	if raw.UserID == c.opts.UserID {
		c.setLocalMute(flag, muted)
	}
	c.emit(event.Event{Kind: kind, UserID: raw.UserID})
}

// onNetworkQuality forwards the sample, then raises bad-network-quality
// when a run of disconnected samples completes.
func (c *Client) onNetworkQuality(raw media.RawEvent) {
	q := event.Quality{Uplink: raw.Uplink, Downlink: raw.Downlink}
	c.emit(event.Event{Kind: event.NetworkQuality, Quality: q})

	if c.quality.observe(raw.Uplink, raw.Downlink) {
		c.log.Warn().Int("uplink", raw.Uplink).Int("downlink", raw.Downlink).Msg("network disconnected")
		c.emit(event.Event{Kind: event.BadNetworkQuality, Quality: q})
	}
}
