package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/event"
	"github.com/vovakirdan/wirecall/internal/media"
	"github.com/vovakirdan/wirecall/internal/media/memory"
)

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) registry() *event.Registry {
	return event.ForAll(func(ev event.Event) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
}

func (r *recorder) kinds() []event.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Kind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) count(k event.Kind) int {
	n := 0
	for _, got := range r.kinds() {
		if got == k {
			n++
		}
	}
	return n
}

func (r *recorder) last(k event.Kind) (event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == k {
			return r.events[i], true
		}
	}
	return event.Event{}, false
}

func newTestClient(t *testing.T) (*Client, *memory.Transport, *recorder) {
	t.Helper()
	tr := memory.NewTransport()
	c := New(tr, Options{RoomID: 42, UserID: "self"}, zerolog.Nop())
	rec := &recorder{}
	c.Subscribe(rec.registry())
	return c, tr, rec
}

func TestJoinIsIdempotent(t *testing.T) {
	c, tr, rec := newTestClient(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Join(ctx); err != nil {
				t.Errorf("Join: %v", err)
			}
		}()
	}
	wg.Wait()
	if err := c.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if tr.Joins() != 1 {
		t.Fatalf("expected exactly one network join, got %d", tr.Joins())
	}
	if rec.count(event.JoinSuccess) != 1 {
		t.Fatalf("expected one join-success, got %d", rec.count(event.JoinSuccess))
	}
	if tr.Room() != 42 {
		t.Fatalf("expected room 42, got %d", tr.Room())
	}
}

func TestJoinErrorEmitsAndReturns(t *testing.T) {
	c, tr, rec := newTestClient(t)
	boom := errors.New("boom")
	tr.JoinErr = boom

	err := c.Join(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	ev, ok := rec.last(event.JoinError)
	if !ok || !errors.Is(ev.Err, boom) {
		t.Fatalf("expected join-error event carrying boom, got %+v", ev)
	}
	if c.Joined() {
		t.Fatalf("client must not be joined after failure")
	}
}

func TestPublishBeforeJoinDefersNetworkPublish(t *testing.T) {
	c, tr, rec := newTestClient(t)
	ctx := context.Background()

	if err := c.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if tr.Publishes() != 0 {
		t.Fatalf("publish before join must not hit the network")
	}
	if c.LocalStream() == nil || c.StreamOf("self") == nil {
		t.Fatalf("local stream must be captured and registered")
	}
	if rec.count(event.InitializeSuccess) != 1 {
		t.Fatalf("expected initialize-success")
	}

	if err := c.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := c.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := c.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if tr.Publishes() != 1 {
		t.Fatalf("expected one network publish, got %d", tr.Publishes())
	}
	if len(tr.Locals()) != 1 {
		t.Fatalf("local stream must be reused, created %d", len(tr.Locals()))
	}
	if !c.Published() || rec.count(event.PublishSuccess) != 1 {
		t.Fatalf("expected published state and one publish-success")
	}
	if got := tr.Locals()[0].Profile(); got != DefaultVideoProfile {
		t.Fatalf("expected profile %q, got %q", DefaultVideoProfile, got)
	}
}

func TestPublishInitializeErrorCarriesDeviceError(t *testing.T) {
	c, tr, rec := newTestClient(t)
	tr.InitErr = &media.DeviceError{Name: media.DeviceNotAllowed}

	if err := c.Publish(context.Background()); err == nil {
		t.Fatalf("expected initialize error")
	}
	ev, ok := rec.last(event.InitializeError)
	if !ok {
		t.Fatalf("expected initialize-error event")
	}
	var de *media.DeviceError
	if !errors.As(ev.Err, &de) || de.Name != media.DeviceNotAllowed {
		t.Fatalf("expected device error, got %v", ev.Err)
	}
	if c.LocalStream() != nil {
		t.Fatalf("failed capture must not be kept")
	}
}

func TestPublishErrorEmits(t *testing.T) {
	c, tr, rec := newTestClient(t)
	ctx := context.Background()
	tr.PublishErr = errors.New("rejected")

	if err := c.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := c.Publish(ctx); err == nil {
		t.Fatalf("expected publish error")
	}
	if rec.count(event.PublishError) != 1 || c.Published() {
		t.Fatalf("expected publish-error and unpublished state")
	}
}

func TestRemoteStreamBookkeeping(t *testing.T) {
	c, tr, rec := newTestClient(t)
	if err := c.Join(context.Background()); err != nil {
		t.Fatalf("Join: %v", err)
	}

	a := tr.AddRemote("s1", "alice")
	tr.AddRemote("s2", "bob")

	if len(tr.Subscribed()) != 2 {
		t.Fatalf("expected auto-subscribe for both streams, got %d", len(tr.Subscribed()))
	}
	if got := c.RemoteStreams(); len(got) != 2 || got[0].ID() != "s1" || got[1].ID() != "s2" {
		t.Fatalf("unexpected remote streams: %v", got)
	}
	if c.StreamOf("alice") != a {
		t.Fatalf("alice's stream must be registered")
	}

	// Re-subscribing the same stream id replaces in place.
	replacement := memory.NewStream("s1", "alice", true, false)
	tr.Emit(media.RawEvent{Kind: media.RawStreamSubscribed, Stream: replacement})
	if got := c.RemoteStreams(); len(got) != 2 || got[0] != media.Stream(replacement) {
		t.Fatalf("expected in-place replacement, got %v", got)
	}

	tr.Emit(media.RawEvent{Kind: media.RawStreamRemoved, Stream: replacement})
	if got := c.RemoteStreams(); len(got) != 1 || got[0].ID() != "s2" {
		t.Fatalf("expected s1 filtered out, got %v", got)
	}
	if replacement.Stops() == 0 {
		t.Fatalf("removed stream must be stopped")
	}
	if rec.count(event.StreamAdded) != 2 || rec.count(event.StreamSubscribed) != 3 || rec.count(event.StreamRemoved) != 1 {
		t.Fatalf("unexpected event counts: %v", rec.kinds())
	}
}

func TestHandlerPanicDoesNotStopOtherSubscribers(t *testing.T) {
	c, tr, _ := newTestClient(t)

	panicky := event.NewRegistry(map[event.Kind]event.Handler{
		event.PeerJoin: func(event.Event) { panic("boom") },
	})
	c.Subscribe(panicky)
	after := &recorder{}
	c.Subscribe(after.registry())

	tr.Emit(media.RawEvent{Kind: media.RawPeerJoin, UserID: "alice"})

	if after.count(event.PeerJoin) != 1 {
		t.Fatalf("subscriber after a panicking handler must still run")
	}
}

func TestUnsubscribe(t *testing.T) {
	tr := memory.NewTransport()
	c := New(tr, Options{RoomID: 1, UserID: "self"}, zerolog.Nop())
	a, b := &recorder{}, &recorder{}
	idA := c.Subscribe(a.registry())
	c.Subscribe(b.registry())

	c.Unsubscribe(idA)
	tr.Emit(media.RawEvent{Kind: media.RawPeerJoin, UserID: "x"})
	if a.count(event.PeerJoin) != 0 || b.count(event.PeerJoin) != 1 {
		t.Fatalf("only b should receive after unsubscribing a")
	}

	c.Unsubscribe("")
	tr.Emit(media.RawEvent{Kind: media.RawPeerJoin, UserID: "x"})
	if b.count(event.PeerJoin) != 1 {
		t.Fatalf("empty id must remove every subscription")
	}
}

func TestBadNetworkQualityEvent(t *testing.T) {
	_, tr, rec := newTestClient(t)

	for i := 0; i < 5; i++ {
		tr.Emit(media.RawEvent{Kind: media.RawNetworkQuality, Uplink: media.QualityDisconnected, Downlink: media.QualityGood})
	}
	if rec.count(event.NetworkQuality) != 5 {
		t.Fatalf("every sample must be forwarded")
	}
	if rec.count(event.BadNetworkQuality) != 1 {
		t.Fatalf("expected exactly one bad-network-quality, got %d", rec.count(event.BadNetworkQuality))
	}
	kinds := rec.kinds()
	if kinds[len(kinds)-1] != event.BadNetworkQuality || kinds[len(kinds)-2] != event.NetworkQuality {
		t.Fatalf("sample must be forwarded before the derived event: %v", kinds)
	}
}

func TestMuteTracksLocalUser(t *testing.T) {
	c, tr, rec := newTestClient(t)

	c.MuteLocalAudio()
	if c.LocalAudioMuted() {
		t.Fatalf("mute without local stream must be a no-op")
	}

	if err := c.Publish(context.Background()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	c.MuteLocalAudio()
	if !c.LocalAudioMuted() || !tr.Locals()[0].AudioMuted() {
		t.Fatalf("expected local audio muted")
	}
	c.UnmuteLocalAudio()
	if c.LocalAudioMuted() {
		t.Fatalf("expected local audio unmuted")
	}

	tr.Emit(media.RawEvent{Kind: media.RawMuteVideo, UserID: "alice"})
	if c.LocalVideoMuted() {
		t.Fatalf("remote mute must not change local flags")
	}
	tr.Emit(media.RawEvent{Kind: media.RawMuteVideo, UserID: "self"})
	if !c.LocalVideoMuted() || rec.count(event.MuteVideo) != 2 {
		t.Fatalf("expected local video muted and two mute-video events")
	}
}

func TestLeaveReleasesEverything(t *testing.T) {
	c, tr, rec := newTestClient(t)
	ctx := context.Background()

	if err := c.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := c.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	remote := tr.AddRemote("s1", "alice")
	local := tr.Locals()[0]

	if err := c.Leave(ctx); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if tr.Unpublishes() != 1 || tr.Leaves() != 1 {
		t.Fatalf("expected one unpublish and one leave, got %d/%d", tr.Unpublishes(), tr.Leaves())
	}
	if !local.Closed() || !remote.Closed() {
		t.Fatalf("every stream must be closed")
	}
	if tr.Attached() {
		t.Fatalf("transport listener must be detached")
	}
	if c.Joined() || c.Published() || c.LocalStream() != nil || len(c.RemoteStreams()) != 0 || len(c.Members()) != 0 {
		t.Fatalf("state must be reset after leave")
	}

	before := len(rec.kinds())
	tr.Emit(media.RawEvent{Kind: media.RawPeerJoin, UserID: "late"})
	if len(rec.kinds()) != before {
		t.Fatalf("no events after leave")
	}

	if err := c.Leave(ctx); err != nil {
		t.Fatalf("second Leave must warn, not fail: %v", err)
	}
	if tr.Leaves() != 1 {
		t.Fatalf("second leave must not touch the network")
	}
}

func TestLeaveContinuesAfterFailures(t *testing.T) {
	c, tr, _ := newTestClient(t)
	ctx := context.Background()
	if err := c.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := c.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	tr.UnpublishErr = errors.New("unpublish failed")
	tr.LeaveErr = errors.New("leave failed")

	err := c.Leave(ctx)
	if err == nil {
		t.Fatalf("expected combined error")
	}
	if !errors.Is(err, tr.UnpublishErr) || !errors.Is(err, tr.LeaveErr) {
		t.Fatalf("expected both failures, got %v", err)
	}
	if c.Joined() || !tr.Locals()[0].Closed() {
		t.Fatalf("teardown must complete despite failures")
	}
}

func TestLeftClientRefusesJoinAndPublish(t *testing.T) {
	c, tr, _ := newTestClient(t)
	ctx := context.Background()
	if err := c.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := c.Leave(ctx); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	if err := c.Publish(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Publish after leave: expected ErrSessionClosed, got %v", err)
	}
	if n := len(tr.Locals()); n != 0 {
		t.Fatalf("no capture may start after leave, got %d local streams", n)
	}
	if err := c.Join(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Join after leave: expected ErrSessionClosed, got %v", err)
	}
	if tr.Joins() != 1 {
		t.Fatalf("expected a single network join, got %d", tr.Joins())
	}
}

func TestLeaveBeforeJoinClosesClient(t *testing.T) {
	c, tr, _ := newTestClient(t)
	ctx := context.Background()
	if err := c.Leave(ctx); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if err := c.Join(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if tr.Joins() != 0 {
		t.Fatalf("closed client must not touch the network")
	}
}

func TestResumeStreams(t *testing.T) {
	c, tr, _ := newTestClient(t)
	ctx := context.Background()
	if err := c.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := c.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	remote := tr.AddRemote("s1", "alice")

	if err := c.ResumeStreams(ctx); err != nil {
		t.Fatalf("ResumeStreams: %v", err)
	}
	if remote.Resumes() != 1 || tr.Locals()[0].Resumes() != 1 {
		t.Fatalf("expected local and remote resumed")
	}
}
