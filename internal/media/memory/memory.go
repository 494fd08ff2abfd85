// Package memory is an in-process media transport. It records every call
// made against it and lets callers inject transport events, which makes it
// a dry-run backend for the headless client and a fake for tests.
package memory

import (
	"context"
	"sync"

	"github.com/vovakirdan/wirecall/internal/callengine"
	"github.com/vovakirdan/wirecall/internal/media"
)

// Stream is an in-memory media stream.
type Stream struct {
	mu       sync.Mutex
	id       string
	userID   string
	audio    bool
	video    bool
	target   string
	plays    int
	stops    int
	resumes  int
	closed   bool
	playErr  error
	listener func(media.PlayerState)
}

// NewStream builds a remote-looking stream.
func NewStream(id, userID string, audio, video bool) *Stream {
	return &Stream{id: id, userID: userID, audio: audio, video: video}
}

func (s *Stream) ID() string     { return s.id }
func (s *Stream) UserID() string { return s.userID }

func (s *Stream) HasAudio() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio
}

func (s *Stream) HasVideo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.video
}

// Play records target and reports PLAYING to the listener.
func (s *Stream) Play(_ context.Context, target string) error {
	s.mu.Lock()
	if s.playErr != nil {
		err := s.playErr
		s.mu.Unlock()
		return err
	}
	s.target = target
	s.plays++
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(media.PlayerState{Track: "video", State: "PLAYING"})
	}
	return nil
}

func (s *Stream) Stop() {
	s.mu.Lock()
	s.target = ""
	s.stops++
	s.mu.Unlock()
}

func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Stream) Resume(context.Context) error {
	s.mu.Lock()
	s.resumes++
	s.mu.Unlock()
	return nil
}

func (s *Stream) OnPlayerState(fn func(media.PlayerState)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// FailPlay makes subsequent Play calls return err.
func (s *Stream) FailPlay(err error) {
	s.mu.Lock()
	s.playErr = err
	s.mu.Unlock()
}

// Target is the current render target, empty when stopped.
func (s *Stream) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Plays counts Play calls.
func (s *Stream) Plays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}

// Stops counts Stop calls.
func (s *Stream) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Resumes counts Resume calls.
func (s *Stream) Resumes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumes
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LocalStream is an in-memory captured stream.
type LocalStream struct {
	*Stream

	initErr     error
	profile     string
	initialized bool
	audioMuted  bool
	videoMuted  bool
}

func (l *LocalStream) SetVideoProfile(profile string) error {
	l.mu.Lock()
	l.profile = profile
	l.mu.Unlock()
	return nil
}

func (l *LocalStream) Initialize(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.initErr != nil {
		return l.initErr
	}
	l.initialized = true
	return nil
}

func (l *LocalStream) MuteAudio() bool   { return l.setMuted(&l.audioMuted, true) }
func (l *LocalStream) UnmuteAudio() bool { return l.setMuted(&l.audioMuted, false) }
func (l *LocalStream) MuteVideo() bool   { return l.setMuted(&l.videoMuted, true) }
func (l *LocalStream) UnmuteVideo() bool { return l.setMuted(&l.videoMuted, false) }

func (l *LocalStream) setMuted(flag *bool, v bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	*flag = v
	return true
}

func (l *LocalStream) RemoveVideoTrack(context.Context) error {
	l.mu.Lock()
	l.video = false
	l.mu.Unlock()
	return nil
}

// Profile is the configured video profile.
func (l *LocalStream) Profile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.profile
}

// AudioMuted reports the local audio mute flag.
func (l *LocalStream) AudioMuted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.audioMuted
}

// Transport is an in-memory media.Transport.
type Transport struct {
	mu sync.Mutex

	// Failure injection, read on each call.
	JoinErr      error
	LeaveErr     error
	PublishErr   error
	UnpublishErr error
	InitErr      error
	// AutoSubscribe emits stream-subscribed for every Subscribe call.
	AutoSubscribe bool

	handler     func(media.RawEvent)
	room        int64
	joins       int
	leaves      int
	publishes   int
	unpublishes int
	subscribed  []media.Stream
	locals      []*LocalStream
}

// NewTransport builds a transport that auto-subscribes.
func NewTransport() *Transport {
	return &Transport{AutoSubscribe: true}
}

func (t *Transport) Join(_ context.Context, roomID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.joins++
	if t.JoinErr != nil {
		return t.JoinErr
	}
	t.room = roomID
	return nil
}

func (t *Transport) Leave(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves++
	t.room = 0
	return t.LeaveErr
}

func (t *Transport) CreateLocalStream(opts media.StreamOptions) media.LocalStream {
	t.mu.Lock()
	defer t.mu.Unlock()
	l := &LocalStream{
		Stream:  NewStream("local-"+opts.UserID, opts.UserID, opts.Audio, opts.Video),
		initErr: t.InitErr,
	}
	t.locals = append(t.locals, l)
	return l
}

func (t *Transport) Publish(context.Context, media.LocalStream) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.publishes++
	return t.PublishErr
}

func (t *Transport) Unpublish(context.Context, media.LocalStream) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unpublishes++
	return t.UnpublishErr
}

func (t *Transport) Subscribe(_ context.Context, s media.Stream) error {
	t.mu.Lock()
	t.subscribed = append(t.subscribed, s)
	auto := t.AutoSubscribe
	t.mu.Unlock()

	if auto {
		t.Emit(media.RawEvent{Kind: media.RawStreamSubscribed, UserID: s.UserID(), Stream: s})
	}
	return nil
}

func (t *Transport) On(fn func(media.RawEvent)) {
	t.mu.Lock()
	t.handler = fn
	t.mu.Unlock()
}

func (t *Transport) Off() {
	t.mu.Lock()
	t.handler = nil
	t.mu.Unlock()
}

// Emit delivers ev to the installed listener on the calling goroutine.
func (t *Transport) Emit(ev media.RawEvent) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

// AddRemote emits stream-added for a new remote stream and returns it.
func (t *Transport) AddRemote(id, userID string) *Stream {
	s := NewStream(id, userID, true, true)
	t.Emit(media.RawEvent{Kind: media.RawStreamAdded, UserID: userID, Stream: s})
	return s
}

// Room is the joined room id, 0 when not joined.
func (t *Transport) Room() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.room
}

// Joins counts Join calls.
func (t *Transport) Joins() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.joins
}

// Leaves counts Leave calls.
func (t *Transport) Leaves() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaves
}

// Publishes counts Publish calls.
func (t *Transport) Publishes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.publishes
}

// Unpublishes counts Unpublish calls.
func (t *Transport) Unpublishes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unpublishes
}

// Subscribed returns the streams passed to Subscribe.
func (t *Transport) Subscribed() []media.Stream {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]media.Stream(nil), t.subscribed...)
}

// Attached reports whether a listener is installed.
func (t *Transport) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handler != nil
}

// Locals returns every local stream created so far.
func (t *Transport) Locals() []*LocalStream {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*LocalStream(nil), t.locals...)
}

// Dialer hands out fresh in-memory transports and remembers them.
type Dialer struct {
	mu         sync.Mutex
	transports []*Transport
	infos      []callengine.JoinInfo
	// Configure runs on each new transport before it is returned.
	Configure func(*Transport)
}

func (d *Dialer) Dial(_ context.Context, info callengine.JoinInfo) (media.Transport, error) {
	t := NewTransport()
	if d.Configure != nil {
		d.Configure(t)
	}
	d.mu.Lock()
	d.transports = append(d.transports, t)
	d.infos = append(d.infos, info)
	d.mu.Unlock()
	return t, nil
}

// Last returns the most recently dialed transport.
func (d *Dialer) Last() *Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

// Infos returns the join credentials each dial received.
func (d *Dialer) Infos() []callengine.JoinInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]callengine.JoinInfo(nil), d.infos...)
}

// Devices is a fixed device inventory.
type Devices struct {
	Microphone bool
	Camera     bool
}

func (d Devices) Check(_ context.Context, microphone, camera bool) error {
	if microphone && !d.Microphone {
		return &media.DeviceError{Name: media.DeviceNotFound, Message: "microphone"}
	}
	if camera && !d.Camera {
		return &media.DeviceError{Name: media.DeviceNotFound, Message: "camera"}
	}
	return nil
}

var (
	_ media.Transport     = (*Transport)(nil)
	_ media.LocalStream   = (*LocalStream)(nil)
	_ media.Dialer        = (*Dialer)(nil)
	_ media.DeviceChecker = Devices{}
)
