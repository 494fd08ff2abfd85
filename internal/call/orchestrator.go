// Package call is the call state machine. It reacts to signaling messages
// and session events, owns the call deadlines and the leave sequence, keeps
// the main/minor views reconciled and reports progress through a notice
// queue.
package call

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/event"
	"github.com/vovakirdan/wirecall/internal/media"
	"github.com/vovakirdan/wirecall/internal/notify"
	"github.com/vovakirdan/wirecall/internal/reconcile"
	"github.com/vovakirdan/wirecall/internal/records"
	"github.com/vovakirdan/wirecall/internal/session"
)

var (
	ErrCallInProgress    = errors.New("a call is already in progress")
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrNoSession         = errors.New("no active session")
	ErrInvalidState      = errors.New("operation not allowed in current state")
	ErrUnknownMember     = errors.New("member not in call")
	ErrCallEnded         = errors.New("call ended")
)

const (
	flightLeave  = "leave"
	flightView   = "view"
	flightCreate = "create"
)

// SessionFactory builds the media session of a call.
type SessionFactory interface {
	NewSession(ctx context.Context, roomID int64, callType domain.CallType) (*session.Client, error)
}

// Deps are the orchestrator collaborators. Self, Records, Devices,
// Sessions and Toast are required.
type Deps struct {
	Self     domain.Member
	Records  records.Service
	Devices  media.DeviceChecker
	Sessions SessionFactory
	Toast    *notify.Queue
	Plugins  []Plugin
	Logger   zerolog.Logger
}

// Orchestrator drives one participant through calls, one call at a time.
type Orchestrator struct {
	cfg      Config
	self     domain.Member
	records  records.Service
	devices  media.DeviceChecker
	sessions SessionFactory
	toast    *notify.Queue
	plugins  []Plugin
	log      zerolog.Logger

	flight         singleflight.Group
	callDeadline   deadline
	streamDeadline deadline

	// viewMu serializes changes to main and minor.
	viewMu sync.Mutex

	mu             sync.Mutex
	state          State
	roomID         int64
	conversationID string
	callType       domain.CallType
	videoType      domain.CallType
	extend         domain.Extend
	sponsor        domain.Member
	members        []domain.Member
	extra          []domain.Member
	main           reconcile.View
	minor          []reconcile.View
	mainMember     *domain.Member
	sess           *session.Client
	statusNotice   string
	durationNotice string
	startedAt      time.Time
	muted          bool
}

// New validates deps and builds an idle orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Self.Account == "":
		return nil, errors.New("call: self account required")
	case deps.Records == nil:
		return nil, errors.New("call: records service required")
	case deps.Devices == nil:
		return nil, errors.New("call: device checker required")
	case deps.Sessions == nil:
		return nil, errors.New("call: session factory required")
	case deps.Toast == nil:
		return nil, errors.New("call: notice queue required")
	}
	return &Orchestrator{
		cfg:      cfg.withDefaults(),
		self:     deps.Self,
		records:  deps.Records,
		devices:  deps.Devices,
		sessions: deps.Sessions,
		toast:    deps.Toast,
		plugins:  deps.Plugins,
		log: deps.Logger.With().
			Str("component", "call").
			Str("account", deps.Self.Account).
			Logger(),
	}, nil
}

// Init runs the plugins' OnInitial hooks.
func (o *Orchestrator) Init(ctx context.Context) error {
	return each(o, "OnInitial", func(p Initializer) error { return p.OnInitial(ctx) })
}

// Close leaves an active call, then stops the notice queue.
func (o *Orchestrator) Close(ctx context.Context) error {
	var err error
	if o.RoomID() != 0 {
		err = o.Leave(ctx, o.cancelType())
	}
	o.callDeadline.disarm()
	o.streamDeadline.disarm()
	o.toast.Destroy()
	return err
}

// State is the current call state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// RoomID is the active room, 0 when idle.
func (o *Orchestrator) RoomID() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.roomID
}

// ConversationID is the active conversation.
func (o *Orchestrator) ConversationID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conversationID
}

// CallType is the current media mode of the call.
func (o *Orchestrator) CallType() domain.CallType {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.videoType
}

// View returns the main view and the minor views.
func (o *Orchestrator) View() (reconcile.View, []reconcile.View) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.main, append([]reconcile.View(nil), o.minor...)
}

// Members returns the service roster merged with locally added members.
func (o *Orchestrator) Members() []domain.Member {
	o.mu.Lock()
	defer o.mu.Unlock()
	return domain.MergeMembers(o.members, o.extra)
}

// MainMember is the called party, or the inviting sponsor.
func (o *Orchestrator) MainMember() *domain.Member {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mainMember == nil {
		return nil
	}
	m := *o.mainMember
	return &m
}

// Session is the active media session, or nil.
func (o *Orchestrator) Session() *session.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess
}

// Toast is the notice queue.
func (o *Orchestrator) Toast() *notify.Queue { return o.toast }

// Muted reports whether the local microphone is muted.
func (o *Orchestrator) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// Elapsed is the time since the first remote stream was subscribed.
func (o *Orchestrator) Elapsed() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.startedAt.IsZero() {
		return 0
	}
	return time.Since(o.startedAt)
}

// AddExtraMember shows m before the record service lists it. The next
// UpdateView picks it up.
func (o *Orchestrator) AddExtraMember(m domain.Member) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := domain.FindMember(o.extra, m.Account); ok {
		return
	}
	o.extra = append(o.extra, m)
}

// cancelType is the disposition of a leave the user did not qualify.
func (o *Orchestrator) cancelType() domain.CancelEvent {
	if o.State() == StateCalling {
		return domain.CancelHangUp
	}
	return domain.CancelCancel
}

func (o *Orchestrator) isKeyMember(account string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := domain.FindMember(domain.MergeMembers(o.members, o.extra), account)
	return ok && m.KeyMember
}

func (o *Orchestrator) label(account string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if m, ok := domain.FindMember(domain.MergeMembers(o.members, o.extra), account); ok {
		return m.Label()
	}
	return account
}

func (o *Orchestrator) notice(level notify.Level, text string, d time.Duration) {
	o.toast.Show(notify.ShowParams{Level: level, Content: text, Time: d})
}

// attach subscribes the orchestrator and the event observing plugins to s.
func (o *Orchestrator) attach(s *session.Client) {
	s.Subscribe(o.registry())
	s.Subscribe(event.ForAll(func(ev event.Event) {
		each(o, ev.Kind.Hook(), func(p EventObserver) error { //nolint:errcheck // logged by each
			return p.OnEvent(context.Background(), ev)
		})
	}))
}
