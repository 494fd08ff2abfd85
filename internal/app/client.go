package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirecall/internal/auth"
	"github.com/vovakirdan/wirecall/internal/call"
	"github.com/vovakirdan/wirecall/internal/config"
	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/media/memory"
	"github.com/vovakirdan/wirecall/internal/notify"
	"github.com/vovakirdan/wirecall/internal/records"
	"github.com/vovakirdan/wirecall/internal/records/httpclient"
	"github.com/vovakirdan/wirecall/internal/session"
	"github.com/vovakirdan/wirecall/internal/signal/ws"
)

const closeTimeout = 5 * time.Second

// Client is a headless call participant. Media runs on the in-memory
// transport, so it exercises signaling and call records end to end.
type Client struct {
	self    domain.Member
	wsURL   string
	token   string
	records *httpclient.Client
	orch    *call.Orchestrator
	dialer  *memory.Dialer
	answer  *autoAnswer
	log     zerolog.Logger
}

// NewClient constructs a call client. Without a configured token one is
// minted from the shared JWT secret.
func NewClient(cfg config.Config, logger zerolog.Logger) (*Client, error) {
	cc := cfg.Client
	if cc.Account == "" {
		return nil, errors.New("client account required")
	}
	self := domain.Member{
		Account:  cc.Account,
		Nickname: cc.Nickname,
		Card:     domain.UserCard(cc.Card),
	}
	log := logger.With().Str("account", self.Account).Logger()

	wsURL, err := signalingURL(cc.ServerURL)
	if err != nil {
		return nil, err
	}

	token := cc.Token
	if token == "" {
		token, err = auth.GenerateToken(&auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			TTL:      cfg.TokenTTL,
		}, self.Account, self.Nickname, self.Card)
		if err != nil {
			return nil, fmt.Errorf("mint token: %w", err)
		}
		log.Debug().Msg("using token minted from jwt secret")
	}

	recordsClient := httpclient.New(cc.ServerURL, token, log)
	dialer := &memory.Dialer{}

	toast := notify.New(notify.Options{
		Interval:        cfg.Call.NoticeInterval,
		NoticeFrequency: notify.Always,
		Logger:          log,
	})
	toast.Subscribe(noticeLogger(log))

	plugins := []call.Plugin{&logPlugin{log: log}}
	var answer *autoAnswer
	if cc.AutoAccept {
		answer = newAutoAnswer()
		plugins = append(plugins, answer)
	}

	orch, err := call.New(call.Config{
		InviteTimeout:     cfg.Call.InviteTimeout,
		StreamTimeout:     cfg.Call.StreamTimeout,
		LeaveGrace:        cfg.Call.LeaveGrace,
		PoorNetworkLevel:  cfg.Call.PoorNetworkLevel,
		PoorNetworkNotice: cfg.Call.PoorNetworkNotice,
	}, call.Deps{
		Self:    self,
		Records: recordsClient,
		Devices: memory.Devices{Microphone: true, Camera: true},
		Sessions: &session.Factory{
			UserID:             self.Account,
			Credentials:        recordsClient,
			Dialer:             dialer,
			VideoProfile:       cc.VideoProfile,
			BadNetworkMaxCount: cfg.Call.BadNetworkMaxCount,
			Logger:             log,
		},
		Toast:   toast,
		Plugins: plugins,
		Logger:  log,
	})
	if err != nil {
		toast.Destroy()
		return nil, err
	}

	return &Client{
		self:    self,
		wsURL:   wsURL,
		token:   token,
		records: recordsClient,
		orch:    orch,
		dialer:  dialer,
		answer:  answer,
		log:     log,
	}, nil
}

// Orchestrator exposes the call state machine driven by the client.
func (c *Client) Orchestrator() *call.Orchestrator { return c.orch }

// Place calls account once the client is running.
func (c *Client) Place(ctx context.Context, account string, callType domain.CallType) (*records.CreateCallResult, error) {
	return c.orch.Create(ctx, call.CreateParams{
		CallType: callType,
		Callee:   domain.Member{Account: account, KeyMember: true},
	})
}

// Run consumes signaling until ctx is done, then leaves any active call.
func (c *Client) Run(ctx context.Context) error {
	if err := c.orch.Init(ctx); err != nil {
		return fmt.Errorf("init plugins: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ws.Run(gctx, c.wsURL, c.token, c.log, c.orch.HandleSignal)
	})
	if c.answer != nil {
		g.Go(func() error {
			c.answerLoop(gctx)
			return nil
		})
	}
	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	return multierr.Combine(runErr, c.orch.Close(closeCtx))
}

func (c *Client) answerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.answer.ringing:
			c.log.Info().Int64("room_id", c.orch.RoomID()).Msg("auto-accepting call")
			if err := c.orch.Accept(ctx); err != nil {
				c.log.Warn().Err(err).Msg("auto-accept failed")
			}
		}
	}
}

// noticeLogger logs each notice when its text changes.
func noticeLogger(log zerolog.Logger) notify.Listener {
	var (
		mu   sync.Mutex
		last = make(map[string]string)
	)
	return func(it notify.Item) {
		text := it.Text()
		mu.Lock()
		if last[it.ID] == text {
			mu.Unlock()
			return
		}
		last[it.ID] = text
		mu.Unlock()
		log.Info().Str("level", it.Level.String()).Str("notice_id", it.ID).Msg(text)
	}
}

// signalingURL maps the record service base URL to its websocket endpoint.
func signalingURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("server url %q: unsupported scheme %q", serverURL, u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
