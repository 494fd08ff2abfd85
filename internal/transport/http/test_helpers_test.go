package http

import (
	"context"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/auth"
	"github.com/vovakirdan/wirecall/internal/callengine"
	"github.com/vovakirdan/wirecall/internal/callengine/livekit"
	"github.com/vovakirdan/wirecall/internal/config"
	"github.com/vovakirdan/wirecall/internal/core"
	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/service/calls"
	"github.com/vovakirdan/wirecall/internal/store/sqlite"
)

type testServer struct {
	*httptest.Server
	hub  *core.Hub
	auth *auth.Service
	stop context.CancelFunc
}

// startTestServer runs the full router over an in-memory SQLite store.
// A nil engine disables join info.
func startTestServer(t *testing.T, engine callengine.Engine) *testServer {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	disabledLogger := zerolog.Nop()
	hub := core.NewHub(&disabledLogger)
	authSvc := createTestAuthService("test-secret")
	callsSvc := calls.New(st, engine, hub, &disabledLogger)

	cfg := config.Default()
	cfg.WSRateLimit = 3
	ts := httptest.NewServer(NewRouter(hub, authSvc, callsSvc, cfg, &disabledLogger))
	t.Cleanup(ts.Close)

	// Registered after ts.Close so it runs first and releases open sockets.
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	return &testServer{Server: ts, hub: hub, auth: authSvc, stop: cancel}
}

func testEngine() callengine.Engine {
	return livekit.New("devkey", "devsecret-devsecret-devsecret-00", "ws://livekit.test:7880")
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(jwtSecret string) *auth.Service {
	return auth.NewService(&auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
}

func (s *testServer) token(t *testing.T, account string, card domain.UserCard) string {
	t.Helper()

	token, err := s.auth.IssueToken(account, strings.ToUpper(account), card)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (s *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

// waitConnected blocks until account has n signaling connections.
func (s *testServer) waitConnected(t *testing.T, account string, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, err := s.hub.Connections(account); err == nil && got == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s never reached %d connections", account, n)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
