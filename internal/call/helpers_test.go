package call

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/signal"
)

func TestDeadlineFires(t *testing.T) {
	var d deadline
	fired := make(chan struct{})
	d.arm(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("deadline did not fire")
	}
	if d.armed() {
		t.Fatalf("fired deadline must not stay armed")
	}
}

func TestDeadlineDisarmAndRearm(t *testing.T) {
	var d deadline
	var first, second atomic.Int32

	d.arm(20*time.Millisecond, func() { first.Add(1) })
	d.disarm()
	if d.armed() {
		t.Fatalf("expected disarmed")
	}

	d.arm(20*time.Millisecond, func() { first.Add(1) })
	d.arm(20*time.Millisecond, func() { second.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if first.Load() != 0 {
		t.Fatalf("replaced callbacks must not run, ran %d times", first.Load())
	}
	if second.Load() != 1 {
		t.Fatalf("expected the latest callback once, got %d", second.Load())
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{59 * time.Second, "00:59"},
		{61*time.Second + 500*time.Millisecond, "01:01"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.in); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRemoteVerb(t *testing.T) {
	if got := remoteVerb(signal.KindHangUp); got != " hung up" {
		t.Fatalf("unexpected hang up verb %q", got)
	}
	if got := remoteVerb(signal.KindSwitch); got != " left" {
		t.Fatalf("unexpected fallback verb %q", got)
	}
}

func TestStateString(t *testing.T) {
	if StateBeCalled.String() != "BE_CALLED" || State(9).String() != "UNKNOWN" {
		t.Fatalf("unexpected state names")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{LeaveGrace: -time.Second}.withDefaults()
	def := DefaultConfig()
	if cfg.InviteTimeout != def.InviteTimeout || cfg.StreamTimeout != def.StreamTimeout {
		t.Fatalf("zero timeouts must take defaults, got %+v", cfg)
	}
	if cfg.LeaveGrace != 0 {
		t.Fatalf("negative grace must clamp to zero, got %v", cfg.LeaveGrace)
	}
}

type failingPlugin struct{ name string }

func (p failingPlugin) Name() string { return p.name }

func (p failingPlugin) OnLeave(_ context.Context, _ int64) error { return errors.New("nope") }

func TestEachCombinesErrorsAndRecovers(t *testing.T) {
	o := &Orchestrator{
		plugins: []Plugin{failingPlugin{name: "a"}, panickyPlugin{}, failingPlugin{name: "b"}},
		log:     zerolog.Nop(),
	}
	calls := 0
	err := each(o, "OnLeave", func(p Leaver) error {
		calls++
		return p.OnLeave(context.Background(), 1)
	})
	if calls != 3 {
		t.Fatalf("every leaver must run, got %d", calls)
	}
	if err == nil {
		t.Fatalf("expected combined error")
	}

	calls = 0
	err = each(o, "OnChangeState", func(p StateObserver) error {
		calls++
		return p.OnChangeState(context.Background(), StateFree, StateOnCall)
	})
	if calls != 1 || err == nil {
		t.Fatalf("panicking hook must be recovered as an error, calls=%d err=%v", calls, err)
	}
}
