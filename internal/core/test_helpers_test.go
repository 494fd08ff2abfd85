package core

import (
	"testing"
	"time"

	"github.com/vovakirdan/wirecall/internal/signal"
)

func mustEvent(t *testing.T, ch <-chan signal.Message, kind signal.Kind) signal.Message {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %s not received", kind)
	return signal.Message{}
}

func mustClose(t *testing.T, ch <-chan signal.Message) {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatalf("event channel not closed")
		}
	}
}
