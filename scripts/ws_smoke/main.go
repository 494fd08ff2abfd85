package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirecall/internal/signal"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "signaling WebSocket address")
	token := flag.String("token", os.Getenv("WIRECALL_TOKEN"), "bearer token (see `wirecall token`)")
	count := flag.Int("count", 1, "number of signals to wait for")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" {
		return errors.New("token required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+*token)
	conn, _, err := websocket.Dial(ctx, *addr, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye") //nolint:errcheck // best effort

	fmt.Printf("connected to %s, waiting for %d signal(s)\n", *addr, *count)

	for received := 0; received < *count; {
		var env signal.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received envelope: type=%s protocol=%d\n", env.Type, env.Protocol)
		switch env.Type {
		case signal.EnvelopeTypeSignal:
			if env.Signal == nil {
				continue
			}
			raw, err := json.MarshalIndent(env.Signal, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal signal: %w", err)
			}
			fmt.Printf("Signal: room=%d kind=%s sponsor=%s\n%s\n",
				env.Signal.RoomID, env.Signal.Kind, env.Signal.SponsorAccount, raw)
			received++
		case signal.EnvelopeTypeError:
			if env.Error != nil {
				fmt.Printf("Error: %s: %s\n", env.Error.Code, env.Error.Msg)
			}
		}
	}
	return nil
}
