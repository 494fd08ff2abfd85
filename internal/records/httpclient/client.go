// Package httpclient talks to the call record service over its HTTP API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/callengine"
	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/records"
)

const defaultTimeout = 10 * time.Second

// Client implements records.Service and records.Joiner with a bearer token.
type Client struct {
	base  string
	token string
	http  *http.Client
	log   zerolog.Logger
}

var (
	_ records.Service = (*Client)(nil)
	_ records.Joiner  = (*Client)(nil)
)

// New builds a client for the API rooted at baseURL.
func New(baseURL, token string, logger zerolog.Logger) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		http:  &http.Client{Timeout: defaultTimeout},
		log:   logger.With().Str("component", "records").Logger(),
	}
}

type membersResponse struct {
	Members []domain.Member `json:"members"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) CreateCall(ctx context.Context, req records.CreateCallRequest) (*records.CreateCallResult, error) {
	var out records.CreateCallResult
	if err := c.do(ctx, http.MethodPost, "/api/calls", req, &out); err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}
	return &out, nil
}

func (c *Client) CancelCall(ctx context.Context, req records.CancelCallRequest) error {
	if err := c.do(ctx, http.MethodPost, "/api/calls/cancel", req, nil); err != nil {
		return fmt.Errorf("cancel call %d: %w", req.RoomID, err)
	}
	return nil
}

func (c *Client) RoomMembers(ctx context.Context, roomID int64) ([]domain.Member, error) {
	var out membersResponse
	if err := c.do(ctx, http.MethodGet, "/api/rooms/"+strconv.FormatInt(roomID, 10)+"/members", nil, &out); err != nil {
		return nil, fmt.Errorf("room %d members: %w", roomID, err)
	}
	return out.Members, nil
}

func (c *Client) SwitchCallType(ctx context.Context, req records.SwitchCallTypeRequest) error {
	if err := c.do(ctx, http.MethodPost, "/api/calls/switch", req, nil); err != nil {
		return fmt.Errorf("switch call %d: %w", req.RoomID, err)
	}
	return nil
}

// AddMember invites another member into a running call.
func (c *Client) AddMember(ctx context.Context, req records.AddMemberRequest) error {
	if err := c.do(ctx, http.MethodPost, "/api/calls/members", req, nil); err != nil {
		return fmt.Errorf("add member to %d: %w", req.RoomID, err)
	}
	return nil
}

func (c *Client) JoinInfo(ctx context.Context, roomID int64) (*callengine.JoinInfo, error) {
	var out callengine.JoinInfo
	if err := c.do(ctx, http.MethodGet, "/api/rooms/"+strconv.FormatInt(roomID, 10)+"/join", nil, &out); err != nil {
		return nil, fmt.Errorf("join info %d: %w", roomID, err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("records request")

	if resp.StatusCode >= 300 {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return statusError(resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(code int, msg string) error {
	var base error
	switch code {
	case http.StatusNotFound:
		base = records.ErrNotFound
	case http.StatusForbidden:
		base = records.ErrNotMember
	case http.StatusConflict:
		base = records.ErrCallEnded
	case http.StatusBadRequest:
		base = records.ErrInvalid
	default:
		base = errors.New(http.StatusText(code))
	}
	if msg == "" {
		return fmt.Errorf("status %d: %w", code, base)
	}
	return fmt.Errorf("status %d: %s: %w", code, msg, base)
}
