package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/records"
	"github.com/vovakirdan/wirecall/internal/service/calls"
)

// CallsHandlers provides HTTP handlers for call record endpoints.
type CallsHandlers struct {
	service *calls.Service
	log     *zerolog.Logger
}

// NewCallsHandlers creates a new calls handlers instance.
func NewCallsHandlers(svc *calls.Service, logger *zerolog.Logger) *CallsHandlers {
	return &CallsHandlers{
		service: svc,
		log:     logger,
	}
}

// MembersResponse lists the roster of a room.
type MembersResponse struct {
	Members []domain.Member `json:"members"`
}

// MessageResponse acknowledges a request without a payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateCall handles placing a call.
// POST /api/calls
func (h *CallsHandlers) CreateCall(c *gin.Context) {
	me, ok := h.caller(c)
	if !ok {
		return
	}

	var req records.CreateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create call request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	req.Account = me.Account
	if req.Nickname == "" {
		req.Nickname = me.Nickname
	}
	if req.Card == 0 {
		req.Card = me.Card
	}

	res, err := h.service.CreateCall(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "failed to create call")
		return
	}

	c.JSON(http.StatusCreated, res)
}

// CancelCall handles a participant leaving a call.
// POST /api/calls/cancel
func (h *CallsHandlers) CancelCall(c *gin.Context) {
	me, ok := h.caller(c)
	if !ok {
		return
	}

	var req records.CancelCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid cancel call request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	req.Account = me.Account

	if err := h.service.CancelCall(c.Request.Context(), req); err != nil {
		h.fail(c, err, "failed to cancel call")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "call left"})
}

// SwitchCallType handles downgrading a call to audio.
// POST /api/calls/switch
func (h *CallsHandlers) SwitchCallType(c *gin.Context) {
	me, ok := h.caller(c)
	if !ok {
		return
	}

	var req records.SwitchCallTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid switch request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	req.Account = me.Account

	if err := h.service.SwitchCallType(c.Request.Context(), req); err != nil {
		h.fail(c, err, "failed to switch call type")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "switched to audio"})
}

// AddMember handles inviting another member into a running call.
// POST /api/calls/members
func (h *CallsHandlers) AddMember(c *gin.Context) {
	me, ok := h.caller(c)
	if !ok {
		return
	}

	var req records.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid add member request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	req.Account = me.Account

	if err := h.service.AddMember(c.Request.Context(), req); err != nil {
		h.fail(c, err, "failed to add member")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "member added"})
}

// RoomMembers handles reading the roster of a room the caller belongs to.
// GET /api/rooms/:id/members
func (h *CallsHandlers) RoomMembers(c *gin.Context) {
	me, ok := h.caller(c)
	if !ok {
		return
	}
	roomID, ok := h.roomID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.service.CheckMember(ctx, roomID, me.Account); err != nil {
		h.fail(c, err, "failed to check membership")
		return
	}
	members, err := h.service.RoomMembers(ctx, roomID)
	if err != nil {
		h.fail(c, err, "failed to list members")
		return
	}

	h.log.Debug().Int64("room_id", roomID).Int("member_count", len(members)).Msg("members listed")
	c.JSON(http.StatusOK, MembersResponse{Members: members})
}

// JoinInfo handles retrieving media credentials for a room.
// GET /api/rooms/:id/join
func (h *CallsHandlers) JoinInfo(c *gin.Context) {
	me, ok := h.caller(c)
	if !ok {
		return
	}
	roomID, ok := h.roomID(c)
	if !ok {
		return
	}

	info, err := h.service.JoinInfo(c.Request.Context(), roomID, me.Account)
	if err != nil {
		h.fail(c, err, "failed to get join info")
		return
	}

	h.log.Debug().Int64("room_id", roomID).Str("account", me.Account).Msg("join info retrieved")
	c.JSON(http.StatusOK, info)
}

func (h *CallsHandlers) caller(c *gin.Context) (domain.Member, bool) {
	me, ok := currentMember(c)
	if !ok {
		h.log.Error().Msg("account not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	return me, ok
}

func (h *CallsHandlers) roomID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return 0, false
	}
	return id, true
}

// fail maps service errors onto HTTP statuses.
func (h *CallsHandlers) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, records.ErrInvalid):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, records.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "call not found"})
	case errors.Is(err, records.ErrNotMember):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of this call"})
	case errors.Is(err, records.ErrCallEnded):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "call has ended"})
	case errors.Is(err, calls.ErrEngineDisabled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "calls are not available"})
	default:
		h.log.Error().Err(err).Str("account", c.GetString(ContextKeyAccount)).Msg(msg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
