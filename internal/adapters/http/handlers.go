package http

import (
	"context"
	"net/http"

	"github.com/dkeye/VoiceClub/internal/adapters/signal"
	"github.com/dkeye/VoiceClub/internal/app/orch"
	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	ctx    context.Context
	orch   *orch.Orchestrator
	signal *signal.SignalWSController
}

type createSessionRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

func (h *handlers) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.orch.CreateSession(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"title":      s.Title,
		"status":     s.Status,
		"media_room": s.MediaRoom,
		"rtmp_url":   s.RTMPURL,
		"stream_key": s.StreamKey,
	})
}

func (h *handlers) listSessions(c *gin.Context) {
	var status domain.SessionStatus
	if raw := c.Query("status"); raw != "" {
		st, err := domain.ParseStatus(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		status = st
	}
	list, err := h.orch.ListSessions(c.Request.Context(), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

func (h *handlers) getSession(c *gin.Context) {
	s, err := h.orch.GetSession(c.Request.Context(), domain.SessionID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *handlers) startSession(c *gin.Context) {
	s, err := h.orch.StartSession(c.Request.Context(), domain.SessionID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": s.Status, "session": s})
}

func (h *handlers) endSession(c *gin.Context) {
	s, err := h.orch.EndSession(c.Request.Context(), domain.SessionID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": s.Status, "session": s})
}

func (h *handlers) deleteSession(c *gin.Context) {
	if err := h.orch.DeleteSession(c.Request.Context(), domain.SessionID(c.Param("id"))); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) roomState(c *gin.Context) {
	snap, err := h.orch.RoomState(c.Request.Context(), domain.SessionID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type roleRequest struct {
	UserID string `json:"user_id" binding:"required,max=64"`
}

func (h *handlers) promote(c *gin.Context) {
	h.changeRole(c, h.orch.Promote)
}

func (h *handlers) demote(c *gin.Context) {
	h.changeRole(c, h.orch.Demote)
}

func (h *handlers) changeRole(c *gin.Context, fn func(context.Context, domain.SessionID, domain.UserID) (core.Snapshot, error)) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	snap, err := fn(c.Request.Context(), domain.SessionID(c.Param("id")), domain.UserID(req.UserID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type tokenRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required,max=64"`
	Username  string `json:"username" binding:"required,max=64"`
	Role      string `json:"role" binding:"omitempty,oneof=speaker listener"`
}

func (h *handlers) mediaToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tok, err := h.orch.IssueMediaToken(c.Request.Context(), orch.TokenRequest{
		SessionID: domain.SessionID(req.SessionID),
		UserID:    req.UserID,
		Username:  req.Username,
		Role:      req.Role,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

// connect rejects unknown or ended sessions before the upgrade so the
// client sees a plain HTTP status.
func (h *handlers) connect(c *gin.Context) {
	id := domain.SessionID(c.Param("session_id"))
	var hs signal.Handshake
	if err := c.ShouldBindQuery(&hs); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.orch.GetSession(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !s.Status.AcceptsConnections() {
		writeError(c, domain.ErrSessionEnded)
		return
	}
	log.Info().Str("module", "adapters.http").Str("session", string(id)).Str("user", hs.UserID).Msg("ws signal endpoint hit")
	h.signal.HandleSignal(h.ctx, c, id, hs)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": len(h.orch.Rooms.List())})
}
