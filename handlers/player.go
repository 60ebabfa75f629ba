package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/syncify/syncify/backend/go-services/internal/credentials"
	"github.com/syncify/syncify/backend/go-services/internal/rooms"
	"github.com/syncify/syncify/backend/go-services/internal/spotify"
	"github.com/syncify/syncify/backend/go-services/pkg/logger"
	"github.com/syncify/syncify/backend/go-services/pkg/middleware"
)

// PlayerHandler proxies playback commands to Spotify on behalf of the
// session owner and relays room-wide commands to joined members.
type PlayerHandler struct {
	refresher *credentials.Refresher
	player    *spotify.PlayerClient
	registry  *rooms.Registry
}

func NewPlayerHandler(refresher *credentials.Refresher, player *spotify.PlayerClient, registry *rooms.Registry) *PlayerHandler {
	return &PlayerHandler{refresher: refresher, player: player, registry: registry}
}

func (h *PlayerHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/spotify/command", h.Command)
	rg.POST("/room/:roomId/command", h.RoomCommand)
}

// Command ensures the session's credential is valid and issues the playback
// call. Actuator failures are surfaced verbatim; no retries here.
func (h *PlayerHandler) Command(c *gin.Context) {
	var cmd spotify.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := middleware.SessionID(c)
	token, err := h.refresher.EnsureValid(c.Request.Context(), sid)
	if err != nil {
		var re *credentials.RefreshError
		switch {
		case errors.Is(err, credentials.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated with Spotify"})
		case errors.As(err, &re):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Spotify credential refresh failed"})
		default:
			logger.Errorf("credential check failed for session %s: %v", sid, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "credential check failed"})
		}
		return
	}

	if err := h.player.Invoke(c.Request.Context(), token, cmd); err != nil {
		var apiErr *spotify.APIError
		switch {
		case errors.Is(err, spotify.ErrInvalidCommand):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action"})
		case errors.As(err, &apiErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Spotify API error", "status": apiErr.Status, "body": apiErr.Body})
		default:
			logger.Errorf("playback command failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Spotify API error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RoomCommand relays the posted JSON body to every member of the room as a
// playback-command event. Delivery is best-effort, same as the websocket
// relay.
func (h *PlayerHandler) RoomCommand(c *gin.Context) {
	roomID := c.Param("roomId")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	out, err := json.Marshal(rooms.Envelope{
		Type:    rooms.TypePlaybackCommand,
		RoomID:  roomID,
		Payload: json.RawMessage(body),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode command"})
		return
	}
	h.registry.Broadcast(roomID, out, "")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
