package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ai-companion-chat/backend/chat/models"
	"ai-companion-chat/backend/chat/service"
	apperrors "ai-companion-chat/backend/pkg/errors"
	"ai-companion-chat/backend/pkg/jwt"
	"ai-companion-chat/backend/pkg/logger"
	"ai-companion-chat/backend/pkg/middleware"
)

// ChatHandler exposes the conversation surface over HTTP
type ChatHandler struct {
	orchestrator *service.Orchestrator
	jwtService   *jwt.Service
	log          *logger.Logger
}

func NewChatHandler(orchestrator *service.Orchestrator, jwtService *jwt.Service, log *logger.Logger) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator, jwtService: jwtService, log: log}
}

// RegisterRoutesV1 wires the chat routes under /api/v1. The session creation
// route stays public; everything else requires the session token.
func (h *ChatHandler) RegisterRoutesV1(v1 *gin.RouterGroup, sessionAuth gin.HandlerFunc) {
	v1.POST("/sessions", h.CreateSession)
	v1.GET("/voices", h.ListVoices)

	v1.DELETE("/sessions", sessionAuth, h.ResetSession)

	chat := v1.Group("/chat")
	chat.Use(sessionAuth)
	{
		chat.POST("/messages", h.PostMessage)
		chat.POST("/avatar", h.ChooseAvatar)
		chat.POST("/voice", h.ChooseVoice)
		chat.GET("/appearance-options", h.AppearanceOptions)
		chat.GET("/transcript", h.Transcript)
		chat.GET("/state", h.State)
	}
}

type createSessionResponse struct {
	SessionID string           `json:"session_id"`
	Token     string           `json:"token"`
	Messages  []models.Message `json:"messages"`
}

// CreateSession starts a fresh chat session and returns its bearer token
func (h *ChatHandler) CreateSession(c *gin.Context) {
	sessionID, messages, err := h.orchestrator.StartSession(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	token, err := h.jwtService.GenerateToken(sessionID)
	if err != nil {
		h.log.LogError(err, "failed to issue session token", "session_id", sessionID)
		c.Error(apperrors.NewInternalServerError("token_issue_failed", "failed to issue session token"))
		return
	}

	c.JSON(http.StatusCreated, createSessionResponse{
		SessionID: sessionID,
		Token:     token,
		Messages:  messages,
	})
}

// ResetSession wipes the session and restarts setup, like the /start command
func (h *ChatHandler) ResetSession(c *gin.Context) {
	messages, err := h.orchestrator.ResetSession(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type postMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// PostMessage handles one user chat turn
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	messages, err := h.orchestrator.HandleTurn(c.Request.Context(), middleware.SessionID(c), req.Text)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type chooseAvatarRequest struct {
	Index *int `json:"index" binding:"required"`
}

// ChooseAvatar resolves the appearance picker
func (h *ChatHandler) ChooseAvatar(c *gin.Context) {
	var req chooseAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index is required"})
		return
	}

	messages, err := h.orchestrator.ChooseAvatar(c.Request.Context(), middleware.SessionID(c), *req.Index)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type chooseVoiceRequest struct {
	VoiceID *string `json:"voice_id"`
}

// ChooseVoice resolves the voice picker; a null voice_id skips or clears it
func (h *ChatHandler) ChooseVoice(c *gin.Context) {
	var req chooseVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	messages, err := h.orchestrator.ChooseVoice(c.Request.Context(), middleware.SessionID(c), req.VoiceID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type appearanceOption struct {
	Index    int    `json:"index"`
	ImageRef string `json:"image_ref"`
}

// AppearanceOptions returns the portraits awaiting selection
func (h *ChatHandler) AppearanceOptions(c *gin.Context) {
	blobs := h.orchestrator.AppearanceOptions(middleware.SessionID(c))
	options := make([]appearanceOption, len(blobs))
	for i, blob := range blobs {
		options[i] = appearanceOption{
			Index:    i,
			ImageRef: models.EncodeImageRef(blob.MIMEType, blob.Data),
		}
	}
	c.JSON(http.StatusOK, gin.H{"options": options})
}

// Transcript pages through the session's message history
func (h *ChatHandler) Transcript(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	messages, total, err := h.orchestrator.Transcript(c.Request.Context(), middleware.SessionID(c), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// State reports setup progress and pending picker state
func (h *ChatHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.State(c.Request.Context(), middleware.SessionID(c)))
}

// ListVoices returns the selectable voice catalog
func (h *ChatHandler) ListVoices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"voices": service.VoiceCatalog})
}
