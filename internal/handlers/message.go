package handlers

import (
	"net/http"

	"datingluck-server/internal/config"
	"datingluck-server/internal/services"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	chat *services.ChatService
	cfg  *config.Config
}

type SendMessageRequest struct {
	MatchID  string `json:"matchId" binding:"required"`
	SenderID string `json:"senderId" binding:"required"`
	Body     string `json:"body" binding:"required"`
}

func NewMessageHandler(chat *services.ChatService, cfg *config.Config) *MessageHandler {
	return &MessageHandler{chat: chat, cfg: cfg}
}

// SendMessage persists the message and echoes it to the match room; the
// HTTP response carries the persisted message as well.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matchID, ok := objectIDFromHex(c, req.MatchID, "match ID")
	if !ok {
		return
	}
	senderID, ok := objectIDFromHex(c, req.SenderID, "sender ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	delivered, err := h.chat.Send(ctx, matchID, senderID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Message sent", "data": delivered})
}

// Conversation replays a match's messages, oldest first.
func (h *MessageHandler) Conversation(c *gin.Context) {
	matchID, ok := objectIDFromHex(c, c.Param("matchId"), "match ID")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	messages, err := h.chat.History(ctx, matchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
