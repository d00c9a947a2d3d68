package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dmcheckout/internal/entities"
)

type textPayload struct {
	Text string `json:"text"`
}

func bindText(c *gin.Context) (string, bool) {
	var payload textPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return "", false
	}
	return SanitizeString(payload.Text), true
}

func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.conversation.ListSessions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) StartSession(c *gin.Context) {
	var payload struct {
		Channel    entities.Channel `json:"channel"`
		Handle     string           `json:"handle"`
		CampaignID *int             `json:"campaign_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if payload.Channel == "" {
		payload.Channel = entities.ChannelInstagram
	}
	session, err := h.conversation.StartSession(c.Request.Context(), payload.Channel, SanitizeString(payload.Handle), payload.CampaignID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.conversation.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.conversation.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) GetHistory(c *gin.Context) {
	history, err := h.conversation.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// SendInbound simulates a customer DM and returns the auto-reply, if any.
func (h *Handler) SendInbound(c *gin.Context) {
	text, ok := bindText(c)
	if !ok {
		return
	}
	exchange, err := h.conversation.SendInbound(c.Request.Context(), c.Param("id"), text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exchange)
}

func (h *Handler) SendOperator(c *gin.Context) {
	text, ok := bindText(c)
	if !ok {
		return
	}
	msg, err := h.conversation.SendOperator(c.Request.Context(), c.Param("id"), text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) ResetSession(c *gin.Context) {
	if err := h.conversation.ResetSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// HandleWebMessage is the public entry point for the website chat widget.
// The reply is returned in the response body.
func (h *Handler) HandleWebMessage(c *gin.Context) {
	var payload struct {
		From    string `json:"from"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if h.web == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Web chat not configured"})
		return
	}
	if !ValidateLength(payload.From, 1, MaxHandleLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sender"})
		return
	}

	reply, ok := h.web.Dispatch(c.Request.Context(), entities.ChannelWeb, SanitizeString(payload.From), SanitizeString(payload.Content))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received", "reply": reply})
}
