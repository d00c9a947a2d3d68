package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStats returns the dashboard summary: catalog counts, the stage funnel
// and limiter load.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{
		"stats":        stats,
		"wa_connected": false,
	}
	if h.whatsapp != nil {
		st := h.whatsapp.Status()
		response["wa_connected"] = st.Connected && st.LoggedIn
		response["wa_phone"] = st.Phone
	}

	limits := gin.H{}
	for name, l := range h.limiters {
		if l != nil {
			limits[name] = l.GetStats()
		}
	}
	response["rate_limits"] = limits
	if h.locker != nil {
		response["busy_sessions"] = h.locker.Active()
	}
	c.JSON(http.StatusOK, response)
}

// Settings
func (h *Handler) GetSettings(c *gin.Context) {
	if key := c.Query("key"); key != "" {
		value, err := h.dashboard.GetSetting(c.Request.Context(), key)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
		return
	}
	settings, err := h.dashboard.AllSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) SetSetting(c *gin.Context) {
	var payload struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	payload.Value = SanitizeString(payload.Value)

	if err := h.dashboard.SetSetting(c.Request.Context(), payload.Key, payload.Value); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
