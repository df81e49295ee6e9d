package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/audio-summarizer/internal/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryHandler lists completed summaries from the history index.
type HistoryHandler struct {
	history HistoryLister
	log     *logger.Logger
}

// NewHistoryHandler creates a history handler. history may be nil when no
// database is configured.
func NewHistoryHandler(history HistoryLister, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, log: log}
}

// List handles GET /summaries?limit=N.
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	if h.history == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "ERR_HISTORY_DISABLED", "Summary history is not enabled")
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	entries, err := h.history.List(c.UserContext(), limit)
	if err != nil {
		h.log.WithRequest(c).WithField("error", err.Error()).Error("Failed to list summaries")
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_HISTORY", "Failed to list summaries")
	}
	return c.JSON(entries)
}
