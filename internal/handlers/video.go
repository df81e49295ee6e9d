package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/audio-summarizer/internal/logger"
)

// VideoHandler accepts video URLs whose audio is downloaded and summarized.
type VideoHandler struct {
	svc Service
	log *logger.Logger
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(svc Service, log *logger.Logger) *VideoHandler {
	return &VideoHandler{svc: svc, log: log}
}

// VideoRequest represents the request body
type VideoRequest struct {
	VideoURL string `json:"videoUrl"`
	Name     string `json:"name"`
}

// Handle processes video requests
func (h *VideoHandler) Handle(c *fiber.Ctx) error {
	log := h.log.WithRequest(c)

	var req VideoRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_BODY", "Invalid request body")
	}

	id, err := h.svc.SubmitVideo(req.VideoURL, req.Name)
	if err != nil {
		return submitError(c, log, err)
	}

	log.WithFields(logrus.Fields{"task_id": id, "url": req.VideoURL}).Info("Video accepted")
	return accepted(c, id)
}
