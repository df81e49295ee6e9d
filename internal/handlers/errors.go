package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/audio-summarizer/internal/pipeline"
	"github.com/codebuildervaibhav/audio-summarizer/internal/queue"
)

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

// submitError maps a submission failure to its HTTP response.
func submitError(c *fiber.Ctx, log *logrus.Entry, err error) error {
	var verr *pipeline.ValidationError
	switch {
	case errors.As(err, &verr):
		return errorJSON(c, fiber.StatusBadRequest, verr.Code, verr.Reason)
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrStopped):
		log.WithField("error", err.Error()).Warn("Submission rejected")
		return errorJSON(c, fiber.StatusServiceUnavailable, "ERR_QUEUE_FULL", "Server is busy, try again later")
	default:
		log.WithField("error", err.Error()).Error("Submission failed")
		return errorJSON(c, fiber.StatusInternalServerError, "ERR_SUBMIT_FAILED", "Failed to start processing")
	}
}

func accepted(c *fiber.Ctx, id string) error {
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"taskId":  id,
		"status":  "processing",
		"message": "Processing started",
	})
}
