package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/audio-summarizer/internal/logger"
	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

// TaskHandler serves status, results and cleanup of submitted tasks.
type TaskHandler struct {
	svc  Service
	docx DocxExporter
	log  *logger.Logger
}

// NewTaskHandler creates a task handler. docx may be nil, which disables
// Word downloads.
func NewTaskHandler(svc Service, docx DocxExporter, log *logger.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, docx: docx, log: log}
}

// Status returns the task record. Unknown ids get a not_found record, still
// with 200, so pollers read the outcome from the body.
func (h *TaskHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.svc.Get(c.Params("id")))
}

// Result downloads the summary artifact as text (default) or docx.
func (h *TaskHandler) Result(c *fiber.Ctx) error {
	task := h.svc.Get(c.Params("id"))

	switch task.Status {
	case types.StatusNotFound:
		return errorJSON(c, fiber.StatusNotFound, "ERR_NOT_FOUND", "Task not found")
	case types.StatusProcessing:
		return errorJSON(c, fiber.StatusConflict, "ERR_NOT_READY", "Task is still processing")
	case types.StatusFailed:
		return errorJSON(c, fiber.StatusConflict, "ERR_TASK_FAILED", task.Error)
	}
	if task.ResultArtifactPath == "" {
		return errorJSON(c, fiber.StatusNotFound, "ERR_NO_ARTIFACT", "Summary file not found")
	}

	switch strings.ToLower(c.Query("format", "txt")) {
	case "txt":
		return h.send(c, task.ResultArtifactPath, task.ID+"_summary.txt")
	case "docx":
		if h.docx == nil {
			return errorJSON(c, fiber.StatusNotImplemented, "ERR_DOCX_DISABLED", "Word export is not enabled")
		}
		title := fmt.Sprintf("Summary (%s)", task.ContentType)
		path, err := h.docx.ExportDocx(task.ID, title, task.FormattedSummary)
		if err != nil {
			h.log.WithTask(task.ID).WithField("error", err.Error()).Error("Word export failed")
			return errorJSON(c, fiber.StatusInternalServerError, "ERR_EXPORT_FAILED", "Failed to export summary")
		}
		return h.send(c, path, task.ID+"_summary.docx")
	default:
		return errorJSON(c, fiber.StatusBadRequest, "ERR_INVALID_FORMAT", "format must be txt or docx")
	}
}

func (h *TaskHandler) send(c *fiber.Ctx, path, name string) error {
	c.Attachment(name)
	if err := c.SendFile(path); err != nil {
		if fe, ok := err.(*fiber.Error); ok && fe.Code == fiber.StatusNotFound {
			return errorJSON(c, fiber.StatusNotFound, "ERR_NO_ARTIFACT", "Summary file not found")
		}
		return err
	}
	if c.Response().StatusCode() == fiber.StatusNotFound {
		return errorJSON(c, fiber.StatusNotFound, "ERR_NO_ARTIFACT", "Summary file not found")
	}
	return nil
}

// Delete removes a task and its artifacts.
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.svc.Delete(c.UserContext(), id) {
		return errorJSON(c, fiber.StatusNotFound, "ERR_NOT_FOUND", "Task not found")
	}
	return c.JSON(fiber.Map{"message": "task cleaned up", "taskId": id})
}
