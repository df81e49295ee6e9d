package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/audio-summarizer/internal/logger"
	"github.com/codebuildervaibhav/audio-summarizer/internal/pipeline"
	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

// UploadHandler accepts multipart audio uploads.
type UploadHandler struct {
	svc Service
	log *logger.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(svc Service, log *logger.Logger) *UploadHandler {
	return &UploadHandler{svc: svc, log: log}
}

// Handle validates the "file" part and schedules its summary. The response
// carries the task id before any processing happens.
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	log := h.log.WithRequest(c)

	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "ERR_NO_FILE", "No file uploaded")
	}

	id, err := h.svc.SubmitUpload(pipeline.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Size:        file.Size,
		Name:        c.FormValue("name"),
		Source:      types.SourceUpload,
		Save: func(dst string) error {
			return c.SaveFile(file, dst)
		},
	})
	if err != nil {
		return submitError(c, log, err)
	}

	log.WithFields(logrus.Fields{"task_id": id, "filename": file.Filename, "size": file.Size}).Info("Upload accepted")
	return accepted(c, id)
}
