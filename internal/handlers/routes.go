package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Version is reported by the health probe.
const Version = "1.0.0"

// Routes groups the handlers mounted by Register. Stream and History may be
// nil.
type Routes struct {
	Upload  *UploadHandler
	Video   *VideoHandler
	Tasks   *TaskHandler
	History *HistoryHandler
	Stream  *StreamHandler
}

// Register mounts the API on router.
func Register(router fiber.Router, r Routes) {
	router.Get("/health", Health)

	router.Post("/summarize", r.Upload.Handle)
	router.Post("/summarize/video", r.Video.Handle)
	router.Get("/summarize/status/:id", r.Tasks.Status)
	router.Get("/summarize/result/:id", r.Tasks.Result)
	router.Delete("/summarize/:id", r.Tasks.Delete)

	if r.History != nil {
		router.Get("/summaries", r.History.List)
	}

	if r.Stream != nil {
		router.Use("/summarize/stream", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		router.Get("/summarize/stream", websocket.New(r.Stream.Handle))
	}
}

// Health is the liveness probe.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": Version,
	})
}
