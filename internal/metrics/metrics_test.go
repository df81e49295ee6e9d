package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func scrape(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestMiddlewareAndHandler(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/summarize/status/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.ErrTeapot })
	app.Get("/metrics", Handler())

	for _, path := range []string{"/summarize/status/a", "/summarize/status/b", "/boom"} {
		if _, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil)); err != nil {
			t.Fatal(err)
		}
	}

	body := scrape(t, app)
	for _, want := range []string{
		`summarizer_http_requests_total{route="GET /summarize/status/:id",status="200"} 2`,
		`summarizer_http_requests_total{route="GET /boom",status="418"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestObserveStage(t *testing.T) {
	ObserveStage("fetch", time.Now(), nil)
	ObserveStage("fetch", time.Now(), errors.New("failed"))

	app := fiber.New()
	app.Get("/metrics", Handler())
	body := scrape(t, app)

	for _, want := range []string{
		`summarizer_stage_duration_seconds_count{outcome="ok",stage="fetch"} 1`,
		`summarizer_stage_duration_seconds_count{outcome="error",stage="fetch"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
