package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"

	"github.com/i474232898/weather-car-cover/internal/weather"
)

const serviceName = "weather-car-cover"

// keepAliveInterval is how often an idle event stream is pinged; a failed
// ping is how a disconnected client is noticed.
var keepAliveInterval = 15 * time.Second

var validate = validator.New()

// ForecastService is the forecast side used by the handlers.
type ForecastService interface {
	Refresh(ctx context.Context) error
	Report() (weather.Report, error)
	Status() weather.Status
}

// PreferenceStore is the drizzle preference holder used by the handlers.
type PreferenceStore interface {
	CoverIfDrizzle() bool
	SetCoverIfDrizzle(v bool) bool
	Subscribe(fn func(bool)) (unsubscribe func())
}

// Deps bundles what RegisterRoutes wires into the app.
type Deps struct {
	Service     ForecastService
	Preferences PreferenceStore
	Logger      *slog.Logger
	// Done, when closed, ends open event streams. May be nil.
	Done <-chan struct{}
}

// ErrorHandler renders every handler error as {"error":true,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		rep, err := d.Service.Report()
		if err != nil {
			return reportError(err)
		}
		return c.JSON(rep)
	})

	// Answers even before the first load, so clients can show a spinner.
	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(d.Service.Status())
	})

	v1.Post("/forecast/refresh", func(c *fiber.Ctx) error {
		if err := d.Service.Refresh(c.UserContext()); err != nil {
			return reportError(err)
		}
		rep, err := d.Service.Report()
		if err != nil {
			return reportError(err)
		}
		return c.JSON(rep)
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(settingsBody{CoverIfDrizzle: d.Preferences.CoverIfDrizzle()})
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var req settingsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid settings body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if d.Preferences.SetCoverIfDrizzle(*req.CoverIfDrizzle) {
			d.Logger.Info("preference updated", "cover_if_drizzle", *req.CoverIfDrizzle)
		}
		return c.JSON(settingsBody{CoverIfDrizzle: d.Preferences.CoverIfDrizzle()})
	})

	v1.Get("/settings/events", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		updates := make(chan bool, 8)
		unsubscribe := d.Preferences.Subscribe(func(v bool) {
			select {
			case updates <- v:
			default: // slow client; it still gets the next change
			}
		})
		initial := d.Preferences.CoverIfDrizzle()

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer unsubscribe()
			streamSettings(w, initial, updates, d.Done)
		}))
		return nil
	})
}

// settingsRequest is the PUT /settings body.
type settingsRequest struct {
	CoverIfDrizzle *bool `json:"coverIfDrizzle" validate:"required"`
}

type settingsBody struct {
	CoverIfDrizzle bool `json:"coverIfDrizzle"`
}

func reportError(err error) error {
	if errors.Is(err, weather.ErrNotLoaded) {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no forecast data yet")
	}
	var fe *weather.FetchError
	if errors.As(err, &fe) {
		return fiber.NewError(fiber.StatusBadGateway, fe.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to load forecast")
}

// streamSettings writes the current value, then one event per change, until
// the client goes away or done is closed.
func streamSettings(w *bufio.Writer, initial bool, updates <-chan bool, done <-chan struct{}) {
	if err := writeSettingsEvent(w, initial); err != nil {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case v := <-updates:
			if err := writeSettingsEvent(w, v); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func writeSettingsEvent(w *bufio.Writer, v bool) error {
	data, err := json.Marshal(settingsBody{CoverIfDrizzle: v})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: settings\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
