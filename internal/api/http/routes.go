package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/meteoradar/internal/sensor"
	"github.com/i474232898/meteoradar/internal/store"
)

var validate = validator.New()

// SensorReader is the read side of the sensor service used by the API.
type SensorReader interface {
	GetState(radarCode string) (sensor.State, error)
	GetHistory(radarCode string, from, to time.Time) ([]sensor.State, error)
	States() []sensor.State
	CheckReadiness(ctx context.Context) error
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service SensorReader) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "meteoradar",
		})
	})

	app.Get("/readyz", func(c *fiber.Ctx) error {
		if err := service.CheckReadiness(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	v1.Get("/sensors", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sensors": service.States(),
		})
	})

	v1.Get("/radars/:code", func(c *fiber.Ctx) error {
		req, err := parseRadarParam(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		state, err := service.GetState(req.Code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no sensor state for requested radar")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read sensor state")
		}

		return c.JSON(state)
	})

	v1.Get("/radars/:code/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		states, err := service.GetHistory(req.Radar.Code, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no sensor history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read sensor history")
		}

		return c.JSON(fiber.Map{
			"entity_id": sensor.EntityID(req.Radar.Code),
			"from":      req.From,
			"to":        req.To,
			"states":    states,
		})
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
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

// radarParam identifies a radar site in the path.
type radarParam struct {
	Code string `validate:"required,alphanum,max=16"`
}

func parseRadarParam(c *fiber.Ctx) (radarParam, error) {
	p := radarParam{Code: c.Params("code")}
	if err := validate.Struct(p); err != nil {
		return p, err
	}
	return p, nil
}

// historyQuery holds parameters for the history endpoint.
type historyQuery struct {
	Radar radarParam
	From  time.Time `validate:"required"`
	To    time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	p, err := parseRadarParam(c)
	if err != nil {
		return err
	}
	h.Radar = p

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
