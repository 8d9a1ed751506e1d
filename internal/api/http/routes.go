package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/weather-proxy/internal/weather"
)

const (
	msgWeatherFailed  = "Failed to fetch weather data from external API"
	msgForecastFailed = "Failed to fetch forecast data from external API"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report query parameter names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// WeatherService is what the handlers need from weather.Service.
type WeatherService interface {
	CurrentWeather(ctx context.Context, q weather.Query) (json.RawMessage, error)
	Forecast(ctx context.Context, q weather.Query) (weather.ForecastResult, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service WeatherService) {
	api := app.Group("/api")

	api.Get("/weather", func(c *fiber.Ctx) error {
		var q currentQuery
		if err := q.bind(c); err != nil {
			return validationFailed(c, err)
		}

		data, err := service.CurrentWeather(c.UserContext(), q.toQuery())
		if err != nil || len(data) == 0 {
			return fiber.NewError(fiber.StatusInternalServerError, msgWeatherFailed)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	})

	api.Get("/forecast", func(c *fiber.Ctx) error {
		var q forecastQuery
		if err := q.bind(c); err != nil {
			return validationFailed(c, err)
		}

		result, err := service.Forecast(c.UserContext(), q.toQuery())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, msgForecastFailed)
		}

		return c.JSON(result)
	})
}

// currentQuery holds query parameters for the current weather endpoint.
type currentQuery struct {
	City  string `query:"city" validate:"required"`
	Units string `query:"units" validate:"oneof=standard metric imperial"`
}

func (q *currentQuery) bind(c *fiber.Ctx) error {
	// Fiber query values alias the request buffer; they end up in cache keys.
	q.City = utils.CopyString(strings.TrimSpace(c.Query("city")))
	q.Units = utils.CopyString(c.Query("units", string(weather.DefaultUnits)))
	return validate.Struct(q)
}

func (q currentQuery) toQuery() weather.Query {
	return weather.Query{
		City:  q.City,
		Units: weather.Units(q.Units),
	}
}

// forecastQuery holds query parameters for the forecast endpoint.
type forecastQuery struct {
	City  string `query:"city" validate:"required"`
	Units string `query:"units" validate:"oneof=standard metric imperial"`
	Days  int    `query:"days" validate:"min=1,max=7"`
}

func (q *forecastQuery) bind(c *fiber.Ctx) error {
	q.City = utils.CopyString(strings.TrimSpace(c.Query("city")))
	q.Units = utils.CopyString(c.Query("units", string(weather.DefaultUnits)))

	q.Days = weather.DefaultForecastDays
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return fieldError{field: "days", msg: "The days field must be an integer."}
		}
		q.Days = days
	}

	return validate.Struct(q)
}

func (q forecastQuery) toQuery() weather.Query {
	return weather.Query{
		City:  q.City,
		Units: weather.Units(q.Units),
		Days:  q.Days,
	}
}

// fieldError is a validation failure detected before struct validation runs.
type fieldError struct {
	field string
	msg   string
}

func (e fieldError) Error() string { return e.msg }

// validationFailed renders a 422 with per-field messages.
func validationFailed(c *fiber.Ctx, err error) error {
	fields := make(map[string][]string)

	var fe fieldError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &fe):
		fields[fe.field] = append(fields[fe.field], fe.msg)
	case errors.As(err, &verrs):
		for _, v := range verrs {
			fields[v.Field()] = append(fields[v.Field()], describe(v))
		}
	default:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var first string
	for _, name := range []string{"city", "units", "days"} {
		if msgs, ok := fields[name]; ok {
			first = msgs[0]
			break
		}
	}

	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"message": first,
		"errors":  fields,
	})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", fe.Field())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", fe.Field())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", fe.Field())
	}
}

// StatsReporter exposes cache counters for the health endpoint.
type StatsReporter interface {
	CacheStats() (hits, misses int64)
}

// RegisterHealth adds a basic health endpoint reporting cache counters.
func RegisterHealth(app *fiber.App, serviceName string, stats StatsReporter) {
	app.Get("/health", func(c *fiber.Ctx) error {
		hits, misses := stats.CacheStats()
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
			"cache": fiber.Map{
				"hits":   hits,
				"misses": misses,
			},
		})
	})
}
