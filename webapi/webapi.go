// Package webapi provides the HTTP API of the planner.
// It is organized into sub-packages per area:
// - goal: life context, goals and progress endpoints
// - budget: recommendation and commitment endpoints
// - common: response envelopes and request validation
package webapi

import (
	"errors"
	"strings"
	"time"

	"github.com/amirasaad/finplan/pkg/app"
	"github.com/amirasaad/finplan/pkg/config"
	budgetweb "github.com/amirasaad/finplan/webapi/budget"
	"github.com/amirasaad/finplan/webapi/common"
	goalweb "github.com/amirasaad/finplan/webapi/goal"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	defaultMaxRequests = 100
	defaultWindow      = time.Minute
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return common.ProblemDetailsJSON(c, fe.Message, err, fe.Code)
			}
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	maxRequests, window := defaultMaxRequests, defaultWindow
	if a.Config != nil && a.Config.RateLimit != nil {
		rl := a.Config.RateLimit
		if rl.MaxRequests > 0 {
			maxRequests = rl.MaxRequests
		}
		if rl.Window > 0 {
			window = rl.Window
		}
	}
	fiberApp.Use(limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Use X-Forwarded-For header if available (for load balancers/proxies)
			// Fall back to X-Real-IP, then to direct IP
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
					return strings.TrimSpace(forwardedFor[:commaIndex])
				}
				return strings.TrimSpace(forwardedFor)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				fiber.StatusTooManyRequests,
			)
		},
	}))
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("FinPlan API is running! 🚀")
	})

	fiberApp.Get("/debug/routes", func(c *fiber.Ctx) error {
		var routes []fiber.Map
		for _, route := range fiberApp.GetRoutes(true) {
			routes = append(routes, fiber.Map{"method": route.Method, "path": route.Path})
		}
		return c.JSON(routes)
	})

	jwt := jwtConfig(a.Config)
	goalweb.Routes(fiberApp, a.GoalService, a.ProgressService, jwt)
	budgetweb.Routes(fiberApp, a.BudgetService, jwt)
	return fiberApp
}

func jwtConfig(cfg *config.App) *config.Jwt {
	if cfg == nil || cfg.Auth == nil {
		return nil
	}
	return cfg.Auth.Jwt
}
