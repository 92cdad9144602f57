// Package budget exposes the recommendation and commitment endpoints.
package budget

import (
	"github.com/amirasaad/finplan/pkg/config"
	"github.com/amirasaad/finplan/pkg/middleware"
	budgetsvc "github.com/amirasaad/finplan/pkg/service/budget"
	"github.com/amirasaad/finplan/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Routes registers the budget endpoints.
//
// Routes:
//   - GET  /budget/recommendations : Three personalized templates.
//   - POST /budget/commit          : Accept a plan with goal allocations.
func Routes(app *fiber.App, budgets *budgetsvc.Service, jwt *config.Jwt) {
	app.Get("/budget/recommendations", middleware.JwtProtected(jwt), Recommendations(budgets, jwt))
	app.Post("/budget/commit", middleware.JwtProtected(jwt), Commit(budgets, jwt))
}

// Recommendations returns a handler computing the caller's recommendations.
// @Summary Budget recommendations
// @Description Returns exactly three templates with the balanced one first, or only the balanced template when there is no income history.
// @Tags budget
// @Produce json
// @Success 200 {object} common.Response "Recommendations"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 500 {object} common.ProblemDetails "Internal server error"
// @Router /budget/recommendations [get]
// @Security Bearer
func Recommendations(budgets *budgetsvc.Service, jwt *config.Jwt) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c, jwt)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, "missing user context", fiber.StatusUnauthorized)
		}
		res, err := budgets.Recommendations(c.UserContext(), userID)
		if err != nil {
			log.Errorf("Failed to build recommendations: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to build recommendations", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Recommendations generated", RecommendationsResponse{
			Recommendations: res.Recommendations,
			LowData:         res.LowData,
		})
	}
}

// Commit returns a handler accepting a plan.
// @Summary Commit a plan
// @Description Stores the accepted plan. Explicit allocations must sum to the plan's savings budget.
// @Tags budget
// @Accept json
// @Produce json
// @Param request body CommitRequest true "Plan"
// @Success 201 {object} common.Response "Plan committed"
// @Failure 400 {object} common.ProblemDetails "Invalid request"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 422 {object} common.ProblemDetails "Allocations rejected"
// @Router /budget/commit [post]
// @Security Bearer
func Commit(budgets *budgetsvc.Service, jwt *config.Jwt) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c, jwt)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, "missing user context", fiber.StatusUnauthorized)
		}
		input, err := common.BindAndValidate[CommitRequest](c)
		if input == nil {
			return err // error response already written
		}
		in, err := input.toInput()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid goal ID", err, fiber.StatusBadRequest)
		}
		commitment, allocs, err := budgets.Commit(c.UserContext(), userID, in)
		if err != nil {
			log.Errorf("Failed to commit plan %s: %v", in.PlanCode, err)
			return common.ProblemDetailsJSON(c, "Failed to commit plan", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Plan committed", toCommitmentResponse(commitment, allocs))
	}
}
