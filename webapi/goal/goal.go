// Package goal exposes the life-context, goal and progress endpoints.
package goal

import (
	"github.com/amirasaad/finplan/pkg/config"
	"github.com/amirasaad/finplan/pkg/middleware"
	goalsvc "github.com/amirasaad/finplan/pkg/service/goal"
	progresssvc "github.com/amirasaad/finplan/pkg/service/progress"
	"github.com/amirasaad/finplan/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Routes registers the goal endpoints. All of them require a valid JWT.
//
// Routes:
//   - PUT    /life-context    : Upsert the life context and re-rank goals.
//   - POST   /goals/submit    : Create goals and return their ranks.
//   - GET    /goals           : List goals in rank order.
//   - GET    /goals/progress  : Latest progress and milestones per goal.
//   - PATCH  /goals/:id       : Update an active goal.
//   - DELETE /goals/:id       : Archive a goal.
func Routes(
	app *fiber.App,
	goals *goalsvc.Service,
	progress *progresssvc.Service,
	jwt *config.Jwt,
) {
	protected := middleware.JwtProtected(jwt)
	app.Put("/life-context", protected, UpsertLifeContext(goals, jwt))
	app.Post("/goals/submit", protected, Submit(goals, jwt))
	app.Get("/goals", protected, List(goals, jwt))
	app.Get("/goals/progress", protected, Progress(progress, jwt))
	app.Patch("/goals/:id", protected, Update(goals, jwt))
	app.Delete("/goals/:id", protected, Archive(goals, jwt))
}

func currentUser(c *fiber.Ctx, jwt *config.Jwt) (uuid.UUID, error) {
	userID, err := middleware.UserID(c, jwt)
	if err != nil {
		log.Errorf("Failed to read user from token: %v", err)
		return uuid.Nil, common.ProblemDetailsJSON(c, "Unauthorized", err, "missing user context", fiber.StatusUnauthorized)
	}
	return userID, nil
}

// UpsertLifeContext returns a handler storing the caller's life context.
// @Summary Upsert life context
// @Tags goals
// @Accept json
// @Produce json
// @Param request body LifeContextRequest true "Life context"
// @Success 200 {object} common.Response "Life context saved, goals re-ranked"
// @Failure 400 {object} common.ProblemDetails "Invalid request"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 422 {object} common.ProblemDetails "Invalid life context"
// @Router /life-context [put]
// @Security Bearer
func UpsertLifeContext(goals *goalsvc.Service, jwt *config.Jwt) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, jwt)
		if userID == uuid.Nil {
			return err
		}
		input, err := common.BindAndValidate[LifeContextRequest](c)
		if input == nil {
			return err // error response already written
		}
		ranked, err := goals.UpsertLifeContext(c.UserContext(), input.toDomain(userID))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to save life context", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Life context saved", fiber.Map{
			"goals": toGoalDTOs(ranked),
		})
	}
}

// Submit returns a handler creating goals for the caller.
// @Summary Submit goals
// @Description Creates goals and recomputes the ranking of every active goal.
// @Tags goals
// @Accept json
// @Produce json
// @Param request body SubmitRequest true "Goals"
// @Success 201 {object} common.Response "Goals created"
// @Failure 400 {object} common.ProblemDetails "Invalid request"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 422 {object} common.ProblemDetails "Invalid goal"
// @Router /goals/submit [post]
// @Security Bearer
func Submit(goals *goalsvc.Service, jwt *config.Jwt) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, jwt)
		if userID == uuid.Nil {
			return err
		}
		input, err := common.BindAndValidate[SubmitRequest](c)
		if input == nil {
			return err // error response already written
		}
		inputs, err := input.toInputs()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid target date", err, fiber.StatusBadRequest)
		}
		created, err := goals.Submit(c.UserContext(), userID, inputs)
		if err != nil {
			log.Errorf("Failed to submit goals: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to submit goals", err)
		}
		resp := SubmitResponse{GoalsCreated: make([]CreatedGoal, 0, len(created))}
		for _, g := range created {
			resp.GoalsCreated = append(resp.GoalsCreated, CreatedGoal{
				GoalID:       g.ID.String(),
				PriorityRank: g.PriorityRank,
			})
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Goals created", resp)
	}
}

// List returns a handler listing the caller's goals, active ones by rank.
// @Summary List goals
// @Tags goals
// @Produce json
// @Success 200 {object} common.Response "Goals"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Router /goals [get]
// @Security Bearer
func List(goals *goalsvc.Service, jwt *config.Jwt) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, jwt)
		if userID == uuid.Nil {
			return err
		}
		list, err := goals.List(c.UserContext(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list goals", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Goals fetched", toGoalDTOs(list))
	}
}

// Update returns a handler changing fields of an active goal.
// @Summary Update a goal
// @Tags goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param request body UpdateRequest true "Changed fields"
// @Success 200 {object} common.Response "Goal updated"
// @Failure 400 {object} common.ProblemDetails "Invalid request"
// @Failure 404 {object} common.ProblemDetails "Goal not found"
// @Failure 422 {object} common.ProblemDetails "Invalid goal"
// @Router /goals/{id} [patch]
// @Security Bearer
func Update(goals *goalsvc.Service, jwt *config.Jwt) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, jwt)
		if userID == uuid.Nil {
			return err
		}
		goalID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid goal ID", err, "Goal ID must be a valid UUID", fiber.StatusBadRequest)
		}
		input, err := common.BindAndValidate[UpdateRequest](c)
		if input == nil {
			return err // error response already written
		}
		upd, err := input.toUpdate()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid target date", err, fiber.StatusBadRequest)
		}
		g, err := goals.Update(c.UserContext(), userID, goalID, upd)
		if err != nil {
			log.Errorf("Failed to update goal %s: %v", goalID, err)
			return common.ProblemDetailsJSON(c, "Failed to update goal", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Goal updated", toGoalDTO(g))
	}
}

// Archive returns a handler soft-deleting a goal.
// @Summary Archive a goal
// @Tags goals
// @Param id path string true "Goal ID"
// @Success 200 {object} common.Response "Goal archived"
// @Failure 400 {object} common.ProblemDetails "Invalid goal ID"
// @Failure 404 {object} common.ProblemDetails "Goal not found"
// @Router /goals/{id} [delete]
// @Security Bearer
func Archive(goals *goalsvc.Service, jwt *config.Jwt) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, jwt)
		if userID == uuid.Nil {
			return err
		}
		goalID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid goal ID", err, "Goal ID must be a valid UUID", fiber.StatusBadRequest)
		}
		if err := goals.Archive(c.UserContext(), userID, goalID); err != nil {
			log.Errorf("Failed to archive goal %s: %v", goalID, err)
			return common.ProblemDetailsJSON(c, "Failed to archive goal", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Goal archived", fiber.Map{"goal_id": goalID.String()})
	}
}

// Progress returns a handler with the latest snapshot and milestones of
// every goal.
// @Summary Goal progress
// @Tags goals
// @Produce json
// @Success 200 {object} common.Response "Progress"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Router /goals/progress [get]
// @Security Bearer
func Progress(progress *progresssvc.Service, jwt *config.Jwt) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := currentUser(c, jwt)
		if userID == uuid.Nil {
			return err
		}
		out, err := progress.GoalsProgress(c.UserContext(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to load progress", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Progress fetched", toProgressResponse(out))
	}
}
