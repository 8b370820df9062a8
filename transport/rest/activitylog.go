package rest

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/vitalkeep/vitalkeep"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

type ActivityController struct {
	Store vitalkeep.ActivityStore
}

func (c *ActivityController) InstallTo(app *fiber.App) {
	app.Get("/activities", c.serveRecentActivity)
}

func (c *ActivityController) serveRecentActivity(ctx *fiber.Ctx) error {
	beforeId := int64(-1)
	if before := ctx.Query("before"); before != "" {
		id, err := strconv.ParseInt(before, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid before")
		}
		beforeId = id
	}
	limit := defaultActivityLimit
	if l := ctx.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid limit")
		}
		if n > maxActivityLimit {
			n = maxActivityLimit
		}
		limit = n
	}

	logs, err := c.Store.Recent(ctx.Context(), beforeId, limit)
	if err != nil {
		return fmt.Errorf("get recent logs: %w", err)
	}

	type Log struct {
		Id        int64                  `json:"id"`
		CreatedAt int64                  `json:"createdAt"`
		Name      string                 `json:"name"`
		Data      map[string]interface{} `json:"data,omitempty"`
	}
	mapped := make([]Log, len(logs))
	for i, log := range logs {
		mapped[i] = Log{Id: log.Id, CreatedAt: log.CreatedAt.Unix(), Name: log.Name, Data: log.Data}
	}
	return ctx.JSON(mapped)
}
