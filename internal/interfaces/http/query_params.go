package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
)

// pageQuery lee page y limit sin fallar: un valor no numérico queda en 0 y lo ajusta Clamp.
func pageQuery(c *fiber.Ctx) dto.PageRequest {
	return dto.PageRequest{
		Page:  c.QueryInt("page", 0),
		Limit: c.QueryInt("limit", 0),
	}
}
