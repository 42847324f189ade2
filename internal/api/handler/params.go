package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// Route params and form values alias the request buffer, which fasthttp
// reuses for the next request. Anything that outlives the handler (hub
// events, gallery entries) must hold a copy.

func param(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Params(key))
}

func formValue(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.FormValue(key))
}
