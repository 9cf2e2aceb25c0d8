package utils

import "github.com/gofiber/fiber/v2"

func JSONSuccess(c *fiber.Ctx, status int, message string, payload interface{}) error {
	body := fiber.Map{"message": message}
	if payload != nil {
		body["data"] = payload
	}
	return c.Status(status).JSON(body)
}

func JSONError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func JSONErrors(c *fiber.Ctx, status int, msgs []string) error {
	return c.Status(status).JSON(fiber.Map{"errors": msgs})
}
