package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilot/postpilot/internal/service"
)

type RedirectHandler struct {
	s service.LinkService
}

func NewRedirectHandler(s service.LinkService) *RedirectHandler {
	return &RedirectHandler{s: s}
}

func (h *RedirectHandler) Redirect(c *fiber.Ctx) error {
	code := c.Params("code")

	originalURL, err := h.s.TrackClick(c.Context(), code, c.Get("User-Agent"), c.Get("Referer"), c.IP())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to resolve link",
		})
	}

	return c.Redirect(originalURL, fiber.StatusFound)
}
