package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilot/postpilot/internal/service"
	"github.com/postpilot/postpilot/internal/transfer"
)

type ScheduleHandler struct {
	s service.ScheduleService
}

func NewScheduleHandler(s service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{s: s}
}

// scheduleStatus maps service errors to HTTP codes. NotFound answers 403 on
// purpose: callers can't probe which ids exist.
func scheduleStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrAuthorization), errors.Is(err, service.ErrNotFound):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *ScheduleHandler) CreateSchedule(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var sc transfer.ScheduleCreation
	if err := c.BodyParser(&sc); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	ids, err := h.s.Create(c.Context(), userID, &sc)
	if err != nil {
		return c.Status(scheduleStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ids": ids,
	})
}

func (h *ScheduleHandler) ListSchedules(c *fiber.Ctx) error {
	userID := GetUserID(c)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	list, err := h.s.List(c.Context(), userID, page, limit)
	if err != nil {
		return c.Status(scheduleStatus(err)).JSON(fiber.Map{
			"error": "Unable to list schedules",
		})
	}

	return c.Status(fiber.StatusOK).JSON(list)
}

func (h *ScheduleHandler) Reschedule(c *fiber.Ctx) error {
	userID := GetUserID(c)

	scheduleID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	var su transfer.ScheduleUpdate
	if err := c.BodyParser(&su); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if err := h.s.Reschedule(c.Context(), userID, scheduleID, su.ScheduledTime); err != nil {
		return c.Status(scheduleStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Schedule updated",
	})
}

func (h *ScheduleHandler) DeleteSchedule(c *fiber.Ctx) error {
	userID := GetUserID(c)

	scheduleID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	if err := h.s.Remove(c.Context(), userID, scheduleID); err != nil {
		return c.Status(scheduleStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
