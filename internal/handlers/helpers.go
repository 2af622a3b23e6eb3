package handlers

import (
	"errors"

	"catapi/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

// notFound gives a missing-record error a resource-specific message.
func notFound(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, message)
	}
	return err
}

// conflict gives a duplicate-key error a resource-specific message.
func conflict(err error, message string) error {
	if errors.Is(err, repositories.ErrDuplicate) {
		return fiber.NewError(fiber.StatusConflict, message)
	}
	return err
}
