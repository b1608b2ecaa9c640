package server

import (
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetBans handles GET /api/communities/:slug/bans
func (s *Server) GetBans(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	bans, err := s.banService.ListBans(c.Context(), community.ID, currentUserID(c))
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"bans": bans})
}

// BanUser handles POST /api/communities/:slug/bans
func (s *Server) BanUser(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	var input service.BanInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ban, err := s.banService.Ban(c.Context(), community.ID, currentUserID(c), input)
	observability.RecordOperation("ban", err)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ban)
}

// UnbanUser handles DELETE /api/communities/:slug/bans/:userId
func (s *Server) UnbanUser(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	err = s.banService.Unban(c.Context(), community.ID, currentUserID(c), userID)
	observability.RecordOperation("unban", err)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Ban lifted"})
}
