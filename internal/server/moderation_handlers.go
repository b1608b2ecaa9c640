package server

import (
	"agora/internal/models"
	"agora/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// InviteModerator handles POST /api/communities/:slug/moderators/invite
func (s *Server) InviteModerator(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	invite, err := s.moderationService.InviteModerator(c.Context(), community.ID, currentUserID(c), req.Username)
	observability.RecordOperation("invite_moderator", err)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invite)
}

// AnswerModeratorInvite handles POST /api/communities/:slug/moderators/respond
func (s *Server) AnswerModeratorInvite(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	var req struct {
		Accept bool `json:"accept"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	err = s.moderationService.AnswerModeratorInvite(c.Context(), community.ID, currentUserID(c), req.Accept)
	observability.RecordOperation("answer_moderator_invite", err)
	if err != nil {
		return s.respondAppError(c, err)
	}

	message := "Invitation declined"
	if req.Accept {
		message = "You are now a moderator"
	}
	return c.JSON(fiber.Map{"message": message})
}

// RemoveModerator handles DELETE /api/communities/:slug/moderators/:userId
func (s *Server) RemoveModerator(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	err = s.moderationService.RemoveModerator(c.Context(), community.ID, currentUserID(c), userID)
	observability.RecordOperation("remove_moderator", err)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Moderator removed"})
}

// CreateCommunityRule handles POST /api/communities/:slug/rules
func (s *Server) CreateCommunityRule(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	rule, err := s.moderationService.AddRule(c.Context(), community.ID, currentUserID(c), req.Title, req.Description)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rule)
}

// DeleteCommunityRule handles DELETE /api/communities/:slug/rules/:ruleId
func (s *Server) DeleteCommunityRule(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}
	ruleID, err := s.parseID(c, "ruleId")
	if err != nil {
		return nil
	}

	if err := s.moderationService.DeleteRule(c.Context(), community.ID, currentUserID(c), ruleID); err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Rule deleted"})
}

// CreateCommunityFlair handles POST /api/communities/:slug/flairs
func (s *Server) CreateCommunityFlair(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	flair, err := s.moderationService.AddFlair(c.Context(), community.ID, currentUserID(c), req.Name, req.Color)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(flair)
}

// DeleteCommunityFlair handles DELETE /api/communities/:slug/flairs/:flairId
func (s *Server) DeleteCommunityFlair(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}
	flairID, err := s.parseID(c, "flairId")
	if err != nil {
		return nil
	}

	if err := s.moderationService.DeleteFlair(c.Context(), community.ID, currentUserID(c), flairID); err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Flair deleted"})
}
