package server

import (
	"time"

	"agora/internal/cache"
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.Context(), currentUserID(c))
	if err != nil {
		return s.respondAppError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", currentUserID(c)))
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		Description  *string `json:"description"`
		ProfileImage *string `json:"profile_image"`
		CoverImage   *string `json:"cover_image"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return s.respondAppError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", currentUserID(c)))
	}

	if req.Description != nil {
		user.Description = *req.Description
	}
	if req.ProfileImage != nil {
		user.ProfileImage = *req.ProfileImage
	}
	if req.CoverImage != nil {
		user.CoverImage = *req.CoverImage
	}

	if err := s.userRepo.Update(c.Context(), user); err != nil {
		return s.respondAppError(c, err)
	}

	cache.InvalidateUser(c.Context(), userID)
	return c.JSON(user)
}

// GetMyCommunities handles GET /api/users/me/communities
func (s *Server) GetMyCommunities(c *fiber.Ctx) error {
	communities, err := s.communityRepo.JoinedCommunities(c.Context(), currentUserID(c))
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"communities": communities})
}

// GetMyPendingRequests handles GET /api/users/me/pending
func (s *Server) GetMyPendingRequests(c *fiber.Ctx) error {
	requests, err := s.communityRepo.PendingCommunities(c.Context(), currentUserID(c))
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"requests": requests})
}

// GetMyBans handles GET /api/users/me/banned-from
func (s *Server) GetMyBans(c *fiber.Ctx) error {
	communities, err := s.communityRepo.BannedFromCommunities(c.Context(), currentUserID(c), time.Now())
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"communities": communities})
}

// GetMyModeratedCommunities handles GET /api/users/me/moderated
func (s *Server) GetMyModeratedCommunities(c *fiber.Ctx) error {
	communities, err := s.communityRepo.ModeratedCommunities(c.Context(), currentUserID(c))
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"communities": communities})
}

// GetMyModeratorInvites handles GET /api/users/me/invites
func (s *Server) GetMyModeratorInvites(c *fiber.Ctx) error {
	invites, err := s.moderationService.MyInvites(c.Context(), currentUserID(c))
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"invites": invites})
}
