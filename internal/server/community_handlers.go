package server

import (
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCommunities handles GET /api/communities
func (s *Server) GetCommunities(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	communities, err := s.communityService.List(c.Context(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"communities": communities,
		"limit":       p.Limit,
		"offset":      p.Offset,
	})
}

// GetTrendingCommunities handles GET /api/communities/trending
func (s *Server) GetTrendingCommunities(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit <= 0 || limit > maxPaginationLimit {
		limit = 10
	}

	communities, err := s.communityService.Trending(c.Context(), c.Query("category"), currentUserID(c), limit)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"communities": communities})
}

// GetCommunitiesByLetter handles GET /api/communities/letter/:letter
func (s *Server) GetCommunitiesByLetter(c *fiber.Ctx) error {
	communities, err := s.communityService.ByFirstLetter(c.Context(), c.Params("letter"))
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"communities": communities})
}

// GetCommunityBySlug handles GET /api/communities/:slug
func (s *Server) GetCommunityBySlug(c *fiber.Ctx) error {
	community, err := s.communityService.GetBySlug(c.Context(), c.Params("slug"), currentUserID(c))
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(community)
}

// CreateCommunity handles POST /api/communities
func (s *Server) CreateCommunity(c *fiber.Ctx) error {
	var input service.CreateCommunityInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	community, err := s.communityService.Create(c.Context(), currentUserID(c), input)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(community)
}

// UpdateCommunity handles PUT /api/communities/:slug
func (s *Server) UpdateCommunity(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	var input service.UpdateCommunityInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	updated, err := s.communityService.Update(c.Context(), community.ID, currentUserID(c), input)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(updated)
}

// DeleteCommunity handles DELETE /api/communities/:slug
func (s *Server) DeleteCommunity(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	if err := s.communityService.Delete(c.Context(), community.ID, currentUserID(c)); err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Community deleted"})
}

// GetCommunityRules handles GET /api/communities/:slug/rules
func (s *Server) GetCommunityRules(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	rules, err := s.moderationService.ListRules(c.Context(), community.ID)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"rules": rules})
}

// GetCommunityFlairs handles GET /api/communities/:slug/flairs
func (s *Server) GetCommunityFlairs(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	flairs, err := s.moderationService.ListFlairs(c.Context(), community.ID)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"flairs": flairs})
}
