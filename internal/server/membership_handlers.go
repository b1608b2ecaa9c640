package server

import (
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// JoinCommunity handles POST /api/communities/:slug/join
func (s *Server) JoinCommunity(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	var req struct {
		Message string `json:"message"`
	}
	// The body is optional; a bare POST joins without a request message.
	_ = c.BodyParser(&req)

	result, err := s.membershipService.Join(c.Context(), community.ID, currentUserID(c), req.Message)
	observability.RecordOperation("join", err)
	if err != nil {
		return s.respondAppError(c, err)
	}

	status := fiber.StatusOK
	if result == service.JoinResultJoined || result == service.JoinResultPending {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"result": result})
}

// LeaveCommunity handles POST /api/communities/:slug/leave
func (s *Server) LeaveCommunity(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	err = s.membershipService.Leave(c.Context(), community.ID, currentUserID(c))
	observability.RecordOperation("leave", err)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Left community"})
}

// GetMyRole handles GET /api/communities/:slug/role
func (s *Server) GetMyRole(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}

	status, err := s.membershipService.Status(c.Context(), community.ID, currentUserID(c))
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"role": status})
}

// GetGovernance handles GET /api/communities/:slug/governance.
// Moderator only: the snapshot exposes pending requests and bans.
func (s *Server) GetGovernance(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}
	if err := s.requireModeratorRole(c, community.ID); err != nil {
		return nil
	}

	snapshot, err := s.membershipService.Snapshot(c.Context(), community.ID)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(snapshot)
}

// GetPendingRequests handles GET /api/communities/:slug/requests
func (s *Server) GetPendingRequests(c *fiber.Ctx) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}
	if err := s.requireModeratorRole(c, community.ID); err != nil {
		return nil
	}

	snapshot, err := s.membershipService.Snapshot(c.Context(), community.ID)
	if err != nil {
		return s.respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"requests": snapshot.PendingRequests})
}

// ApproveJoinRequest handles POST /api/communities/:slug/requests/:userId/approve
func (s *Server) ApproveJoinRequest(c *fiber.Ctx) error {
	return s.resolveJoinRequest(c, true)
}

// RejectJoinRequest handles POST /api/communities/:slug/requests/:userId/reject
func (s *Server) RejectJoinRequest(c *fiber.Ctx) error {
	return s.resolveJoinRequest(c, false)
}

func (s *Server) resolveJoinRequest(c *fiber.Ctx, accept bool) error {
	community, err := s.communityBySlug(c)
	if err != nil {
		return nil
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	err = s.membershipService.ApprovePending(c.Context(), community.ID, currentUserID(c), userID, accept)
	observability.RecordOperation("approve_pending", err)
	if err != nil {
		return s.respondAppError(c, err)
	}

	message := "Join request rejected"
	if accept {
		message = "Join request approved"
	}
	return c.JSON(fiber.Map{"message": message})
}

// requireModeratorRole rejects callers without governance rights on the
// community. On failure it writes the response and returns errResponseWritten.
func (s *Server) requireModeratorRole(c *fiber.Ctx, communityID uint) error {
	status, err := s.membershipService.Status(c.Context(), communityID, currentUserID(c))
	if err != nil {
		_ = s.respondAppError(c, err)
		return errResponseWritten
	}
	if status != models.MembershipStatusModerator {
		admin, err := s.isAdminByUserID(c.Context(), currentUserID(c))
		if err != nil {
			_ = models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
			return errResponseWritten
		}
		if !admin {
			_ = models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Moderator access required"))
			return errResponseWritten
		}
	}
	return nil
}
