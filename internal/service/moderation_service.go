package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"agora/internal/cache"
	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ModerationService manages moderator invitations and community curation
// (rules and flairs).
type ModerationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewModerationService returns a new ModerationService.
func NewModerationService(db *gorm.DB) *ModerationService {
	return &ModerationService{db: db, now: time.Now}
}

// InviteModerator offers moderator status to a user by username. The invite
// only takes effect once the invitee accepts. Inviting an existing moderator
// or re-inviting an already invited user fails with a conflict.
func (s *ModerationService) InviteModerator(ctx context.Context, communityID, actorID uint, username string) (*models.ModeratorInvite, error) {
	if username == "" {
		return nil, models.NewValidationError("Username is required")
	}

	var invite models.ModeratorInvite

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCommunity(ctx, tx, communityID); err != nil {
			return err
		}
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}

		var target models.User
		err := tx.Where("username = ?", username).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", username)
		}
		if err != nil {
			return models.NewInternalError(err)
		}

		var count int64
		if err := tx.Model(&models.CommunityModerator{}).
			Where("community_id = ? AND user_id = ?", communityID, target.ID).
			Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		if count > 0 {
			return models.NewConflictError("User is already a moderator")
		}

		invite = models.ModeratorInvite{
			CommunityID:     communityID,
			UserID:          target.ID,
			InvitedByUserID: actorID,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&invite)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("User already has a pending invitation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateGovernance(ctx, communityID)
	return &invite, nil
}

// AnswerModeratorInvite resolves the caller's pending invitation. Accepting
// grants moderator status only; a moderator governs without being a member
// unless they join separately. Declining just discards the invite.
func (s *ModerationService) AnswerModeratorInvite(ctx context.Context, communityID, userID uint, accept bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCommunity(ctx, tx, communityID); err != nil {
			return err
		}

		res := tx.Where("community_id = ? AND user_id = ?", communityID, userID).
			Delete(&models.ModeratorInvite{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			ok, err := isModerator(ctx, tx, communityID, userID)
			if err != nil {
				return err
			}
			if ok {
				// Invite already consumed, nothing left to do.
				return nil
			}
			return models.NewInvalidStateError("No pending moderator invitation")
		}

		if !accept {
			return nil
		}

		moderator := models.CommunityModerator{
			CommunityID: communityID,
			UserID:      userID,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&moderator).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateGovernance(ctx, communityID)
	return nil
}

// MyInvites returns the user's pending moderator invitations across all
// communities, newest first.
func (s *ModerationService) MyInvites(ctx context.Context, userID uint) ([]models.ModeratorInvite, error) {
	var invites []models.ModeratorInvite
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Community").Preload("InvitedByUser").
		Order("created_at DESC").
		Find(&invites).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return invites, nil
}

// RemoveModerator strips another moderator's governance rights. The last
// moderator cannot be removed so the community never becomes ungoverned.
func (s *ModerationService) RemoveModerator(ctx context.Context, communityID, actorID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCommunity(ctx, tx, communityID); err != nil {
			return err
		}
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.CommunityModerator{}).
			Where("community_id = ?", communityID).
			Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		if count <= 1 {
			return models.NewInvalidStateError("Cannot remove the last moderator")
		}

		res := tx.Where("community_id = ? AND user_id = ?", communityID, userID).
			Delete(&models.CommunityModerator{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewInvalidStateError("User is not a moderator")
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateGovernance(ctx, communityID)
	return nil
}

// AddRule appends a rule to the community's rulebook.
func (s *ModerationService) AddRule(ctx context.Context, communityID, actorID uint, title, description string) (*models.CommunityRule, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, models.NewValidationError("Rule title is required")
	}

	var rule models.CommunityRule

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCommunity(ctx, tx, communityID); err != nil {
			return err
		}
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}

		rule = models.CommunityRule{
			CommunityID: communityID,
			Title:       title,
			Description: description,
		}
		if err := tx.Create(&rule).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// DeleteRule removes a rule. Bans citing the rule keep their reason text but
// lose the reference.
func (s *ModerationService) DeleteRule(ctx context.Context, communityID, actorID, ruleID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCommunity(ctx, tx, communityID); err != nil {
			return err
		}
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}

		if err := tx.Model(&models.CommunityBan{}).
			Where("community_id = ? AND rule_id = ?", communityID, ruleID).
			Update("rule_id", nil).Error; err != nil {
			return models.NewInternalError(err)
		}

		res := tx.Where("id = ? AND community_id = ?", ruleID, communityID).
			Delete(&models.CommunityRule{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Rule", ruleID)
		}
		return nil
	})
}

// ListRules returns the community's rules in creation order.
func (s *ModerationService) ListRules(ctx context.Context, communityID uint) ([]models.CommunityRule, error) {
	var rules []models.CommunityRule
	if err := s.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("id ASC").
		Find(&rules).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rules, nil
}

// AddFlair creates a post flair for the community.
func (s *ModerationService) AddFlair(ctx context.Context, communityID, actorID uint, name, color string) (*models.Flair, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Flair name is required")
	}

	var flair models.Flair

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCommunity(ctx, tx, communityID); err != nil {
			return err
		}
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}

		flair = models.Flair{
			CommunityID: communityID,
			Name:        name,
			Color:       color,
		}
		if err := tx.Create(&flair).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &flair, nil
}

// DeleteFlair removes a flair by id.
func (s *ModerationService) DeleteFlair(ctx context.Context, communityID, actorID, flairID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCommunity(ctx, tx, communityID); err != nil {
			return err
		}
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}

		res := tx.Where("id = ? AND community_id = ?", flairID, communityID).
			Delete(&models.Flair{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Flair", flairID)
		}
		return nil
	})
}

// ListFlairs returns the community's flairs.
func (s *ModerationService) ListFlairs(ctx context.Context, communityID uint) ([]models.Flair, error) {
	var flairs []models.Flair
	if err := s.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("id ASC").
		Find(&flairs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return flairs, nil
}
