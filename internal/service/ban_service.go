package service

import (
	"context"
	"errors"
	"time"

	"agora/internal/cache"
	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BanInput describes a ban to issue. Exactly one of Permanent or a positive
// Days must be set.
type BanInput struct {
	Username  string `json:"username"`
	Reason    string `json:"reason"`
	RuleID    *uint  `json:"rule_id"`
	Days      int    `json:"days"`
	Permanent bool   `json:"permanent"`
}

// BanService issues, lifts and inspects community bans.
type BanService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBanService returns a new BanService.
func NewBanService(db *gorm.DB) *BanService {
	return &BanService{db: db, now: time.Now}
}

// Ban excludes a user from the community. The banned user loses membership
// and any pending join request in the same transaction. Re-banning an
// already banned user replaces the previous ban, so the latest issuance
// decides reason and duration.
func (s *BanService) Ban(ctx context.Context, communityID, actorID uint, input BanInput) (*models.CommunityBan, error) {
	if input.Username == "" {
		return nil, models.NewValidationError("Username is required")
	}
	if !input.Permanent && input.Days <= 0 {
		return nil, models.NewValidationError("Ban must be permanent or last at least one day")
	}

	var ban models.CommunityBan
	var slug string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		community, err := getCommunity(ctx, tx, communityID)
		if err != nil {
			return err
		}
		slug = community.Slug
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}

		var target models.User
		err = tx.Where("username = ?", input.Username).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", input.Username)
		}
		if err != nil {
			return models.NewInternalError(err)
		}
		if target.ID == actorID {
			return models.NewValidationError("You cannot ban yourself")
		}

		now := s.now()
		ban = models.CommunityBan{
			CommunityID:    communityID,
			UserID:         target.ID,
			BannedByUserID: actorID,
			Reason:         input.Reason,
			RuleID:         input.RuleID,
			Permanent:      input.Permanent,
			CreatedAt:      now,
		}
		if !input.Permanent {
			expires := now.Add(time.Duration(input.Days) * 24 * time.Hour)
			ban.ExpiresAt = &expires
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"banned_by_user_id", "reason", "rule_id", "permanent", "expires_at", "created_at", "updated_at",
			}),
		}).Create(&ban).Error; err != nil {
			return models.NewInternalError(err)
		}

		res := tx.Where("community_id = ? AND user_id = ?", communityID, target.ID).
			Delete(&models.CommunityMembership{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected > 0 {
			if err := adjustMembersCount(ctx, tx, communityID, -1); err != nil {
				return err
			}
		}

		if err := tx.Where("community_id = ? AND user_id = ?", communityID, target.ID).
			Delete(&models.JoinRequest{}).Error; err != nil {
			return models.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateGovernance(ctx, communityID)
	cache.InvalidateCommunity(ctx, slug)
	return &ban, nil
}

// Unban lifts a ban early. The user does not regain membership; they may
// rejoin through the normal path.
func (s *BanService) Unban(ctx context.Context, communityID, actorID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCommunity(ctx, tx, communityID); err != nil {
			return err
		}
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}

		// Lifting a ban that does not exist is a no-op, not an error.
		if err := tx.Where("community_id = ? AND user_id = ?", communityID, userID).
			Delete(&models.CommunityBan{}).Error; err != nil {
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

// ListBans returns the community's active bans, newest first.
// Expired temporary bans the sweeper has not removed yet are filtered out.
func (s *BanService) ListBans(ctx context.Context, communityID, actorID uint) ([]models.CommunityBan, error) {
	var bans []models.CommunityBan

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCommunity(ctx, tx, communityID); err != nil {
			return err
		}
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}

		if err := tx.Where("community_id = ? AND (permanent = ? OR expires_at > ?)",
			communityID, true, s.now()).
			Preload("User").Preload("Rule").
			Order("created_at DESC").
			Find(&bans).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bans, nil
}

// ActiveBan returns the user's active ban in the community, or nil.
func (s *BanService) ActiveBan(ctx context.Context, communityID, userID uint) (*models.CommunityBan, error) {
	var ban models.CommunityBan
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&ban).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ban.ActiveAt(s.now()) {
		return nil, nil
	}
	return &ban, nil
}
