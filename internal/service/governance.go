// Package service implements the community governance business logic.
package service

import (
	"context"
	"errors"

	"agora/internal/models"

	"gorm.io/gorm"
)

// isModerator reports whether the user governs the community, either through
// a moderator row or via the site-wide admin flag.
func isModerator(ctx context.Context, tx *gorm.DB, communityID, userID uint) (bool, error) {
	var mod models.CommunityModerator
	err := tx.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&mod).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, models.NewInternalError(err)
	}

	var user models.User
	if err := tx.WithContext(ctx).Select("is_admin").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, models.NewInternalError(err)
	}
	return user.IsAdmin, nil
}

// requireModerator gates moderator-only operations.
func requireModerator(ctx context.Context, tx *gorm.DB, communityID, userID uint) error {
	allowed, err := isModerator(ctx, tx, communityID, userID)
	if err != nil {
		return err
	}
	if !allowed {
		return models.NewForbiddenError("Moderator access required")
	}
	return nil
}

// getCommunity loads a community inside the given transaction.
func getCommunity(ctx context.Context, tx *gorm.DB, communityID uint) (*models.Community, error) {
	var community models.Community
	if err := tx.WithContext(ctx).First(&community, communityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", communityID)
		}
		return nil, models.NewInternalError(err)
	}
	return &community, nil
}

// adjustMembersCount applies a relative change to the explicit member counter.
// It must only be called when the corresponding membership insert or delete
// actually affected a row, so the counter always equals the row count.
func adjustMembersCount(ctx context.Context, tx *gorm.DB, communityID uint, delta int) error {
	if err := tx.WithContext(ctx).
		Model(&models.Community{}).
		Where("id = ?", communityID).
		UpdateColumn("members_count", gorm.Expr("members_count + ?", delta)).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
