package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"

	"gorm.io/gorm"
)

// CreateCommunityInput carries the fields a creator supplies.
type CreateCommunityInput struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Category    string                  `json:"category"`
	Privacy     models.CommunityPrivacy `json:"privacy"`
}

// UpdateCommunityInput carries the mutable community fields. Nil pointers
// leave the field unchanged.
type UpdateCommunityInput struct {
	Description *string                  `json:"description"`
	Category    *string                  `json:"category"`
	Privacy     *models.CommunityPrivacy `json:"privacy"`
}

// CommunityService manages community lifecycle and discovery.
type CommunityService struct {
	db          *gorm.DB
	communities repository.CommunityRepository
	now         func() time.Time
}

// NewCommunityService returns a new CommunityService.
func NewCommunityService(db *gorm.DB, communities repository.CommunityRepository) *CommunityService {
	return &CommunityService{db: db, communities: communities, now: time.Now}
}

// Create makes a community and seats the creator as its first moderator.
// The creator governs but is not a member until they join like anyone else.
func (s *CommunityService) Create(ctx context.Context, creatorID uint, input CreateCommunityInput) (*models.Community, error) {
	name := strings.TrimSpace(input.Name)
	if err := validation.ValidateCommunityName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	slug := validation.SlugFromName(name)
	if err := validation.ValidateCommunitySlug(slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	privacy := input.Privacy
	if privacy == "" {
		privacy = models.CommunityPrivacyPublic
	}
	if privacy != models.CommunityPrivacyPublic && privacy != models.CommunityPrivacyRestricted {
		return nil, models.NewValidationError("Privacy must be public or restricted")
	}

	community := models.Community{
		Name:            name,
		Slug:            slug,
		Description:     input.Description,
		Category:        input.Category,
		Privacy:         privacy,
		CreatedByUserID: &creatorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Community{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		if count > 0 {
			return models.NewConflictError("A community with this name already exists")
		}

		if err := tx.Create(&community).Error; err != nil {
			return models.NewInternalError(err)
		}

		moderator := models.CommunityModerator{
			CommunityID: community.ID,
			UserID:      creatorID,
		}
		if err := tx.Create(&moderator).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &community, nil
}

// GetBySlug fetches a community for a viewer. Actively banned viewers are
// refused so a ban hides the community, not just its membership actions.
// A zero viewerID means an anonymous request.
func (s *CommunityService) GetBySlug(ctx context.Context, slug string, viewerID uint) (*models.Community, error) {
	community, err := s.communities.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if viewerID != 0 {
		var ban models.CommunityBan
		err := s.db.WithContext(ctx).
			Where("community_id = ? AND user_id = ?", community.ID, viewerID).
			First(&ban).Error
		if err == nil && ban.ActiveAt(s.now()) {
			return nil, models.NewForbiddenError("You are banned from this community")
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewInternalError(err)
		}
	}
	return community, nil
}

// Update edits community metadata. Moderator only.
func (s *CommunityService) Update(ctx context.Context, communityID, actorID uint, input UpdateCommunityInput) (*models.Community, error) {
	var updated models.Community

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		community, err := getCommunity(ctx, tx, communityID)
		if err != nil {
			return err
		}
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}

		if input.Description != nil {
			community.Description = *input.Description
		}
		if input.Category != nil {
			community.Category = *input.Category
		}
		if input.Privacy != nil {
			if *input.Privacy != models.CommunityPrivacyPublic && *input.Privacy != models.CommunityPrivacyRestricted {
				return models.NewValidationError("Privacy must be public or restricted")
			}
			community.Privacy = *input.Privacy
		}

		if err := tx.Save(community).Error; err != nil {
			return models.NewInternalError(err)
		}
		updated = *community
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateCommunity(ctx, updated.Slug)
	return &updated, nil
}

// Delete removes a community and all of its governance rows. Moderator only.
func (s *CommunityService) Delete(ctx context.Context, communityID, actorID uint) error {
	var slug string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		community, err := getCommunity(ctx, tx, communityID)
		if err != nil {
			return err
		}
		if err := requireModerator(ctx, tx, communityID, actorID); err != nil {
			return err
		}
		slug = community.Slug
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.communities.Delete(ctx, communityID); err != nil {
		return err
	}

	cache.InvalidateCommunity(ctx, slug)
	cache.InvalidateGovernance(ctx, communityID)
	return nil
}

// List returns communities for browsing. Communities the viewer is actively
// banned from are omitted.
func (s *CommunityService) List(ctx context.Context, viewerID uint, limit, offset int) ([]models.Community, error) {
	var exclude *uint
	if viewerID != 0 {
		exclude = &viewerID
	}
	return s.communities.List(ctx, exclude, limit, offset)
}

// Trending returns the largest communities, optionally within a category.
func (s *CommunityService) Trending(ctx context.Context, category string, viewerID uint, limit int) ([]models.Community, error) {
	var exclude *uint
	if viewerID != 0 {
		exclude = &viewerID
	}
	return s.communities.Trending(ctx, category, exclude, limit)
}

// ByFirstLetter returns communities whose name starts with the letter,
// for the alphabetical directory.
func (s *CommunityService) ByFirstLetter(ctx context.Context, letter string) ([]models.Community, error) {
	letter = strings.ToLower(strings.TrimSpace(letter))
	if len(letter) != 1 || letter[0] < 'a' || letter[0] > 'z' {
		return nil, models.NewValidationError("Letter must be a single character a-z")
	}
	return s.communities.ByFirstLetter(ctx, letter)
}
