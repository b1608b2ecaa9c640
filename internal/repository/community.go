package repository

import (
	"context"
	"errors"
	"time"

	"agora/internal/cache"
	"agora/internal/models"

	"gorm.io/gorm"
)

// CommunityRepository defines persistence operations for communities and
// the user-side views derived from the governance tables.
type CommunityRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Community, error)
	GetBySlug(ctx context.Context, slug string) (*models.Community, error)
	Create(ctx context.Context, community *models.Community) error
	Update(ctx context.Context, community *models.Community) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, excludeBannedUserID *uint, limit, offset int) ([]models.Community, error)
	Trending(ctx context.Context, category string, excludeBannedUserID *uint, limit int) ([]models.Community, error)
	ByFirstLetter(ctx context.Context, letter string) ([]models.Community, error)

	// User-side derived views. The community-keyed governance tables are
	// authoritative; these queries are the read-time mirror of
	// joined/pending/bannedFrom/moderated.
	JoinedCommunities(ctx context.Context, userID uint) ([]models.Community, error)
	PendingCommunities(ctx context.Context, userID uint) ([]models.JoinRequest, error)
	BannedFromCommunities(ctx context.Context, userID uint, now time.Time) ([]models.Community, error)
	ModeratedCommunities(ctx context.Context, userID uint) ([]models.Community, error)
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository returns a new CommunityRepository implementation.
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) GetByID(ctx context.Context, id uint) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &community, nil
}

func (r *communityRepository) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	key := cache.CommunityKey(slug)

	err := cache.Aside(ctx, key, &community, cache.CommunityTTL, func() error {
		if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&community).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Community", slug)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *communityRepository) Create(ctx context.Context, community *models.Community) error {
	if err := r.db.WithContext(ctx).Create(community).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *communityRepository) Update(ctx context.Context, community *models.Community) error {
	if err := r.db.WithContext(ctx).Save(community).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *communityRepository) Delete(ctx context.Context, id uint) error {
	// Governance rows are keyed by community and die with it.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.CommunityMembership{},
			&models.CommunityModerator{},
			&models.ModeratorInvite{},
			&models.JoinRequest{},
			&models.CommunityBan{},
			&models.CommunityRule{},
			&models.Flair{},
		} {
			if err := tx.Where("community_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Community{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// bannedScope filters out communities the given user has an active ban in.
func bannedScope(userID uint, now time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"communities.id NOT IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Model(&models.CommunityBan{}).
				Select("community_id").
				Where("user_id = ? AND (permanent = ? OR expires_at > ?)", userID, true, now),
		)
	}
}

func (r *communityRepository) List(ctx context.Context, excludeBannedUserID *uint, limit, offset int) ([]models.Community, error) {
	q := r.db.WithContext(ctx).Model(&models.Community{}).Order("created_at DESC")
	if excludeBannedUserID != nil {
		q = q.Scopes(bannedScope(*excludeBannedUserID, time.Now().UTC()))
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	var communities []models.Community
	if err := q.Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) Trending(ctx context.Context, category string, excludeBannedUserID *uint, limit int) ([]models.Community, error) {
	q := r.db.WithContext(ctx).Model(&models.Community{}).Order("members_count DESC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if excludeBannedUserID != nil {
		q = q.Scopes(bannedScope(*excludeBannedUserID, time.Now().UTC()))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var communities []models.Community
	if err := q.Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) ByFirstLetter(ctx context.Context, letter string) ([]models.Community, error) {
	var communities []models.Community
	if err := r.db.WithContext(ctx).
		Where("LOWER(SUBSTR(name, 1, 1)) = LOWER(?)", letter).
		Order("name ASC").
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) JoinedCommunities(ctx context.Context, userID uint) ([]models.Community, error) {
	var communities []models.Community
	if err := r.db.WithContext(ctx).
		Joins("JOIN community_memberships m ON m.community_id = communities.id").
		Where("m.user_id = ?", userID).
		Order("communities.name ASC").
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) PendingCommunities(ctx context.Context, userID uint) ([]models.JoinRequest, error) {
	var requests []models.JoinRequest
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Community").
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *communityRepository) BannedFromCommunities(ctx context.Context, userID uint, now time.Time) ([]models.Community, error) {
	var communities []models.Community
	if err := r.db.WithContext(ctx).
		Joins("JOIN community_bans b ON b.community_id = communities.id").
		Where("b.user_id = ? AND (b.permanent = ? OR b.expires_at > ?)", userID, true, now).
		Order("communities.name ASC").
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) ModeratedCommunities(ctx context.Context, userID uint) ([]models.Community, error) {
	var communities []models.Community
	if err := r.db.WithContext(ctx).
		Joins("JOIN community_moderators m ON m.community_id = communities.id").
		Where("m.user_id = ?", userID).
		Order("communities.name ASC").
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}
