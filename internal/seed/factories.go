package seed

import (
	"fmt"
	"math/rand"
	"time"

	"agora/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	rand *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Password123!demo"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:        gofakeit.Email(),
		Password:     string(hashed),
		Description:  gofakeit.Sentence(10),
		ProfileImage: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateCommunity persists a sample community and seats the creator as its
// first moderator.
func (f *Factory) CreateCommunity(creator *models.User, overrides ...func(*models.Community)) (*models.Community, error) {
	name := gofakeit.NounCollectiveThing() + fmt.Sprintf("%d", gofakeit.Number(10, 9999))
	community := &models.Community{
		Name:            name,
		Slug:            fmt.Sprintf("c%s", gofakeit.LetterN(10)),
		Description:     gofakeit.Sentence(12),
		Category:        gofakeit.RandomString([]string{"general", "technology", "entertainment", "lifestyle"}),
		Privacy:         models.CommunityPrivacyPublic,
		CreatedByUserID: &creator.ID,
	}
	for _, override := range overrides {
		override(community)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		return tx.Create(&models.CommunityModerator{
			CommunityID: community.ID,
			UserID:      creator.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return community, nil
}

// JoinUsers adds the given users as members and fixes up the member counter.
func (f *Factory) JoinUsers(community *models.Community, users []*models.User) error {
	return f.db.Transaction(func(tx *gorm.DB) error {
		var joined int64
		for _, user := range users {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
				DoNothing: true,
			}).Create(&models.CommunityMembership{
				CommunityID: community.ID,
				UserID:      user.ID,
			})
			if res.Error != nil {
				return res.Error
			}
			joined += res.RowsAffected
		}
		if joined == 0 {
			return nil
		}
		return tx.Model(&models.Community{}).
			Where("id = ?", community.ID).
			UpdateColumn("members_count", gorm.Expr("members_count + ?", joined)).Error
	})
}

// CreateBan persists a sample temporary ban issued by the given moderator.
func (f *Factory) CreateBan(community *models.Community, moderator, target *models.User) (*models.CommunityBan, error) {
	expires := time.Now().Add(time.Duration(1+f.rand.Intn(14)) * 24 * time.Hour)
	ban := &models.CommunityBan{
		CommunityID:    community.ID,
		UserID:         target.ID,
		BannedByUserID: moderator.ID,
		Reason:         gofakeit.Sentence(6),
		ExpiresAt:      &expires,
	}
	if err := f.db.Create(ban).Error; err != nil {
		return nil, err
	}
	return ban, nil
}
