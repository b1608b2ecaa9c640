package service

import (
	"context"
	"testing"
	"time"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanRemovesMembership(t *testing.T) {
	db := setupTestDB(t)
	bans := NewBanService(db)
	members := NewMembershipService(db)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bans.now = fixedClock(now)
	members.now = fixedClock(now)

	creator := createTestUser(t, db, "creator")
	target := createTestUser(t, db, "troll")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := members.Join(context.Background(), community.ID, target.ID, "")
	require.NoError(t, err)

	ban, err := bans.Ban(context.Background(), community.ID, creator.ID, BanInput{
		Username: "troll",
		Reason:   "spam",
		Days:     7,
	})
	require.NoError(t, err)
	require.NotNil(t, ban.ExpiresAt)
	assert.Equal(t, now.Add(7*24*time.Hour), ban.ExpiresAt.UTC())
	assert.False(t, ban.Permanent)

	var got models.Community
	require.NoError(t, db.First(&got, community.ID).Error)
	assert.Equal(t, int64(0), got.MembersCount)

	status, err := members.Status(context.Background(), community.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusBanned, status)
}

func TestBanClearsPendingRequest(t *testing.T) {
	db := setupTestDB(t)
	bans := NewBanService(db)
	members := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	target := createTestUser(t, db, "applicant")
	community := createTestCommunity(t, db, "private-club", models.CommunityPrivacyRestricted, creator.ID)

	_, err := members.Join(context.Background(), community.ID, target.ID, "hi")
	require.NoError(t, err)

	_, err = bans.Ban(context.Background(), community.ID, creator.ID, BanInput{
		Username:  "applicant",
		Permanent: true,
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.JoinRequest{}).
		Where("community_id = ?", community.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRebanReplacesExistingBan(t *testing.T) {
	db := setupTestDB(t)
	bans := NewBanService(db)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bans.now = fixedClock(now)

	creator := createTestUser(t, db, "creator")
	createTestUser(t, db, "troll")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := bans.Ban(context.Background(), community.ID, creator.ID, BanInput{
		Username: "troll",
		Reason:   "first offense",
		Days:     3,
	})
	require.NoError(t, err)

	ban, err := bans.Ban(context.Background(), community.ID, creator.ID, BanInput{
		Username:  "troll",
		Reason:    "repeat offense",
		Permanent: true,
	})
	require.NoError(t, err)
	assert.True(t, ban.Permanent)

	var stored []models.CommunityBan
	require.NoError(t, db.Where("community_id = ?", community.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, "repeat offense", stored[0].Reason)
	assert.True(t, stored[0].Permanent)
}

func TestBanValidation(t *testing.T) {
	db := setupTestDB(t)
	bans := NewBanService(db)

	creator := createTestUser(t, db, "creator")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := bans.Ban(context.Background(), community.ID, creator.ID, BanInput{Username: "ghost", Days: 1})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)

	_, err = bans.Ban(context.Background(), community.ID, creator.ID, BanInput{Username: "creator", Days: 0})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = bans.Ban(context.Background(), community.ID, creator.ID, BanInput{Username: "creator", Permanent: true})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestBanRequiresModerator(t *testing.T) {
	db := setupTestDB(t)
	bans := NewBanService(db)

	creator := createTestUser(t, db, "creator")
	outsider := createTestUser(t, db, "outsider")
	createTestUser(t, db, "target")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := bans.Ban(context.Background(), community.ID, outsider.ID, BanInput{Username: "target", Days: 1})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestUnban(t *testing.T) {
	db := setupTestDB(t)
	bans := NewBanService(db)
	members := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	target := createTestUser(t, db, "troll")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := bans.Ban(context.Background(), community.ID, creator.ID, BanInput{
		Username:  "troll",
		Permanent: true,
	})
	require.NoError(t, err)

	require.NoError(t, bans.Unban(context.Background(), community.ID, creator.ID, target.ID))

	// Unbanning does not restore membership.
	status, err := members.Status(context.Background(), community.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusNonMember, status)

	// Lifting a ban that is already gone is a no-op.
	require.NoError(t, bans.Unban(context.Background(), community.ID, creator.ID, target.ID))
}

func TestListBansFiltersExpired(t *testing.T) {
	db := setupTestDB(t)
	bans := NewBanService(db)
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	bans.now = fixedClock(now)

	creator := createTestUser(t, db, "creator")
	expired := createTestUser(t, db, "expired")
	active := createTestUser(t, db, "active")
	forever := createTestUser(t, db, "forever")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	require.NoError(t, db.Create(&models.CommunityBan{
		CommunityID: community.ID, UserID: expired.ID, BannedByUserID: creator.ID, ExpiresAt: &past,
	}).Error)
	require.NoError(t, db.Create(&models.CommunityBan{
		CommunityID: community.ID, UserID: active.ID, BannedByUserID: creator.ID, ExpiresAt: &future,
	}).Error)
	require.NoError(t, db.Create(&models.CommunityBan{
		CommunityID: community.ID, UserID: forever.ID, BannedByUserID: creator.ID, Permanent: true,
	}).Error)

	list, err := bans.ListBans(context.Background(), community.ID, creator.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, b := range list {
		assert.NotEqual(t, expired.ID, b.UserID)
	}
}

func TestActiveBan(t *testing.T) {
	db := setupTestDB(t)
	bans := NewBanService(db)
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	bans.now = fixedClock(now)

	creator := createTestUser(t, db, "creator")
	target := createTestUser(t, db, "troll")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	ban, err := bans.ActiveBan(context.Background(), community.ID, target.ID)
	require.NoError(t, err)
	assert.Nil(t, ban)

	past := now.Add(-time.Minute)
	require.NoError(t, db.Create(&models.CommunityBan{
		CommunityID: community.ID, UserID: target.ID, BannedByUserID: creator.ID, ExpiresAt: &past,
	}).Error)

	ban, err = bans.ActiveBan(context.Background(), community.ID, target.ID)
	require.NoError(t, err)
	assert.Nil(t, ban)
}
