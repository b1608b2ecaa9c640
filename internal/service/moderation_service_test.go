package service

import (
	"context"
	"testing"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteAndAcceptModerator(t *testing.T) {
	db := setupTestDB(t)
	mods := NewModerationService(db)
	members := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	invitee := createTestUser(t, db, "helper")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	invite, err := mods.InviteModerator(context.Background(), community.ID, creator.ID, "helper")
	require.NoError(t, err)
	assert.Equal(t, invitee.ID, invite.UserID)
	assert.Equal(t, creator.ID, invite.InvitedByUserID)

	// Invitation does not grant anything until accepted.
	status, err := members.Status(context.Background(), community.ID, invitee.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusNonMember, status)

	require.NoError(t, mods.AnswerModeratorInvite(context.Background(), community.ID, invitee.ID, true))

	status, err = members.Status(context.Background(), community.ID, invitee.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusModerator, status)

	// Moderator status alone grants no membership; the counter is untouched.
	var memberRows int64
	require.NoError(t, db.Model(&models.CommunityMembership{}).
		Where("community_id = ? AND user_id = ?", community.ID, invitee.ID).
		Count(&memberRows).Error)
	assert.Equal(t, int64(0), memberRows)

	var got models.Community
	require.NoError(t, db.First(&got, community.ID).Error)
	assert.Equal(t, int64(0), got.MembersCount)
}

func TestDeclineModeratorInvite(t *testing.T) {
	db := setupTestDB(t)
	mods := NewModerationService(db)
	members := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	invitee := createTestUser(t, db, "helper")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := mods.InviteModerator(context.Background(), community.ID, creator.ID, "helper")
	require.NoError(t, err)

	require.NoError(t, mods.AnswerModeratorInvite(context.Background(), community.ID, invitee.ID, false))

	status, err := members.Status(context.Background(), community.ID, invitee.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusNonMember, status)

	err = mods.AnswerModeratorInvite(context.Background(), community.ID, invitee.ID, true)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_STATE", appErr.Code)
}

func TestInviteConflicts(t *testing.T) {
	db := setupTestDB(t)
	mods := NewModerationService(db)

	creator := createTestUser(t, db, "creator")
	createTestUser(t, db, "helper")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := mods.InviteModerator(context.Background(), community.ID, creator.ID, "helper")
	require.NoError(t, err)

	_, err = mods.InviteModerator(context.Background(), community.ID, creator.ID, "helper")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)

	_, err = mods.InviteModerator(context.Background(), community.ID, creator.ID, "creator")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)

	_, err = mods.InviteModerator(context.Background(), community.ID, creator.ID, "nobody")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestAnswerInviteAlreadyModeratorIsNoop(t *testing.T) {
	db := setupTestDB(t)
	mods := NewModerationService(db)

	creator := createTestUser(t, db, "creator")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	require.NoError(t, mods.AnswerModeratorInvite(context.Background(), community.ID, creator.ID, true))
}

func TestMyInvites(t *testing.T) {
	db := setupTestDB(t)
	mods := NewModerationService(db)

	creator := createTestUser(t, db, "creator")
	invitee := createTestUser(t, db, "helper")
	first := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)
	second := createTestCommunity(t, db, "rustaceans", models.CommunityPrivacyPublic, creator.ID)

	_, err := mods.InviteModerator(context.Background(), first.ID, creator.ID, "helper")
	require.NoError(t, err)
	_, err = mods.InviteModerator(context.Background(), second.ID, creator.ID, "helper")
	require.NoError(t, err)

	invites, err := mods.MyInvites(context.Background(), invitee.ID)
	require.NoError(t, err)
	require.Len(t, invites, 2)
	require.NotNil(t, invites[0].Community)
	require.NotNil(t, invites[0].InvitedByUser)
}

func TestRemoveModerator(t *testing.T) {
	db := setupTestDB(t)
	mods := NewModerationService(db)

	creator := createTestUser(t, db, "creator")
	other := createTestUser(t, db, "helper")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	// The only moderator cannot be removed.
	err := mods.RemoveModerator(context.Background(), community.ID, creator.ID, creator.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_STATE", appErr.Code)

	require.NoError(t, db.Create(&models.CommunityModerator{
		CommunityID: community.ID,
		UserID:      other.ID,
	}).Error)

	require.NoError(t, mods.RemoveModerator(context.Background(), community.ID, creator.ID, other.ID))

	var count int64
	require.NoError(t, db.Model(&models.CommunityModerator{}).
		Where("community_id = ?", community.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRulesLifecycle(t *testing.T) {
	db := setupTestDB(t)
	mods := NewModerationService(db)
	bans := NewBanService(db)

	creator := createTestUser(t, db, "creator")
	createTestUser(t, db, "troll")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	rule, err := mods.AddRule(context.Background(), community.ID, creator.ID, "Be civil", "No personal attacks")
	require.NoError(t, err)

	_, err = mods.AddRule(context.Background(), community.ID, creator.ID, "  ", "")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	ban, err := bans.Ban(context.Background(), community.ID, creator.ID, BanInput{
		Username:  "troll",
		Reason:    "rule violation",
		RuleID:    &rule.ID,
		Permanent: true,
	})
	require.NoError(t, err)
	require.NotNil(t, ban.RuleID)

	require.NoError(t, mods.DeleteRule(context.Background(), community.ID, creator.ID, rule.ID))

	// The ban survives but loses its rule reference.
	var stored models.CommunityBan
	require.NoError(t, db.Where("community_id = ?", community.ID).First(&stored).Error)
	assert.Nil(t, stored.RuleID)
	assert.Equal(t, "rule violation", stored.Reason)

	rules, err := mods.ListRules(context.Background(), community.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestFlairsLifecycle(t *testing.T) {
	db := setupTestDB(t)
	mods := NewModerationService(db)

	creator := createTestUser(t, db, "creator")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	flair, err := mods.AddFlair(context.Background(), community.ID, creator.ID, "Discussion", "#ff4500")
	require.NoError(t, err)

	flairs, err := mods.ListFlairs(context.Background(), community.ID)
	require.NoError(t, err)
	require.Len(t, flairs, 1)

	require.NoError(t, mods.DeleteFlair(context.Background(), community.ID, creator.ID, flair.ID))

	err = mods.DeleteFlair(context.Background(), community.ID, creator.ID, flair.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}
