package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPublicCommunity(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	joiner := createTestUser(t, db, "joiner")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	result, err := svc.Join(context.Background(), community.ID, joiner.ID, "")
	require.NoError(t, err)
	assert.Equal(t, JoinResultJoined, result)

	var got models.Community
	require.NoError(t, db.First(&got, community.ID).Error)
	assert.Equal(t, int64(1), got.MembersCount)

	status, err := svc.Status(context.Background(), community.ID, joiner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusMember, status)
}

func TestJoinIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	joiner := createTestUser(t, db, "joiner")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := svc.Join(context.Background(), community.ID, joiner.ID, "")
	require.NoError(t, err)

	result, err := svc.Join(context.Background(), community.ID, joiner.ID, "")
	require.NoError(t, err)
	assert.Equal(t, JoinResultAlreadyMember, result)

	var got models.Community
	require.NoError(t, db.First(&got, community.ID).Error)
	assert.Equal(t, int64(1), got.MembersCount)
}

func TestJoinRestrictedCreatesPendingRequest(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	joiner := createTestUser(t, db, "joiner")
	community := createTestCommunity(t, db, "private-club", models.CommunityPrivacyRestricted, creator.ID)

	result, err := svc.Join(context.Background(), community.ID, joiner.ID, "let me in")
	require.NoError(t, err)
	assert.Equal(t, JoinResultPending, result)

	result, err = svc.Join(context.Background(), community.ID, joiner.ID, "")
	require.NoError(t, err)
	assert.Equal(t, JoinResultAlreadyPending, result)

	var count int64
	require.NoError(t, db.Model(&models.JoinRequest{}).
		Where("community_id = ?", community.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var got models.Community
	require.NoError(t, db.First(&got, community.ID).Error)
	assert.Equal(t, int64(0), got.MembersCount)
}

func TestJoinWhileBanned(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	creator := createTestUser(t, db, "creator")
	banned := createTestUser(t, db, "troll")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	expires := now.Add(48 * time.Hour)
	require.NoError(t, db.Create(&models.CommunityBan{
		CommunityID:    community.ID,
		UserID:         banned.ID,
		BannedByUserID: creator.ID,
		ExpiresAt:      &expires,
	}).Error)

	_, err := svc.Join(context.Background(), community.ID, banned.ID, "")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestJoinAfterBanExpired(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	creator := createTestUser(t, db, "creator")
	joiner := createTestUser(t, db, "reformed")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	expired := now.Add(-time.Hour)
	require.NoError(t, db.Create(&models.CommunityBan{
		CommunityID:    community.ID,
		UserID:         joiner.ID,
		BannedByUserID: creator.ID,
		ExpiresAt:      &expired,
	}).Error)

	result, err := svc.Join(context.Background(), community.ID, joiner.ID, "")
	require.NoError(t, err)
	assert.Equal(t, JoinResultJoined, result)
}

func TestLeaveCommunity(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	joiner := createTestUser(t, db, "joiner")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := svc.Join(context.Background(), community.ID, joiner.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(context.Background(), community.ID, joiner.ID))

	var got models.Community
	require.NoError(t, db.First(&got, community.ID).Error)
	assert.Equal(t, int64(0), got.MembersCount)

	err = svc.Leave(context.Background(), community.ID, joiner.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_STATE", appErr.Code)
}

func TestApprovePendingAccept(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	joiner := createTestUser(t, db, "joiner")
	community := createTestCommunity(t, db, "private-club", models.CommunityPrivacyRestricted, creator.ID)

	_, err := svc.Join(context.Background(), community.ID, joiner.ID, "hi")
	require.NoError(t, err)

	require.NoError(t, svc.ApprovePending(context.Background(), community.ID, creator.ID, joiner.ID, true))

	status, err := svc.Status(context.Background(), community.ID, joiner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusMember, status)

	var got models.Community
	require.NoError(t, db.First(&got, community.ID).Error)
	assert.Equal(t, int64(1), got.MembersCount)
}

func TestApprovePendingReject(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	joiner := createTestUser(t, db, "joiner")
	community := createTestCommunity(t, db, "private-club", models.CommunityPrivacyRestricted, creator.ID)

	_, err := svc.Join(context.Background(), community.ID, joiner.ID, "hi")
	require.NoError(t, err)

	require.NoError(t, svc.ApprovePending(context.Background(), community.ID, creator.ID, joiner.ID, false))

	status, err := svc.Status(context.Background(), community.ID, joiner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusNonMember, status)

	// The request is consumed either way.
	err = svc.ApprovePending(context.Background(), community.ID, creator.ID, joiner.ID, true)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_STATE", appErr.Code)
}

func TestApprovePendingRequiresModerator(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	joiner := createTestUser(t, db, "joiner")
	outsider := createTestUser(t, db, "outsider")
	community := createTestCommunity(t, db, "private-club", models.CommunityPrivacyRestricted, creator.ID)

	_, err := svc.Join(context.Background(), community.ID, joiner.ID, "hi")
	require.NoError(t, err)

	err = svc.ApprovePending(context.Background(), community.ID, outsider.ID, joiner.ID, true)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestStatusPriorities(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	creator := createTestUser(t, db, "creator")
	user := createTestUser(t, db, "subject")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	status, err := svc.Status(context.Background(), community.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusNonMember, status)

	status, err = svc.Status(context.Background(), community.ID, creator.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusModerator, status)

	// An active ban outranks everything else.
	require.NoError(t, db.Create(&models.CommunityBan{
		CommunityID:    community.ID,
		UserID:         user.ID,
		BannedByUserID: creator.ID,
		Permanent:      true,
	}).Error)
	status, err = svc.Status(context.Background(), community.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusBanned, status)
}

func TestConcurrentJoinsKeepCountExact(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	const joiners = 8
	users := make([]*models.User, joiners)
	for i := range users {
		users[i] = createTestUser(t, db, "user"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	errs := make([]error, joiners)
	for i, u := range users {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, errs[i] = svc.Join(context.Background(), community.ID, userID, "")
		}(i, u.ID)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	var got models.Community
	require.NoError(t, db.First(&got, community.ID).Error)
	assert.Equal(t, int64(joiners), got.MembersCount)

	var memberCount int64
	require.NoError(t, db.Model(&models.CommunityMembership{}).
		Where("community_id = ?", community.ID).Count(&memberCount).Error)
	assert.Equal(t, got.MembersCount, memberCount)
}

func TestConcurrentJoinAndBanBothApply(t *testing.T) {
	db := setupTestDB(t)
	members := NewMembershipService(db)
	bans := NewBanService(db)

	creator := createTestUser(t, db, "creator")
	joiner := createTestUser(t, db, "joiner")
	troll := createTestUser(t, db, "troll")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := members.Join(context.Background(), community.ID, troll.ID, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var joinErr, banErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, joinErr = members.Join(context.Background(), community.ID, joiner.ID, "")
	}()
	go func() {
		defer wg.Done()
		_, banErr = bans.Ban(context.Background(), community.ID, creator.ID, BanInput{
			Username: "troll",
			Days:     3,
		})
	}()
	wg.Wait()

	require.NoError(t, joinErr)
	require.NoError(t, banErr)

	// Both operations took effect: the join is recorded, the banned user is
	// out, and the counter matches the membership rows exactly.
	var joinerRows, trollRows, banRows int64
	require.NoError(t, db.Model(&models.CommunityMembership{}).
		Where("community_id = ? AND user_id = ?", community.ID, joiner.ID).Count(&joinerRows).Error)
	require.NoError(t, db.Model(&models.CommunityMembership{}).
		Where("community_id = ? AND user_id = ?", community.ID, troll.ID).Count(&trollRows).Error)
	require.NoError(t, db.Model(&models.CommunityBan{}).
		Where("community_id = ? AND user_id = ?", community.ID, troll.ID).Count(&banRows).Error)
	assert.Equal(t, int64(1), joinerRows)
	assert.Equal(t, int64(0), trollRows)
	assert.Equal(t, int64(1), banRows)

	var got models.Community
	require.NoError(t, db.First(&got, community.ID).Error)
	var memberCount int64
	require.NoError(t, db.Model(&models.CommunityMembership{}).
		Where("community_id = ?", community.ID).Count(&memberCount).Error)
	assert.Equal(t, memberCount, got.MembersCount)
	assert.Equal(t, int64(1), got.MembersCount)
}

func TestSnapshotServedFromCacheUntilInvalidated(t *testing.T) {
	db := setupTestDB(t)
	setupTestCache(t)
	svc := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	joiner := createTestUser(t, db, "joiner")
	lurker := createTestUser(t, db, "lurker")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	snap, err := svc.Snapshot(context.Background(), community.ID)
	require.NoError(t, err)
	assert.Empty(t, snap.Members)

	// A row written behind the service's back stays invisible while the
	// cached snapshot is live.
	require.NoError(t, db.Create(&models.CommunityMembership{
		CommunityID: community.ID,
		UserID:      lurker.ID,
	}).Error)
	snap, err = svc.Snapshot(context.Background(), community.ID)
	require.NoError(t, err)
	assert.Empty(t, snap.Members)

	// A governance mutation drops the cached copy.
	_, err = svc.Join(context.Background(), community.ID, joiner.ID, "")
	require.NoError(t, err)

	snap, err = svc.Snapshot(context.Background(), community.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Members, 2)
}

func TestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)

	creator := createTestUser(t, db, "creator")
	member := createTestUser(t, db, "member")
	pending := createTestUser(t, db, "pending")
	community := createTestCommunity(t, db, "gophers", models.CommunityPrivacyPublic, creator.ID)

	_, err := svc.Join(context.Background(), community.ID, member.ID, "")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.JoinRequest{
		CommunityID: community.ID,
		UserID:      pending.ID,
	}).Error)

	snapshot, err := svc.Snapshot(context.Background(), community.ID)
	require.NoError(t, err)
	assert.Equal(t, community.ID, snapshot.Community.ID)
	assert.Len(t, snapshot.Members, 1)
	assert.Len(t, snapshot.Moderators, 1)
	assert.Len(t, snapshot.PendingRequests, 1)
	assert.Empty(t, snapshot.Bans)
	require.NotNil(t, snapshot.Members[0].User)
	assert.Equal(t, "member", snapshot.Members[0].User.Username)
}
