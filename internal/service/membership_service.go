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

// JoinResult describes the outcome of a join call.
type JoinResult string

const (
	// JoinResultJoined means the user became a member immediately.
	JoinResultJoined JoinResult = "joined"
	// JoinResultPending means a join request now awaits moderator approval.
	JoinResultPending JoinResult = "pending_request_created"
	// JoinResultAlreadyMember means the user was a member before the call.
	JoinResultAlreadyMember JoinResult = "already_member"
	// JoinResultAlreadyPending means a request was already awaiting approval.
	JoinResultAlreadyPending JoinResult = "already_pending"
)

// GovernanceSnapshot is a consistent view of a community's governance state.
type GovernanceSnapshot struct {
	Community         models.Community             `json:"community"`
	Members           []models.CommunityMembership `json:"members"`
	Moderators        []models.CommunityModerator  `json:"moderators"`
	InvitedModerators []models.ModeratorInvite     `json:"invited_moderators"`
	PendingRequests   []models.JoinRequest         `json:"pending_requests"`
	Bans              []models.CommunityBan        `json:"bans"`
}

// MembershipService provides join/leave and pending-approval logic.
//
// Every mutator runs in one transaction over row-per-relationship tables, so
// concurrent operations on the same community compose without lost updates.
type MembershipService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMembershipService returns a new MembershipService.
func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{db: db, now: time.Now}
}

// Join adds the user to a public community or files a join request for a
// restricted one. Re-invoking while already a member or pending reports the
// current state instead of failing; actively banned users are rejected.
func (s *MembershipService) Join(ctx context.Context, communityID, userID uint, message string) (JoinResult, error) {
	var result JoinResult
	var slug string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		community, err := getCommunity(ctx, tx, communityID)
		if err != nil {
			return err
		}
		slug = community.Slug

		var ban models.CommunityBan
		err = tx.Where("community_id = ? AND user_id = ?", communityID, userID).First(&ban).Error
		if err == nil && ban.ActiveAt(s.now()) {
			return models.NewForbiddenError("You are banned from this community")
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewInternalError(err)
		}

		var existing models.CommunityMembership
		err = tx.Where("community_id = ? AND user_id = ?", communityID, userID).First(&existing).Error
		if err == nil {
			result = JoinResultAlreadyMember
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewInternalError(err)
		}

		var pending models.JoinRequest
		err = tx.Where("community_id = ? AND user_id = ?", communityID, userID).First(&pending).Error
		if err == nil {
			result = JoinResultAlreadyPending
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewInternalError(err)
		}

		if community.Privacy == models.CommunityPrivacyRestricted {
			request := models.JoinRequest{
				CommunityID: communityID,
				UserID:      userID,
				Message:     message,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
				DoNothing: true,
			}).Create(&request).Error; err != nil {
				return models.NewInternalError(err)
			}
			result = JoinResultPending
			return nil
		}

		return s.applyJoin(ctx, tx, communityID, userID, &result)
	})
	if err != nil {
		return "", err
	}

	cache.InvalidateGovernance(ctx, communityID)
	cache.InvalidateCommunity(ctx, slug)
	return result, nil
}

// applyJoin inserts a membership row and bumps the counter only when the
// insert actually created a row, keeping members_count exact under races.
func (s *MembershipService) applyJoin(ctx context.Context, tx *gorm.DB, communityID, userID uint, result *JoinResult) error {
	membership := models.CommunityMembership{
		CommunityID: communityID,
		UserID:      userID,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&membership)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		*result = JoinResultAlreadyMember
		return nil
	}

	if err := adjustMembersCount(ctx, tx, communityID, 1); err != nil {
		return err
	}
	*result = JoinResultJoined
	return nil
}

// Leave removes the user's membership. Moderator status, if any, is
// deliberately untouched: a moderator may govern without being a member.
func (s *MembershipService) Leave(ctx context.Context, communityID, userID uint) error {
	var slug string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		community, err := getCommunity(ctx, tx, communityID)
		if err != nil {
			return err
		}
		slug = community.Slug

		res := tx.Where("community_id = ? AND user_id = ?", communityID, userID).
			Delete(&models.CommunityMembership{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewInvalidStateError("You are not a member of this community")
		}

		return adjustMembersCount(ctx, tx, communityID, -1)
	})
	if err != nil {
		return err
	}

	cache.InvalidateGovernance(ctx, communityID)
	cache.InvalidateCommunity(ctx, slug)
	return nil
}

// ApprovePending resolves a restricted-join request. Accepting applies the
// public-join effect; rejecting simply discards the request.
func (s *MembershipService) ApprovePending(ctx context.Context, communityID, actorID, userID uint, accept bool) error {
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

		res := tx.Where("community_id = ? AND user_id = ?", communityID, userID).
			Delete(&models.JoinRequest{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewInvalidStateError("No pending join request for this user")
		}

		if !accept {
			return nil
		}

		var result JoinResult
		return s.applyJoin(ctx, tx, communityID, userID, &result)
	})
	if err != nil {
		return err
	}

	cache.InvalidateGovernance(ctx, communityID)
	cache.InvalidateCommunity(ctx, slug)
	return nil
}

// Status classifies the (community, user) pair into exactly one governance
// state. An active ban dominates; moderator dominates member.
func (s *MembershipService) Status(ctx context.Context, communityID, userID uint) (models.MembershipStatus, error) {
	db := s.db.WithContext(ctx)

	var ban models.CommunityBan
	err := db.Where("community_id = ? AND user_id = ?", communityID, userID).First(&ban).Error
	if err == nil && ban.ActiveAt(s.now()) {
		return models.MembershipStatusBanned, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", models.NewInternalError(err)
	}

	var count int64
	if err := db.Model(&models.CommunityModerator{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	if count > 0 {
		return models.MembershipStatusModerator, nil
	}

	if err := db.Model(&models.CommunityMembership{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	if count > 0 {
		return models.MembershipStatusMember, nil
	}

	if err := db.Model(&models.JoinRequest{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	if count > 0 {
		return models.MembershipStatusPending, nil
	}

	return models.MembershipStatusNonMember, nil
}

// Snapshot returns the community's full governance state in one consistent
// read for presentation layers. Snapshots are served cache-aside; every
// governance mutator invalidates the cached copy.
func (s *MembershipService) Snapshot(ctx context.Context, communityID uint) (*GovernanceSnapshot, error) {
	var snapshot GovernanceSnapshot

	err := cache.Aside(ctx, cache.GovernanceKey(communityID), &snapshot, cache.GovernanceTTL, func() error {
		return s.loadSnapshot(ctx, communityID, &snapshot)
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *MembershipService) loadSnapshot(ctx context.Context, communityID uint, snapshot *GovernanceSnapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		community, err := getCommunity(ctx, tx, communityID)
		if err != nil {
			return err
		}
		snapshot.Community = *community

		if err := tx.Where("community_id = ?", communityID).Preload("User").
			Find(&snapshot.Members).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("community_id = ?", communityID).Preload("User").
			Find(&snapshot.Moderators).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("community_id = ?", communityID).Preload("User").
			Find(&snapshot.InvitedModerators).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("community_id = ?", communityID).Preload("User").
			Order("created_at ASC").
			Find(&snapshot.PendingRequests).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("community_id = ?", communityID).Preload("User").Preload("Rule").
			Order("created_at DESC").
			Find(&snapshot.Bans).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}
