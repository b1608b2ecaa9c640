package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix       = "user:%d"
	CommunityKeyPrefix  = "community:%s"
	GovernanceKeyPrefix = "community:%d:governance"
)

const (
	UserTTL       = 5 * time.Minute
	CommunityTTL  = 10 * time.Minute
	GovernanceTTL = time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func CommunityKey(slug string) string {
	return fmt.Sprintf(CommunityKeyPrefix, slug)
}

func GovernanceKey(communityID uint) string {
	return fmt.Sprintf(GovernanceKeyPrefix, communityID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateCommunity(ctx context.Context, slug string) {
	Invalidate(ctx, CommunityKey(slug))
}

// InvalidateGovernance drops the cached governance snapshot for a community.
// Every governance mutator calls this so presentation reads never serve a
// stale snapshot longer than the cache TTL.
func InvalidateGovernance(ctx context.Context, communityID uint) {
	Invalidate(ctx, GovernanceKey(communityID))
}
