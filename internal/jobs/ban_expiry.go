package jobs

import (
	"context"
	"log/slog"
	"time"

	"agora/internal/cache"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

// BanExpiryJob removes temporary bans whose expiry has passed. Expired bans
// are already treated as inactive by every read path; the sweep reclaims the
// rows so ban lists and banned-from views stay small.
type BanExpiryJob struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBanExpiryJob returns a new BanExpiryJob.
func NewBanExpiryJob(db *gorm.DB) *BanExpiryJob {
	return &BanExpiryJob{db: db, now: time.Now}
}

// Run performs one sweep. Each community is swept in its own transaction so
// a failure in one community does not block the rest.
func (j *BanExpiryJob) Run(ctx context.Context) error {
	start := time.Now()
	now := j.now()

	var communityIDs []uint
	err := j.db.WithContext(ctx).Model(&models.CommunityBan{}).
		Distinct("community_id").
		Where("permanent = ? AND expires_at <= ?", false, now).
		Pluck("community_id", &communityIDs).Error
	if err != nil {
		observability.SweepFailures.Inc()
		return err
	}

	var removed int64
	for _, communityID := range communityIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Where("community_id = ? AND permanent = ? AND expires_at <= ?",
				communityID, false, now).
				Delete(&models.CommunityBan{})
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
			return nil
		})
		if err != nil {
			observability.SweepFailures.Inc()
			middleware.Logger.ErrorContext(ctx, "ban expiry sweep failed for community",
				slog.Uint64("community_id", uint64(communityID)),
				slog.String("error", err.Error()))
			continue
		}

		cache.InvalidateGovernance(ctx, communityID)
	}

	observability.BansExpired.Add(float64(removed))
	observability.SweepDuration.Observe(time.Since(start).Seconds())

	if removed > 0 {
		middleware.Logger.InfoContext(ctx, "ban expiry sweep completed",
			slog.Int64("removed", removed),
			slog.Int("communities", len(communityIDs)))
	}
	return nil
}

// RunScheduled runs the sweep every interval until the context is cancelled.
// It blocks, so callers start it in its own goroutine.
func (j *BanExpiryJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	middleware.Logger.InfoContext(ctx, "ban expiry sweeper started",
		slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			middleware.Logger.InfoContext(ctx, "ban expiry sweeper stopped")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				middleware.Logger.ErrorContext(ctx, "ban expiry sweep failed",
					slog.String("error", err.Error()))
			}
		}
	}
}
