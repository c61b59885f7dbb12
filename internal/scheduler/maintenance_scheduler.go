package scheduler

import (
	"context"
	"time"

	"github.com/madness-store/madness-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	tokenPurgeSchedule = "30 3 * * *"
	jobTimeout         = 5 * time.Minute
)

type CouponSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type TokenPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MaintenanceScheduler runs housekeeping jobs: switching off coupons past
// their expiry and dropping verify tokens nobody can use anymore.
type MaintenanceScheduler struct {
	cron          *cron.Cron
	coupons       CouponSweeper
	tokens        TokenPurger
	sweepSchedule string
}

func NewMaintenanceScheduler(coupons CouponSweeper, tokens TokenPurger, sweepSchedule string) *MaintenanceScheduler {
	if sweepSchedule == "" {
		sweepSchedule = "@hourly"
	}
	return &MaintenanceScheduler{
		cron:          cron.New(),
		coupons:       coupons,
		tokens:        tokens,
		sweepSchedule: sweepSchedule,
	}
}

// Start registers the jobs and starts the cron loop. Expired coupons are
// also swept once right away so a restart never leaves them active.
func (s *MaintenanceScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.sweepSchedule, s.runCouponSweep); err != nil {
		logger.Error("Failed to add cron job for coupon sweep", err, map[string]interface{}{
			"schedule": s.sweepSchedule,
		})
		return err
	}
	if _, err := s.cron.AddFunc(tokenPurgeSchedule, s.runTokenPurge); err != nil {
		logger.Error("Failed to add cron job for token purge", err)
		return err
	}

	s.runCouponSweep()
	s.cron.Start()
	logger.Info("Maintenance scheduler started", map[string]interface{}{
		"coupon_sweep": s.sweepSchedule,
		"token_purge":  tokenPurgeSchedule,
	})
	return nil
}

func (s *MaintenanceScheduler) Stop() {
	logger.Info("Stopping maintenance scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Maintenance scheduler stopped")
}

func (s *MaintenanceScheduler) runCouponSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.coupons.SweepExpired(ctx)
	if err != nil {
		logger.Error("Scheduled coupon sweep failed", err)
		return
	}
	logger.Debug("Scheduled coupon sweep finished", map[string]interface{}{
		"deactivated": n,
	})
}

func (s *MaintenanceScheduler) runTokenPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.tokens.DeleteExpired(ctx, time.Now())
	if err != nil {
		logger.Error("Scheduled token purge failed", err)
		return
	}
	logger.Info("Expired verify tokens purged", map[string]interface{}{
		"deleted": n,
	})
}
