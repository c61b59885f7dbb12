package repository

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponRepository_Redeem(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewCouponRepository(testDB)
	ctx := context.Background()

	coupon := createTestCoupon(t, testDB, "ONCE", 10, 2)

	ok, err := repo.Redeem(ctx, coupon.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MaxUsage)
	assert.Equal(t, 1, got.UsageCount)
	assert.True(t, got.IsActive)

	ok, err = repo.Redeem(ctx, coupon.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = repo.FindByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MaxUsage)
	assert.Equal(t, 2, got.UsageCount)
	assert.False(t, got.IsActive, "last use deactivates the coupon")

	ok, err = repo.Redeem(ctx, coupon.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCouponRepository_RedeemRejectsExpired(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewCouponRepository(testDB)

	coupon := createTestCoupon(t, testDB, "LATE", 10, 5)
	ok, err := repo.Redeem(context.Background(), coupon.ID, coupon.ExpiryDate.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCouponRepository_CodeTakenAndUpdate(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewCouponRepository(testDB)
	ctx := context.Background()

	a := createTestCoupon(t, testDB, "ALPHA", 10, 5)
	createTestCoupon(t, testDB, "BETA", 10, 5)

	taken, err := repo.CodeTaken(ctx, "alpha", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.CodeTaken(ctx, "ALPHA", a.ID)
	require.NoError(t, err)
	assert.False(t, taken, "own code does not count")

	a.IsActive = false
	a.DiscountPercentage = 25
	require.NoError(t, repo.Update(ctx, a))

	got, err := repo.FindByCode(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, 25.0, got.DiscountPercentage)
}

func TestCouponRepository_DeactivateExpired(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewCouponRepository(testDB)
	ctx := context.Background()

	fresh := createTestCoupon(t, testDB, "FRESH", 10, 5)
	stale := &model.Coupon{Code: "STALE", DiscountPercentage: 5, IsActive: true, MaxUsage: 5, ExpiryDate: time.Now().Add(-time.Hour)}
	require.NoError(t, testDB.Create(stale).Error)

	n, err := repo.DeactivateExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := repo.FindByID(ctx, stale.ID)
	assert.False(t, got.IsActive)
	got, _ = repo.FindByID(ctx, fresh.ID)
	assert.True(t, got.IsActive)
}

func TestCouponRepository_LogsDatabaseFailures(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewCouponRepository(testDB)
	ctx := context.Background()

	var logs bytes.Buffer
	logger.Initialize(logger.Config{Level: "debug", Output: &logs})
	t.Cleanup(func() { logger.Initialize(logger.Config{Level: "error", Output: io.Discard}) })

	createTestCoupon(t, testDB, "DUPE", 10, 1)
	err := repo.Create(ctx, &model.Coupon{Code: "DUPE", DiscountPercentage: 5, IsActive: true, MaxUsage: 1, ExpiryDate: time.Now().Add(time.Hour)})
	require.Error(t, err)
	assert.Contains(t, logs.String(), "Failed to create coupon in database")

	logs.Reset()
	_, err = repo.FindByID(ctx, 9999)
	require.Error(t, err)
	assert.Contains(t, logs.String(), "Coupon not found")
	assert.NotContains(t, logs.String(), `"level":"error"`)
}
