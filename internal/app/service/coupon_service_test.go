package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponService_Create(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.couponService()
	ctx := context.Background()

	coupon, err := svc.Create(ctx, CouponInput{
		Code:               strPtr(" SUMMER10 "),
		DiscountPercentage: floatPtr(10),
		MaxUsage:           intPtr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", coupon.Code)
	assert.True(t, coupon.IsActive)
	assert.Equal(t, 5, coupon.MaxUsage)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), coupon.ExpiryDate, time.Minute)

	t.Run("duplicate code", func(t *testing.T) {
		_, err := svc.Create(ctx, CouponInput{Code: strPtr("summer10"), DiscountPercentage: floatPtr(5)})
		assert.ErrorIs(t, err, ErrCouponCodeExists)
	})

	t.Run("percentage out of range", func(t *testing.T) {
		for _, pct := range []float64{0, -5, 100.5} {
			_, err := svc.Create(ctx, CouponInput{Code: strPtr("BAD"), DiscountPercentage: floatPtr(pct)})
			assert.ErrorIs(t, err, ErrInvalidCouponPercent)
		}
	})

	t.Run("max usage defaults to one", func(t *testing.T) {
		coupon, err := svc.Create(ctx, CouponInput{Code: strPtr("ONCE"), DiscountPercentage: floatPtr(5)})
		require.NoError(t, err)
		assert.Equal(t, 1, coupon.MaxUsage)

		got, err := svc.Validate(ctx, coupon.ID)
		require.NoError(t, err)
		assert.Equal(t, coupon.ID, got.ID)
	})

	t.Run("zero max usage", func(t *testing.T) {
		_, err := svc.Create(ctx, CouponInput{Code: strPtr("NEVER"), DiscountPercentage: floatPtr(5), MaxUsage: intPtr(0)})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Create(ctx, CouponInput{DiscountPercentage: floatPtr(5)})
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = svc.Create(ctx, CouponInput{Code: strPtr("NOPCT")})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestCouponService_Validate(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.couponService()
	ctx := context.Background()

	active := env.createCoupon(t, "ACTIVE", 10, 3)
	got, err := svc.Validate(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	inactive := env.createCoupon(t, "OFF", 10, 3)
	require.NoError(t, env.DB.Model(inactive).Update("is_active", false).Error)
	_, err = svc.Validate(ctx, inactive.ID)
	assert.ErrorIs(t, err, ErrCouponInactive)

	exhausted := env.createCoupon(t, "USEDUP", 10, 0)
	_, err = svc.Validate(ctx, exhausted.ID)
	assert.ErrorIs(t, err, ErrCouponExhausted)

	expired := env.createCoupon(t, "OLD", 10, 3)
	require.NoError(t, env.DB.Model(expired).Update("expiry_date", time.Now().Add(-time.Hour)).Error)
	_, err = svc.Validate(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrCouponExpired)

	_, err = svc.Validate(ctx, 9999)
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestCouponService_UpdateAndDelete(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.couponService()
	ctx := context.Background()

	coupon := env.createCoupon(t, "EDIT", 10, 3)
	env.createCoupon(t, "TAKEN", 10, 3)

	updated, err := svc.Update(ctx, coupon.ID, CouponInput{
		DiscountPercentage: floatPtr(25),
		IsActive:           boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.DiscountPercentage)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "EDIT", updated.Code)

	_, err = svc.Update(ctx, coupon.ID, CouponInput{Code: strPtr("taken")})
	assert.ErrorIs(t, err, ErrCouponCodeExists)

	// Keeping its own code is not a conflict.
	_, err = svc.Update(ctx, coupon.ID, CouponInput{Code: strPtr("EDIT")})
	assert.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, coupon.ID))
	_, err = svc.Get(ctx, coupon.ID)
	assert.ErrorIs(t, err, ErrCouponNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, coupon.ID), ErrCouponNotFound)
}

func TestCouponService_Redeem(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.couponService()
	ctx := context.Background()

	coupon := env.createCoupon(t, "ONCE", 10, 1)
	require.NoError(t, svc.Redeem(ctx, coupon.ID))
	assert.ErrorIs(t, svc.Redeem(ctx, coupon.ID), ErrCouponExhausted)

	got, err := svc.Get(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MaxUsage)
	assert.Equal(t, 1, got.UsageCount)
	assert.False(t, got.IsActive)
}

func TestCouponService_SweepExpired(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.couponService()
	ctx := context.Background()

	fresh := env.createCoupon(t, "FRESH", 10, 3)
	stale := env.createCoupon(t, "STALE", 10, 3)
	require.NoError(t, env.DB.Model(stale).Update("expiry_date", time.Now().Add(-time.Minute)).Error)

	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	got, err = svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestCouponService_List(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.couponService()

	env.createCoupon(t, "A", 10, 1)
	env.createCoupon(t, "B", 10, 1)
	env.createCoupon(t, "C", 10, 1)

	coupons, total, err := svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, coupons, 2)
}
