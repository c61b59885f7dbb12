package repository

import (
	"testing"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepoTest(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createTestUser(t *testing.T, testDB *gorm.DB, email string) *model.User {
	user := &model.User{Email: email, PasswordHash: "hash", Role: model.RoleUser}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func createTestProduct(t *testing.T, testDB *gorm.DB, name string, price float64, variants ...model.ProductVariant) *model.Product {
	if len(variants) == 0 {
		variants = []model.ProductVariant{{Label: "", Stock: 10}}
	}
	product := &model.Product{Name: name, Price: price, Category: "tops", Variants: variants}
	require.NoError(t, testDB.Create(product).Error)
	return product
}

func createTestCoupon(t *testing.T, testDB *gorm.DB, code string, pct float64, maxUsage int) *model.Coupon {
	coupon := &model.Coupon{
		Code:               code,
		DiscountPercentage: pct,
		IsActive:           true,
		MaxUsage:           maxUsage,
		ExpiryDate:         time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, testDB.Create(coupon).Error)
	return coupon
}
