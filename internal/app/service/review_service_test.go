package service

import (
	"context"
	"testing"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewService(t *testing.T) {
	env := setupServiceTest(t)
	svc := NewReviewService(env.Reviews, env.Products, env.Orders)
	ctx := context.Background()

	buyer := env.createUser(t, "buyer@example.com", true)
	browser := env.createUser(t, "browser@example.com", true)
	shirt := env.createProduct(t, "Shirt", 10)
	placeOrder(t, env, buyer, shirt, "", 1)

	t.Run("comment without rating is open to everyone", func(t *testing.T) {
		review, err := svc.CreateReview(ctx, browser.ID, shirt.ID, ReviewInput{Text: "  looks nice  "})
		require.NoError(t, err)
		assert.Equal(t, "looks nice", review.Text)
		assert.Nil(t, review.Rating)
		require.NotNil(t, review.User)
		assert.Equal(t, browser.ID, review.User.ID)
	})

	t.Run("rating requires a purchase", func(t *testing.T) {
		_, err := svc.CreateReview(ctx, browser.ID, shirt.ID, ReviewInput{Rating: intPtr(5)})
		assert.ErrorIs(t, err, ErrRatingRequiresPurchase)

		review, err := svc.CreateReview(ctx, buyer.ID, shirt.ID, ReviewInput{Rating: intPtr(4), Text: "good"})
		require.NoError(t, err)
		assert.Equal(t, 4, *review.Rating)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := svc.CreateReview(ctx, buyer.ID, shirt.ID, ReviewInput{Rating: intPtr(6)})
		assert.ErrorIs(t, err, ErrInvalidRating)
		_, err = svc.CreateReview(ctx, buyer.ID, shirt.ID, ReviewInput{Text: "   "})
		assert.ErrorIs(t, err, ErrEmptyReview)
		_, err = svc.CreateReview(ctx, buyer.ID, 9999, ReviewInput{Text: "hi"})
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("list", func(t *testing.T) {
		page, err := svc.GetProductReviews(ctx, shirt.ID, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		assert.Len(t, page.Reviews, 2)
	})

	t.Run("only the author edits", func(t *testing.T) {
		page, err := svc.GetProductReviews(ctx, shirt.ID, 1, 10)
		require.NoError(t, err)
		var mine model.Review
		for _, r := range page.Reviews {
			if r.UserID == buyer.ID {
				mine = r
			}
		}
		require.NotZero(t, mine.ID)

		_, err = svc.UpdateReview(ctx, browser.ID, mine.ID, ReviewInput{Text: "hijack"})
		assert.ErrorIs(t, err, ErrForbidden)

		updated, err := svc.UpdateReview(ctx, buyer.ID, mine.ID, ReviewInput{Rating: intPtr(2), Text: "shrank in the wash"})
		require.NoError(t, err)
		assert.Equal(t, 2, *updated.Rating)
		assert.Equal(t, "shrank in the wash", updated.Text)

		_, err = svc.UpdateReview(ctx, buyer.ID, 9999, ReviewInput{Text: "x"})
		assert.ErrorIs(t, err, ErrReviewNotFound)
	})
}
