package service

import (
	"context"
	"errors"
	"strings"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"gorm.io/gorm"
)

var (
	ErrReviewNotFound         = errors.New("review not found")
	ErrInvalidRating          = errors.New("rating must be between 1 and 5")
	ErrRatingRequiresPurchase = errors.New("only customers who bought this product can rate it")
	ErrEmptyReview            = errors.New("review needs a rating or a text")
)

type ReviewInput struct {
	Rating *int   `json:"rating"`
	Text   string `json:"text"`
}

type ReviewPage struct {
	Reviews []model.Review `json:"reviews"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
}

type ReviewService struct {
	reviewRepo  *repository.ReviewRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
}

func NewReviewService(
	reviewRepo *repository.ReviewRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// checkInput enforces that a rating is only given by a buyer.
func (s *ReviewService) checkInput(ctx context.Context, userID, productID uint, input ReviewInput) error {
	if input.Rating == nil && strings.TrimSpace(input.Text) == "" {
		return ErrEmptyReview
	}
	if input.Rating == nil {
		return nil
	}
	if *input.Rating < 1 || *input.Rating > 5 {
		return ErrInvalidRating
	}
	bought, err := s.orderRepo.HasPurchased(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !bought {
		return ErrRatingRequiresPurchase
	}
	return nil
}

// CreateReview adds a review to a product.
func (s *ReviewService) CreateReview(ctx context.Context, userID, productID uint, input ReviewInput) (*model.Review, error) {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if err := s.checkInput(ctx, userID, productID, input); err != nil {
		return nil, err
	}

	review := &model.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    input.Rating,
		Text:      strings.TrimSpace(input.Text),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}
	return s.reviewRepo.FindByID(ctx, review.ID)
}

// GetProductReviews lists reviews of a product, newest first.
func (s *ReviewService) GetProductReviews(ctx context.Context, productID uint, page, limit int) (*ReviewPage, error) {
	page, limit = normalizePage(page, limit)
	reviews, total, err := s.reviewRepo.FindByProductID(ctx, productID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &ReviewPage{Reviews: reviews, Total: total, Page: page, Limit: limit}, nil
}

// UpdateReview lets the author edit their own review.
func (s *ReviewService) UpdateReview(ctx context.Context, userID, reviewID uint, input ReviewInput) (*model.Review, error) {
	review, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	if review.UserID != userID {
		return nil, ErrForbidden
	}
	if err := s.checkInput(ctx, userID, review.ProductID, input); err != nil {
		return nil, err
	}

	review.Rating = input.Rating
	review.Text = strings.TrimSpace(input.Text)
	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}
