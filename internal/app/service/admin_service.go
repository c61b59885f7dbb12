package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var ErrCannotBanAdmin = errors.New("administrators cannot be banned")

type UserPage struct {
	Users []model.User `json:"users"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

type RevenueReport struct {
	Period string     `json:"period"`
	From   *time.Time `json:"from,omitempty"`
	repository.RevenueSummary
}

type AdminService interface {
	ListUsers(ctx context.Context, page, limit int) (*UserPage, error)
	NewUsers(ctx context.Context, period string) ([]model.User, error)
	SetBanned(ctx context.Context, userID uint, banned bool) (*model.User, error)
	Revenue(ctx context.Context, period string) (*RevenueReport, error)
	BestSellers(ctx context.Context, limit int) ([]repository.ProductSales, error)
	// ExportOrders writes the matching orders as an xlsx workbook, one row
	// per order line.
	ExportOrders(ctx context.Context, query OrderQuery, w io.Writer) error
}

type adminService struct {
	userRepo  repository.UserRepository
	orderRepo repository.OrderRepository
	now       func() time.Time
}

func NewAdminService(userRepo repository.UserRepository, orderRepo repository.OrderRepository) AdminService {
	return &adminService{
		userRepo:  userRepo,
		orderRepo: orderRepo,
		now:       time.Now,
	}
}

func (s *adminService) ListUsers(ctx context.Context, page, limit int) (*UserPage, error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.userRepo.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *adminService) NewUsers(ctx context.Context, period string) ([]model.User, error) {
	if period == "" {
		period = "week"
	}
	since, err := periodStart(period, s.now())
	if err != nil {
		return nil, err
	}
	return s.userRepo.ListCreatedSince(ctx, since)
}

func (s *adminService) SetBanned(ctx context.Context, userID uint, banned bool) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if banned && user.IsAdmin() {
		return nil, ErrCannotBanAdmin
	}
	if err := s.userRepo.SetBanned(ctx, userID, banned); err != nil {
		return nil, err
	}
	user.Banned = banned

	logger.Info("User ban flag changed", map[string]interface{}{
		"user_id": userID,
		"banned":  banned,
	})
	return user, nil
}

func (s *adminService) Revenue(ctx context.Context, period string) (*RevenueReport, error) {
	report := &RevenueReport{Period: period}
	if period != "" && period != "all" {
		from, err := periodStart(period, s.now())
		if err != nil {
			return nil, err
		}
		report.From = &from
	} else {
		report.Period = "all"
	}

	summary, err := s.orderRepo.Revenue(ctx, report.From, nil)
	if err != nil {
		return nil, err
	}
	summary.Revenue = roundMoney(summary.Revenue)
	report.RevenueSummary = summary
	return report, nil
}

func (s *adminService) BestSellers(ctx context.Context, limit int) ([]repository.ProductSales, error) {
	_, limit = normalizePage(1, limit)
	return s.orderRepo.BestSellers(ctx, limit)
}

var exportHeaders = []interface{}{
	"Order ID", "Created", "Status", "Customer", "Email", "Phone", "Address",
	"Product", "Variant", "Quantity", "Line Price",
	"Subtotal", "Coupon", "Discount", "Shipping", "Tax", "Total",
}

func (s *adminService) ExportOrders(ctx context.Context, query OrderQuery, w io.Writer) error {
	filter := repository.OrderFilter{Status: query.Status, From: query.From, To: query.To}
	if query.Period != "" {
		from, err := periodStart(query.Period, s.now())
		if err != nil {
			return err
		}
		filter.From, filter.To = &from, nil
	}
	orders, _, err := s.orderRepo.FindWithFilter(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeaders); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}

	row := 2
	for _, order := range orders {
		for _, item := range order.Items {
			values := []interface{}{
				order.ID, order.CreatedAt.Format(time.RFC3339), string(order.Status),
				order.ReceiverName, order.ReceiverEmail, order.ReceiverPhone, order.ShippingAddress,
				item.ProductName, item.Variant, item.Quantity, item.Price,
				order.Subtotal, order.CouponCode, order.DiscountAmount, order.ShippingFee, order.Tax, order.Total,
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("write export row: %w", err)
			}
			row++
		}
	}

	logger.Info("Orders exported", map[string]interface{}{
		"orders": len(orders),
		"rows":   row - 2,
	})
	_, err = f.WriteTo(w)
	return err
}
