package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/pkg/logger"
	"github.com/madness-store/madness-backend/pkg/mailer"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
	setupTokenTTL  = 72 * time.Hour
)

// accountMail renders and sends the transactional emails. Links point at
// the storefront, which calls back into the API.
type accountMail struct {
	sender      mailer.Sender
	frontendURL string
}

func newAccountMail(sender mailer.Sender, frontendURL string) *accountMail {
	return &accountMail{sender: sender, frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (m *accountMail) sendVerify(ctx context.Context, user *model.User, token string) error {
	link := fmt.Sprintf("%s/users/%d/verify/%s", m.frontendURL, user.ID, token)
	subject, body, err := mailer.VerifyEmail(link)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, user.Email, subject, body)
}

func (m *accountMail) sendReset(ctx context.Context, user *model.User, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, token)
	subject, body, err := mailer.PasswordReset(link)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, user.Email, subject, body)
}

func (m *accountMail) sendSetup(ctx context.Context, user *model.User, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s&setup=1", m.frontendURL, token)
	subject, body, err := mailer.SetupPassword(user.Email, link)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, user.Email, subject, body)
}

func (m *accountMail) sendOrderConfirmation(ctx context.Context, order *model.Order) error {
	summary := mailer.OrderSummary{
		OrderID:      order.ID,
		ReceiverName: order.ReceiverName,
		Subtotal:     order.Subtotal,
		Discount:     order.DiscountAmount,
		Shipping:     order.ShippingFee,
		Tax:          order.Tax,
		Total:        order.Total,
		Address:      order.ShippingAddress,
	}
	for _, item := range order.Items {
		summary.Items = append(summary.Items, mailer.OrderLine{
			Name:     item.ProductName,
			Variant:  item.Variant,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	subject, body, err := mailer.OrderConfirmation(summary)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, order.ReceiverEmail, subject, body)
}

// deliver runs a send and only logs failures. Mail is never allowed to
// fail the request that triggered it.
func deliver(kind string, fields map[string]interface{}, send func() error) {
	if err := send(); err != nil {
		if fields == nil {
			fields = map[string]interface{}{}
		}
		fields["mail"] = kind
		logger.Error("Failed to send email", err, fields)
	}
}
