package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/madness-store/madness-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_DevModeSkipsDelivery(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{})
	called := false
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "a@example.com", "hi", "<p>hi</p>"))
	assert.False(t, called)
}

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{
		Host: "smtp.example.com", Port: "587", Email: "shop@example.com", Password: "pw", FromName: "MADNESS",
	})

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "buyer@example.com", "Order", "<p>body</p>"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"buyer@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Order\r\n")
	assert.Contains(t, string(gotMsg), "<p>body</p>")

	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay down")
	}
	assert.Error(t, s.Send(context.Background(), "buyer@example.com", "Order", "x"))
}

func TestOrderConfirmation_EscapesUserInput(t *testing.T) {
	subject, body, err := OrderConfirmation(OrderSummary{
		OrderID:      12,
		ReceiverName: "<script>x</script>",
		Items:        []OrderLine{{Name: "Hoodie", Variant: "M", Quantity: 2, Price: 20}},
		Subtotal:     20,
		Discount:     2,
		Total:        18,
	})
	require.NoError(t, err)
	assert.Equal(t, "[MADNESS] Order #12 confirmation", subject)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "Hoodie (M)")
	assert.Contains(t, body, "18.00")
}
