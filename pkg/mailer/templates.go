package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

const layout = `<html>
<body style="font-family: Arial, sans-serif; padding: 20px; background-color: #f5f5f5;">
	<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 40px; border-radius: 10px;">
		<h1 style="color: #111; margin-bottom: 20px;">{{.Title}}</h1>
		{{template "content" .}}
		<p style="color: #999; font-size: 13px; margin-top: 30px;">If you did not request this, you can ignore this email.</p>
	</div>
</body>
</html>`

var (
	verifyTmpl = mustTemplate(`{{define "content"}}
		<p>Thanks for joining MADNESS. Confirm your email address to finish setting up your account.</p>
		<p><a href="{{.Link}}" style="background:#111;color:#fff;padding:12px 32px;text-decoration:none;border-radius:6px;">Verify email</a></p>
		<p style="font-size: 12px; color: #666;">{{.Link}}</p>
	{{end}}`)

	setupTmpl = mustTemplate(`{{define "content"}}
		<p>We created an account for {{.Email}} when you placed your order. Set a password to track your orders and check out faster next time.</p>
		<p><a href="{{.Link}}" style="background:#111;color:#fff;padding:12px 32px;text-decoration:none;border-radius:6px;">Set your password</a></p>
		<p style="font-size: 12px; color: #666;">This link is valid for 72 hours.</p>
	{{end}}`)

	resetTmpl = mustTemplate(`{{define "content"}}
		<p>You asked to reset the password of your MADNESS account.</p>
		<p><a href="{{.Link}}" style="background:#111;color:#fff;padding:12px 32px;text-decoration:none;border-radius:6px;">Reset password</a></p>
		<p style="font-size: 12px; color: #666;">This link is valid for 1 hour.</p>
	{{end}}`)

	orderTmpl = mustTemplate(`{{define "content"}}
		<p>Hi {{.ReceiverName}}, we received your order #{{.OrderID}}.</p>
		<table style="width:100%; border-collapse: collapse;">
			<tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th></tr>
			{{range .Items}}<tr><td>{{.Name}}{{if .Variant}} ({{.Variant}}){{end}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .Price}}</td></tr>{{end}}
		</table>
		<p>Subtotal: {{money .Subtotal}}<br>Discount: -{{money .Discount}}<br>Shipping: {{money .Shipping}}<br>Tax: {{money .Tax}}</p>
		<p><strong>Total: {{money .Total}}</strong></p>
		<p>Shipping to: {{.Address}}</p>
	{{end}}`)
)

func mustTemplate(content string) *template.Template {
	funcs := template.FuncMap{"money": func(v float64) string { return fmt.Sprintf("%.2f", v) }}
	return template.Must(template.Must(template.New("layout").Funcs(funcs).Parse(layout)).Parse(content))
}

type linkData struct {
	Title string
	Email string
	Link  string
}

type OrderLine struct {
	Name     string
	Variant  string
	Quantity int
	Price    float64
}

// OrderSummary is what the confirmation email renders.
type OrderSummary struct {
	OrderID      uint
	ReceiverName string
	Items        []OrderLine
	Subtotal     float64
	Discount     float64
	Shipping     float64
	Tax          float64
	Total        float64
	Address      string
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

func VerifyEmail(link string) (string, string, error) {
	body, err := render(verifyTmpl, linkData{Title: "Verify your email", Link: link})
	return "[MADNESS] Verify your email", body, err
}

func SetupPassword(email, link string) (string, string, error) {
	body, err := render(setupTmpl, linkData{Title: "Your order account", Email: email, Link: link})
	return "[MADNESS] Set your password", body, err
}

func PasswordReset(link string) (string, string, error) {
	body, err := render(resetTmpl, linkData{Title: "Reset your password", Link: link})
	return "[MADNESS] Password reset", body, err
}

func OrderConfirmation(summary OrderSummary) (string, string, error) {
	data := struct {
		Title string
		OrderSummary
	}{Title: "Order confirmation", OrderSummary: summary}
	body, err := render(orderTmpl, data)
	return fmt.Sprintf("[MADNESS] Order #%d confirmation", summary.OrderID), body, err
}
