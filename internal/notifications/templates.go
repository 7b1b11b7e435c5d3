package notifications

import (
	"fmt"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox/payloads"
)

func orderConfirmationMail(event payloads.OrderCreatedEvent) (string, string) {
	subject := fmt.Sprintf("Order %s confirmed", event.OrderNumber)
	html := fmt.Sprintf(
		`<p>Salam %s,</p>
<p>Thank you for your order! We have received order <strong>%s</strong> with %d item(s) for a total of Rs. %d.</p>
<p>We will let you know as soon as it is on its way.</p>
<p>Ghazali Foods</p>`,
		event.CustomerName, event.OrderNumber, event.ItemCount, event.TotalCents/100,
	)
	return subject, html
}

func statusUpdateMail(event payloads.OrderStatusChangedEvent) (string, string) {
	subject := fmt.Sprintf("Order %s is now %s", event.OrderNumber, statusLabel(event.ToStatus.String()))
	body := fmt.Sprintf(
		`<p>Your order <strong>%s</strong> is now <strong>%s</strong>.</p>`,
		event.OrderNumber, statusLabel(event.ToStatus.String()),
	)
	if event.Reason != "" {
		body += fmt.Sprintf(`<p>Reason: %s</p>`, event.Reason)
	}
	return subject, body + `<p>Ghazali Foods</p>`
}

func backInStockMail(event payloads.StockReplenishedEvent) (string, string) {
	name := event.ProductName
	if event.VariantName != nil {
		name = fmt.Sprintf("%s (%s)", name, *event.VariantName)
	}
	subject := fmt.Sprintf("%s is back in stock", name)
	html := fmt.Sprintf(
		`<p>Good news! <strong>%s</strong> is available again.</p>
<p>Stock is limited, so order soon.</p>
<p>Ghazali Foods</p>`,
		name,
	)
	return subject, html
}

// statusLabel turns an order status into customer-facing words.
func statusLabel(status string) string {
	switch status {
	case "out_for_delivery":
		return "out for delivery"
	default:
		return status
	}
}
