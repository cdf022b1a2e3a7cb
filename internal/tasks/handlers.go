package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ariefcatur/go-order-processing/internal/mail"
)

// ConfirmationEmail builds the order confirmation mail.
func ConfirmationEmail(p OrderConfirmationPayload, from string) mail.Message {
	name := p.UserFirstName
	if name == "" {
		name = p.UserEmail
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	b.WriteString("Thank you for your order! Here are the details:\n")
	fmt.Fprintf(&b, "Order ID: %d\n", p.OrderID)
	fmt.Fprintf(&b, "Total Price: $%s\n", p.TotalPrice)
	fmt.Fprintf(&b, "Discount: $%s\n", p.Discount)
	b.WriteString("Items:\n")
	lines := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		lines = append(lines, fmt.Sprintf("- %s (Qty: %d)", it.ProductName, it.Quantity))
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nBest regards,\nThe Order Team")

	return mail.Message{
		From:    from,
		To:      []string{p.UserEmail},
		Subject: fmt.Sprintf("Order Confirmation - Order #%d", p.OrderID),
		Body:    b.String(),
	}
}

// EmailHandler sends confirmation emails. Send failures are logged and the task is
// considered done; there is no retry.
func EmailHandler(sender mail.Sender, from string, log *slog.Logger) HandlerFunc {
	return func(ctx context.Context, env Envelope) error {
		p, err := DecodePayload[OrderConfirmationPayload](env)
		if err != nil {
			log.Error("bad confirmation payload", "task_id", env.TaskID, "error", err)
			return nil
		}
		msg := ConfirmationEmail(p, from)
		log.Info("sending confirmation email", "order_id", p.OrderID, "to", msg.To)
		if err := sender.Send(ctx, msg); err != nil {
			log.Error("failed to send confirmation email", "order_id", p.OrderID, "error", err)
			return nil
		}
		log.Info("confirmation email sent", "order_id", p.OrderID)
		return nil
	}
}

// Expirer is satisfied by promos.Service.
type Expirer interface {
	ExpireEnded(ctx context.Context) (int64, error)
}

func ExpirePromoCodesHandler(promos Expirer, log *slog.Logger) HandlerFunc {
	return func(ctx context.Context, env Envelope) error {
		n, err := promos.ExpireEnded(ctx)
		if err != nil {
			return err
		}
		log.Info("expired promo codes deactivated", "count", n, "task_id", env.TaskID)
		return nil
	}
}
