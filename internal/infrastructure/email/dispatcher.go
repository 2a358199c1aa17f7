package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/pixelmuse/pixelmuse/internal/domain/notification"
	"github.com/pixelmuse/pixelmuse/internal/shared/config"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// Dispatcher delivers billing events over SMTP. Events without a recipient
// address are dropped with a debug log; billing flows must not depend on
// the user service being reachable for an email address.
type Dispatcher struct {
	cfg    *config.EmailConfig
	dialer *gomail.Dialer
	logger logger.Interface
}

func NewDispatcher(cfg *config.EmailConfig, logger logger.Interface) *Dispatcher {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)

	return &Dispatcher{
		cfg:    cfg,
		dialer: dialer,
		logger: logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event notification.Event) error {
	if event.Email == "" {
		d.logger.Debugw("notification event without recipient, skipping",
			"event_type", string(event.Type),
			"user_id", event.UserID,
		)
		return nil
	}

	subject, body := d.render(event)
	if subject == "" {
		d.logger.Debugw("no template for event type, skipping",
			"event_type", string(event.Type),
		)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", d.cfg.FromAddress, d.cfg.FromName)
	msg.SetHeader("To", event.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := d.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}

	return nil
}

func (d *Dispatcher) render(event notification.Event) (subject, body string) {
	amount := fmt.Sprintf("%.2f %s", float64(event.AmountCents)/100, event.Currency)

	switch event.Type {
	case notification.EventPaymentSucceeded:
		return "Payment received",
			fmt.Sprintf("We received your payment of %s for order %s. Thank you!", amount, event.OrderCode)
	case notification.EventPaymentFailed:
		return "Payment failed",
			fmt.Sprintf("Your payment for order %s could not be processed: %s. Please update your payment details.", event.OrderCode, event.Reason)
	case notification.EventSubscriptionRenewed:
		return "Subscription renewed",
			fmt.Sprintf("Your %s subscription has been renewed.", event.Tier)
	case notification.EventSubscriptionPastDue:
		return "Action needed: payment past due",
			fmt.Sprintf("We could not renew your %s subscription. Please complete the payment to keep your benefits.", event.Tier)
	case notification.EventSubscriptionExpired:
		return "Subscription expired",
			fmt.Sprintf("Your %s subscription has expired. You are now on the free plan.", event.Tier)
	case notification.EventSubscriptionCancelled:
		return "Subscription cancelled",
			fmt.Sprintf("Your %s subscription has been cancelled.", event.Tier)
	case notification.EventQuotaExhausted:
		return "Generation limit reached",
			"You have reached your generation limit. Upgrade your plan for more."
	default:
		return "", ""
	}
}
