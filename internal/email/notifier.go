package email

import (
	"context"
	"log/slog"

	"github.com/pricepulse/backend/internal/apperror"
	"github.com/pricepulse/backend/internal/logger"
	"github.com/pricepulse/backend/internal/model"
)

// Notifier runs the full alerting pass for one set of readings: match
// subscribers, compose one email per recipient, send through the transport.
type Notifier struct {
	matcher *Matcher
	sender  *Sender
}

func NewNotifier(matcher *Matcher, sender *Sender) *Notifier {
	return &Notifier{matcher: matcher, sender: sender}
}

// Notify returns the AND across all attempted sends. No matches is a clean
// pass, not a failure.
func (n *Notifier) Notify(ctx context.Context, readings []model.PriceReading) (bool, error) {
	matches, err := n.matcher.Match(ctx, readings)
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		logger.FromContext(ctx).Info("No subscribers matched this run")
		return true, nil
	}

	notifications, err := Compose(matches)
	if err != nil {
		return false, apperror.Notification(err, "composing notifications")
	}

	logger.FromContext(ctx).Info("Sending notifications",
		slog.Int("matches", len(matches)),
		slog.Int("recipients", len(notifications)),
	)
	return n.sender.SendAll(ctx, notifications)
}
