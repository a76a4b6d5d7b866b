package email

import (
	"context"
	"log/slog"

	"github.com/pricepulse/backend/internal/apperror"
	"github.com/pricepulse/backend/internal/logger"
	"github.com/pricepulse/backend/internal/model"
)

// Transport is the mail provider boundary. Send reports nil on a
// 2xx-equivalent response; VerifiedAddresses answers which recipients the
// provider will accept mail for.
type Transport interface {
	Send(ctx context.Context, notification model.EmailNotification) error
	VerifiedAddresses(ctx context.Context) ([]string, error)
}

// Sender dispatches composed notifications through a Transport
type Sender struct {
	transport Transport
}

func NewSender(transport Transport) *Sender {
	return &Sender{transport: transport}
}

// SendAll sends each notification whose recipient is verified. Unverified
// recipients are skipped silently for this run. One recipient's failure
// never stops the rest; the returned boolean is the AND across the sends
// that were attempted.
func (s *Sender) SendAll(ctx context.Context, notifications []model.EmailNotification) (bool, error) {
	log := logger.FromContext(ctx)

	addresses, err := s.transport.VerifiedAddresses(ctx)
	if err != nil {
		return false, apperror.Notification(err, "listing verified addresses")
	}
	verified := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		verified[a] = struct{}{}
	}

	allSent := true
	for _, n := range notifications {
		if _, ok := verified[n.Recipient]; !ok {
			log.Info("Skipping unverified recipient", slog.String("recipient", n.Recipient))
			continue
		}

		if err := s.transport.Send(ctx, n); err != nil {
			allSent = false
			log.Error("Sending notification failed",
				slog.String("recipient", n.Recipient),
				slog.String("error", err.Error()),
			)
			continue
		}

		log.Info("Notification sent",
			slog.String("recipient", n.Recipient),
			slog.String("subject", n.Subject),
		)
	}
	return allSent, nil
}
