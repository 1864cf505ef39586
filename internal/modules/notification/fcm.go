// README: Push notifications through Firebase Cloud Messaging.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

// MessageSender is satisfied by *messaging.Client.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type DeviceTokenLookup interface {
	DeviceTokens(ctx context.Context, userID types.ID) ([]string, error)
}

// FCMNotifier is unsupported when no sender is configured and denied for
// recipients without a registered device token.
type FCMNotifier struct {
	sender MessageSender
	tokens DeviceTokenLookup
	log    *zap.Logger
}

func NewFCMNotifier(sender MessageSender, tokens DeviceTokenLookup, log *zap.Logger) *FCMNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &FCMNotifier{sender: sender, tokens: tokens, log: log}
}

func (n *FCMNotifier) Channel() string { return "fcm" }

func (n *FCMNotifier) Capability(ctx context.Context, recipient types.ID) Capability {
	if n.sender == nil || n.tokens == nil {
		return Capability{}
	}
	toks, err := n.tokens.DeviceTokens(ctx, recipient)
	if err != nil {
		n.log.Debug("device token lookup failed", zap.String("recipient", recipient.String()), zap.Error(err))
		return Capability{Supported: true}
	}
	return Capability{Supported: true, Granted: len(toks) > 0}
}

func (n *FCMNotifier) Notify(ctx context.Context, recipient types.ID, ev Event) error {
	toks, err := n.tokens.DeviceTokens(ctx, recipient)
	if err != nil {
		return fmt.Errorf("device tokens: %w", err)
	}
	var errs []error
	for _, tok := range toks {
		messageID, err := n.sender.Send(ctx, buildMessage(tok, ev))
		if err != nil {
			errs = append(errs, fmt.Errorf("sending FCM to token %s: %w", tok, err))
			continue
		}
		n.log.Debug("FCM sent",
			zap.String("booking_id", ev.BookingID.String()),
			zap.String("message_id", messageID))
	}
	return errors.Join(errs...)
}

func buildMessage(token string, ev Event) *messaging.Message {
	title, body := messageText(ev)
	return &messaging.Message{
		Token: token,
		Data: map[string]string{
			"type":         string(ev.Kind),
			"booking_id":   ev.BookingID.String(),
			"status":       ev.Status,
			"scheduled_at": ev.ScheduledAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			"price_tnd":    strconv.FormatFloat(ev.PriceTND, 'f', 2, 64),
		},
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
}

func messageText(ev Event) (string, string) {
	switch ev.Kind {
	case KindBookingCreated:
		return "Nouvelle réservation",
			fmt.Sprintf("%s → %s, %.2f TND", ev.PickupAddress, ev.DestinationAddress, ev.PriceTND)
	case KindBookingCancelled:
		return "Réservation annulée",
			fmt.Sprintf("%s → %s", ev.PickupAddress, ev.DestinationAddress)
	default:
		return "Mise à jour de réservation",
			fmt.Sprintf("Statut : %s", ev.Status)
	}
}
