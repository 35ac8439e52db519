package worker

import (
	"context"
	"encoding/json"

	"github.com/aproko/clinic-api/internal/email"
	"github.com/aproko/clinic-api/internal/model"
	"github.com/aproko/clinic-api/pkg/logger"
	"github.com/aproko/clinic-api/pkg/messaging"
	"github.com/aproko/clinic-api/pkg/worker"
)

// Notifier consumes appointment events from the broker and sends the
// matching patient emails. Delivery is at-least-once: a redelivered event
// sends a duplicate email, which is acceptable for notifications.
type Notifier struct {
	broker messaging.Broker
	mailer email.Service
	logger *logger.Logger
}

func NewNotifier(broker messaging.Broker, mailer email.Service, logger *logger.Logger) *Notifier {
	return &Notifier{broker: broker, mailer: mailer, logger: logger}
}

func (n *Notifier) Start(ctx context.Context) error {
	messages, err := n.broker.Subscribe(ctx, worker.EventsChannel)
	if err != nil {
		return err
	}

	n.logger.Info("starting notifier")

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("shutting down notifier")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			n.handle(ctx, msg)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, raw []byte) {
	var event model.OutboxEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		n.logger.Error(err, "failed to decode event")
		return
	}

	var payload model.AppointmentEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error(err, "failed to decode event payload", "event_type", event.EventType)
		return
	}
	if payload.PatientEmail == "" {
		n.logger.Warn("event has no patient email, skipping", "event_id", event.ID.String())
		return
	}

	var err error
	switch event.EventType {
	case model.EventAppointmentBooked:
		err = n.mailer.SendBookingConfirmation(ctx,
			payload.PatientEmail, payload.PatientName, payload.DoctorName, payload.Date, payload.Time)
	case model.EventAppointmentCancelled:
		err = n.mailer.SendCancellationNotice(ctx,
			payload.PatientEmail, payload.PatientName, payload.DoctorName, payload.Date, payload.Time)
	default:
		n.logger.Warn("unknown event type", "event_type", event.EventType)
		return
	}

	if err != nil {
		n.logger.Error(err, "failed to send notification",
			"event_id", event.ID.String(),
			"event_type", event.EventType)
	}
}
