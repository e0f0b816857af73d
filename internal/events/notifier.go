package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cryptosniper/internal/domain"
)

const publishTimeout = 3 * time.Second

// Recorder counts publish outcomes
type Recorder interface {
	EventPublished(eventType string, err error)
}

// Notifier publishes best-effort: failures are logged and counted, never
// returned to the request that caused them
type Notifier struct {
	publisher domain.EventPublisher
	log       *zap.Logger
	recorder  Recorder
	now       func() time.Time
}

// NewNotifier wraps publisher; recorder may be nil
func NewNotifier(publisher domain.EventPublisher, log *zap.Logger, recorder Recorder) *Notifier {
	return &Notifier{
		publisher: publisher,
		log:       log,
		recorder:  recorder,
		now:       time.Now,
	}
}

// Notify publishes an event on a context detached from the caller's
// cancellation so a finished request does not abort the write
func (n *Notifier) Notify(ctx context.Context, eventType string, userID, entityID int64, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := n.publisher.Publish(ctx, domain.Event{
		Type:       eventType,
		UserID:     userID,
		EntityID:   entityID,
		Payload:    payload,
		OccurredAt: n.now().UTC(),
	})
	if n.recorder != nil {
		n.recorder.EventPublished(eventType, err)
	}
	if err != nil {
		n.log.Warn("failed to publish event",
			zap.String("type", eventType),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
