package worker

import (
	"context"

	"checkout-service/internal/broker"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// JournalWorker projects checkout events from Kafka into the checkout journal
type JournalWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewJournalWorker creates a new journal worker
func NewJournalWorker(consumer *broker.Consumer, journal *service.CheckoutJournal) *JournalWorker {
	return &JournalWorker{
		consumer:     consumer,
		eventHandler: NewJournalHandler(journal),
		logger:       util.GetLogger(),
	}
}

// NewJournalHandler routes every checkout event type to the journal
func NewJournalHandler(journal *service.CheckoutJournal) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnBookingCreated(journal.HandleBookingCreated)
	eventHandler.OnPaymentInitiated(journal.HandlePaymentInitiated)
	eventHandler.OnPaymentVerified(journal.HandlePaymentVerified)

	return eventHandler
}

// Start consumes until ctx is cancelled
func (w *JournalWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting journal worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *JournalWorker) Stop() error {
	w.logger.Info("Stopping journal worker")
	return w.consumer.Close()
}
