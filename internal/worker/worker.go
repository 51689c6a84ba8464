package worker

import (
	"context"
	"log"

	"reloop-service/internal/broker"
	"reloop-service/internal/models"
	"reloop-service/internal/store"
)

// Demand score deltas per event. Returns heading toward a warehouse raise
// its score; local fulfillment drains pooled stock and lowers it.
const (
	returnCreatedDelta   = 5
	inventoryPooledDelta = 3
	localFulfillDelta    = -2
)

// DemandWorker consumes domain events and keeps warehouse demand scores
// current for the heatmap.
type DemandWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
}

// NewDemandWorker creates a new demand worker
func NewDemandWorker(consumer *broker.Consumer, st *store.Store) *DemandWorker {
	w := &DemandWorker{
		consumer: consumer,
		store:    st,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnReturnCreated(w.handleReturnCreated)
	eventHandler.OnInventoryPooled(w.handleInventoryPooled)
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *DemandWorker) Start(ctx context.Context) error {
	log.Println("Starting demand worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *DemandWorker) Stop() error {
	log.Println("Stopping demand worker...")
	return w.consumer.Close()
}

func (w *DemandWorker) handleReturnCreated(ctx context.Context, event *models.ReturnCreatedEvent) error {
	if event.AssignedWarehouse == nil {
		return nil
	}

	log.Printf("Return %s created, bumping demand for warehouse %d", event.ReturnNumber, *event.AssignedWarehouse)
	return w.store.AdjustDemandScore(ctx, *event.AssignedWarehouse, returnCreatedDelta)
}

func (w *DemandWorker) handleInventoryPooled(ctx context.Context, event *models.InventoryPooledEvent) error {
	log.Printf("Return %d pooled into warehouse %d", event.ReturnID, event.WarehouseID)
	return w.store.AdjustDemandScore(ctx, event.WarehouseID, inventoryPooledDelta)
}

func (w *DemandWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	if !event.FulfilledFromLocal || event.FulfilledFrom == nil {
		return nil
	}

	log.Printf("Order %s fulfilled locally from warehouse %d", event.OrderNumber, *event.FulfilledFrom)
	return w.store.AdjustDemandScore(ctx, *event.FulfilledFrom, localFulfillDelta)
}
