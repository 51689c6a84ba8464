package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"reloop-service/internal/geo"
	"reloop-service/internal/models"
	"reloop-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	orderSequence  = "orders"
	orderNumberFmt = "ORD-%05d"

	localDeliveryWindow  = 4 * time.Hour
	remoteDeliveryWindow = 24 * time.Hour
)

// OrderService handles order placement and tracking. Placement prefers the
// local return pool at the nearest warehouse, then any warehouse holding
// plain stock, then a best-effort nearest assignment with no stock movement.
type OrderService struct {
	store     Store
	locator   WarehouseLocator
	publisher Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store Store, locator WarehouseLocator, publisher Publisher) *OrderService {
	return &OrderService{
		store:     store,
		locator:   locator,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// PlaceOrderRequest is a request to place an order
type PlaceOrderRequest struct {
	ProductID       int64    `json:"product_id" binding:"required"`
	Quantity        int      `json:"quantity"`
	TotalPrice      int64    `json:"total_price"`
	DeliveryLat     *float64 `json:"delivery_lat,omitempty"`
	DeliveryLng     *float64 `json:"delivery_lng,omitempty"`
	DeliveryAddress string   `json:"delivery_address,omitempty"`
}

// Place creates an order through the fulfillment decision sequence. An order
// with no reachable warehouse is still created with a null fulfillment
// source; the storefront shows it as awaiting assignment.
func (s *OrderService) Place(ctx context.Context, principal Principal, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Place")
	defer span.End()

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	// Delivery point defaults to the principal's home coordinate supplied by
	// the identity collaborator.
	delivery := principal.Home
	if req.DeliveryLat != nil && req.DeliveryLng != nil {
		delivery = models.Coordinate{Lat: *req.DeliveryLat, Lng: *req.DeliveryLng}
	}
	if !delivery.Valid() {
		return nil, fmt.Errorf("delivery location: %w", ErrInvalidCoordinate)
	}

	product, err := s.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("product %d: %w", req.ProductID, ErrNotFound)
	}

	nearest, nearDist, err := s.locator.FindNearest(ctx, delivery)
	if err != nil {
		return nil, fmt.Errorf("warehouse lookup failed: %w", err)
	}

	var fulfilledFrom *int64
	fromLocal := false
	var costSaved int64
	var timeSaved float64

	// Step 1: qualified local-pool stock at the nearest warehouse.
	if nearest != nil && product.AllowLocalWarehouse {
		item, err := s.store.FindLocalPoolItem(ctx, product.ID, nearest.ID, quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to check local pool: %w", err)
		}
		if item != nil {
			if err := s.store.ConsumeInventoryTx(ctx, item.ID, quantity); err != nil {
				return nil, fmt.Errorf("failed to consume local inventory: %w", err)
			}
			fulfilledFrom = &nearest.ID
			fromLocal = true
			costSaved, timeSaved, err = s.savings(ctx, delivery, nearDist)
			if err != nil {
				s.logger.Warn("Failed to compute savings", zap.Error(err))
			}
		}
	}

	// Step 2: any warehouse holding plain stock.
	if fulfilledFrom == nil {
		item, err := s.store.FindAnyStock(ctx, product.ID, quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to check stock: %w", err)
		}
		if item != nil {
			if err := s.store.ConsumeInventoryTx(ctx, item.ID, quantity); err != nil {
				return nil, fmt.Errorf("failed to consume inventory: %w", err)
			}
			fulfilledFrom = &item.WarehouseID
		} else if nearest != nil {
			// Step 3: best-effort assignment, no stock adjustment.
			fulfilledFrom = &nearest.ID
		}
	}

	seq, err := s.store.NextSequence(ctx, orderSequence)
	if err != nil {
		return nil, err
	}

	window := remoteDeliveryWindow
	if fromLocal {
		window = localDeliveryWindow
	}
	eta := time.Now().Add(window)

	order := &models.Order{
		OrderNumber:        fmt.Sprintf(orderNumberFmt, seq),
		UserID:             principal.ID,
		ProductID:          product.ID,
		Quantity:           quantity,
		TotalPrice:         req.TotalPrice,
		Status:             models.OrderStatusPlaced,
		FulfilledFrom:      fulfilledFrom,
		FulfilledFromLocal: fromLocal,
		DeliveryLat:        delivery.Lat,
		DeliveryLng:        delivery.Lng,
		DeliveryAddress:    req.DeliveryAddress,
		EstimatedDelivery:  &eta,
		CostSaved:          costSaved,
		TimeSaved:          timeSaved,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	note := "Fulfilled from seller warehouse"
	if fromLocal {
		note = "Fulfilled from local warehouse"
	} else if fulfilledFrom == nil {
		note = "Awaiting warehouse assignment"
	}
	if err := s.store.AppendOrderEvent(ctx, order.ID, models.OrderStatusPlaced, note); err != nil {
		return nil, err
	}

	util.OrdersPlacedTotal.Inc()
	if fromLocal {
		util.OrdersLocalFulfilledTotal.Inc()
	}
	if fulfilledFrom == nil {
		util.OrdersUnassignedTotal.Inc()
	}

	s.logger.Info("Order placed",
		zap.String("order_number", order.OrderNumber),
		zap.Bool("local", fromLocal),
		zap.Int64("cost_saved", costSaved))

	s.publishOrderPlaced(ctx, order)
	return order, nil
}

// savings compares the nearest-warehouse distance against the farthest
// candidate as the worst-case baseline: cost at the fixed per-km rate, time
// at the average local speed.
func (s *OrderService) savings(ctx context.Context, delivery models.Coordinate, nearDist float64) (int64, float64, error) {
	farthest, farDist, err := s.locator.FindFarthest(ctx, delivery)
	if err != nil {
		return 0, 0, err
	}
	if farthest == nil {
		return 0, 0, nil
	}

	cost := geo.CostSaving(farDist, nearDist)
	hours := math.Round((geo.DeliveryHours(farDist)-geo.DeliveryHours(nearDist))*10) / 10
	return cost, hours, nil
}

// Get retrieves an order by ID
func (s *OrderService) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return order, nil
}

// List retrieves the orders visible to the principal
func (s *OrderService) List(ctx context.Context, principal Principal) ([]models.Order, error) {
	if principal.Role == RoleUser {
		return s.store.GetOrdersByUserID(ctx, principal.ID)
	}
	return s.store.GetOrders(ctx)
}

// UpdateStatus sets an order status and appends a timeline entry. Delivered
// stamps the actual delivery time.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status, note string) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if status == models.OrderStatusDelivered {
		err = s.store.MarkOrderDelivered(ctx, orderID)
	} else {
		err = s.store.UpdateOrderStatus(ctx, orderID, status)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendOrderEvent(ctx, orderID, status, note); err != nil {
		return nil, err
	}
	order.Status = status

	if s.publisher != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusChanged,
				Timestamp: time.Now(),
			},
			OrderID: orderID,
			Status:  status,
			Note:    note,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}
	return order, nil
}

// Timeline retrieves an order timeline in chronological order
func (s *OrderService) Timeline(ctx context.Context, orderID int64) ([]models.TimelineEntry, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.GetOrderTimeline(ctx, orderID)
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		UserID:             order.UserID,
		ProductID:          order.ProductID,
		Quantity:           order.Quantity,
		FulfilledFrom:      order.FulfilledFrom,
		FulfilledFromLocal: order.FulfilledFromLocal,
		CostSaved:          order.CostSaved,
		TimeSaved:          order.TimeSaved,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}
