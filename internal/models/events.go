package models

import "time"

// Event types
const (
	EventTypeOrderPlaced         = "ORDER_PLACED"
	EventTypeOrderStatusChanged  = "ORDER_STATUS_CHANGED"
	EventTypeReturnCreated       = "RETURN_CREATED"
	EventTypeReturnStatusChanged = "RETURN_STATUS_CHANGED"
	EventTypeInventoryPooled     = "INVENTORY_POOLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when an order is placed
type OrderPlacedEvent struct {
	BaseEvent
	OrderID            int64   `json:"order_id"`
	OrderNumber        string  `json:"order_number"`
	UserID             int64   `json:"user_id"`
	ProductID          int64   `json:"product_id"`
	Quantity           int     `json:"quantity"`
	FulfilledFrom      *int64  `json:"fulfilled_from,omitempty"`
	FulfilledFromLocal bool    `json:"fulfilled_from_local"`
	CostSaved          int64   `json:"cost_saved"`
	TimeSaved          float64 `json:"time_saved"`
}

// OrderStatusChangedEvent published on manual order status updates
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
	Note    string `json:"note,omitempty"`
}

// ReturnCreatedEvent published when a return is initiated
type ReturnCreatedEvent struct {
	BaseEvent
	ReturnID          int64   `json:"return_id"`
	ReturnNumber      string  `json:"return_number"`
	OrderID           int64   `json:"order_id"`
	UserID            int64   `json:"user_id"`
	ProductID         int64   `json:"product_id"`
	ReturnScore       int     `json:"return_score"`
	Recommendation    string  `json:"recommendation"`
	AssignedWarehouse *int64  `json:"assigned_warehouse,omitempty"`
	DistanceSaved     float64 `json:"distance_saved"`
	CO2Saved          float64 `json:"co2_saved"`
}

// ReturnStatusChangedEvent published on every return pipeline transition
type ReturnStatusChangedEvent struct {
	BaseEvent
	ReturnID          int64  `json:"return_id"`
	ReturnNumber      string `json:"return_number"`
	Status            string `json:"status"`
	AssignedWarehouse *int64 `json:"assigned_warehouse,omitempty"`
	Note              string `json:"note,omitempty"`
}

// InventoryPooledEvent published when a processed return lands in the local pool
type InventoryPooledEvent struct {
	BaseEvent
	ReturnID    int64 `json:"return_id"`
	ProductID   int64 `json:"product_id"`
	WarehouseID int64 `json:"warehouse_id"`
	InventoryID int64 `json:"inventory_id"`
}
