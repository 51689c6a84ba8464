package models

import (
	"math"
	"time"
)

// Coordinate is a point on the spherical-earth model used by all geo math.
type Coordinate struct {
	Lat float64 `db:"lat" json:"lat"`
	Lng float64 `db:"lng" json:"lng"`
}

// Valid reports whether both components are finite.
func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lng) && !math.IsInf(c.Lng, 0)
}

// Warehouse statuses
const (
	WarehouseStatusActive      = "active"
	WarehouseStatusMaintenance = "maintenance"
	WarehouseStatusFull        = "full"
)

// Warehouse represents a fulfillment node
type Warehouse struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        string    `db:"code" json:"code"`
	Lat         float64   `db:"lat" json:"lat"`
	Lng         float64   `db:"lng" json:"lng"`
	Address     string    `db:"address" json:"address"`
	Capacity    int       `db:"capacity" json:"capacity"`
	CurrentLoad int       `db:"current_load" json:"current_load"`
	Status      string    `db:"status" json:"status"`
	Manager     string    `db:"manager" json:"manager,omitempty"`
	DemandScore int       `db:"demand_score" json:"demand_score"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Location returns the warehouse position as a Coordinate.
func (w *Warehouse) Location() Coordinate {
	return Coordinate{Lat: w.Lat, Lng: w.Lng}
}

// LoadPercentage is the derived utilization of the warehouse.
func (w *Warehouse) LoadPercentage() int {
	if w.Capacity <= 0 {
		return 0
	}
	return int(math.Round(float64(w.CurrentLoad) / float64(w.Capacity) * 100))
}

// Eligible reports whether the warehouse can take new assignments.
func (w *Warehouse) Eligible() bool {
	return w.Status == WarehouseStatusActive && w.CurrentLoad < w.Capacity
}

// Product represents a sellable item
type Product struct {
	ID                  int64     `db:"id" json:"id"`
	SKU                 string    `db:"sku" json:"sku"`
	Name                string    `db:"name" json:"name"`
	Description         string    `db:"description" json:"description,omitempty"`
	Price               int64     `db:"price" json:"price"`
	Category            string    `db:"category" json:"category"`
	SellerID            int64     `db:"seller_id" json:"seller_id"`
	AllowLocalWarehouse bool      `db:"allow_local_warehouse" json:"allow_local_warehouse"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// Order statuses
const (
	OrderStatusPlaced          = "placed"
	OrderStatusConfirmed       = "confirmed"
	OrderStatusShipped         = "shipped"
	OrderStatusOutForDelivery  = "out-for-delivery"
	OrderStatusDelivered       = "delivered"
	OrderStatusReturnInitiated = "return-initiated"
	OrderStatusReturned        = "returned"
)

// Order represents a customer order
type Order struct {
	ID                 int64      `db:"id" json:"id"`
	OrderNumber        string     `db:"order_number" json:"order_number"`
	UserID             int64      `db:"user_id" json:"user_id"`
	ProductID          int64      `db:"product_id" json:"product_id"`
	Quantity           int        `db:"quantity" json:"quantity"`
	TotalPrice         int64      `db:"total_price" json:"total_price"`
	Status             string     `db:"status" json:"status"`
	FulfilledFrom      *int64     `db:"fulfilled_from" json:"fulfilled_from,omitempty"`
	FulfilledFromLocal bool       `db:"fulfilled_from_local" json:"fulfilled_from_local"`
	DeliveryLat        float64    `db:"delivery_lat" json:"delivery_lat"`
	DeliveryLng        float64    `db:"delivery_lng" json:"delivery_lng"`
	DeliveryAddress    string     `db:"delivery_address" json:"delivery_address,omitempty"`
	EstimatedDelivery  *time.Time `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	ActualDelivery     *time.Time `db:"actual_delivery" json:"actual_delivery,omitempty"`
	CostSaved          int64      `db:"cost_saved" json:"cost_saved"`
	TimeSaved          float64    `db:"time_saved" json:"time_saved"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// DeliveryLocation returns the order destination as a Coordinate.
func (o *Order) DeliveryLocation() Coordinate {
	return Coordinate{Lat: o.DeliveryLat, Lng: o.DeliveryLng}
}

// Return pipeline statuses
const (
	ReturnStatusInitiated       = "initiated"
	ReturnStatusPickupScheduled = "pickup-scheduled"
	ReturnStatusPickedUp        = "picked-up"
	ReturnStatusReceived        = "received"
	ReturnStatusInspecting      = "inspecting"
	ReturnStatusRepackaging     = "repackaging"
	ReturnStatusRelabeled       = "relabeled"
	ReturnStatusInLocalPool     = "in-local-pool"
	ReturnStatusSentBack        = "sent-back"
	ReturnStatusTransferred     = "transferred"
	ReturnStatusRejected        = "rejected"
)

// Approval statuses
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Recommendation tiers produced by the return scorer
const (
	RecommendationApprove      = "approve"
	RecommendationManualReview = "manual-review"
	RecommendationReject       = "reject"
	RecommendationPending      = "pending"
)

// Seller routing decisions
const (
	SellerDecisionPending            = "pending"
	SellerDecisionKeepLocal          = "keep-local"
	SellerDecisionReturnOriginal     = "return-original"
	SellerDecisionTransferHighDemand = "transfer-high-demand"
)

// Inspection grades
const (
	ConditionPending = "pending"
	ConditionLikeNew = "Like New"
	ConditionGood    = "Good"
	ConditionDamaged = "Damaged"
	ConditionReject  = "Reject"
)

// Resale decisions derived from the inspection grade
const (
	ResalePending        = "pending"
	ResaleLocal          = "local-resale"
	ResaleDiscounted     = "discounted-resale"
	ResaleReturnToSeller = "return-to-seller"
	ResaleNonResellable  = "non-resellable"
)

// Return represents a return request moving through the reverse pipeline
type Return struct {
	ID                       int64     `db:"id" json:"id"`
	ReturnNumber             string    `db:"return_number" json:"return_number"`
	OrderID                  int64     `db:"order_id" json:"order_id"`
	UserID                   int64     `db:"user_id" json:"user_id"`
	ProductID                int64     `db:"product_id" json:"product_id"`
	Category                 string    `db:"category" json:"category"`
	Reason                   string    `db:"reason" json:"reason"`
	Status                   string    `db:"status" json:"status"`
	ApprovalStatus           string    `db:"approval_status" json:"approval_status"`
	ReturnScore              int       `db:"return_score" json:"return_score"`
	RecommendationStatus     string    `db:"recommendation_status" json:"recommendation_status"`
	OriginalDeliveryLat      *float64  `db:"original_delivery_lat" json:"original_delivery_lat,omitempty"`
	OriginalDeliveryLng      *float64  `db:"original_delivery_lng" json:"original_delivery_lng,omitempty"`
	OriginalDeliveryAddress  string    `db:"original_delivery_address" json:"original_delivery_address,omitempty"`
	PickupLat                float64   `db:"pickup_lat" json:"pickup_lat"`
	PickupLng                float64   `db:"pickup_lng" json:"pickup_lng"`
	PickupAddress            string    `db:"pickup_address" json:"pickup_address,omitempty"`
	AssignedWarehouse        *int64    `db:"assigned_warehouse" json:"assigned_warehouse,omitempty"`
	OriginalWarehouse        *int64    `db:"original_warehouse" json:"original_warehouse,omitempty"`
	SellerDecision           string    `db:"seller_decision" json:"seller_decision"`
	InspectionResult         string    `db:"inspection_result" json:"inspection_result"`
	ResaleDecision           string    `db:"resale_decision" json:"resale_decision"`
	DistanceSaved            float64   `db:"distance_saved" json:"distance_saved"`
	DistanceBetweenLocations float64   `db:"distance_between_locations" json:"distance_between_locations"`
	CO2Saved                 float64   `db:"co2_saved" json:"co2_saved"`
	Pooled                   bool      `db:"pooled" json:"pooled"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time `db:"updated_at" json:"updated_at"`
}

// PickupLocation returns the pickup point as a Coordinate.
func (r *Return) PickupLocation() Coordinate {
	return Coordinate{Lat: r.PickupLat, Lng: r.PickupLng}
}

// OriginalDeliveryLocation returns the original delivery point when both
// components were recorded on the order.
func (r *Return) OriginalDeliveryLocation() (Coordinate, bool) {
	if r.OriginalDeliveryLat == nil || r.OriginalDeliveryLng == nil {
		return Coordinate{}, false
	}
	c := Coordinate{Lat: *r.OriginalDeliveryLat, Lng: *r.OriginalDeliveryLng}
	return c, c.Valid()
}

// TimelineEntry is an append-only event on an order or return history.
type TimelineEntry struct {
	ID        int64     `db:"id" json:"-"`
	Status    string    `db:"status" json:"status"`
	Note      string    `db:"note" json:"note,omitempty"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}

// Inventory item conditions
const (
	ItemConditionNew     = "new"
	ItemConditionLikeNew = "like-new"
	ItemConditionGood    = "good"
	ItemConditionFair    = "fair"
)

// Inventory inspection statuses
const (
	InspectionPending    = "pending"
	InspectionInspecting = "inspecting"
	InspectionPassed     = "passed"
	InspectionFailed     = "failed"
)

// Repackaging statuses
const (
	RepackagingNotNeeded  = "not-needed"
	RepackagingPending    = "pending"
	RepackagingInProgress = "in-progress"
	RepackagingDone       = "done"
)

// Inventory sources
const (
	SourceOriginal = "original"
	SourceReturn   = "return"
)

// InventoryItem represents a stock line at a warehouse
type InventoryItem struct {
	ID                int64     `db:"id" json:"id"`
	ProductID         int64     `db:"product_id" json:"product_id"`
	WarehouseID       int64     `db:"warehouse_id" json:"warehouse_id"`
	Quantity          int       `db:"quantity" json:"quantity"`
	Condition         string    `db:"condition" json:"condition"`
	InspectionStatus  string    `db:"inspection_status" json:"inspection_status"`
	RepackagingStatus string    `db:"repackaging_status" json:"repackaging_status"`
	LabelGenerated    bool      `db:"label_generated" json:"label_generated"`
	IsLocalPool       bool      `db:"is_local_pool" json:"is_local_pool"`
	Source            string    `db:"source" json:"source"`
	ReturnRef         *int64    `db:"return_ref" json:"return_ref,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
