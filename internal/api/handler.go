package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"reloop-service/internal/models"
	"reloop-service/internal/service"
	"reloop-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	products   *service.ProductService
	orders     *service.OrderService
	returns    *service.ReturnService
	warehouses *service.WarehouseService
	inventory  *service.InventoryService
	analytics  *service.AnalyticsService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	products *service.ProductService,
	orders *service.OrderService,
	returns *service.ReturnService,
	warehouses *service.WarehouseService,
	inventory *service.InventoryService,
	analytics *service.AnalyticsService,
) *Handler {
	return &Handler{
		products:   products,
		orders:     orders,
		returns:    returns,
		warehouses: warehouses,
		inventory:  inventory,
		analytics:  analytics,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(identityMiddleware())
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/my", authorize(service.RoleSeller), h.myProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.POST("/products", authorize(service.RoleSeller, service.RoleAdmin), h.createProduct)
		v1.PUT("/products/:id", authorize(service.RoleSeller, service.RoleAdmin), h.updateProduct)
		v1.PATCH("/products/:id/local-warehouse", authorize(service.RoleSeller, service.RoleAdmin), h.setLocalWarehouse)

		v1.POST("/orders", h.placeOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", authorize(service.RoleAdmin), h.updateOrderStatus)

		v1.POST("/returns", h.createReturn)
		v1.GET("/returns", h.listReturns)
		v1.GET("/returns/:id", h.getReturn)
		v1.PATCH("/returns/:id/approval", authorize(service.RoleSeller, service.RoleAdmin), h.approveReturn)
		v1.PATCH("/returns/:id/assign-warehouse", authorize(service.RoleAdmin), h.assignWarehouse)
		v1.PATCH("/returns/:id/status", authorize(service.RoleAdmin), h.updateReturnStatus)
		v1.PATCH("/returns/:id/inspect", authorize(service.RoleAdmin), h.inspectReturn)
		v1.PATCH("/returns/:id/seller-decision", authorize(service.RoleSeller, service.RoleAdmin), h.sellerDecision)

		v1.GET("/warehouses", h.listWarehouses)
		v1.GET("/warehouses/nearest", h.nearestWarehouse)
		v1.GET("/warehouses/stats", authorize(service.RoleAdmin), h.warehouseStats)
		v1.POST("/warehouses", authorize(service.RoleAdmin), h.createWarehouse)
		v1.PUT("/warehouses/:id", authorize(service.RoleAdmin), h.updateWarehouse)

		v1.GET("/inventory", h.listInventory)
		v1.POST("/inventory", authorize(service.RoleAdmin), h.createInventory)
		v1.GET("/inventory/check-local/:productId", h.checkLocal)
		v1.PATCH("/inventory/:id/inspection", authorize(service.RoleAdmin), h.updateInspection)
		v1.PATCH("/inventory/:id/repackaging", authorize(service.RoleAdmin), h.updateRepackaging)

		v1.GET("/analytics/cost-savings", authorize(service.RoleAdmin), h.costSavings)
		v1.GET("/analytics/co2-savings", authorize(service.RoleSeller, service.RoleAdmin), h.co2Savings)
		v1.GET("/analytics/demand-heatmap", authorize(service.RoleAdmin), h.demandHeatmap)
		v1.GET("/analytics/overview", authorize(service.RoleAdmin), h.overview)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps service errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidCoordinate),
		errors.Is(err, service.ErrCategoryNotReturnable),
		errors.Is(err, service.ErrInvalidDecision),
		errors.Is(err, service.ErrInvalidCondition),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrApprovalRequired):
		status = http.StatusBadRequest
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// --- products ---

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) myProducts(c *gin.Context) {
	products, err := h.products.ListMine(c.Request.Context(), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product, err := h.products.Create(c.Request.Context(), principalFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product, err := h.products.Update(c.Request.Context(), principalFrom(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type localWarehouseRequest struct {
	Allowed *bool `json:"allow_local_warehouse" binding:"required"`
}

func (h *Handler) setLocalWarehouse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req localWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product, err := h.products.SetLocalWarehouse(c.Request.Context(), principalFrom(c), id, *req.Allowed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// --- orders ---

func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.Place(c.Request.Context(), principalFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	timeline, err := h.orders.Timeline(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "timeline": timeline})
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note,omitempty"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// --- returns ---

func (h *Handler) createReturn(c *gin.Context) {
	var req service.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ret, err := h.returns.Create(c.Request.Context(), principalFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ret)
}

func (h *Handler) listReturns(c *gin.Context) {
	returns, err := h.returns.List(c.Request.Context(), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, returns)
}

func (h *Handler) getReturn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ret, err := h.returns.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	timeline, err := h.returns.Timeline(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"return": ret, "timeline": timeline})
}

type decisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Note     string `json:"note,omitempty"`
}

func (h *Handler) approveReturn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ret, err := h.returns.Approve(c.Request.Context(), principalFrom(c), id, req.Decision, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

func (h *Handler) assignWarehouse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ret, err := h.returns.AssignWarehouse(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

func (h *Handler) updateReturnStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ret, err := h.returns.UpdateStatus(c.Request.Context(), id, req.Status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

type inspectRequest struct {
	Condition string `json:"condition" binding:"required"`
	Note      string `json:"note,omitempty"`
}

func (h *Handler) inspectReturn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req inspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ret, err := h.returns.Inspect(c.Request.Context(), id, req.Condition, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

func (h *Handler) sellerDecision(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ret, err := h.returns.SellerDecision(c.Request.Context(), principalFrom(c), id, req.Decision, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

// --- warehouses ---

func (h *Handler) listWarehouses(c *gin.Context) {
	warehouses, err := h.warehouses.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouses)
}

func (h *Handler) nearestWarehouse(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})
		return
	}

	warehouse, distance, err := h.warehouses.Nearest(c.Request.Context(), models.Coordinate{Lat: lat, Lng: lng})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouse": warehouse, "distance_km": distance})
}

func (h *Handler) warehouseStats(c *gin.Context) {
	stats, err := h.warehouses.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) createWarehouse(c *gin.Context) {
	var wh models.Warehouse
	if err := c.ShouldBindJSON(&wh); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.warehouses.Create(c.Request.Context(), &wh); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wh)
}

func (h *Handler) updateWarehouse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var wh models.Warehouse
	if err := c.ShouldBindJSON(&wh); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	wh.ID = id

	if err := h.warehouses.Update(c.Request.Context(), &wh); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wh)
}

// --- inventory ---

func (h *Handler) listInventory(c *gin.Context) {
	var filter store.InventoryFilter

	if v := c.Query("warehouse"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid warehouse filter"})
			return
		}
		filter.WarehouseID = &id
	}
	if v := c.Query("is_local_pool"); v != "" {
		local := v == "true"
		filter.IsLocalPool = &local
	}
	filter.InspectionStatus = c.Query("inspection_status")

	items, err := h.inventory.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) createInventory(c *gin.Context) {
	var req service.AddInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	item, err := h.inventory.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) checkLocal(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	availability, err := h.inventory.CheckLocal(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, availability)
}

type inventoryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateInspection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req inventoryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	item, err := h.inventory.UpdateInspection(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) updateRepackaging(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req inventoryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	item, err := h.inventory.UpdateRepackaging(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// --- analytics ---

func (h *Handler) costSavings(c *gin.Context) {
	report, err := h.analytics.CostSavings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) co2Savings(c *gin.Context) {
	report, err := h.analytics.CO2Savings(c.Request.Context(), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) demandHeatmap(c *gin.Context) {
	points, err := h.analytics.DemandHeatmap(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (h *Handler) overview(c *gin.Context) {
	report, err := h.analytics.DashboardOverview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
