package service

import (
	"context"
	"fmt"

	"reloop-service/internal/models"
	"reloop-service/internal/util"

	"go.uber.org/zap"
)

// ProductService handles the catalog surface: listings, seller CRUD, and the
// local-warehouse opt-in that order fulfillment reads.
type ProductService struct {
	store  Store
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(store Store) *ProductService {
	return &ProductService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// List retrieves all products
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return s.store.GetProducts(ctx)
}

// ListMine retrieves the principal's own products
func (s *ProductService) ListMine(ctx context.Context, principal Principal) ([]models.Product, error) {
	return s.store.GetProductsBySeller(ctx, principal.ID)
}

// Get retrieves a product by ID
func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return product, nil
}

// CreateProductRequest is a request to add a catalog entry
type CreateProductRequest struct {
	SKU                 string `json:"sku" binding:"required"`
	Name                string `json:"name" binding:"required"`
	Description         string `json:"description,omitempty"`
	Price               int64  `json:"price"`
	Category            string `json:"category" binding:"required"`
	AllowLocalWarehouse bool   `json:"allow_local_warehouse"`
}

// Create adds a product owned by the calling seller
func (s *ProductService) Create(ctx context.Context, principal Principal, req *CreateProductRequest) (*models.Product, error) {
	product := &models.Product{
		SKU:                 req.SKU,
		Name:                req.Name,
		Description:         req.Description,
		Price:               req.Price,
		Category:            req.Category,
		SellerID:            principal.ID,
		AllowLocalWarehouse: req.AllowLocalWarehouse,
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.String("sku", product.SKU),
		zap.Int64("seller_id", product.SellerID))
	return product, nil
}

// UpdateProductRequest carries the mutable product fields. Nil pointers leave
// the current value in place.
type UpdateProductRequest struct {
	Name                *string `json:"name,omitempty"`
	Description         *string `json:"description,omitempty"`
	Price               *int64  `json:"price,omitempty"`
	Category            *string `json:"category,omitempty"`
	AllowLocalWarehouse *bool   `json:"allow_local_warehouse,omitempty"`
}

// Update edits a product. Sellers may only edit their own; SKU and owner are
// immutable.
func (s *ProductService) Update(ctx context.Context, principal Principal, id int64, req *UpdateProductRequest) (*models.Product, error) {
	product, err := s.loadOwnedProduct(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.AllowLocalWarehouse != nil {
		product.AllowLocalWarehouse = *req.AllowLocalWarehouse
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// SetLocalWarehouse flips the local-pool opt-in that fulfillment reads
func (s *ProductService) SetLocalWarehouse(ctx context.Context, principal Principal, id int64, allowed bool) (*models.Product, error) {
	product, err := s.loadOwnedProduct(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetProductLocalWarehouse(ctx, product.ID, allowed); err != nil {
		return nil, fmt.Errorf("failed to update local-warehouse flag: %w", err)
	}
	product.AllowLocalWarehouse = allowed

	s.logger.Info("Product local-warehouse flag updated",
		zap.Int64("product_id", product.ID),
		zap.Bool("allowed", allowed))
	return product, nil
}

func (s *ProductService) loadOwnedProduct(ctx context.Context, principal Principal, id int64) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal.Role == RoleSeller && product.SellerID != principal.ID {
		return nil, fmt.Errorf("product %d: %w", id, ErrUnauthorized)
	}
	return product, nil
}
