package service

import (
	"context"
	"testing"

	"reloop-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalogProduct(f *fakeStore, id, sellerID int64, allowLocal bool) {
	f.products[id] = &models.Product{
		ID:                  id,
		SKU:                 "SKU-1",
		Name:                "Denim Jacket",
		Price:               2500,
		Category:            "Clothes",
		SellerID:            sellerID,
		AllowLocalWarehouse: allowLocal,
	}
	if id >= f.nextID {
		f.nextID = id
	}
}

func TestCreateProductStampsSeller(t *testing.T) {
	f := newFakeStore()
	svc := NewProductService(f)

	seller := Principal{ID: 77, Role: RoleSeller}
	product, err := svc.Create(context.Background(), seller, &CreateProductRequest{
		SKU:      "SKU-9",
		Name:     "Sneakers",
		Price:    4999,
		Category: "Footwear",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), product.SellerID)
	assert.False(t, product.AllowLocalWarehouse)
	assert.NotZero(t, product.ID)
	assert.Equal(t, "Sneakers", f.products[product.ID].Name)
}

func TestUpdateProductPartialFields(t *testing.T) {
	f := newFakeStore()
	seedCatalogProduct(f, 10, 77, false)
	svc := NewProductService(f)

	name := "Denim Jacket v2"
	allow := true
	product, err := svc.Update(context.Background(), Principal{ID: 77, Role: RoleSeller}, 10, &UpdateProductRequest{
		Name:                &name,
		AllowLocalWarehouse: &allow,
	})
	require.NoError(t, err)
	assert.Equal(t, "Denim Jacket v2", product.Name)
	assert.True(t, product.AllowLocalWarehouse)
	assert.Equal(t, int64(2500), product.Price)
	assert.Equal(t, "Clothes", product.Category)
}

func TestUpdateProductSellerMustOwn(t *testing.T) {
	f := newFakeStore()
	seedCatalogProduct(f, 10, 77, false)
	svc := NewProductService(f)

	name := "Hijacked"
	_, err := svc.Update(context.Background(), Principal{ID: 88, Role: RoleSeller}, 10, &UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Denim Jacket", f.products[10].Name)
}

func TestUpdateProductAdminBypassesOwnership(t *testing.T) {
	f := newFakeStore()
	seedCatalogProduct(f, 10, 77, false)
	svc := NewProductService(f)

	price := int64(1999)
	product, err := svc.Update(context.Background(), Principal{ID: 1, Role: RoleAdmin}, 10, &UpdateProductRequest{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(1999), product.Price)
}

func TestSetLocalWarehouseToggles(t *testing.T) {
	f := newFakeStore()
	seedCatalogProduct(f, 10, 77, false)
	svc := NewProductService(f)

	owner := Principal{ID: 77, Role: RoleSeller}
	product, err := svc.SetLocalWarehouse(context.Background(), owner, 10, true)
	require.NoError(t, err)
	assert.True(t, product.AllowLocalWarehouse)
	assert.True(t, f.products[10].AllowLocalWarehouse)

	product, err = svc.SetLocalWarehouse(context.Background(), owner, 10, false)
	require.NoError(t, err)
	assert.False(t, product.AllowLocalWarehouse)
	assert.False(t, f.products[10].AllowLocalWarehouse)
}

func TestSetLocalWarehouseSellerMustOwn(t *testing.T) {
	f := newFakeStore()
	seedCatalogProduct(f, 10, 77, false)
	svc := NewProductService(f)

	_, err := svc.SetLocalWarehouse(context.Background(), Principal{ID: 88, Role: RoleSeller}, 10, true)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, f.products[10].AllowLocalWarehouse)
}

func TestGetProductNotFound(t *testing.T) {
	svc := NewProductService(newFakeStore())

	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMineFiltersBySeller(t *testing.T) {
	f := newFakeStore()
	seedCatalogProduct(f, 10, 77, false)
	seedCatalogProduct(f, 11, 88, true)
	svc := NewProductService(f)

	mine, err := svc.ListMine(context.Background(), Principal{ID: 77, Role: RoleSeller})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(10), mine[0].ID)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
