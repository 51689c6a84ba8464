package service

import (
	"context"
	"math"
	"sync"
	"testing"

	"reloop-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrderAndProduct(f *fakeStore, category string) (*models.Order, *models.Product) {
	product := &models.Product{ID: 10, Category: category, SellerID: 77, AllowLocalWarehouse: true}
	f.products[product.ID] = product

	order := &models.Order{
		ID:          1,
		OrderNumber: "ORD-00001",
		UserID:      5,
		ProductID:   product.ID,
		Status:      models.OrderStatusDelivered,
		DeliveryLat: 28.60,
		DeliveryLng: 77.20,
	}
	f.orders[order.ID] = order
	f.nextID = 100
	return order, product
}

func newReturnServiceForTest(f *fakeStore, locator *fakeLocator, pub *fakePublisher) *ReturnService {
	var publisher Publisher
	if pub != nil {
		publisher = pub
	}
	return NewReturnService(f, locator, nil, publisher)
}

func TestCreateReturnScoresAndAssigns(t *testing.T) {
	f := newFakeStore()
	order, _ := seedOrderAndProduct(f, "Clothes")

	wh := &models.Warehouse{ID: 3, Name: "Delhi Hub", Status: models.WarehouseStatusActive, Capacity: 100}
	locator := &fakeLocator{nearest: wh, nearDist: 10}
	pub := &fakePublisher{}
	svc := newReturnServiceForTest(f, locator, pub)

	ret, err := svc.Create(context.Background(), Principal{ID: 5, Role: RoleUser}, &CreateReturnRequest{
		OrderID:   order.ID,
		Reason:    "wrong size",
		PickupLat: 28.61,
		PickupLng: 77.21,
	})
	require.NoError(t, err)

	assert.Equal(t, "RET-00001", ret.ReturnNumber)
	assert.Equal(t, models.ReturnStatusInitiated, ret.Status)
	assert.Equal(t, models.ApprovalPending, ret.ApprovalStatus)
	assert.Equal(t, 100, ret.ReturnScore)
	assert.Equal(t, models.RecommendationApprove, ret.RecommendationStatus)
	require.NotNil(t, ret.AssignedWarehouse)
	assert.Equal(t, wh.ID, *ret.AssignedWarehouse)
	assert.Equal(t, 2.0, ret.CO2Saved)

	// The order flips to return-initiated with its own timeline entry.
	assert.Equal(t, models.OrderStatusReturnInitiated, f.orderStatus[order.ID])
	require.Len(t, f.orderEvents[order.ID], 1)

	events := f.returnEvents[ret.ID]
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Note, "Delhi Hub")

	require.Len(t, pub.returnCreated, 1)
	assert.Equal(t, ret.ID, pub.returnCreated[0].ReturnID)
}

func TestCreateReturnFrequencyPenalty(t *testing.T) {
	f := newFakeStore()
	order, _ := seedOrderAndProduct(f, "Clothes")
	f.pastReturns = 4

	locator := &fakeLocator{nearest: &models.Warehouse{ID: 3, Status: models.WarehouseStatusActive, Capacity: 10}, nearDist: 10}
	svc := newReturnServiceForTest(f, locator, nil)

	ret, err := svc.Create(context.Background(), Principal{ID: 5, Role: RoleUser}, &CreateReturnRequest{
		OrderID:   order.ID,
		Reason:    "changed mind",
		PickupLat: 28.61,
		PickupLng: 77.21,
	})
	require.NoError(t, err)

	assert.Equal(t, 60, ret.ReturnScore)
	assert.Equal(t, models.RecommendationManualReview, ret.RecommendationStatus)
}

func TestCreateReturnCategoryGate(t *testing.T) {
	f := newFakeStore()
	order, _ := seedOrderAndProduct(f, "Electronics")
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.Create(context.Background(), Principal{ID: 5, Role: RoleUser}, &CreateReturnRequest{
		OrderID:   order.ID,
		Reason:    "defective",
		PickupLat: 28.61,
		PickupLng: 77.21,
	})
	require.ErrorIs(t, err, ErrCategoryNotReturnable)

	// Nothing is written when the gate fires.
	assert.Empty(t, f.returns)
	assert.Empty(t, f.returnEvents)
}

func TestCreateReturnRejectsOtherUsersOrder(t *testing.T) {
	f := newFakeStore()
	order, _ := seedOrderAndProduct(f, "Clothes")
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.Create(context.Background(), Principal{ID: 99, Role: RoleUser}, &CreateReturnRequest{
		OrderID:   order.ID,
		Reason:    "not mine",
		PickupLat: 28.61,
		PickupLng: 77.21,
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateReturnInvalidPickup(t *testing.T) {
	f := newFakeStore()
	order, _ := seedOrderAndProduct(f, "Clothes")
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.Create(context.Background(), Principal{ID: 5, Role: RoleUser}, &CreateReturnRequest{
		OrderID:   order.ID,
		Reason:    "bad pickup",
		PickupLat: math.NaN(),
		PickupLng: 77.21,
	})
	require.ErrorIs(t, err, ErrInvalidCoordinate)
	assert.Empty(t, f.returns)
}

func TestCreateReturnNoWarehouseScoresZeroDistance(t *testing.T) {
	f := newFakeStore()
	order, _ := seedOrderAndProduct(f, "Clothes")

	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	ret, err := svc.Create(context.Background(), Principal{ID: 5, Role: RoleUser}, &CreateReturnRequest{
		OrderID:   order.ID,
		Reason:    "remote area",
		PickupLat: 10.0,
		PickupLng: 10.0,
	})
	require.NoError(t, err)

	// base 20 + no distance 0 + category 20 + frequency 20 = 60
	assert.Equal(t, 60, ret.ReturnScore)
	assert.Equal(t, models.RecommendationManualReview, ret.RecommendationStatus)
	assert.Nil(t, ret.AssignedWarehouse)
}

func seedReturn(f *fakeStore, mutate func(*models.Return)) *models.Return {
	ret := &models.Return{
		ID:             50,
		ReturnNumber:   "RET-00050",
		OrderID:        1,
		UserID:         5,
		ProductID:      10,
		Category:       "Clothes",
		Status:         models.ReturnStatusInitiated,
		ApprovalStatus: models.ApprovalPending,
		SellerDecision: models.SellerDecisionPending,
		PickupLat:      28.61,
		PickupLng:      77.21,
	}
	if mutate != nil {
		mutate(ret)
	}
	f.returns[ret.ID] = ret
	return ret
}

func TestApproveSchedulesPickup(t *testing.T) {
	f := newFakeStore()
	seedOrderAndProduct(f, "Clothes")
	seedReturn(f, nil)

	wh := &models.Warehouse{ID: 3, Status: models.WarehouseStatusActive, Capacity: 10}
	svc := newReturnServiceForTest(f, &fakeLocator{nearest: wh, nearDist: 8}, nil)

	ret, err := svc.Approve(context.Background(), Principal{ID: 1, Role: RoleAdmin}, 50, models.ApprovalApproved, "looks fine")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalApproved, ret.ApprovalStatus)
	assert.Equal(t, models.ReturnStatusPickupScheduled, ret.Status)
	// Late assignment kicks in for an unassigned return.
	require.NotNil(t, ret.AssignedWarehouse)
	assert.Equal(t, wh.ID, *ret.AssignedWarehouse)
}

func TestApproveInvalidDecision(t *testing.T) {
	f := newFakeStore()
	seedOrderAndProduct(f, "Clothes")
	seedReturn(f, nil)
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.Approve(context.Background(), Principal{ID: 1, Role: RoleAdmin}, 50, "maybe", "")
	require.ErrorIs(t, err, ErrInvalidDecision)
}

func TestApproveCategoryOverride(t *testing.T) {
	f := newFakeStore()
	seedOrderAndProduct(f, "Clothes")
	seedReturn(f, func(r *models.Return) { r.Category = "Electronics" })
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	// The caller asked for approval; the category forces rejection instead.
	ret, err := svc.Approve(context.Background(), Principal{ID: 1, Role: RoleAdmin}, 50, models.ApprovalApproved, "")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalRejected, ret.ApprovalStatus)
	assert.Equal(t, models.ReturnStatusRejected, ret.Status)

	events := f.returnEvents[ret.ID]
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Note, "not eligible")
}

func TestApproveSellerMustOwnProduct(t *testing.T) {
	f := newFakeStore()
	seedOrderAndProduct(f, "Clothes") // seller 77
	seedReturn(f, nil)
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.Approve(context.Background(), Principal{ID: 12, Role: RoleSeller}, 50, models.ApprovalApproved, "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	f := newFakeStore()
	seedReturn(f, nil)
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.UpdateStatus(context.Background(), 50, "teleported", "")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatusInspectingResetsInspection(t *testing.T) {
	f := newFakeStore()
	seedReturn(f, func(r *models.Return) {
		r.InspectionResult = models.ConditionGood
		r.ResaleDecision = models.ResaleDiscounted
	})
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	ret, err := svc.UpdateStatus(context.Background(), 50, models.ReturnStatusInspecting, "second look")
	require.NoError(t, err)

	assert.Equal(t, models.ConditionPending, ret.InspectionResult)
	assert.Equal(t, models.ConditionPending, f.returns[50].InspectionResult)
}

func TestInspectMapsConditionToResale(t *testing.T) {
	cases := []struct {
		condition string
		resale    string
	}{
		{models.ConditionLikeNew, models.ResaleLocal},
		{models.ConditionGood, models.ResaleDiscounted},
		{models.ConditionDamaged, models.ResaleReturnToSeller},
		{models.ConditionReject, models.ResaleNonResellable},
	}

	for _, tc := range cases {
		t.Run(tc.condition, func(t *testing.T) {
			f := newFakeStore()
			seedReturn(f, nil)
			svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

			ret, err := svc.Inspect(context.Background(), 50, tc.condition, "")
			require.NoError(t, err)
			assert.Equal(t, tc.condition, ret.InspectionResult)
			assert.Equal(t, tc.resale, ret.ResaleDecision)
			// Inspection never advances the pipeline stage.
			assert.Equal(t, models.ReturnStatusInitiated, f.returns[50].Status)
		})
	}
}

func TestInspectInvalidCondition(t *testing.T) {
	f := newFakeStore()
	seedReturn(f, nil)
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.Inspect(context.Background(), 50, "Mint", "")
	require.ErrorIs(t, err, ErrInvalidCondition)
}

func TestSellerDecisionRequiresApproval(t *testing.T) {
	f := newFakeStore()
	seedOrderAndProduct(f, "Clothes")
	seedReturn(f, nil) // still pending approval
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.SellerDecision(context.Background(), Principal{ID: 1, Role: RoleAdmin}, 50, models.SellerDecisionKeepLocal, "")
	require.ErrorIs(t, err, ErrApprovalRequired)
}

func TestSellerDecisionRouting(t *testing.T) {
	cases := []struct {
		decision string
		status   string
	}{
		{models.SellerDecisionKeepLocal, models.ReturnStatusInLocalPool},
		{models.SellerDecisionReturnOriginal, models.ReturnStatusSentBack},
		{models.SellerDecisionTransferHighDemand, models.ReturnStatusTransferred},
	}

	for _, tc := range cases {
		t.Run(tc.decision, func(t *testing.T) {
			f := newFakeStore()
			seedOrderAndProduct(f, "Clothes")
			whID := int64(3)
			seedReturn(f, func(r *models.Return) {
				r.ApprovalStatus = models.ApprovalApproved
				r.AssignedWarehouse = &whID
			})
			svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

			ret, err := svc.SellerDecision(context.Background(), Principal{ID: 77, Role: RoleSeller}, 50, tc.decision, "")
			require.NoError(t, err)
			assert.Equal(t, tc.status, ret.Status)
		})
	}
}

func TestSellerDecisionUnknown(t *testing.T) {
	f := newFakeStore()
	seedOrderAndProduct(f, "Clothes")
	seedReturn(f, func(r *models.Return) { r.ApprovalStatus = models.ApprovalApproved })
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.SellerDecision(context.Background(), Principal{ID: 1, Role: RoleAdmin}, 50, "shred-it", "")
	require.ErrorIs(t, err, ErrInvalidDecision)
}

func TestPoolMaterializationIsExactlyOnce(t *testing.T) {
	f := newFakeStore()
	seedOrderAndProduct(f, "Clothes")
	whID := int64(3)
	seedReturn(f, func(r *models.Return) {
		r.ApprovalStatus = models.ApprovalApproved
		r.AssignedWarehouse = &whID
	})
	pub := &fakePublisher{}
	svc := newReturnServiceForTest(f, &fakeLocator{}, pub)

	// keep-local pools the item, a later explicit status update must not
	// create a second line.
	_, err := svc.SellerDecision(context.Background(), Principal{ID: 1, Role: RoleAdmin}, 50, models.SellerDecisionKeepLocal, "")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), 50, models.ReturnStatusInLocalPool, "re-fired")
	require.NoError(t, err)

	assert.Equal(t, 1, f.pooledCount)
	assert.Len(t, pub.pooled, 1)
}

func TestConcurrentPoolMaterialization(t *testing.T) {
	f := newFakeStore()
	seedOrderAndProduct(f, "Clothes")
	whID := int64(3)
	seedReturn(f, func(r *models.Return) {
		r.ApprovalStatus = models.ApprovalApproved
		r.AssignedWarehouse = &whID
	})
	pub := &fakePublisher{}
	svc := newReturnServiceForTest(f, &fakeLocator{}, pub)

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.UpdateStatus(context.Background(), 50, models.ReturnStatusInLocalPool, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.pooledCount, "exactly one inventory line per return")
	assert.Len(t, pub.pooled, 1)
}

func TestUpdateStatusPoolRequiresWarehouse(t *testing.T) {
	f := newFakeStore()
	seedOrderAndProduct(f, "Clothes")
	seedReturn(f, nil) // no assigned warehouse
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.UpdateStatus(context.Background(), 50, models.ReturnStatusInLocalPool, "")
	require.ErrorIs(t, err, ErrInvalidStatus)

	// The guard fires before anything is written: status untouched, no
	// timeline entry, nothing pooled.
	assert.Equal(t, models.ReturnStatusInitiated, f.returns[50].Status)
	assert.Empty(t, f.returnEvents[50])
	assert.Zero(t, f.pooledCount)
}

func TestSellerDecisionKeepLocalRequiresWarehouse(t *testing.T) {
	f := newFakeStore()
	seedOrderAndProduct(f, "Clothes")
	seedReturn(f, func(r *models.Return) { r.ApprovalStatus = models.ApprovalApproved })
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	_, err := svc.SellerDecision(context.Background(), Principal{ID: 1, Role: RoleAdmin}, 50, models.SellerDecisionKeepLocal, "")
	require.ErrorIs(t, err, ErrInvalidDecision)

	assert.Equal(t, models.ReturnStatusInitiated, f.returns[50].Status)
	assert.Equal(t, models.SellerDecisionPending, f.returns[50].SellerDecision)
	assert.Empty(t, f.returnEvents[50])
	assert.Zero(t, f.pooledCount)
}

func TestListScopesByRole(t *testing.T) {
	f := newFakeStore()
	f.returns[1] = &models.Return{ID: 1, UserID: 5, ProductID: 10}
	f.returns[2] = &models.Return{ID: 2, UserID: 6, ProductID: 11}
	svc := newReturnServiceForTest(f, &fakeLocator{}, nil)

	own, err := svc.List(context.Background(), Principal{ID: 5, Role: RoleUser})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, int64(5), own[0].UserID)
}
