package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// sellFrom allocates baseQty across the lots and returns the resulting
// sources as pointers plus the lot lookup the reversal needs.
func sellFrom(t *testing.T, productID uuid.UUID, lots []*PurchaseLot, baseQty int64) ([]*AllocationSource, map[uuid.UUID]*PurchaseLot) {
	t.Helper()
	plan, err := PlanAllocation(productID, lots, baseQty)
	require.NoError(t, err)
	sources, err := plan.Apply(uuid.New())
	require.NoError(t, err)

	ptrs := make([]*AllocationSource, len(sources))
	for i := range sources {
		ptrs[i] = &sources[i]
	}
	byID := make(map[uuid.UUID]*PurchaseLot, len(lots))
	for _, lot := range lots {
		byID[lot.GetID()] = lot
	}
	return ptrs, byID
}

func TestPlanReversal(t *testing.T) {
	productID := uuid.New()

	t.Run("restores to the most recently purchased lot first", func(t *testing.T) {
		day1 := newLot(t, productID, 1, 5, 1)
		day2 := newLot(t, productID, 2, 5, 1)
		day3 := newLot(t, productID, 3, 5, 1)
		lots := []*PurchaseLot{day1, day2, day3}

		sources, byID := sellFrom(t, productID, lots, 8)
		// day1 drained to 0, day2 at 2, day3 untouched

		plan, err := PlanReversal(sources, byID, 4, decimal.NewFromInt(15), 1)
		require.NoError(t, err)
		require.NoError(t, plan.Apply())

		assert.Equal(t, int64(1), day1.Remaining)
		assert.Equal(t, int64(5), day2.Remaining)
		assert.Equal(t, int64(5), day3.Remaining)
	})

	t.Run("full return round-trips every lot and zeroes the sources", func(t *testing.T) {
		day1 := newLot(t, productID, 1, 5, 1)
		day2 := newLot(t, productID, 2, 5, 1)
		lots := []*PurchaseLot{day1, day2}

		sources, byID := sellFrom(t, productID, lots, 8)

		plan, err := PlanReversal(sources, byID, 8, decimal.NewFromInt(15), 1)
		require.NoError(t, err)
		require.NoError(t, plan.Apply())

		assert.Equal(t, int64(5), day1.Remaining)
		assert.Equal(t, int64(5), day2.Remaining)
		var returnable int64
		for _, s := range sources {
			returnable += s.Quantity
		}
		assert.Equal(t, int64(0), returnable)
	})

	t.Run("computes per-source loss as cost minus revenue", func(t *testing.T) {
		lot := newLot(t, productID, 1, 5, 10) // buy 10 per unit of 10 base units
		sources, byID := sellFrom(t, productID, []*PurchaseLot{lot}, 20)

		// sold at 15 per unit of 10 base units, returning 5 base units:
		// purchase = 5*10/10 = 5, selling = 5*15/10 = 7.5, loss = -2.5
		plan, err := PlanReversal(sources, byID, 5, decimal.NewFromInt(15), 10)
		require.NoError(t, err)
		require.Len(t, plan.Entries, 1)

		assert.True(t, decimal.NewFromInt(5).Equal(plan.Entries[0].PurchasePrice))
		assert.True(t, decimal.NewFromFloat(7.5).Equal(plan.Entries[0].SellingPrice))
		assert.True(t, decimal.NewFromFloat(-2.5).Equal(plan.TotalLoss))
	})

	t.Run("rejects returns above the returnable balance", func(t *testing.T) {
		lot := newLot(t, productID, 1, 5, 1)
		sources, byID := sellFrom(t, productID, []*PurchaseLot{lot}, 3)

		_, err := PlanReversal(sources, byID, 4, decimal.NewFromInt(15), 1)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
		assert.Equal(t, int64(2), lot.Remaining)
	})

	t.Run("missing lot aborts with source exhausted and no mutation", func(t *testing.T) {
		lot := newLot(t, productID, 1, 5, 1)
		sources, _ := sellFrom(t, productID, []*PurchaseLot{lot}, 3)

		_, err := PlanReversal(sources, map[uuid.UUID]*PurchaseLot{}, 2, decimal.NewFromInt(15), 1)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "SOURCE_EXHAUSTED", domainErr.Code)
		assert.Equal(t, int64(2), lot.Remaining)
		assert.Equal(t, int64(3), sources[0].Quantity)
	})

	t.Run("partial returns can repeat until sources are drained", func(t *testing.T) {
		lot := newLot(t, productID, 1, 6, 1)
		sources, byID := sellFrom(t, productID, []*PurchaseLot{lot}, 6)

		for i := 0; i < 3; i++ {
			plan, err := PlanReversal(sources, byID, 2, decimal.NewFromInt(15), 1)
			require.NoError(t, err)
			require.NoError(t, plan.Apply())
		}
		assert.Equal(t, int64(6), lot.Remaining)

		_, err := PlanReversal(sources, byID, 1, decimal.NewFromInt(15), 1)
		assert.Error(t, err)
	})
}

func TestReversalPlan_Revert(t *testing.T) {
	productID := uuid.New()
	lot := newLot(t, productID, 1, 5, 1)
	sources, byID := sellFrom(t, productID, []*PurchaseLot{lot}, 4)

	plan, err := PlanReversal(sources, byID, 3, decimal.NewFromInt(15), 1)
	require.NoError(t, err)
	require.NoError(t, plan.Apply())
	assert.Equal(t, int64(4), lot.Remaining)
	assert.Equal(t, int64(1), sources[0].Quantity)

	require.NoError(t, plan.Revert())
	assert.Equal(t, int64(1), lot.Remaining)
	assert.Equal(t, int64(4), sources[0].Quantity)
}

func TestValidateReturnUnit(t *testing.T) {
	assert.NoError(t, ValidateReturnUnit(1, 10))
	assert.NoError(t, ValidateReturnUnit(10, 10))

	err := ValidateReturnUnit(12, 10)
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VOLUME_MISMATCH", domainErr.Code)
}
