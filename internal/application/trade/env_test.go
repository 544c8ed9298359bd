package trade

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appledger "github.com/pharmacy/backend/internal/application/ledger"
	"github.com/pharmacy/backend/internal/domain/catalog"
)

type testEnv struct {
	products    *fakeProductRepo
	lots        *fakeLotRepo
	conversions *fakeConversionRepo
	sources     *fakeSourceRepo
	purchases   *fakePurchaseRepo
	sales       *fakeSalesRepo
	returns     *fakeReturnRepo

	purchaseSvc *PurchaseService
	salesSvc    *SalesService
	returnSvc   *ReturnService
}

func newTestEnv() *testEnv {
	e := &testEnv{
		products:    newFakeProductRepo(),
		lots:        newFakeLotRepo(),
		conversions: newFakeConversionRepo(),
		sources:     newFakeSourceRepo(),
		returns:     newFakeReturnRepo(),
	}
	e.purchases = newFakePurchaseRepo(e.lots)
	e.sales = newFakeSalesRepo(e.sources)

	locker := appledger.NewProductLocker()
	maintainer := appledger.NewAggregateMaintainer(e.products, e.lots, zap.NewNop())

	e.purchaseSvc = NewPurchaseService(e.purchases, e.lots, e.conversions, locker, maintainer)
	e.salesSvc = NewSalesService(e.sales, e.returns, e.lots, e.conversions, locker, maintainer)
	e.returnSvc = NewReturnService(e.returns, e.sales, e.lots, e.sources, e.conversions, locker, maintainer)
	return e
}

func (e *testEnv) addProduct(t *testing.T, name string, minStock int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, "", minStock)
	require.NoError(t, err)
	require.NoError(t, e.products.Save(context.Background(), p))
	return p
}

func (e *testEnv) addConversion(t *testing.T, productID uuid.UUID, multiplier int64, scanCode string) *catalog.UnitConversion {
	t.Helper()
	conv, err := catalog.NewUnitConversion(productID, uuid.New(), multiplier, scanCode)
	require.NoError(t, err)
	require.NoError(t, e.conversions.Save(context.Background(), conv))
	return conv
}

// receive books a purchase of quantity packaging units through the purchase
// service and returns the created invoice.
func (e *testEnv) receive(t *testing.T, productID uuid.UUID, conv *catalog.UnitConversion,
	daysAgo int, quantity int64, buy, retail float64) *PurchaseInvoiceResponse {
	t.Helper()
	resp, err := e.purchaseSvc.Create(context.Background(), CreatePurchaseInvoiceRequest{
		Date: time.Now().AddDate(0, 0, -daysAgo),
		Lines: []PurchaseLineRequest{{
			ProductID:       productID,
			PackagingUnitID: conv.PackagingUnitID,
			Quantity:        quantity,
			BuyPrice:        decimal.NewFromFloat(buy),
			RetailPrice:     decimal.NewFromFloat(retail),
			PharmacyPrice:   decimal.NewFromFloat(retail),
			WholesalePrice:  decimal.NewFromFloat(retail),
		}},
	})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) lotRemaining(t *testing.T, invoiceID uuid.UUID) int64 {
	t.Helper()
	lots, err := e.lots.FindByInvoice(context.Background(), invoiceID)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	return lots[0].Remaining
}
