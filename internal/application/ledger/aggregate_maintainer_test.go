package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
)

type fakeProductRepo struct {
	products map[uuid.UUID]*catalog.Product
	saveErr  error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[uuid.UUID]*catalog.Product)}
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) FindAll(context.Context, shared.Filter) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProductRepo) Save(_ context.Context, p *catalog.Product) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *p
	r.products[p.GetID()] = &cp
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) Count(context.Context, shared.Filter) (int64, error) {
	return int64(len(r.products)), nil
}

func (r *fakeProductRepo) FindByName(_ context.Context, name string) (*catalog.Product, error) {
	for _, p := range r.products {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeProductRepo) FindLowStock(context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range r.products {
		if p.IsLowStock() {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeLotRepo struct {
	lots    map[uuid.UUID]*ledger.PurchaseLot
	findErr error
}

func newFakeLotRepo() *fakeLotRepo {
	return &fakeLotRepo{lots: make(map[uuid.UUID]*ledger.PurchaseLot)}
}

func (r *fakeLotRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.PurchaseLot, error) {
	l, ok := r.lots[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLotRepo) FindAll(context.Context, shared.Filter) ([]ledger.PurchaseLot, error) {
	out := make([]ledger.PurchaseLot, 0, len(r.lots))
	for _, l := range r.lots {
		out = append(out, *l)
	}
	return out, nil
}

func (r *fakeLotRepo) Save(_ context.Context, l *ledger.PurchaseLot) error {
	cp := *l
	r.lots[l.GetID()] = &cp
	return nil
}

func (r *fakeLotRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.lots, id)
	return nil
}

func (r *fakeLotRepo) Count(context.Context, shared.Filter) (int64, error) {
	return int64(len(r.lots)), nil
}

func (r *fakeLotRepo) FindByProduct(_ context.Context, productID uuid.UUID) ([]ledger.PurchaseLot, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []ledger.PurchaseLot
	for _, l := range r.lots {
		if l.ProductID == productID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeLotRepo) FindActiveByProduct(ctx context.Context, productID uuid.UUID) ([]ledger.PurchaseLot, error) {
	all, err := r.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	var out []ledger.PurchaseLot
	for _, l := range all {
		if l.Remaining > 0 {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLotRepo) FindByInvoice(_ context.Context, invoiceID uuid.UUID) ([]ledger.PurchaseLot, error) {
	var out []ledger.PurchaseLot
	for _, l := range r.lots {
		if l.PurchaseInvoiceID == invoiceID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeLotRepo) FindExpiringBefore(_ context.Context, cutoff time.Time) ([]ledger.PurchaseLot, error) {
	var out []ledger.PurchaseLot
	for _, l := range r.lots {
		if l.ExpiryDate != nil && !l.ExpiryDate.After(cutoff) {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeLotRepo) SaveAll(ctx context.Context, lots []*ledger.PurchaseLot) error {
	for _, l := range lots {
		if err := r.Save(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeLotRepo) DeleteByInvoice(_ context.Context, invoiceID uuid.UUID) error {
	for id, l := range r.lots {
		if l.PurchaseInvoiceID == invoiceID {
			delete(r.lots, id)
		}
	}
	return nil
}

func mustProduct(t *testing.T, repo *fakeProductRepo, name string, minStock int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, "", minStock)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), p))
	return p
}

func mustLot(t *testing.T, repo *fakeLotRepo, productID uuid.UUID, quantity, multiplier int64) *ledger.PurchaseLot {
	t.Helper()
	lot, err := ledger.NewPurchaseLot(uuid.New(), productID, uuid.New(), time.Now(),
		quantity, multiplier,
		decimal.NewFromInt(10), decimal.NewFromInt(15),
		decimal.NewFromInt(14), decimal.NewFromInt(12), nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), lot))
	return lot
}

func TestAggregateMaintainer_Recompute(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes totals and ceilings from the lot set", func(t *testing.T) {
		products := newFakeProductRepo()
		lots := newFakeLotRepo()
		m := NewAggregateMaintainer(products, lots, zap.NewNop())

		p := mustProduct(t, products, "Paracetamol", 0)
		mustLot(t, lots, p.GetID(), 2, 10)
		mustLot(t, lots, p.GetID(), 1, 10)

		m.Recompute(ctx, p.GetID())

		saved, err := products.FindByID(ctx, p.GetID())
		require.NoError(t, err)
		assert.Equal(t, int64(30), saved.TotalRemaining)
		assert.True(t, decimal.NewFromFloat(1.5).Equal(saved.RetailCeiling))
	})

	t.Run("recompute is idempotent", func(t *testing.T) {
		products := newFakeProductRepo()
		lots := newFakeLotRepo()
		m := NewAggregateMaintainer(products, lots, zap.NewNop())

		p := mustProduct(t, products, "Paracetamol", 0)
		mustLot(t, lots, p.GetID(), 2, 10)

		m.Recompute(ctx, p.GetID())
		first, err := products.FindByID(ctx, p.GetID())
		require.NoError(t, err)

		m.Recompute(ctx, p.GetID())
		second, err := products.FindByID(ctx, p.GetID())
		require.NoError(t, err)

		assert.Equal(t, first.TotalRemaining, second.TotalRemaining)
		assert.True(t, first.RetailCeiling.Equal(second.RetailCeiling))
	})

	t.Run("publishes low stock events", func(t *testing.T) {
		products := newFakeProductRepo()
		lots := newFakeLotRepo()
		m := NewAggregateMaintainer(products, lots, zap.NewNop())
		bus := shared.NewInMemoryEventBus()
		received := &capturingHandler{}
		bus.Subscribe(received, catalog.EventLowStockRaised)
		m.SetEventPublisher(bus)

		p := mustProduct(t, products, "Amoxicillin", 100)
		mustLot(t, lots, p.GetID(), 1, 10)

		m.Recompute(ctx, p.GetID())

		require.Len(t, received.events, 1)
		saved, err := products.FindByID(ctx, p.GetID())
		require.NoError(t, err)
		assert.True(t, saved.LowStockAlerted)
	})

	t.Run("failures never panic and leave the product untouched", func(t *testing.T) {
		products := newFakeProductRepo()
		lots := newFakeLotRepo()
		lots.findErr = assert.AnError
		m := NewAggregateMaintainer(products, lots, zap.NewNop())

		p := mustProduct(t, products, "Aspirin", 0)
		m.Recompute(ctx, p.GetID())

		saved, err := products.FindByID(ctx, p.GetID())
		require.NoError(t, err)
		assert.Equal(t, int64(0), saved.TotalRemaining)
	})
}

func TestAggregateMaintainer_RegisterPurchase(t *testing.T) {
	ctx := context.Background()
	products := newFakeProductRepo()
	lots := newFakeLotRepo()
	m := NewAggregateMaintainer(products, lots, zap.NewNop())

	p := mustProduct(t, products, "Ibuprofen", 50)
	p.LowStockAlerted = true
	require.NoError(t, products.Save(ctx, p))

	m.RegisterPurchase(ctx, p.GetID(),
		decimal.NewFromInt(7), decimal.NewFromInt(10), decimal.NewFromInt(9), decimal.NewFromInt(8))

	saved, err := products.FindByID(ctx, p.GetID())
	require.NoError(t, err)
	assert.False(t, saved.LowStockAlerted)
	assert.True(t, decimal.NewFromInt(7).Equal(saved.BuySuggested))
	assert.True(t, decimal.NewFromInt(10).Equal(saved.SuggestedPrice(catalog.ChannelRetail)))

	m.RegisterPurchase(ctx, p.GetID(),
		decimal.NewFromInt(14), decimal.NewFromInt(20), decimal.NewFromInt(20), decimal.NewFromInt(20))

	saved, err = products.FindByID(ctx, p.GetID())
	require.NoError(t, err)
	// (0.9*7 + 14) / 1.9 = 10.6842
	assert.True(t, decimal.NewFromFloat(10.6842).Equal(saved.BuySuggested))
	assert.True(t, decimal.NewFromFloat(15.2632).Equal(saved.SuggestedPrice(catalog.ChannelRetail)))
}

type capturingHandler struct {
	events []shared.DomainEvent
}

func (h *capturingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.events = append(h.events, event)
	return nil
}

func (h *capturingHandler) EventTypes() []string {
	return []string{catalog.EventLowStockRaised}
}
