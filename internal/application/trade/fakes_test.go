package trade

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
)

// In-memory stand-ins for the persistence layer. They copy on read and
// write so the services cannot lean on shared pointers the way they cannot
// with a real store.

type fakeProductRepo struct {
	products map[uuid.UUID]*catalog.Product
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
	mu      sync.Mutex
	lots    map[uuid.UUID]*ledger.PurchaseLot
	saveErr error
}

func newFakeLotRepo() *fakeLotRepo {
	return &fakeLotRepo{lots: make(map[uuid.UUID]*ledger.PurchaseLot)}
}

func (r *fakeLotRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.PurchaseLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lots[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLotRepo) FindAll(context.Context, shared.Filter) ([]ledger.PurchaseLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.PurchaseLot, 0, len(r.lots))
	for _, l := range r.lots {
		out = append(out, *l)
	}
	return out, nil
}

func (r *fakeLotRepo) Save(_ context.Context, l *ledger.PurchaseLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.lots[l.GetID()] = &cp
	return nil
}

func (r *fakeLotRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lots, id)
	return nil
}

func (r *fakeLotRepo) Count(context.Context, shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.lots)), nil
}

func (r *fakeLotRepo) FindByProduct(_ context.Context, productID uuid.UUID) ([]ledger.PurchaseLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.PurchaseLot
	for _, l := range r.lots {
		if l.PurchaseInvoiceID == invoiceID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeLotRepo) FindExpiringBefore(_ context.Context, cutoff time.Time) ([]ledger.PurchaseLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.PurchaseLot
	for _, l := range r.lots {
		if l.ExpiryDate != nil && !l.ExpiryDate.After(cutoff) {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeLotRepo) SaveAll(ctx context.Context, lots []*ledger.PurchaseLot) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, l := range lots {
		if err := r.Save(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeLotRepo) DeleteByInvoice(_ context.Context, invoiceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.lots {
		if l.PurchaseInvoiceID == invoiceID {
			delete(r.lots, id)
		}
	}
	return nil
}

type fakeConversionRepo struct {
	conversions map[uuid.UUID]*catalog.UnitConversion
}

func newFakeConversionRepo() *fakeConversionRepo {
	return &fakeConversionRepo{conversions: make(map[uuid.UUID]*catalog.UnitConversion)}
}

func (r *fakeConversionRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.UnitConversion, error) {
	c, ok := r.conversions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeConversionRepo) FindAll(context.Context, shared.Filter) ([]catalog.UnitConversion, error) {
	out := make([]catalog.UnitConversion, 0, len(r.conversions))
	for _, c := range r.conversions {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeConversionRepo) Save(_ context.Context, c *catalog.UnitConversion) error {
	cp := *c
	r.conversions[c.GetID()] = &cp
	return nil
}

func (r *fakeConversionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.conversions, id)
	return nil
}

func (r *fakeConversionRepo) Count(context.Context, shared.Filter) (int64, error) {
	return int64(len(r.conversions)), nil
}

func (r *fakeConversionRepo) FindByProduct(_ context.Context, productID uuid.UUID) ([]catalog.UnitConversion, error) {
	var out []catalog.UnitConversion
	for _, c := range r.conversions {
		if c.ProductID == productID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeConversionRepo) FindByProductAndUnit(_ context.Context, productID, unitID uuid.UUID) (*catalog.UnitConversion, error) {
	for _, c := range r.conversions {
		if c.ProductID == productID && c.PackagingUnitID == unitID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeConversionRepo) FindByScanCode(_ context.Context, code string) (*catalog.UnitConversion, error) {
	for _, c := range r.conversions {
		if c.ScanCode != nil && *c.ScanCode == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

type fakeSourceRepo struct {
	sources map[uuid.UUID]*ledger.AllocationSource
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{sources: make(map[uuid.UUID]*ledger.AllocationSource)}
}

func (r *fakeSourceRepo) FindByAllocation(_ context.Context, allocationID uuid.UUID) ([]ledger.AllocationSource, error) {
	var out []ledger.AllocationSource
	for _, s := range r.sources {
		if s.SalesAllocationID == allocationID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSourceRepo) FindByLot(_ context.Context, lotID uuid.UUID) ([]ledger.AllocationSource, error) {
	var out []ledger.AllocationSource
	for _, s := range r.sources {
		if s.LotID == lotID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSourceRepo) SaveAll(_ context.Context, sources []*ledger.AllocationSource) error {
	for _, s := range sources {
		cp := *s
		r.sources[s.GetID()] = &cp
	}
	return nil
}

func (r *fakeSourceRepo) DeleteByAllocation(_ context.Context, allocationID uuid.UUID) error {
	for id, s := range r.sources {
		if s.SalesAllocationID == allocationID {
			delete(r.sources, id)
		}
	}
	return nil
}

func nextSerial(kind trade.InvoiceKind, date time.Time, existing []string) string {
	prefix := trade.SerialPrefix(kind, date)
	var max int64
	for _, serial := range existing {
		if c := trade.ParseSerialCounter(prefix, serial); c > max {
			max = c
		}
	}
	return trade.FormatSerial(prefix, max+1)
}

type fakePurchaseRepo struct {
	invoices map[uuid.UUID]*trade.PurchaseInvoice
	lots     *fakeLotRepo
}

func newFakePurchaseRepo(lots *fakeLotRepo) *fakePurchaseRepo {
	return &fakePurchaseRepo{invoices: make(map[uuid.UUID]*trade.PurchaseInvoice), lots: lots}
}

func (r *fakePurchaseRepo) FindByID(ctx context.Context, id uuid.UUID) (*trade.PurchaseInvoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *inv
	cp.Lots, _ = r.lots.FindByInvoice(ctx, id)
	return &cp, nil
}

func (r *fakePurchaseRepo) FindAll(context.Context, shared.Filter) ([]trade.PurchaseInvoice, error) {
	out := make([]trade.PurchaseInvoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *fakePurchaseRepo) Save(_ context.Context, inv *trade.PurchaseInvoice) error {
	cp := *inv
	r.invoices[inv.GetID()] = &cp
	return nil
}

func (r *fakePurchaseRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.invoices, id)
	return nil
}

func (r *fakePurchaseRepo) Count(context.Context, shared.Filter) (int64, error) {
	return int64(len(r.invoices)), nil
}

func (r *fakePurchaseRepo) FindBySerial(_ context.Context, serial string) (*trade.PurchaseInvoice, error) {
	for _, inv := range r.invoices {
		if inv.Serial == serial {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakePurchaseRepo) SaveNew(ctx context.Context, inv *trade.PurchaseInvoice) error {
	serials := make([]string, 0, len(r.invoices))
	for _, existing := range r.invoices {
		serials = append(serials, existing.Serial)
	}
	inv.Serial = nextSerial(trade.KindPurchase, inv.Date, serials)
	return r.Save(ctx, inv)
}

type fakeSalesRepo struct {
	invoices map[uuid.UUID]*trade.SalesInvoice
	sources  *fakeSourceRepo
}

func newFakeSalesRepo(sources *fakeSourceRepo) *fakeSalesRepo {
	return &fakeSalesRepo{invoices: make(map[uuid.UUID]*trade.SalesInvoice), sources: sources}
}

func (r *fakeSalesRepo) FindByID(ctx context.Context, id uuid.UUID) (*trade.SalesInvoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *inv
	cp.Allocations = make([]trade.SalesAllocation, len(inv.Allocations))
	copy(cp.Allocations, inv.Allocations)
	for i := range cp.Allocations {
		cp.Allocations[i].Sources, _ = r.sources.FindByAllocation(ctx, cp.Allocations[i].GetID())
	}
	return &cp, nil
}

func (r *fakeSalesRepo) FindAll(context.Context, shared.Filter) ([]trade.SalesInvoice, error) {
	out := make([]trade.SalesInvoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *fakeSalesRepo) Save(ctx context.Context, inv *trade.SalesInvoice) error {
	cp := *inv
	cp.Allocations = make([]trade.SalesAllocation, len(inv.Allocations))
	copy(cp.Allocations, inv.Allocations)
	r.invoices[inv.GetID()] = &cp
	for i := range inv.Allocations {
		ptrs := make([]*ledger.AllocationSource, len(inv.Allocations[i].Sources))
		for j := range inv.Allocations[i].Sources {
			ptrs[j] = &inv.Allocations[i].Sources[j]
		}
		if err := r.sources.SaveAll(ctx, ptrs); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeSalesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	inv, ok := r.invoices[id]
	if ok {
		for i := range inv.Allocations {
			_ = r.sources.DeleteByAllocation(ctx, inv.Allocations[i].GetID())
		}
	}
	delete(r.invoices, id)
	return nil
}

func (r *fakeSalesRepo) Count(context.Context, shared.Filter) (int64, error) {
	return int64(len(r.invoices)), nil
}

func (r *fakeSalesRepo) FindBySerial(ctx context.Context, serial string) (*trade.SalesInvoice, error) {
	for id, inv := range r.invoices {
		if inv.Serial == serial {
			return r.FindByID(ctx, id)
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSalesRepo) FindByCustomer(_ context.Context, customerID uuid.UUID, _ shared.Filter) ([]trade.SalesInvoice, error) {
	var out []trade.SalesInvoice
	for _, inv := range r.invoices {
		if inv.CustomerID != nil && *inv.CustomerID == customerID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeSalesRepo) SaveNew(ctx context.Context, inv *trade.SalesInvoice) error {
	serials := make([]string, 0, len(r.invoices))
	for _, existing := range r.invoices {
		serials = append(serials, existing.Serial)
	}
	inv.Serial = nextSerial(trade.KindSale, inv.Date, serials)
	return r.Save(ctx, inv)
}

type fakeReturnRepo struct {
	invoices map[uuid.UUID]*trade.ReturnInvoice
}

func newFakeReturnRepo() *fakeReturnRepo {
	return &fakeReturnRepo{invoices: make(map[uuid.UUID]*trade.ReturnInvoice)}
}

func (r *fakeReturnRepo) FindByID(_ context.Context, id uuid.UUID) (*trade.ReturnInvoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeReturnRepo) FindAll(context.Context, shared.Filter) ([]trade.ReturnInvoice, error) {
	out := make([]trade.ReturnInvoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *fakeReturnRepo) Save(_ context.Context, inv *trade.ReturnInvoice) error {
	cp := *inv
	r.invoices[inv.GetID()] = &cp
	return nil
}

func (r *fakeReturnRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.invoices, id)
	return nil
}

func (r *fakeReturnRepo) Count(context.Context, shared.Filter) (int64, error) {
	return int64(len(r.invoices)), nil
}

func (r *fakeReturnRepo) FindBySerial(_ context.Context, serial string) (*trade.ReturnInvoice, error) {
	for _, inv := range r.invoices {
		if inv.Serial == serial {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeReturnRepo) FindBySalesInvoice(_ context.Context, salesInvoiceID uuid.UUID) ([]trade.ReturnInvoice, error) {
	var out []trade.ReturnInvoice
	for _, inv := range r.invoices {
		if inv.SalesInvoiceID == salesInvoiceID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeReturnRepo) SaveNew(ctx context.Context, inv *trade.ReturnInvoice) error {
	serials := make([]string, 0, len(r.invoices))
	for _, existing := range r.invoices {
		serials = append(serials, existing.Serial)
	}
	inv.Serial = nextSerial(trade.KindReturn, inv.Date, serials)
	return r.Save(ctx, inv)
}

type fakeIdempotencyStore struct {
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	return s.keys[key], nil
}
