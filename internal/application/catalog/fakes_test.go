package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
)

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

type fakeUnitRepo struct {
	units map[uuid.UUID]*catalog.PackagingUnit
}

func newFakeUnitRepo() *fakeUnitRepo {
	return &fakeUnitRepo{units: make(map[uuid.UUID]*catalog.PackagingUnit)}
}

func (r *fakeUnitRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.PackagingUnit, error) {
	u, ok := r.units[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUnitRepo) FindAll(context.Context, shared.Filter) ([]catalog.PackagingUnit, error) {
	out := make([]catalog.PackagingUnit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUnitRepo) Save(_ context.Context, u *catalog.PackagingUnit) error {
	cp := *u
	r.units[u.GetID()] = &cp
	return nil
}

func (r *fakeUnitRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.units, id)
	return nil
}

func (r *fakeUnitRepo) Count(context.Context, shared.Filter) (int64, error) {
	return int64(len(r.units)), nil
}

func (r *fakeUnitRepo) FindByName(_ context.Context, name string) (*catalog.PackagingUnit, error) {
	for _, u := range r.units {
		if u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
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

type fakeLotRepo struct {
	lots map[uuid.UUID]*ledger.PurchaseLot
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
