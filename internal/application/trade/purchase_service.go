package trade

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	appledger "github.com/pharmacy/backend/internal/application/ledger"
	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
	"github.com/pharmacy/backend/internal/infrastructure/telemetry"
)

// idempotencyTTL is how long a processed invoice request key stays marked
const idempotencyTTL = 24 * time.Hour

// PurchaseService orchestrates stock intake: one invoice becomes one lot per
// line, each lot opening at full capacity.
type PurchaseService struct {
	invoices    trade.PurchaseInvoiceRepository
	lots        ledger.PurchaseLotRepository
	conversions catalog.UnitConversionRepository
	locker      *appledger.ProductLocker
	maintainer  *appledger.AggregateMaintainer
	idempotency shared.IdempotencyStore
}

// NewPurchaseService creates a purchase service
func NewPurchaseService(invoices trade.PurchaseInvoiceRepository, lots ledger.PurchaseLotRepository,
	conversions catalog.UnitConversionRepository, locker *appledger.ProductLocker,
	maintainer *appledger.AggregateMaintainer) *PurchaseService {
	return &PurchaseService{
		invoices:    invoices,
		lots:        lots,
		conversions: conversions,
		locker:      locker,
		maintainer:  maintainer,
	}
}

// SetIdempotencyStore enables duplicate-request detection
func (s *PurchaseService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// Create receives stock. Validation and conversion resolution happen before
// any write; the persisted steps carry undo entries so a partial failure
// leaves no half-written invoice behind.
func (s *PurchaseService) Create(ctx context.Context, req CreatePurchaseInvoiceRequest) (*PurchaseInvoiceResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "purchase_invoice.create")
	defer span.End()

	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Purchase invoice requires at least one line")
	}
	if err := claimKey(ctx, s.idempotency, req.IdempotencyKey); err != nil {
		return nil, err
	}

	inv, err := trade.NewPurchaseInvoice(req.Date, req.SupplierID, req.ActingUserID)
	if err != nil {
		return nil, err
	}

	for _, line := range req.Lines {
		conv, err := s.conversions.FindByProductAndUnit(ctx, line.ProductID, line.PackagingUnitID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainErrorf("CONVERSION_NOT_FOUND",
					"No unit conversion for product %s and unit %s", line.ProductID, line.PackagingUnitID)
			}
			return nil, err
		}
		lot, err := ledger.NewPurchaseLot(inv.GetID(), line.ProductID, line.PackagingUnitID,
			req.Date, line.Quantity, conv.Multiplier,
			line.BuyPrice, line.RetailPrice, line.PharmacyPrice, line.WholesalePrice,
			line.ExpiryDate)
		if err != nil {
			return nil, err
		}
		inv.Lots = append(inv.Lots, *lot)
	}
	inv.RecalculateTotal()

	release := s.locker.LockAll(inv.AffectedProducts())
	defer release()

	undo := NewUndoLog()
	if err := s.invoices.SaveNew(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	undo.Push("delete purchase invoice", func(ctx context.Context) error {
		return s.invoices.Delete(ctx, inv.GetID())
	})

	lotPtrs := make([]*ledger.PurchaseLot, len(inv.Lots))
	for i := range inv.Lots {
		lotPtrs[i] = &inv.Lots[i]
	}
	if err := s.lots.SaveAll(ctx, lotPtrs); err != nil {
		telemetry.RecordError(span, err)
		return nil, compensateWith(ctx, undo, err)
	}

	for i := range inv.Lots {
		lot := &inv.Lots[i]
		s.maintainer.RegisterPurchase(ctx, lot.ProductID,
			lot.UnitBuyPrice(),
			lot.UnitChannelPrice(catalog.ChannelRetail),
			lot.UnitChannelPrice(catalog.ChannelPharmacy),
			lot.UnitChannelPrice(catalog.ChannelWholesale))
	}
	for _, productID := range inv.AffectedProducts() {
		s.maintainer.Recompute(ctx, productID)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceSerial, inv.Serial,
		telemetry.SpanAttrAmount, inv.TotalCost,
	)
	resp := ToPurchaseInvoiceResponse(inv)
	return &resp, nil
}

// GetByID retrieves a purchase invoice
func (s *PurchaseService) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseInvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseInvoiceResponse(inv)
	return &resp, nil
}

// GetBySerial retrieves a purchase invoice by serial
func (s *PurchaseService) GetBySerial(ctx context.Context, serial string) (*PurchaseInvoiceResponse, error) {
	inv, err := s.invoices.FindBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseInvoiceResponse(inv)
	return &resp, nil
}

// List retrieves purchase invoices with pagination
func (s *PurchaseService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[PurchaseInvoiceResponse], error) {
	invoices, err := s.invoices.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[PurchaseInvoiceResponse]{}, err
	}
	total, err := s.invoices.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[PurchaseInvoiceResponse]{}, err
	}
	items := make([]PurchaseInvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, ToPurchaseInvoiceResponse(&invoices[i]))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Delete removes a purchase invoice and its lots. Only allowed while every
// lot is still untouched; a partially consumed lot is referenced by sales
// allocations and cannot be taken back.
func (s *PurchaseService) Delete(ctx context.Context, id uuid.UUID) error {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return err
	}
	lots, err := s.lots.FindByInvoice(ctx, id)
	if err != nil {
		return err
	}
	for i := range lots {
		if lots[i].Remaining != lots[i].Capacity() {
			return shared.NewDomainErrorf("INVALID_STATE",
				"Lot %s has been partially sold and cannot be deleted", lots[i].GetID())
		}
	}

	products := inv.AffectedProducts()
	if len(products) == 0 {
		for i := range lots {
			products = append(products, lots[i].ProductID)
		}
	}
	release := s.locker.LockAll(products)
	defer release()

	undo := NewUndoLog()
	if err := s.lots.DeleteByInvoice(ctx, id); err != nil {
		return err
	}
	undo.Push("reinsert purchase lots", func(ctx context.Context) error {
		ptrs := make([]*ledger.PurchaseLot, len(lots))
		for i := range lots {
			ptrs[i] = &lots[i]
		}
		return s.lots.SaveAll(ctx, ptrs)
	})

	if err := s.invoices.Delete(ctx, id); err != nil {
		return compensateWith(ctx, undo, err)
	}

	for _, productID := range products {
		s.maintainer.Recompute(ctx, productID)
	}
	return nil
}

func claimKey(ctx context.Context, store shared.IdempotencyStore, key string) error {
	if key == "" || store == nil {
		return nil
	}
	fresh, err := store.MarkProcessed(ctx, key, idempotencyTTL)
	if err != nil {
		return err
	}
	if !fresh {
		return shared.NewDomainError("DUPLICATE_KEY", "Request has already been processed")
	}
	return nil
}

// compensateWith plays the undo log back and reports a failed rollback
// together with the error that triggered it.
func compensateWith(ctx context.Context, undo *UndoLog, original error) error {
	if cerr := undo.Compensate(ctx); cerr != nil {
		return shared.NewCompensationError(original, cerr)
	}
	return original
}
