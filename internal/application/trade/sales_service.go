package trade

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appledger "github.com/pharmacy/backend/internal/application/ledger"
	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
	"github.com/pharmacy/backend/internal/infrastructure/telemetry"
)

// SalesService orchestrates sales: each line is allocated FIFO against the
// product's lots, recording exactly which lots were drawn from.
type SalesService struct {
	invoices    trade.SalesInvoiceRepository
	returns     trade.ReturnInvoiceRepository
	lots        ledger.PurchaseLotRepository
	conversions catalog.UnitConversionRepository
	locker      *appledger.ProductLocker
	maintainer  *appledger.AggregateMaintainer
	idempotency shared.IdempotencyStore
}

// NewSalesService creates a sales service
func NewSalesService(invoices trade.SalesInvoiceRepository, returns trade.ReturnInvoiceRepository,
	lots ledger.PurchaseLotRepository, conversions catalog.UnitConversionRepository,
	locker *appledger.ProductLocker, maintainer *appledger.AggregateMaintainer) *SalesService {
	return &SalesService{
		invoices:    invoices,
		returns:     returns,
		lots:        lots,
		conversions: conversions,
		locker:      locker,
		maintainer:  maintainer,
	}
}

// SetIdempotencyStore enables duplicate-request detection
func (s *SalesService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// Create sells stock. Lines are resolved and allocated in memory first; if
// any line cannot be covered the whole invoice fails with the available
// total and no lot keeps a decrement. Only then do the writes start, each
// carrying its undo entry.
func (s *SalesService) Create(ctx context.Context, req CreateSalesInvoiceRequest) (*SalesInvoiceResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "sales_invoice.create")
	defer span.End()

	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Sales invoice requires at least one line")
	}
	if err := claimKey(ctx, s.idempotency, req.IdempotencyKey); err != nil {
		return nil, err
	}

	lines, err := s.resolveLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	inv, err := trade.NewSalesInvoice(req.Date, req.Channel, req.CustomerID, req.ActingUserID, req.Offer)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		productIDs = append(productIDs, l.ProductID)
	}
	release := s.locker.LockAll(productIDs)
	defer release()

	lotCache, err := s.loadActiveLots(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	consumed := make(map[*ledger.PurchaseLot]int64)
	for _, line := range lines {
		plan, err := ledger.PlanAllocation(line.ProductID, lotCache[line.ProductID], line.Quantity*line.Multiplier)
		if err != nil {
			return nil, err
		}
		alloc := trade.SalesAllocation{
			BaseEntity:      shared.NewBaseEntity(),
			SalesInvoiceID:  inv.GetID(),
			ProductID:       line.ProductID,
			PackagingUnitID: line.PackagingUnitID,
			Quantity:        line.Quantity,
			Multiplier:      line.Multiplier,
			UnitPrice:       line.UnitPrice,
		}
		sources, err := plan.Apply(alloc.GetID())
		if err != nil {
			return nil, err
		}
		alloc.Sources = sources
		for _, draw := range plan.Draws {
			consumed[draw.Lot] += draw.Quantity
		}
		inv.Allocations = append(inv.Allocations, alloc)
	}
	inv.RecalculateTotal()
	telemetry.AddEvent(span, "stock_allocated", "lines", len(inv.Allocations))

	undo := NewUndoLog()
	if err := s.invoices.SaveNew(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	undo.Push("delete sales invoice", func(ctx context.Context) error {
		return s.invoices.Delete(ctx, inv.GetID())
	})

	touched := make([]*ledger.PurchaseLot, 0, len(consumed))
	for lot := range consumed {
		touched = append(touched, lot)
	}
	if err := s.lots.SaveAll(ctx, touched); err != nil {
		undo.Push("restore lot consumption", func(ctx context.Context) error {
			for lot, qty := range consumed {
				if rerr := lot.Restore(qty); rerr != nil {
					return rerr
				}
			}
			return s.lots.SaveAll(ctx, touched)
		})
		telemetry.RecordError(span, err)
		return nil, compensateWith(ctx, undo, err)
	}

	for _, productID := range inv.AffectedProducts() {
		s.maintainer.Recompute(ctx, productID)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceSerial, inv.Serial,
		telemetry.SpanAttrSalesChannel, string(inv.Channel),
		telemetry.SpanAttrAmount, inv.TotalCost,
	)
	resp := ToSalesInvoiceResponse(inv)
	return &resp, nil
}

// GetByID retrieves a sales invoice
func (s *SalesService) GetByID(ctx context.Context, id uuid.UUID) (*SalesInvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToSalesInvoiceResponse(inv)
	return &resp, nil
}

// GetBySerial retrieves a sales invoice by serial
func (s *SalesService) GetBySerial(ctx context.Context, serial string) (*SalesInvoiceResponse, error) {
	inv, err := s.invoices.FindBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	resp := ToSalesInvoiceResponse(inv)
	return &resp, nil
}

// List retrieves sales invoices with pagination
func (s *SalesService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[SalesInvoiceResponse], error) {
	invoices, err := s.invoices.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[SalesInvoiceResponse]{}, err
	}
	total, err := s.invoices.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[SalesInvoiceResponse]{}, err
	}
	items := make([]SalesInvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, ToSalesInvoiceResponse(&invoices[i]))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Delete removes a sales invoice. Its return invoices are removed first,
// taking back the stock they restored, then the sale's own consumption is
// handed back to the lots and the invoice disappears.
func (s *SalesService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartSpan(ctx, "sales_invoice.delete")
	defer span.End()

	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceSerial, inv.Serial)
	returnInvoices, err := s.returns.FindBySalesInvoice(ctx, id)
	if err != nil {
		return err
	}

	productIDs := inv.AffectedProducts()
	release := s.locker.LockAll(productIDs)
	defer release()

	lotMap, err := s.loadLotMap(ctx, productIDs)
	if err != nil {
		return err
	}

	// take back what returns restored, then hand back what the sale consumed
	for i := range returnInvoices {
		for j := range returnInvoices[i].Records {
			for _, src := range returnInvoices[i].Records[j].Sources {
				lot, ok := lotMap[src.LotID]
				if !ok {
					return shared.NewDomainErrorf("NOT_FOUND", "Lot %s referenced by return no longer exists", src.LotID)
				}
				if err := lot.Consume(src.Quantity); err != nil {
					return err
				}
			}
		}
	}
	for i := range inv.Allocations {
		for _, src := range inv.Allocations[i].Sources {
			if src.DrawnQuantity == 0 {
				continue
			}
			lot, ok := lotMap[src.LotID]
			if !ok {
				return shared.NewDomainErrorf("NOT_FOUND", "Lot %s referenced by sale no longer exists", src.LotID)
			}
			if err := lot.Restore(src.DrawnQuantity); err != nil {
				return err
			}
		}
	}

	undo := NewUndoLog()
	for i := range returnInvoices {
		ret := &returnInvoices[i]
		if err := s.returns.Delete(ctx, ret.GetID()); err != nil {
			return compensateWith(ctx, undo, err)
		}
		undo.Push("reinsert return invoice", func(ctx context.Context) error {
			return s.returns.Save(ctx, ret)
		})
	}
	if err := s.invoices.Delete(ctx, id); err != nil {
		return compensateWith(ctx, undo, err)
	}
	undo.Push("reinsert sales invoice", func(ctx context.Context) error {
		return s.invoices.Save(ctx, inv)
	})

	touched := make([]*ledger.PurchaseLot, 0, len(lotMap))
	for _, lot := range lotMap {
		touched = append(touched, lot)
	}
	if err := s.lots.SaveAll(ctx, touched); err != nil {
		return compensateWith(ctx, undo, err)
	}

	for _, productID := range productIDs {
		s.maintainer.Recompute(ctx, productID)
	}
	return nil
}

type salesLine struct {
	ProductID       uuid.UUID
	PackagingUnitID uuid.UUID
	Multiplier      int64
	Quantity        int64
	UnitPrice       decimal.Decimal
}

func (s *SalesService) resolveLines(ctx context.Context, reqs []SalesLineRequest) ([]salesLine, error) {
	lines := make([]salesLine, 0, len(reqs))
	for _, req := range reqs {
		if req.Quantity <= 0 {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Line quantity must be greater than zero")
		}
		if req.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Line price cannot be negative")
		}

		var conv *catalog.UnitConversion
		var err error
		if req.ScanCode != "" {
			conv, err = s.conversions.FindByScanCode(ctx, req.ScanCode)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil, shared.NewDomainErrorf("NOT_FOUND", "No conversion matches scan code %q", req.ScanCode)
				}
				return nil, err
			}
		} else {
			if req.ProductID == uuid.Nil || req.PackagingUnitID == uuid.Nil {
				return nil, shared.NewDomainError("VALIDATION_ERROR", "Line requires a product and packaging unit or a scan code")
			}
			conv, err = s.conversions.FindByProductAndUnit(ctx, req.ProductID, req.PackagingUnitID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil, shared.NewDomainErrorf("CONVERSION_NOT_FOUND",
						"No unit conversion for product %s and unit %s", req.ProductID, req.PackagingUnitID)
				}
				return nil, err
			}
		}
		lines = append(lines, salesLine{
			ProductID:       conv.ProductID,
			PackagingUnitID: conv.PackagingUnitID,
			Multiplier:      conv.Multiplier,
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
		})
	}
	return lines, nil
}

func (s *SalesService) loadActiveLots(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]*ledger.PurchaseLot, error) {
	cache := make(map[uuid.UUID][]*ledger.PurchaseLot)
	for _, id := range productIDs {
		if _, ok := cache[id]; ok {
			continue
		}
		lots, err := s.lots.FindActiveByProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		ptrs := make([]*ledger.PurchaseLot, len(lots))
		for i := range lots {
			ptrs[i] = &lots[i]
		}
		cache[id] = ptrs
	}
	return cache, nil
}

func (s *SalesService) loadLotMap(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*ledger.PurchaseLot, error) {
	lotMap := make(map[uuid.UUID]*ledger.PurchaseLot)
	for _, id := range productIDs {
		lots, err := s.lots.FindByProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		for i := range lots {
			lot := lots[i]
			lotMap[lot.GetID()] = &lot
		}
	}
	return lotMap, nil
}
