package trade

import (
	"context"
	"errors"

	"github.com/google/uuid"

	appledger "github.com/pharmacy/backend/internal/application/ledger"
	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
	"github.com/pharmacy/backend/internal/infrastructure/telemetry"
)

// ReturnService orchestrates customer returns: quantity goes back to the
// lots a sale drew from, most recently purchased lot first, and the revenue
// loss of taking the goods back is recorded per lot.
type ReturnService struct {
	returns     trade.ReturnInvoiceRepository
	sales       trade.SalesInvoiceRepository
	lots        ledger.PurchaseLotRepository
	sources     ledger.AllocationSourceRepository
	conversions catalog.UnitConversionRepository
	locker      *appledger.ProductLocker
	maintainer  *appledger.AggregateMaintainer
	idempotency shared.IdempotencyStore
}

// NewReturnService creates a return service
func NewReturnService(returns trade.ReturnInvoiceRepository, sales trade.SalesInvoiceRepository,
	lots ledger.PurchaseLotRepository, sources ledger.AllocationSourceRepository,
	conversions catalog.UnitConversionRepository, locker *appledger.ProductLocker,
	maintainer *appledger.AggregateMaintainer) *ReturnService {
	return &ReturnService{
		returns:     returns,
		sales:       sales,
		lots:        lots,
		sources:     sources,
		conversions: conversions,
		locker:      locker,
		maintainer:  maintainer,
	}
}

// SetIdempotencyStore enables duplicate-request detection
func (s *ReturnService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// Create processes a return against a sales invoice. Every line is planned
// before anything is written; a line that cannot be covered fails the whole
// invoice with the lots untouched in storage.
func (s *ReturnService) Create(ctx context.Context, req CreateReturnInvoiceRequest) (*ReturnInvoiceResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "return_invoice.create")
	defer span.End()

	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Return invoice requires at least one line")
	}
	if err := claimKey(ctx, s.idempotency, req.IdempotencyKey); err != nil {
		return nil, err
	}

	sale, err := s.sales.FindByID(ctx, req.SalesInvoiceID)
	if err != nil {
		return nil, err
	}

	inv, err := trade.NewReturnInvoice(req.Date, sale.GetID(), sale.CustomerID, req.ActingUserID, req.Reason)
	if err != nil {
		return nil, err
	}

	productIDs := sale.AffectedProducts()
	release := s.locker.LockAll(productIDs)
	defer release()

	lotMap, err := s.loadLotMap(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	restored := make(map[*ledger.PurchaseLot]int64)
	touchedSources := make(map[uuid.UUID]*ledger.AllocationSource)
	for _, line := range req.Lines {
		alloc, err := sale.AllocationFor(line.AllocationID)
		if err != nil {
			return nil, err
		}

		unitID := alloc.PackagingUnitID
		multiplier := alloc.Multiplier
		if line.PackagingUnitID != nil && *line.PackagingUnitID != alloc.PackagingUnitID {
			conv, err := s.conversions.FindByProductAndUnit(ctx, alloc.ProductID, *line.PackagingUnitID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil, shared.NewDomainErrorf("CONVERSION_NOT_FOUND",
						"No unit conversion for product %s and unit %s", alloc.ProductID, *line.PackagingUnitID)
				}
				return nil, err
			}
			if err := ledger.ValidateReturnUnit(conv.Multiplier, alloc.Multiplier); err != nil {
				return nil, err
			}
			unitID = conv.PackagingUnitID
			multiplier = conv.Multiplier
		}

		plan, err := ledger.PlanReversal(alloc.SourcePointers(), lotMap,
			line.Quantity*multiplier, alloc.UnitPrice, alloc.Multiplier)
		if err != nil {
			return nil, err
		}
		if err := plan.Apply(); err != nil {
			return nil, err
		}
		for _, e := range plan.Entries {
			restored[e.Lot] += e.Quantity
			touchedSources[e.Source.GetID()] = e.Source
		}
		inv.Records = append(inv.Records, *trade.NewReturnRecord(inv.GetID(), alloc, unitID, line.Quantity, multiplier, plan))
	}
	inv.RecalculateTotals()

	undo := NewUndoLog()
	if err := s.returns.SaveNew(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	undo.Push("delete return invoice", func(ctx context.Context) error {
		return s.returns.Delete(ctx, inv.GetID())
	})

	touchedLots := make([]*ledger.PurchaseLot, 0, len(restored))
	for lot := range restored {
		touchedLots = append(touchedLots, lot)
	}
	if err := s.lots.SaveAll(ctx, touchedLots); err != nil {
		return nil, compensateWith(ctx, undo, err)
	}
	undo.Push("re-consume restored lots", func(ctx context.Context) error {
		for lot, qty := range restored {
			if cerr := lot.Consume(qty); cerr != nil {
				return cerr
			}
		}
		return s.lots.SaveAll(ctx, touchedLots)
	})

	sourceList := make([]*ledger.AllocationSource, 0, len(touchedSources))
	for _, src := range touchedSources {
		sourceList = append(sourceList, src)
	}
	if err := s.sources.SaveAll(ctx, sourceList); err != nil {
		return nil, compensateWith(ctx, undo, err)
	}

	for _, productID := range inv.AffectedProducts() {
		s.maintainer.Recompute(ctx, productID)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceSerial, inv.Serial,
		telemetry.SpanAttrLoss, inv.TotalLoss,
	)
	resp := ToReturnInvoiceResponse(inv)
	return &resp, nil
}

// GetByID retrieves a return invoice
func (s *ReturnService) GetByID(ctx context.Context, id uuid.UUID) (*ReturnInvoiceResponse, error) {
	inv, err := s.returns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToReturnInvoiceResponse(inv)
	return &resp, nil
}

// GetBySerial retrieves a return invoice by serial
func (s *ReturnService) GetBySerial(ctx context.Context, serial string) (*ReturnInvoiceResponse, error) {
	inv, err := s.returns.FindBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	resp := ToReturnInvoiceResponse(inv)
	return &resp, nil
}

// ListBySalesInvoice retrieves the returns filed against one sale
func (s *ReturnService) ListBySalesInvoice(ctx context.Context, salesInvoiceID uuid.UUID) ([]ReturnInvoiceResponse, error) {
	invoices, err := s.returns.FindBySalesInvoice(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}
	items := make([]ReturnInvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, ToReturnInvoiceResponse(&invoices[i]))
	}
	return items, nil
}

// Delete removes a return invoice, taking back the stock it restored and
// making the quantities returnable on the original sale again.
func (s *ReturnService) Delete(ctx context.Context, id uuid.UUID) error {
	inv, err := s.returns.FindByID(ctx, id)
	if err != nil {
		return err
	}
	sale, err := s.sales.FindByID(ctx, inv.SalesInvoiceID)
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

	touchedSources := make(map[uuid.UUID]*ledger.AllocationSource)
	touchedLots := make(map[uuid.UUID]*ledger.PurchaseLot)
	for i := range inv.Records {
		rec := &inv.Records[i]
		alloc, err := sale.AllocationFor(rec.SalesAllocationID)
		if err != nil {
			return err
		}
		for _, src := range rec.Sources {
			lot, ok := lotMap[src.LotID]
			if !ok {
				return shared.NewDomainErrorf("NOT_FOUND", "Lot %s referenced by return no longer exists", src.LotID)
			}
			if err := lot.Consume(src.Quantity); err != nil {
				return err
			}
			touchedLots[lot.GetID()] = lot

			allocSrc := findSourceForLot(alloc, src.LotID)
			if allocSrc == nil {
				return shared.NewDomainErrorf("SOURCE_EXHAUSTED",
					"Allocation %s has no source for lot %s", alloc.GetID(), src.LotID)
			}
			allocSrc.Quantity += src.Quantity
			touchedSources[allocSrc.GetID()] = allocSrc
		}
	}

	undo := NewUndoLog()
	if err := s.returns.Delete(ctx, id); err != nil {
		return err
	}
	undo.Push("reinsert return invoice", func(ctx context.Context) error {
		return s.returns.Save(ctx, inv)
	})

	lotList := make([]*ledger.PurchaseLot, 0, len(touchedLots))
	for _, lot := range touchedLots {
		lotList = append(lotList, lot)
	}
	if err := s.lots.SaveAll(ctx, lotList); err != nil {
		return compensateWith(ctx, undo, err)
	}

	sourceList := make([]*ledger.AllocationSource, 0, len(touchedSources))
	for _, src := range touchedSources {
		sourceList = append(sourceList, src)
	}
	if err := s.sources.SaveAll(ctx, sourceList); err != nil {
		return compensateWith(ctx, undo, err)
	}

	for _, productID := range productIDs {
		s.maintainer.Recompute(ctx, productID)
	}
	return nil
}

func findSourceForLot(alloc *trade.SalesAllocation, lotID uuid.UUID) *ledger.AllocationSource {
	for i := range alloc.Sources {
		if alloc.Sources[i].LotID == lotID {
			return &alloc.Sources[i]
		}
	}
	return nil
}

func (s *ReturnService) loadLotMap(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*ledger.PurchaseLot, error) {
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
