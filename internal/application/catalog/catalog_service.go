package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// Service maintains the product master data: products, packaging units and
// the conversion table that binds them. Stock movement never happens here.
type Service struct {
	products    catalog.ProductRepository
	units       catalog.PackagingUnitRepository
	conversions catalog.UnitConversionRepository
	lots        ledger.PurchaseLotRepository
}

// NewService creates a catalog service
func NewService(products catalog.ProductRepository, units catalog.PackagingUnitRepository,
	conversions catalog.UnitConversionRepository, lots ledger.PurchaseLotRepository) *Service {
	return &Service{
		products:    products,
		units:       units,
		conversions: conversions,
		lots:        lots,
	}
}

// CreateProduct creates a product. Names are unique.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	if _, err := s.products.FindByName(ctx, req.Name); err == nil {
		return nil, shared.NewDomainErrorf("DUPLICATE_KEY", "Product %q already exists", req.Name)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	product, err := catalog.NewProduct(req.Name, req.Description, req.MinStock)
	if err != nil {
		return nil, err
	}
	product.Barcode = req.Barcode

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// UpdateProduct updates a product's master data
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != product.Name {
		if _, err := s.products.FindByName(ctx, req.Name); err == nil {
			return nil, shared.NewDomainErrorf("DUPLICATE_KEY", "Product %q already exists", req.Name)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	if err := product.UpdateDetails(req.Name, req.Description, req.MinStock); err != nil {
		return nil, err
	}
	product.Barcode = req.Barcode

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetProduct retrieves a product
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// ListProducts lists products with pagination
func (s *Service) ListProducts(ctx context.Context, filter shared.Filter) (shared.Paginated[ProductResponse], error) {
	products, err := s.products.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	total, err := s.products.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	items := make([]ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, ToProductResponse(&products[i]))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// ListLowStock lists products whose remaining stock sits at or below their
// minimum threshold
func (s *Service) ListLowStock(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.products.FindLowStock(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, ToProductResponse(&products[i]))
	}
	return items, nil
}

// DeleteProduct removes a product. A product with purchase history stays: its
// lots are the ledger and the ledger is never orphaned.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return err
	}
	lots, err := s.lots.FindByProduct(ctx, id)
	if err != nil {
		return err
	}
	if len(lots) > 0 {
		return shared.NewDomainError("INVALID_STATE", "Product has purchase lots and cannot be deleted")
	}

	conversions, err := s.conversions.FindByProduct(ctx, id)
	if err != nil {
		return err
	}
	for i := range conversions {
		if err := s.conversions.Delete(ctx, conversions[i].GetID()); err != nil {
			return err
		}
	}
	return s.products.Delete(ctx, id)
}

// CreatePackagingUnit creates a named unit of measure. Names are unique.
func (s *Service) CreatePackagingUnit(ctx context.Context, req CreatePackagingUnitRequest) (*PackagingUnitResponse, error) {
	if _, err := s.units.FindByName(ctx, req.Name); err == nil {
		return nil, shared.NewDomainErrorf("DUPLICATE_KEY", "Packaging unit %q already exists", req.Name)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	unit, err := catalog.NewPackagingUnit(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.units.Save(ctx, unit); err != nil {
		return nil, err
	}
	resp := ToPackagingUnitResponse(unit)
	return &resp, nil
}

// ListPackagingUnits lists units with pagination
func (s *Service) ListPackagingUnits(ctx context.Context, filter shared.Filter) (shared.Paginated[PackagingUnitResponse], error) {
	units, err := s.units.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[PackagingUnitResponse]{}, err
	}
	total, err := s.units.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[PackagingUnitResponse]{}, err
	}
	items := make([]PackagingUnitResponse, 0, len(units))
	for i := range units {
		items = append(items, ToPackagingUnitResponse(&units[i]))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// DefineConversion binds a packaging unit to a product with a multiplier.
// One binding per (product, unit) pair.
func (s *Service) DefineConversion(ctx context.Context, req DefineConversionRequest) (*ConversionResponse, error) {
	if _, err := s.products.FindByID(ctx, req.ProductID); err != nil {
		return nil, err
	}
	if _, err := s.units.FindByID(ctx, req.PackagingUnitID); err != nil {
		return nil, err
	}

	if _, err := s.conversions.FindByProductAndUnit(ctx, req.ProductID, req.PackagingUnitID); err == nil {
		return nil, shared.NewDomainError("DUPLICATE_KEY", "Conversion already defined for this product and unit")
	} else if !errors.Is(err, shared.ErrConversionNotFound) && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if req.ScanCode != "" {
		if _, err := s.conversions.FindByScanCode(ctx, req.ScanCode); err == nil {
			return nil, shared.NewDomainErrorf("DUPLICATE_KEY", "Scan code %q is already in use", req.ScanCode)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	conv, err := catalog.NewUnitConversion(req.ProductID, req.PackagingUnitID, req.Multiplier, req.ScanCode)
	if err != nil {
		return nil, err
	}
	if err := s.conversions.Save(ctx, conv); err != nil {
		return nil, err
	}
	resp := ToConversionResponse(conv)
	return &resp, nil
}

// ListConversions lists a product's packaging bindings, smallest first
func (s *Service) ListConversions(ctx context.Context, productID uuid.UUID) ([]ConversionResponse, error) {
	conversions, err := s.conversions.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	items := make([]ConversionResponse, 0, len(conversions))
	for i := range conversions {
		items = append(items, ToConversionResponse(&conversions[i]))
	}
	return items, nil
}

// ResolveScanCode resolves a barcode to its (product, unit) binding
func (s *Service) ResolveScanCode(ctx context.Context, scanCode string) (*ConversionResponse, error) {
	conv, err := s.conversions.FindByScanCode(ctx, scanCode)
	if err != nil {
		return nil, err
	}
	resp := ToConversionResponse(conv)
	return &resp, nil
}

// DeleteConversion removes a packaging binding
func (s *Service) DeleteConversion(ctx context.Context, id uuid.UUID) error {
	return s.conversions.Delete(ctx, id)
}
