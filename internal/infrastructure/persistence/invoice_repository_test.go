package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
)

func setupTradeTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&ledger.PurchaseLot{},
		&ledger.AllocationSource{},
		&trade.PurchaseInvoice{},
		&trade.SalesInvoice{},
		&trade.SalesAllocation{},
		&trade.ReturnInvoice{},
		&trade.ReturnRecord{},
		&trade.ReturnedSource{},
	)
	require.NoError(t, err)

	return db
}

func TestGormPurchaseInvoiceRepository_SaveAndFind(t *testing.T) {
	db := setupTradeTestDB(t)
	repo := NewGormPurchaseInvoiceRepository(db)
	ctx := context.Background()

	date := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	invoice, err := trade.NewPurchaseInvoice(date, nil, nil)
	require.NoError(t, err)

	lot, err := ledger.NewPurchaseLot(
		invoice.ID, uuid.New(), uuid.New(), date,
		3, 10,
		decimal.NewFromInt(80), decimal.NewFromInt(120),
		decimal.NewFromInt(110), decimal.NewFromInt(100),
		nil,
	)
	require.NoError(t, err)
	invoice.Lots = append(invoice.Lots, *lot)
	invoice.RecalculateTotal()

	require.NoError(t, repo.SaveNew(ctx, invoice))

	t.Run("first save assigns the serial", func(t *testing.T) {
		assert.Equal(t, "P20260715-1", invoice.Serial)
	})

	t.Run("round-trips header and lots", func(t *testing.T) {
		found, err := repo.FindByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, "P20260715-1", found.Serial)
		require.Len(t, found.Lots, 1)
		assert.Equal(t, int64(30), found.Lots[0].Remaining)
		assert.True(t, decimal.NewFromInt(240).Equal(found.TotalCost))
	})

	t.Run("finds by serial", func(t *testing.T) {
		found, err := repo.FindBySerial(ctx, "P20260715-1")
		require.NoError(t, err)
		assert.Equal(t, invoice.ID, found.ID)
	})

	t.Run("removes lots dropped from the header", func(t *testing.T) {
		invoice.Lots = nil
		require.NoError(t, repo.Save(ctx, invoice))

		found, err := repo.FindByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Empty(t, found.Lots)
	})

	t.Run("delete removes header", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, invoice.ID))
		_, err := repo.FindByID(ctx, invoice.ID)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormPurchaseInvoiceRepository_SaveNewSerials(t *testing.T) {
	db := setupTradeTestDB(t)
	repo := NewGormPurchaseInvoiceRepository(db)
	ctx := context.Background()

	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	saveNew := func(t *testing.T, d time.Time) *trade.PurchaseInvoice {
		invoice, err := trade.NewPurchaseInvoice(d, nil, nil)
		require.NoError(t, err)
		require.NoError(t, repo.SaveNew(ctx, invoice))
		return invoice
	}

	t.Run("starts at one on an empty day", func(t *testing.T) {
		assert.Equal(t, "P20260831-1", saveNew(t, date).Serial)
	})

	t.Run("picks the numeric maximum, not the string maximum", func(t *testing.T) {
		for _, serial := range []string{"P20260831-9", "P20260831-10"} {
			invoice, err := trade.NewPurchaseInvoice(date, nil, nil)
			require.NoError(t, err)
			invoice.Serial = serial
			require.NoError(t, repo.Save(ctx, invoice))
		}

		assert.Equal(t, "P20260831-11", saveNew(t, date).Serial)
	})

	t.Run("days do not share counters", func(t *testing.T) {
		assert.Equal(t, "P20260901-1", saveNew(t, date.AddDate(0, 0, 1)).Serial)
	})
}

// A concurrent same-day insert can take the derived counter first; the losing
// insert must re-derive inside a fresh transaction instead of surfacing the
// unique-index violation.
func TestGormPurchaseInvoiceRepository_SaveNewRetriesLostSerialRace(t *testing.T) {
	db := setupTradeTestDB(t)
	repo := NewGormPurchaseInvoiceRepository(db)
	ctx := context.Background()

	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	first, err := trade.NewPurchaseInvoice(date, nil, nil)
	require.NoError(t, err)
	require.NoError(t, repo.SaveNew(ctx, first))
	require.Equal(t, "P20260830-1", first.Serial)

	// The first derivation yields the serial the winner already holds, as if
	// both inserts derived before either committed.
	derivations := 0
	deriveSerial = func(ctx context.Context, db *gorm.DB, model interface{},
		kind trade.InvoiceKind, d time.Time) (string, error) {
		derivations++
		if derivations == 1 {
			return first.Serial, nil
		}
		return nextSerial(ctx, db, model, kind, d)
	}
	defer func() { deriveSerial = nextSerial }()

	second, err := trade.NewPurchaseInvoice(date, nil, nil)
	require.NoError(t, err)
	require.NoError(t, repo.SaveNew(ctx, second))

	assert.Equal(t, 2, derivations)
	assert.Equal(t, "P20260830-2", second.Serial)

	found, err := repo.FindBySerial(ctx, "P20260830-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
}

func TestGormPurchaseInvoiceRepository_SaveNewGivesUpAfterRepeatedCollisions(t *testing.T) {
	db := setupTradeTestDB(t)
	repo := NewGormPurchaseInvoiceRepository(db)
	ctx := context.Background()

	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	first, err := trade.NewPurchaseInvoice(date, nil, nil)
	require.NoError(t, err)
	require.NoError(t, repo.SaveNew(ctx, first))

	derivations := 0
	deriveSerial = func(ctx context.Context, db *gorm.DB, model interface{},
		kind trade.InvoiceKind, d time.Time) (string, error) {
		derivations++
		return first.Serial, nil
	}
	defer func() { deriveSerial = nextSerial }()

	second, err := trade.NewPurchaseInvoice(date, nil, nil)
	require.NoError(t, err)
	err = repo.SaveNew(ctx, second)

	require.Error(t, err)
	assert.True(t, isDuplicateSerial(err))
	assert.Equal(t, serialAttempts, derivations)
}

func TestIsDuplicateSerial(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"postgres", errors.New(`duplicate key value violates unique constraint "idx_purchase_invoices_serial" (SQLSTATE 23505)`), true},
		{"sqlite", errors.New("UNIQUE constraint failed: purchase_invoices.serial"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isDuplicateSerial(tc.err))
		})
	}
}

func TestGormSalesInvoiceRepository_SaveAndFind(t *testing.T) {
	db := setupTradeTestDB(t)
	repo := NewGormSalesInvoiceRepository(db)
	ctx := context.Background()

	date := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	invoice, err := trade.NewSalesInvoice(date, catalog.ChannelRetail, nil, nil, decimal.Zero)
	require.NoError(t, err)

	allocation := trade.SalesAllocation{
		BaseEntity:      shared.NewBaseEntity(),
		SalesInvoiceID:  invoice.ID,
		ProductID:       uuid.New(),
		PackagingUnitID: uuid.New(),
		Quantity:        2,
		Multiplier:      10,
		UnitPrice:       decimal.NewFromInt(120),
		Sources: []ledger.AllocationSource{
			{
				BaseEntity:     shared.NewBaseEntity(),
				LotID:          uuid.New(),
				Quantity:       20,
				DrawnQuantity:  20,
				LotInvoiceDate: date.AddDate(0, -1, 0),
			},
		},
	}
	invoice.Allocations = append(invoice.Allocations, allocation)
	invoice.RecalculateTotal()

	require.NoError(t, repo.SaveNew(ctx, invoice))
	require.Equal(t, "S20260720-1", invoice.Serial)

	t.Run("round-trips allocations with sources", func(t *testing.T) {
		found, err := repo.FindByID(ctx, invoice.ID)
		require.NoError(t, err)
		require.Len(t, found.Allocations, 1)
		require.Len(t, found.Allocations[0].Sources, 1)
		assert.Equal(t, int64(20), found.Allocations[0].Sources[0].Quantity)
		assert.Equal(t, int64(20), found.Allocations[0].ToReturn())
		assert.True(t, decimal.NewFromInt(240).Equal(found.TotalCost))
	})

	t.Run("updates source quantities in place", func(t *testing.T) {
		found, err := repo.FindByID(ctx, invoice.ID)
		require.NoError(t, err)

		found.Allocations[0].Sources[0].Quantity = 5
		require.NoError(t, repo.Save(ctx, found))

		again, err := repo.FindByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), again.Allocations[0].Sources[0].Quantity)
		assert.Equal(t, int64(20), again.Allocations[0].Sources[0].DrawnQuantity)
	})

	t.Run("finds by customer", func(t *testing.T) {
		customerID := uuid.New()
		withCustomer, err := trade.NewSalesInvoice(date, catalog.ChannelPharmacy, &customerID, nil, decimal.Zero)
		require.NoError(t, err)
		require.NoError(t, repo.SaveNew(ctx, withCustomer))
		assert.Equal(t, "S20260720-2", withCustomer.Serial)

		invoices, err := repo.FindByCustomer(ctx, customerID, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, withCustomer.ID, invoices[0].ID)
	})

	t.Run("delete cascades to allocations and sources", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, invoice.ID))

		_, err := repo.FindByID(ctx, invoice.ID)
		assert.Equal(t, shared.ErrNotFound, err)

		var count int64
		require.NoError(t, db.Model(&trade.SalesAllocation{}).
			Where("sales_invoice_id = ?", invoice.ID).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}

func TestGormReturnInvoiceRepository(t *testing.T) {
	db := setupTradeTestDB(t)
	repo := NewGormReturnInvoiceRepository(db)
	ctx := context.Background()

	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	salesInvoiceID := uuid.New()

	invoice, err := trade.NewReturnInvoice(date, salesInvoiceID, nil, nil, "damaged packaging")
	require.NoError(t, err)

	record := trade.ReturnRecord{
		BaseEntity:        shared.NewBaseEntity(),
		ReturnInvoiceID:   invoice.ID,
		SalesAllocationID: uuid.New(),
		ProductID:         uuid.New(),
		PackagingUnitID:   uuid.New(),
		Quantity:          1,
		Multiplier:        10,
		Amount:            decimal.NewFromInt(100),
		TotalLoss:         decimal.NewFromInt(20),
	}
	record.Sources = []trade.ReturnedSource{
		{
			BaseEntity:     shared.NewBaseEntity(),
			ReturnRecordID: record.ID,
			LotID:          uuid.New(),
			Quantity:       10,
			PurchasePrice:  decimal.NewFromInt(120),
			SellingPrice:   decimal.NewFromInt(100),
			Loss:           decimal.NewFromInt(20),
		},
	}
	invoice.Records = append(invoice.Records, record)
	invoice.RecalculateTotals()

	require.NoError(t, repo.SaveNew(ctx, invoice))
	require.Equal(t, "R20260801-1", invoice.Serial)

	t.Run("round-trips records with sources", func(t *testing.T) {
		found, err := repo.FindBySerial(ctx, "R20260801-1")
		require.NoError(t, err)
		require.Len(t, found.Records, 1)
		require.Len(t, found.Records[0].Sources, 1)
		assert.Equal(t, "damaged packaging", found.Reason)
		assert.True(t, decimal.NewFromInt(100).Equal(found.TotalAmount))
		assert.True(t, decimal.NewFromInt(20).Equal(found.TotalLoss))
	})

	t.Run("finds returns for a sales invoice", func(t *testing.T) {
		invoices, err := repo.FindBySalesInvoice(ctx, salesInvoiceID)
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, invoice.ID, invoices[0].ID)

		invoices, err = repo.FindBySalesInvoice(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, invoices)
	})

	t.Run("same-day returns take consecutive serials", func(t *testing.T) {
		second, err := trade.NewReturnInvoice(date, salesInvoiceID, nil, nil, "expired on arrival")
		require.NoError(t, err)
		require.NoError(t, repo.SaveNew(ctx, second))
		assert.Equal(t, "R20260801-2", second.Serial)
	})

	t.Run("delete cascades to records and sources", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, invoice.ID))

		var count int64
		require.NoError(t, db.Model(&trade.ReturnRecord{}).
			Where("return_invoice_id = ?", invoice.ID).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}

func TestNextSerial_QueryShape(t *testing.T) {
	// The serial scan must touch only the day's prefix; a broad scan would
	// couple the counter to other days.
	db := setupTradeTestDB(t)
	repo := NewGormSalesInvoiceRepository(db)
	ctx := context.Background()

	dates := []time.Time{
		time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		invoice, err := trade.NewSalesInvoice(d, catalog.ChannelRetail, nil, nil, decimal.Zero)
		require.NoError(t, err)
		require.NoError(t, repo.SaveNew(ctx, invoice))
	}

	invoice, err := trade.NewSalesInvoice(dates[1], catalog.ChannelRetail, nil, nil, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, repo.SaveNew(ctx, invoice))
	assert.Equal(t, "S20260831-2", invoice.Serial)
}
