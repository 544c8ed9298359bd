package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy/backend/internal/domain/catalog"
)

func newLot(t *testing.T, productID uuid.UUID, day, quantity, multiplier int64) *PurchaseLot {
	t.Helper()
	date := time.Date(2026, 3, int(day), 0, 0, 0, 0, time.UTC)
	lot, err := NewPurchaseLot(uuid.New(), productID, uuid.New(), date,
		quantity, multiplier,
		decimal.NewFromInt(10), decimal.NewFromInt(15),
		decimal.NewFromInt(14), decimal.NewFromInt(12), nil)
	require.NoError(t, err)
	return lot
}

func TestNewPurchaseLot(t *testing.T) {
	t.Run("remaining starts at full capacity", func(t *testing.T) {
		lot := newLot(t, uuid.New(), 1, 5, 10)
		assert.Equal(t, int64(50), lot.Remaining)
		assert.Equal(t, int64(50), lot.Capacity())
		assert.True(t, lot.IsActive())
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, err := NewPurchaseLot(uuid.New(), uuid.New(), uuid.New(), time.Now(),
			0, 10, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, nil)
		assert.Error(t, err)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := NewPurchaseLot(uuid.New(), uuid.New(), uuid.New(), time.Now(),
			5, 10, decimal.NewFromInt(-1), decimal.Zero, decimal.Zero, decimal.Zero, nil)
		assert.Error(t, err)
	})
}

func TestPurchaseLot_ConsumeRestore(t *testing.T) {
	t.Run("consume and restore keep remaining within bounds", func(t *testing.T) {
		lot := newLot(t, uuid.New(), 1, 2, 10)

		require.NoError(t, lot.Consume(15))
		assert.Equal(t, int64(5), lot.Remaining)

		require.NoError(t, lot.Restore(15))
		assert.Equal(t, int64(20), lot.Remaining)
	})

	t.Run("cannot consume more than remaining", func(t *testing.T) {
		lot := newLot(t, uuid.New(), 1, 1, 10)
		err := lot.Consume(11)
		assert.Error(t, err)
		assert.Equal(t, int64(10), lot.Remaining)
	})

	t.Run("cannot restore above capacity", func(t *testing.T) {
		lot := newLot(t, uuid.New(), 1, 1, 10)
		require.NoError(t, lot.Consume(4))
		err := lot.Restore(5)
		assert.Error(t, err)
		assert.Equal(t, int64(6), lot.Remaining)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		lot := newLot(t, uuid.New(), 1, 1, 10)
		assert.Error(t, lot.Consume(0))
		assert.Error(t, lot.Restore(-1))
	})
}

func TestPurchaseLot_UnitPrices(t *testing.T) {
	lot := newLot(t, uuid.New(), 1, 5, 10)

	// buy 10 per unit of 10 base units
	assert.True(t, decimal.NewFromInt(1).Equal(lot.UnitBuyPrice()))
	assert.True(t, decimal.NewFromFloat(1.5).Equal(lot.UnitChannelPrice(catalog.ChannelRetail)))
	assert.True(t, decimal.NewFromFloat(1.4).Equal(lot.UnitChannelPrice(catalog.ChannelPharmacy)))
	assert.True(t, decimal.NewFromFloat(1.2).Equal(lot.UnitChannelPrice(catalog.ChannelWholesale)))
}

func TestPurchaseLot_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	t.Run("no expiry date never expires", func(t *testing.T) {
		lot := newLot(t, uuid.New(), 1, 1, 1)
		assert.False(t, lot.IsExpired(now))
		assert.False(t, lot.ExpiresWithin(now, 365))
	})

	t.Run("expired lot", func(t *testing.T) {
		lot := newLot(t, uuid.New(), 1, 1, 1)
		expiry := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
		lot.ExpiryDate = &expiry
		assert.True(t, lot.IsExpired(now))
	})

	t.Run("expiring soon", func(t *testing.T) {
		lot := newLot(t, uuid.New(), 1, 1, 1)
		expiry := time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)
		lot.ExpiryDate = &expiry
		assert.True(t, lot.ExpiresWithin(now, 30))
		assert.False(t, lot.ExpiresWithin(now, 10))
		assert.False(t, lot.IsExpired(now))
	})
}
