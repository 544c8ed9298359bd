package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pharmacy/backend/internal/domain/trade"
)

// serialAttempts bounds how often an insert re-derives its serial after
// losing a same-day race on the unique index.
const serialAttempts = 3

// deriveSerial is swapped in tests to force serial collisions
var deriveSerial = nextSerial

// nextSerial derives the next free serial for an invoice kind and date by
// scanning the serials already issued under the day's prefix. Counters carry
// no zero padding, so the maximum is computed from the parsed counters rather
// than by string ordering ("P20260831-9" sorts after "P20260831-10").
func nextSerial(ctx context.Context, db *gorm.DB, model interface{}, kind trade.InvoiceKind, date time.Time) (string, error) {
	prefix := trade.SerialPrefix(kind, date)

	var serials []string
	if err := db.WithContext(ctx).
		Model(model).
		Where("serial LIKE ?", prefix+"%").
		Pluck("serial", &serials).Error; err != nil {
		return "", err
	}

	var max int64
	for _, serial := range serials {
		if counter := trade.ParseSerialCounter(prefix, serial); counter > max {
			max = counter
		}
	}

	return trade.FormatSerial(prefix, max+1), nil
}

// withSerialRetry runs an insert whose transaction derives the invoice
// serial. Two same-day inserts can derive the same counter; the unique index
// rejects the loser, whose next attempt sees the winner's row and derives the
// counter after it.
func withSerialRetry(insert func() error) error {
	var err error
	for attempt := 0; attempt < serialAttempts; attempt++ {
		if err = insert(); err == nil || !isDuplicateSerial(err) {
			return err
		}
	}
	return err
}

// isDuplicateSerial reports whether an insert lost a serial race. Postgres
// raises SQLSTATE 23505, sqlite a UNIQUE constraint message; gorm translates
// both to ErrDuplicatedKey when its error translator is enabled.
func isDuplicateSerial(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
