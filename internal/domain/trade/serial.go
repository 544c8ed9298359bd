package trade

import (
	"fmt"
	"time"
)

// InvoiceKind selects the serial prefix marker for an invoice type
type InvoiceKind string

const (
	KindPurchase InvoiceKind = "P"
	KindSale     InvoiceKind = "S"
	KindReturn   InvoiceKind = "R"
)

// SerialPrefix derives the fixed serial prefix for an invoice kind and date,
// e.g. "P20260831-". Every serial sharing a prefix differs only in its
// counter suffix.
func SerialPrefix(kind InvoiceKind, date time.Time) string {
	return fmt.Sprintf("%s%s-", kind, date.Format("20060102"))
}

// FormatSerial appends a counter to a prefix
func FormatSerial(prefix string, counter int64) string {
	return fmt.Sprintf("%s%d", prefix, counter)
}

// ParseSerialCounter extracts the counter from a serial sharing the prefix.
// Returns 0 when the serial does not match.
func ParseSerialCounter(prefix, serial string) int64 {
	var counter int64
	if _, err := fmt.Sscanf(serial, prefix+"%d", &counter); err != nil {
		return 0
	}
	return counter
}
