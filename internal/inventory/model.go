package inventory

import (
	"database/sql"
	"time"
)

type ItemStatus string

const (
	StatusAvailable  ItemStatus = "available"
	StatusLowStock   ItemStatus = "low_stock"
	StatusOutOfStock ItemStatus = "out_of_stock"
)

const DefaultLowStockThreshold = 30 // percent

type Item struct {
	ItemID            int64
	ItemULID          string
	Name              string
	Category          string
	Description       sql.NullString
	TotalQuantity     int
	AvailableQuantity int
	LowStockThreshold int // percent of total below which status is low_stock
	ArchivedAt        sql.NullTime
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Status is derived, never stored. available_quantity is owned by the
// circulation transactions; this just classifies it.
func (i *Item) Status() ItemStatus {
	if i.AvailableQuantity <= 0 {
		return StatusOutOfStock
	}
	if i.AvailableQuantity*100 < i.TotalQuantity*i.LowStockThreshold {
		return StatusLowStock
	}
	return StatusAvailable
}

// BorrowedOut is the number of units currently out on loan (or lost and not
// yet re-credited).
func (i *Item) BorrowedOut() int {
	return i.TotalQuantity - i.AvailableQuantity
}
