package inventory

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func item(available, total, threshold int) *Item {
	return &Item{
		TotalQuantity:     total,
		AvailableQuantity: available,
		LowStockThreshold: threshold,
	}
}

func TestItemStatus(t *testing.T) {
	tests := []struct {
		name string
		item *Item
		want ItemStatus
	}{
		{"plenty left", item(80, 100, 30), StatusAvailable},
		{"exactly at threshold", item(30, 100, 30), StatusAvailable},
		{"just below threshold", item(29, 100, 30), StatusLowStock},
		{"nothing left", item(0, 100, 30), StatusOutOfStock},
		{"negative never happens but classifies out", item(-1, 100, 30), StatusOutOfStock},
		{"zero threshold disables low stock", item(1, 100, 0), StatusAvailable},
		{"zero total single unit", item(1, 1, 30), StatusAvailable},
		{"small stock rounding", item(1, 10, 30), StatusLowStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Status())
		})
	}
}

func TestBorrowedOut(t *testing.T) {
	assert.Equal(t, 3, item(7, 10, 30).BorrowedOut())
	assert.Equal(t, 0, item(10, 10, 30).BorrowedOut())
}

func TestItemToDTO(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	i := &Item{
		ItemID:            4,
		ItemULID:          "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Name:              "Projector",
		Category:          "AV Equipment",
		Description:       sql.NullString{String: "HDMI only", Valid: true},
		TotalQuantity:     10,
		AvailableQuantity: 2,
		LowStockThreshold: 30,
		ArchivedAt:        sql.NullTime{Time: now, Valid: true},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	dto := i.toDTO()
	assert.Equal(t, StatusLowStock, dto.Status)
	assert.Equal(t, 2, dto.AvailableQuantity)
	assert.NotNil(t, dto.Description)
	assert.Equal(t, "HDMI only", *dto.Description)
	assert.NotNil(t, dto.ArchivedAt)

	i.Description = sql.NullString{}
	i.ArchivedAt = sql.NullTime{}
	dto = i.toDTO()
	assert.Nil(t, dto.Description)
	assert.Nil(t, dto.ArchivedAt)
}
