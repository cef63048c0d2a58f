package inventory

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type CreateItemRequest struct {
	Name              string  `json:"name" binding:"required"`
	Category          string  `json:"category" binding:"required"`
	Description       *string `json:"description,omitempty"`
	TotalQuantity     int     `json:"total_quantity"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty"` // percent, default 30
}

type UpdateItemRequest struct {
	Name              *string `json:"name,omitempty"`
	Category          *string `json:"category,omitempty"`
	Description       *string `json:"description,omitempty"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty"`
}

type AdjustTotalRequest struct {
	TotalQuantity int `json:"total_quantity"`
}

type ItemResponse struct {
	ItemID            int64      `json:"item_id"`
	ItemULID          string     `json:"item_ulid"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	Description       *string    `json:"description,omitempty"`
	TotalQuantity     int        `json:"total_quantity"`
	AvailableQuantity int        `json:"available_quantity"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	Status            ItemStatus `json:"status"`
	ArchivedAt        *time.Time `json:"archived_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type ItemFilter struct {
	Category        *string
	Status          *ItemStatus
	Name            *string // substring match
	IncludeArchived bool
}

type Page struct {
	Limit  int
	Offset int
	Order  string
}

type SummaryItem struct {
	ItemID        int64  `json:"item_id"`
	Name          string `json:"name"`
	BorrowedUnits int64  `json:"borrowed_units"`
}

type Summary struct {
	TotalItems    int64         `json:"total_items"`
	Available     int64         `json:"available"`
	LowStock      int64         `json:"low_stock"`
	OutOfStock    int64         `json:"out_of_stock"`
	BorrowedUnits int64         `json:"borrowed_units"`
	MostBorrowed  []SummaryItem `json:"most_borrowed"`
}

func (i *Item) toDTO() ItemResponse {
	resp := ItemResponse{
		ItemID:            i.ItemID,
		ItemULID:          i.ItemULID,
		Name:              i.Name,
		Category:          i.Category,
		TotalQuantity:     i.TotalQuantity,
		AvailableQuantity: i.AvailableQuantity,
		LowStockThreshold: i.LowStockThreshold,
		Status:            i.Status(),
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
	if i.Description.Valid {
		v := i.Description.String
		resp.Description = &v
	}
	if i.ArchivedAt.Valid {
		v := i.ArchivedAt.Time
		resp.ArchivedAt = &v
	}
	return resp
}
