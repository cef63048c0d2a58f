package inventory

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"CRIMS-backend/internal/activity"
	"CRIMS-backend/internal/platform/apperr"
)

// ArchiveRetention is how long an archived item survives before the purge
// removes it for good.
const ArchiveRetention = 31 * 24 * time.Hour

type Recorder interface {
	Record(ctx context.Context, e activity.Entry)
}

type Service struct {
	db    *sql.DB
	store *Store
	rec   Recorder
}

func NewService(db *sql.DB, rec Recorder) *Service {
	return &Service{db: db, store: NewStore(db), rec: rec}
}

func (s *Service) record(ctx context.Context, e activity.Entry) {
	if s.rec != nil {
		s.rec.Record(ctx, e)
	}
}

func (s *Service) CreateItem(ctx context.Context, in CreateItemRequest, actorID string) (ItemResponse, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Category) == "" {
		return ItemResponse{}, apperr.Invalid("name and category are required")
	}
	if in.TotalQuantity < 0 {
		return ItemResponse{}, apperr.Invalid("total_quantity must be >= 0")
	}
	threshold := DefaultLowStockThreshold
	if in.LowStockThreshold != nil {
		if *in.LowStockThreshold < 0 || *in.LowStockThreshold > 100 {
			return ItemResponse{}, apperr.Invalid("low_stock_threshold must be 0-100")
		}
		threshold = *in.LowStockThreshold
	}

	item := &Item{
		ItemULID:          ulid.MustNew(ulid.Now(), rand.Reader).String(),
		Name:              in.Name,
		Category:          in.Category,
		TotalQuantity:     in.TotalQuantity,
		AvailableQuantity: in.TotalQuantity,
		LowStockThreshold: threshold,
	}
	if in.Description != nil && *in.Description != "" {
		item.Description = sql.NullString{String: *in.Description, Valid: true}
	}

	if err := s.store.Insert(ctx, item); err != nil {
		return ItemResponse{}, err
	}

	s.record(ctx, activity.Entry{
		Type:        activity.TypeItemCreated,
		ActorID:     actorID,
		Description: fmt.Sprintf("created item %s (%s), total %d", item.Name, item.ItemULID, item.TotalQuantity),
		ItemID:      &item.ItemID,
	})
	return item.toDTO(), nil
}

func (s *Service) GetItem(ctx context.Context, key string) (ItemResponse, error) {
	item, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return ItemResponse{}, err
	}
	return item.toDTO(), nil
}

func (s *Service) ListItems(ctx context.Context, f ItemFilter, p Page) ([]ItemResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, items[i].toDTO())
	}
	return out, total, nil
}

func (s *Service) UpdateItem(ctx context.Context, itemID int64, in UpdateItemRequest, actorID string) (ItemResponse, error) {
	if in.LowStockThreshold != nil && (*in.LowStockThreshold < 0 || *in.LowStockThreshold > 100) {
		return ItemResponse{}, apperr.Invalid("low_stock_threshold must be 0-100")
	}
	item, err := s.store.UpdateMeta(ctx, itemID, in)
	if err != nil {
		return ItemResponse{}, err
	}
	s.record(ctx, activity.Entry{
		Type:        activity.TypeItemUpdated,
		ActorID:     actorID,
		Description: fmt.Sprintf("updated item %d", itemID),
		ItemID:      &itemID,
	})
	return item.toDTO(), nil
}

// AdjustTotal changes total_quantity while keeping the borrowed-out count
// intact: available moves by the same delta, and the new total can never
// drop below what is currently out on loan.
func (s *Service) AdjustTotal(ctx context.Context, itemID int64, in AdjustTotalRequest, actorID string) (ItemResponse, error) {
	if in.TotalQuantity < 0 {
		return ItemResponse{}, apperr.Invalid("total_quantity must be >= 0")
	}
	item, err := s.store.ExecAdjustTotal(ctx, itemID, in.TotalQuantity)
	if err != nil {
		return ItemResponse{}, err
	}
	s.record(ctx, activity.Entry{
		Type:        activity.TypeItemAdjusted,
		ActorID:     actorID,
		Description: fmt.Sprintf("adjusted item %d total to %d", itemID, in.TotalQuantity),
		ItemID:      &itemID,
		Metadata:    map[string]any{"total_quantity": in.TotalQuantity},
	})
	return item.toDTO(), nil
}

func (s *Service) ArchiveItem(ctx context.Context, itemID int64, actorID string) error {
	if err := s.store.Archive(ctx, itemID); err != nil {
		return err
	}
	s.record(ctx, activity.Entry{
		Type:        activity.TypeItemArchived,
		ActorID:     actorID,
		Description: fmt.Sprintf("archived item %d", itemID),
		ItemID:      &itemID,
	})
	return nil
}

func (s *Service) RestoreItem(ctx context.Context, itemID int64, actorID string) error {
	if err := s.store.Restore(ctx, itemID); err != nil {
		return err
	}
	s.record(ctx, activity.Entry{
		Type:        activity.TypeItemRestored,
		ActorID:     actorID,
		Description: fmt.Sprintf("restored item %d", itemID),
		ItemID:      &itemID,
	})
	return nil
}

// PurgeArchived hard-deletes items archived longer than ArchiveRetention
// ago. Driven by a ticker in main.
func (s *Service) PurgeArchived(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-ArchiveRetention)
	return s.store.PurgeArchivedBefore(ctx, cutoff)
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	return s.store.Summary(ctx)
}
