package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"

	"CRIMS-backend/internal/platform/apperr"
	"CRIMS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(d *sql.DB) *Store { return &Store{db: d} }

const itemCols = `
	item_id, item_ulid, name, category, description,
	total_quantity, available_quantity, low_stock_threshold,
	archived_at, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanItem(row rowScanner) (*Item, error) {
	var i Item
	err := row.Scan(
		&i.ItemID, &i.ItemULID, &i.Name, &i.Category, &i.Description,
		&i.TotalQuantity, &i.AvailableQuantity, &i.LowStockThreshold,
		&i.ArchivedAt, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *Store) Insert(ctx context.Context, i *Item) error {
	const q = `
	INSERT INTO inventory_items
	(item_ulid, name, category, description, total_quantity, available_quantity, low_stock_threshold,
	 created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(), UTC_TIMESTAMP())`
	res, err := s.db.ExecContext(ctx, q,
		i.ItemULID, i.Name, i.Category, i.Description,
		i.TotalQuantity, i.AvailableQuantity, i.LowStockThreshold,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return apperr.Conflict("item ulid already exists")
		}
		return err
	}
	i.ItemID, _ = res.LastInsertId()
	return nil
}

func (s *Store) GetByKey(ctx context.Context, key string) (*Item, error) {
	if key == "" {
		return nil, apperr.Invalid("id or ulid is required")
	}
	var (
		q    string
		args []any
	)
	if id, ok := parseID(key); ok {
		q = `SELECT` + itemCols + ` FROM inventory_items WHERE item_id = ?`
		args = []any{id}
	} else {
		q = `SELECT` + itemCols + ` FROM inventory_items WHERE item_ulid = ?`
		args = []any{key}
	}
	i, err := scanItem(s.db.QueryRowContext(ctx, q, args...))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("item not found")
	}
	return i, err
}

func (s *Store) List(ctx context.Context, f ItemFilter, p Page) ([]Item, int64, error) {
	where := strings.Builder{}
	where.WriteString(` WHERE 1=1`)
	args := []any{}
	if !f.IncludeArchived {
		where.WriteString(` AND archived_at IS NULL`)
	}
	if f.Category != nil {
		where.WriteString(` AND category = ?`)
		args = append(args, *f.Category)
	}
	if f.Name != nil {
		where.WriteString(` AND name LIKE ?`)
		args = append(args, "%"+*f.Name+"%")
	}
	if f.Status != nil {
		switch *f.Status {
		case StatusOutOfStock:
			where.WriteString(` AND available_quantity <= 0`)
		case StatusLowStock:
			where.WriteString(` AND available_quantity > 0 AND available_quantity*100 < total_quantity*low_stock_threshold`)
		case StatusAvailable:
			where.WriteString(` AND available_quantity > 0 AND available_quantity*100 >= total_quantity*low_stock_threshold`)
		}
	}

	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}

	q := fmt.Sprintf(`SELECT%s FROM inventory_items%s ORDER BY created_at %s LIMIT ? OFFSET ?`,
		itemCols, where.String(), order)
	rows, err := s.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_items`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateMeta(ctx context.Context, itemID int64, in UpdateItemRequest) (*Item, error) {
	set := strings.Builder{}
	set.WriteString(`updated_at = UTC_TIMESTAMP()`)
	args := []any{}
	if in.Name != nil {
		set.WriteString(`, name = ?`)
		args = append(args, *in.Name)
	}
	if in.Category != nil {
		set.WriteString(`, category = ?`)
		args = append(args, *in.Category)
	}
	if in.Description != nil {
		set.WriteString(`, description = ?`)
		args = append(args, *in.Description)
	}
	if in.LowStockThreshold != nil {
		set.WriteString(`, low_stock_threshold = ?`)
		args = append(args, *in.LowStockThreshold)
	}

	q := fmt.Sprintf(`UPDATE inventory_items SET %s WHERE item_id = ?`, set.String())
	res, err := s.db.ExecContext(ctx, q, append(args, itemID)...)
	if err != nil {
		return nil, err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// RowsAffected is 0 both for a missing row and a no-op update,
		// so re-read to tell them apart
		if _, err := s.GetByKey(ctx, fmt.Sprint(itemID)); err != nil {
			return nil, err
		}
	}
	return s.GetByKey(ctx, fmt.Sprint(itemID))
}

// ExecAdjustTotal runs the lock-recheck-mutate flow for a total change.
func (s *Store) ExecAdjustTotal(ctx context.Context, itemID int64, newTotal int) (*Item, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var total, available int
		err := tx.QueryRowContext(ctx,
			`SELECT total_quantity, available_quantity FROM inventory_items WHERE item_id = ? FOR UPDATE`,
			itemID).Scan(&total, &available)
		if err != nil {
			if err == sql.ErrNoRows {
				return apperr.NotFound("item not found")
			}
			return err
		}

		borrowedOut := total - available
		if newTotal < borrowedOut {
			return apperr.Conflict(fmt.Sprintf("%d unit(s) are out on loan, total cannot drop below that", borrowedOut))
		}

		_, err = tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET total_quantity = ?, available_quantity = ?, updated_at = UTC_TIMESTAMP()
		WHERE item_id = ?`, newTotal, newTotal-borrowedOut, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetByKey(ctx, fmt.Sprint(itemID))
}

func (s *Store) Archive(ctx context.Context, itemID int64) error {
	const q = `UPDATE inventory_items SET archived_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP()
	WHERE item_id = ? AND archived_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, itemID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		item, err := s.GetByKey(ctx, fmt.Sprint(itemID))
		if err != nil {
			return err
		}
		if item.ArchivedAt.Valid {
			return apperr.InvalidState("item is already archived")
		}
		return apperr.Internal("failed to archive item")
	}
	return nil
}

func (s *Store) Restore(ctx context.Context, itemID int64) error {
	const q = `UPDATE inventory_items SET archived_at = NULL, updated_at = UTC_TIMESTAMP()
	WHERE item_id = ? AND archived_at IS NOT NULL`
	res, err := s.db.ExecContext(ctx, q, itemID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		item, err := s.GetByKey(ctx, fmt.Sprint(itemID))
		if err != nil {
			return err
		}
		if !item.ArchivedAt.Valid {
			return apperr.InvalidState("item is not archived")
		}
		return apperr.Internal("failed to restore item")
	}
	return nil
}

func (s *Store) PurgeArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM inventory_items WHERE archived_at IS NOT NULL AND archived_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Summary(ctx context.Context) (Summary, error) {
	const q = `
	SELECT
		COUNT(*),
		COALESCE(SUM(available_quantity > 0 AND available_quantity*100 >= total_quantity*low_stock_threshold), 0),
		COALESCE(SUM(available_quantity > 0 AND available_quantity*100 < total_quantity*low_stock_threshold), 0),
		COALESCE(SUM(available_quantity <= 0), 0),
		COALESCE(SUM(total_quantity - available_quantity), 0)
	FROM inventory_items
	WHERE archived_at IS NULL`
	const topQ = `
	SELECT item_id, name, total_quantity - available_quantity AS borrowed
	FROM inventory_items
	WHERE archived_at IS NULL AND total_quantity > available_quantity
	ORDER BY borrowed DESC, item_id
	LIMIT 5`

	var sum Summary
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		if err := tx.QueryRowContext(ctx, q).Scan(
			&sum.TotalItems, &sum.Available, &sum.LowStock, &sum.OutOfStock, &sum.BorrowedUnits); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, topQ)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var it SummaryItem
			if err := rows.Scan(&it.ItemID, &it.Name, &it.BorrowedUnits); err != nil {
				return err
			}
			sum.MostBorrowed = append(sum.MostBorrowed, it)
		}
		return rows.Err()
	})
	return sum, err
}

// ---- helpers ----

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
