package activity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

func (s *Store) Insert(ctx context.Context, l *Log) error {
	const q = `
	INSERT INTO activity_logs
	(log_id, activity_type, actor_id, actor_name, description,
	 borrow_id, verification_id, return_id, item_id, metadata, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`
	_, err := s.db.ExecContext(ctx, q,
		l.LogID, l.Type, l.ActorID, l.ActorName, l.Description,
		l.BorrowID, l.VerificationID, l.ReturnID, l.ItemID, l.Metadata,
	)
	return err
}

func (s *Store) List(ctx context.Context, f Filter, p Page) ([]Log, int64, error) {
	where := strings.Builder{}
	where.WriteString(` WHERE 1=1`)
	args := []any{}
	if f.Type != nil {
		where.WriteString(` AND activity_type = ?`)
		args = append(args, *f.Type)
	}
	if f.ActorID != nil {
		where.WriteString(` AND actor_id = ?`)
		args = append(args, *f.ActorID)
	}
	if f.BorrowID != nil {
		where.WriteString(` AND borrow_id = ?`)
		args = append(args, *f.BorrowID)
	}
	if f.ItemID != nil {
		where.WriteString(` AND item_id = ?`)
		args = append(args, *f.ItemID)
	}
	if f.From != nil {
		where.WriteString(` AND created_at >= ?`)
		args = append(args, *f.From)
	}
	if f.To != nil {
		where.WriteString(` AND created_at < ?`)
		args = append(args, *f.To)
	}

	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := fmt.Sprintf(`
	SELECT log_id, activity_type, actor_id, actor_name, description,
	       borrow_id, verification_id, return_id, item_id, metadata, created_at
	FROM activity_logs%s
	ORDER BY created_at DESC
	LIMIT ? OFFSET ?`, where.String())

	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(
			&l.LogID, &l.Type, &l.ActorID, &l.ActorName, &l.Description,
			&l.BorrowID, &l.VerificationID, &l.ReturnID, &l.ItemID, &l.Metadata, &l.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
