package circulation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CRIMS-backend/internal/platform/apperr"
	"CRIMS-backend/internal/platform/db"
)

type SQLStore struct{ db *sql.DB }

func NewStore(d *sql.DB) *SQLStore { return &SQLStore{db: d} }

func (s *SQLStore) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		return fn(&txStore{tx: tx})
	})
}

func (s *SQLStore) ResolveItemULID(ctx context.Context, itemULID string) (int64, error) {
	const q = `SELECT item_id FROM inventory_items WHERE item_ulid = ?`
	var id int64
	if err := s.db.QueryRowContext(ctx, q, itemULID).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return 0, apperr.NotFound("item not found")
		}
		return 0, err
	}
	return id, nil
}

// ---- borrow reads ----

const borrowCols = `
	borrow_id, borrow_ulid,
	borrower_type, borrower_id, borrower_name, borrower_id_number, borrower_email, borrower_contact,
	item_id, quantity, purpose, borrow_date, expected_return_date, actual_return_date,
	status, rejection_reason, approved_by, approved_at, created_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanBorrow(row rowScanner) (*BorrowTransaction, error) {
	var b BorrowTransaction
	err := row.Scan(
		&b.BorrowID, &b.BorrowULID,
		&b.Borrower.Type, &b.Borrower.ID, &b.Borrower.Name, &b.Borrower.IDNumber, &b.Borrower.Email, &b.Borrower.Contact,
		&b.ItemID, &b.Quantity, &b.Purpose, &b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate,
		&b.Status, &b.RejectionReason, &b.ApprovedBy, &b.ApprovedAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLStore) GetBorrow(ctx context.Context, borrowID int64) (*BorrowTransaction, error) {
	q := `SELECT` + borrowCols + ` FROM borrow_transactions WHERE borrow_id = ?`
	b, err := scanBorrow(s.db.QueryRowContext(ctx, q, borrowID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("borrow transaction not found")
	}
	return b, err
}

func (s *SQLStore) GetBorrowByULID(ctx context.Context, borrowULID string) (*BorrowTransaction, error) {
	q := `SELECT` + borrowCols + ` FROM borrow_transactions WHERE borrow_ulid = ?`
	b, err := scanBorrow(s.db.QueryRowContext(ctx, q, borrowULID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("borrow transaction not found")
	}
	return b, err
}

func (s *SQLStore) ListBorrows(ctx context.Context, f BorrowFilter, p Page) ([]BorrowTransaction, int64, error) {
	where := strings.Builder{}
	where.WriteString(` WHERE 1=1`)
	args := []any{}
	if f.Status != nil {
		where.WriteString(` AND status = ?`)
		args = append(args, *f.Status)
	}
	if f.BorrowerID != nil {
		where.WriteString(` AND borrower_id = ?`)
		args = append(args, *f.BorrowerID)
	}
	if f.ItemID != nil {
		where.WriteString(` AND item_id = ?`)
		args = append(args, *f.ItemID)
	}
	if f.From != nil {
		where.WriteString(` AND borrow_date >= ?`)
		args = append(args, *f.From)
	}
	if f.To != nil {
		where.WriteString(` AND borrow_date < ?`)
		args = append(args, *f.To)
	}

	q := fmt.Sprintf(`SELECT%s FROM borrow_transactions%s ORDER BY created_at %s LIMIT ? OFFSET ?`,
		borrowCols, where.String(), orderDir(p.Order))
	rows, err := s.db.QueryContext(ctx, q, append(args, pageLimit(p), pageOffset(p))...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []BorrowTransaction
	for rows.Next() {
		b, err := scanBorrow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM borrow_transactions`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ---- verification reads ----

const verificationCols = `
	verification_id, verification_code, borrow_id, item_id,
	borrower_type, borrower_id, borrower_name, borrower_id_number, borrower_email, borrower_contact,
	quantity_returned, return_date, returned_by, status,
	notes, verification_notes, rejection_reason, verified_by, verified_at, created_at`

func scanVerification(row rowScanner) (*ReturnVerification, error) {
	var v ReturnVerification
	err := row.Scan(
		&v.VerificationID, &v.VerificationCode, &v.BorrowID, &v.ItemID,
		&v.Borrower.Type, &v.Borrower.ID, &v.Borrower.Name, &v.Borrower.IDNumber, &v.Borrower.Email, &v.Borrower.Contact,
		&v.QuantityReturned, &v.ReturnDate, &v.ReturnedBy, &v.Status,
		&v.Notes, &v.VerificationNotes, &v.RejectionReason, &v.VerifiedBy, &v.VerifiedAt, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLStore) GetVerification(ctx context.Context, verificationID int64) (*ReturnVerification, error) {
	q := `SELECT` + verificationCols + ` FROM return_verifications WHERE verification_id = ?`
	v, err := scanVerification(s.db.QueryRowContext(ctx, q, verificationID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("verification not found")
	}
	return v, err
}

func (s *SQLStore) ListVerifications(ctx context.Context, f VerificationFilter, p Page) ([]ReturnVerification, int64, error) {
	where := strings.Builder{}
	where.WriteString(` WHERE 1=1`)
	args := []any{}
	if f.Status != nil {
		where.WriteString(` AND status = ?`)
		args = append(args, *f.Status)
	}
	if f.BorrowID != nil {
		where.WriteString(` AND borrow_id = ?`)
		args = append(args, *f.BorrowID)
	}
	if f.BorrowerID != nil {
		where.WriteString(` AND borrower_id = ?`)
		args = append(args, *f.BorrowerID)
	}

	q := fmt.Sprintf(`SELECT%s FROM return_verifications%s ORDER BY created_at %s LIMIT ? OFFSET ?`,
		verificationCols, where.String(), orderDir(p.Order))
	rows, err := s.db.QueryContext(ctx, q, append(args, pageLimit(p), pageOffset(p))...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []ReturnVerification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM return_verifications`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ---- return reads ----

const returnCols = `
	return_id, return_ulid, borrow_id, verification_id, item_id, quantity, return_date,
	item_condition, return_notes, received_by, damage_fee,
	inspection_status, credited, inspected_by, inspected_at, inspection_notes, created_at`

func scanReturn(row rowScanner) (*ReturnTransaction, error) {
	var r ReturnTransaction
	err := row.Scan(
		&r.ReturnID, &r.ReturnULID, &r.BorrowID, &r.VerificationID, &r.ItemID, &r.Quantity, &r.ReturnDate,
		&r.Condition, &r.ReturnNotes, &r.ReceivedBy, &r.DamageFee,
		&r.InspectionStatus, &r.Credited, &r.InspectedBy, &r.InspectedAt, &r.InspectionNotes, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLStore) GetReturn(ctx context.Context, returnID int64) (*ReturnTransaction, error) {
	q := `SELECT` + returnCols + ` FROM return_transactions WHERE return_id = ?`
	r, err := scanReturn(s.db.QueryRowContext(ctx, q, returnID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("return transaction not found")
	}
	return r, err
}

func (s *SQLStore) ListReturns(ctx context.Context, f ReturnFilter, p Page) ([]ReturnTransaction, int64, error) {
	where := strings.Builder{}
	where.WriteString(` WHERE 1=1`)
	args := []any{}
	if f.InspectionStatus != nil {
		where.WriteString(` AND inspection_status = ?`)
		args = append(args, *f.InspectionStatus)
	}
	if f.BorrowID != nil {
		where.WriteString(` AND borrow_id = ?`)
		args = append(args, *f.BorrowID)
	}
	if f.ItemID != nil {
		where.WriteString(` AND item_id = ?`)
		args = append(args, *f.ItemID)
	}

	q := fmt.Sprintf(`SELECT%s FROM return_transactions%s ORDER BY created_at %s LIMIT ? OFFSET ?`,
		returnCols, where.String(), orderDir(p.Order))
	rows, err := s.db.QueryContext(ctx, q, append(args, pageLimit(p), pageOffset(p))...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []ReturnTransaction
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM return_transactions`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ---- sweep ----

func (s *SQLStore) SweepOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	const q = `
	UPDATE borrow_transactions
	SET status = ?
	WHERE status = ? AND expected_return_date < ?`
	res, err := s.db.ExecContext(ctx, q, StatusOverdue, StatusBorrowed, asOf.Format(DateLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- tx-scoped ops ----

type txStore struct{ tx db.DBTX }

func (t *txStore) ItemStockForUpdate(ctx context.Context, itemID int64) (*ItemStock, error) {
	const q = `
	SELECT item_id, available_quantity, total_quantity, archived_at IS NOT NULL
	FROM inventory_items WHERE item_id = ? FOR UPDATE`
	var st ItemStock
	if err := t.tx.QueryRowContext(ctx, q, itemID).Scan(&st.ItemID, &st.Available, &st.Total, &st.Archived); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("item not found")
		}
		return nil, err
	}
	return &st, nil
}

func (t *txStore) AddAvailable(ctx context.Context, itemID int64, delta int) error {
	const q = `UPDATE inventory_items SET available_quantity = available_quantity + ? WHERE item_id = ?`
	res, err := t.tx.ExecContext(ctx, q, delta, itemID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff != 1 {
		return apperr.Internal("failed to update available_quantity")
	}
	return nil
}

func (t *txStore) InsertBorrow(ctx context.Context, b *BorrowTransaction) error {
	const q = `
	INSERT INTO borrow_transactions
	(borrow_ulid, borrower_type, borrower_id, borrower_name, borrower_id_number, borrower_email, borrower_contact,
	 item_id, quantity, purpose, borrow_date, expected_return_date, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`
	res, err := t.tx.ExecContext(ctx, q,
		b.BorrowULID,
		b.Borrower.Type, b.Borrower.ID, b.Borrower.Name, b.Borrower.IDNumber, b.Borrower.Email, b.Borrower.Contact,
		b.ItemID, b.Quantity, b.Purpose, b.BorrowDate, b.ExpectedReturnDate.Format(DateLayout), b.Status,
	)
	if err != nil {
		return err
	}
	b.BorrowID, _ = res.LastInsertId()
	return nil
}

func (t *txStore) BorrowForUpdate(ctx context.Context, borrowID int64) (*BorrowTransaction, error) {
	q := `SELECT` + borrowCols + ` FROM borrow_transactions WHERE borrow_id = ? FOR UPDATE`
	b, err := scanBorrow(t.tx.QueryRowContext(ctx, q, borrowID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("borrow transaction not found")
	}
	return b, err
}

// UpdateBorrow writes the mutable lifecycle columns. Snapshot and quantity
// columns are immutable after insert and deliberately absent here.
func (t *txStore) UpdateBorrow(ctx context.Context, b *BorrowTransaction) error {
	const q = `
	UPDATE borrow_transactions
	SET status = ?, expected_return_date = ?, actual_return_date = ?,
	    rejection_reason = ?, approved_by = ?, approved_at = ?
	WHERE borrow_id = ?`
	res, err := t.tx.ExecContext(ctx, q,
		b.Status, b.ExpectedReturnDate.Format(DateLayout), b.ActualReturnDate,
		b.RejectionReason, b.ApprovedBy, b.ApprovedAt, b.BorrowID,
	)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff > 1 {
		return apperr.Internal("borrow update touched multiple rows")
	}
	return nil
}

func (t *txStore) NextVerificationSeq(ctx context.Context, year int) (int, error) {
	var last int
	err := t.tx.QueryRowContext(ctx,
		`SELECT last_seq FROM verification_sequences WHERE seq_year = ? FOR UPDATE`, year).Scan(&last)
	switch {
	case err == sql.ErrNoRows:
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO verification_sequences (seq_year, last_seq) VALUES (?, 1)`, year); err != nil {
			return 0, err
		}
		return 1, nil
	case err != nil:
		return 0, err
	}
	next := last + 1
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE verification_sequences SET last_seq = ? WHERE seq_year = ?`, next, year); err != nil {
		return 0, err
	}
	return next, nil
}

func (t *txStore) InsertVerification(ctx context.Context, v *ReturnVerification) error {
	const q = `
	INSERT INTO return_verifications
	(verification_code, borrow_id, item_id,
	 borrower_type, borrower_id, borrower_name, borrower_id_number, borrower_email, borrower_contact,
	 quantity_returned, return_date, returned_by, status, notes, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`
	res, err := t.tx.ExecContext(ctx, q,
		v.VerificationCode, v.BorrowID, v.ItemID,
		v.Borrower.Type, v.Borrower.ID, v.Borrower.Name, v.Borrower.IDNumber, v.Borrower.Email, v.Borrower.Contact,
		v.QuantityReturned, v.ReturnDate, v.ReturnedBy, v.Status, v.Notes,
	)
	if err != nil {
		return err
	}
	v.VerificationID, _ = res.LastInsertId()
	return nil
}

func (t *txStore) VerificationForUpdate(ctx context.Context, verificationID int64) (*ReturnVerification, error) {
	q := `SELECT` + verificationCols + ` FROM return_verifications WHERE verification_id = ? FOR UPDATE`
	v, err := scanVerification(t.tx.QueryRowContext(ctx, q, verificationID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("verification not found")
	}
	return v, err
}

func (t *txStore) UpdateVerification(ctx context.Context, v *ReturnVerification) error {
	const q = `
	UPDATE return_verifications
	SET status = ?, verification_notes = ?, rejection_reason = ?, verified_by = ?, verified_at = ?
	WHERE verification_id = ?`
	_, err := t.tx.ExecContext(ctx, q,
		v.Status, v.VerificationNotes, v.RejectionReason, v.VerifiedBy, v.VerifiedAt, v.VerificationID)
	return err
}

func (t *txStore) InsertReturn(ctx context.Context, r *ReturnTransaction) error {
	const q = `
	INSERT INTO return_transactions
	(return_ulid, borrow_id, verification_id, item_id, quantity, return_date,
	 item_condition, return_notes, received_by, damage_fee, inspection_status, credited, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`
	res, err := t.tx.ExecContext(ctx, q,
		r.ReturnULID, r.BorrowID, r.VerificationID, r.ItemID, r.Quantity, r.ReturnDate,
		r.Condition, r.ReturnNotes, r.ReceivedBy, r.DamageFee, r.InspectionStatus, r.Credited,
	)
	if err != nil {
		return err
	}
	r.ReturnID, _ = res.LastInsertId()
	return nil
}

func (t *txStore) ReturnForUpdate(ctx context.Context, returnID int64) (*ReturnTransaction, error) {
	q := `SELECT` + returnCols + ` FROM return_transactions WHERE return_id = ? FOR UPDATE`
	r, err := scanReturn(t.tx.QueryRowContext(ctx, q, returnID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("return transaction not found")
	}
	return r, err
}

func (t *txStore) UpdateReturn(ctx context.Context, r *ReturnTransaction) error {
	const q = `
	UPDATE return_transactions
	SET item_condition = ?, damage_fee = ?, inspection_status = ?, credited = ?,
	    inspected_by = ?, inspected_at = ?, inspection_notes = ?
	WHERE return_id = ?`
	_, err := t.tx.ExecContext(ctx, q,
		r.Condition, r.DamageFee, r.InspectionStatus, r.Credited,
		r.InspectedBy, r.InspectedAt, r.InspectionNotes, r.ReturnID)
	return err
}

func (t *txStore) CountReturnsForBorrow(ctx context.Context, borrowID int64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM return_transactions WHERE borrow_id = ?`, borrowID).Scan(&n)
	return n, err
}

// ---- paging helpers ----

func orderDir(order string) string {
	if strings.ToLower(order) == "asc" {
		return "ASC"
	}
	return "DESC"
}

func pageLimit(p Page) int {
	if p.Limit <= 0 {
		return DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		return MaxPageLimit
	}
	return p.Limit
}

func pageOffset(p Page) int {
	if p.Offset < 0 {
		return 0
	}
	return p.Offset
}
