package circulation

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

// -------------- Clock & ID --------------

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// -------------- Store contracts --------------

// Store is the persistence boundary. InTx hands the caller a TxStore whose
// operations all run on one database transaction; row locks taken inside it
// are held until the function returns.
type Store interface {
	InTx(ctx context.Context, fn func(tx TxStore) error) error
	ResolveItemULID(ctx context.Context, itemULID string) (int64, error)
	GetBorrow(ctx context.Context, borrowID int64) (*BorrowTransaction, error)
	GetBorrowByULID(ctx context.Context, borrowULID string) (*BorrowTransaction, error)
	ListBorrows(ctx context.Context, f BorrowFilter, p Page) ([]BorrowTransaction, int64, error)
	GetVerification(ctx context.Context, verificationID int64) (*ReturnVerification, error)
	ListVerifications(ctx context.Context, f VerificationFilter, p Page) ([]ReturnVerification, int64, error)
	GetReturn(ctx context.Context, returnID int64) (*ReturnTransaction, error)
	ListReturns(ctx context.Context, f ReturnFilter, p Page) ([]ReturnTransaction, int64, error)
	SweepOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// TxStore are the row operations available inside one transaction.
// *ForUpdate methods take a row lock; preconditions are re-checked against
// the locked row, never against an earlier read.
type TxStore interface {
	ItemStockForUpdate(ctx context.Context, itemID int64) (*ItemStock, error)
	AddAvailable(ctx context.Context, itemID int64, delta int) error
	InsertBorrow(ctx context.Context, b *BorrowTransaction) error
	BorrowForUpdate(ctx context.Context, borrowID int64) (*BorrowTransaction, error)
	UpdateBorrow(ctx context.Context, b *BorrowTransaction) error
	NextVerificationSeq(ctx context.Context, year int) (int, error)
	InsertVerification(ctx context.Context, v *ReturnVerification) error
	VerificationForUpdate(ctx context.Context, verificationID int64) (*ReturnVerification, error)
	UpdateVerification(ctx context.Context, v *ReturnVerification) error
	InsertReturn(ctx context.Context, r *ReturnTransaction) error
	ReturnForUpdate(ctx context.Context, returnID int64) (*ReturnTransaction, error)
	UpdateReturn(ctx context.Context, r *ReturnTransaction) error
	CountReturnsForBorrow(ctx context.Context, borrowID int64) (int, error)
}

// Recorder is the audit hook. Implementations must be best-effort: a failed
// log write may not surface as an operation failure.
type Recorder interface {
	Record(ctx context.Context, e activity.Entry)
}

// -------------- Service --------------

type Service struct {
	store  Store
	clock  Clock
	id     IDGen
	rec    Recorder
	policy CreditPolicy
}

func NewService(db *sql.DB, rec Recorder, policy CreditPolicy) *Service {
	if policy == nil {
		policy = DefaultCreditPolicy()
	}
	return &Service{
		store:  NewStore(db),
		clock:  realClock{},
		id:     ulidGen{},
		rec:    rec,
		policy: policy,
	}
}

func (s *Service) record(ctx context.Context, e activity.Entry) {
	if s.rec != nil {
		s.rec.Record(ctx, e)
	}
}

func validateBorrower(b BorrowerDTO) error {
	if b.Type != "student" && b.Type != "employee" {
		return apperr.Invalid("borrower type must be student or employee")
	}
	if strings.TrimSpace(b.ID) == "" || strings.TrimSpace(b.Name) == "" {
		return apperr.Invalid("borrower id and name are required")
	}
	return nil
}

func snapshotFromDTO(b BorrowerDTO) BorrowerSnapshot {
	return BorrowerSnapshot{
		Type:     b.Type,
		ID:       b.ID,
		Name:     b.Name,
		IDNumber: b.IDNumber,
		Email:    b.Email,
		Contact:  b.Contact,
	}
}

// -------------- 1. Borrow lifecycle --------------

// CreateRequest registers a borrow request in pending. Stock is checked but
// not reserved: the decrement happens at approval, against a re-read of the
// locked inventory row.
func (s *Service) CreateRequest(ctx context.Context, in CreateBorrowRequest) (BorrowResponse, error) {
	if in.Quantity <= 0 {
		return BorrowResponse{}, apperr.Invalid("quantity must be > 0")
	}
	if err := validateBorrower(in.Borrower); err != nil {
		return BorrowResponse{}, err
	}

	expected, err := time.Parse(DateLayout, in.ExpectedReturnDate)
	if err != nil {
		return BorrowResponse{}, apperr.Invalid("expected_return_date must be YYYY-MM-DD")
	}

	now := s.clock.Now()
	today := now.Truncate(24 * time.Hour)
	if expected.Before(today) {
		return BorrowResponse{}, apperr.Invalid("expected_return_date must not be in the past")
	}

	itemID := in.ItemID
	if itemID == 0 {
		if in.ItemULID == nil || *in.ItemULID == "" {
			return BorrowResponse{}, apperr.Invalid("either item_id or item_ulid is required")
		}
		itemID, err = s.store.ResolveItemULID(ctx, *in.ItemULID)
		if err != nil {
			return BorrowResponse{}, err
		}
	}

	b := &BorrowTransaction{
		BorrowULID:         s.id.NewULID(now),
		Borrower:           snapshotFromDTO(in.Borrower),
		ItemID:             itemID,
		Quantity:           in.Quantity,
		BorrowDate:         now,
		ExpectedReturnDate: expected,
		Status:             StatusPending,
	}
	if in.Purpose != nil && *in.Purpose != "" {
		b.Purpose = sql.NullString{String: *in.Purpose, Valid: true}
	}

	err = s.store.InTx(ctx, func(tx TxStore) error {
		stock, err := tx.ItemStockForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if stock.Archived {
			return apperr.InvalidState("item is archived")
		}
		if in.Quantity > stock.Available {
			return apperr.InsufficientStock(fmt.Sprintf("requested %d, available %d", in.Quantity, stock.Available))
		}
		return tx.InsertBorrow(ctx, b)
	})
	if err != nil {
		return BorrowResponse{}, err
	}

	s.record(ctx, activity.Entry{
		Type:        activity.TypeBorrowRequested,
		ActorID:     b.Borrower.ID,
		ActorName:   b.Borrower.Name,
		Description: fmt.Sprintf("borrow request %s: %d unit(s) of item %d", b.BorrowULID, b.Quantity, b.ItemID),
		BorrowID:    &b.BorrowID,
		ItemID:      &b.ItemID,
	})
	return b.toDTO(), nil
}

// Approve moves a pending request to borrowed and decrements available
// stock. Decrement and status change commit or fail as one unit.
func (s *Service) Approve(ctx context.Context, borrowID int64, adminID string, in ApproveBorrowRequest) (BorrowResponse, error) {
	if adminID == "" {
		return BorrowResponse{}, apperr.Invalid("approver id is required")
	}

	now := s.clock.Now()
	var override *time.Time
	if in.ExpectedReturnDate != nil && *in.ExpectedReturnDate != "" {
		t, err := time.Parse(DateLayout, *in.ExpectedReturnDate)
		if err != nil {
			return BorrowResponse{}, apperr.Invalid("expected_return_date must be YYYY-MM-DD")
		}
		if t.Before(now.Truncate(24 * time.Hour)) {
			return BorrowResponse{}, apperr.Invalid("expected_return_date must not be in the past")
		}
		override = &t
	}
	var b *BorrowTransaction
	err := s.store.InTx(ctx, func(tx TxStore) error {
		var err error
		b, err = tx.BorrowForUpdate(ctx, borrowID)
		if err != nil {
			return err
		}
		if !CanTransition(b.Status, StatusBorrowed) {
			return apperr.InvalidState(fmt.Sprintf("cannot approve a %s transaction", b.Status))
		}

		// stock may have dropped since the request was filed
		stock, err := tx.ItemStockForUpdate(ctx, b.ItemID)
		if err != nil {
			return err
		}
		if b.Quantity > stock.Available {
			return apperr.InsufficientStock(fmt.Sprintf("requested %d, available %d", b.Quantity, stock.Available))
		}
		if err := tx.AddAvailable(ctx, b.ItemID, -b.Quantity); err != nil {
			return err
		}

		b.Status = StatusBorrowed
		b.ApprovedBy = sql.NullString{String: adminID, Valid: true}
		b.ApprovedAt = sql.NullTime{Time: now, Valid: true}
		if override != nil {
			b.ExpectedReturnDate = *override
		}
		return tx.UpdateBorrow(ctx, b)
	})
	if err != nil {
		return BorrowResponse{}, err
	}

	s.record(ctx, activity.Entry{
		Type:        activity.TypeBorrowApproved,
		ActorID:     adminID,
		Description: fmt.Sprintf("approved borrow %s for %d unit(s)", b.BorrowULID, b.Quantity),
		BorrowID:    &b.BorrowID,
		ItemID:      &b.ItemID,
	})
	return b.toDTO(), nil
}

// Reject is terminal and touches no inventory.
func (s *Service) Reject(ctx context.Context, borrowID int64, adminID, reason string) (BorrowResponse, error) {
	if strings.TrimSpace(reason) == "" {
		return BorrowResponse{}, apperr.Invalid("reason is required")
	}

	var b *BorrowTransaction
	err := s.store.InTx(ctx, func(tx TxStore) error {
		var err error
		b, err = tx.BorrowForUpdate(ctx, borrowID)
		if err != nil {
			return err
		}
		if !CanTransition(b.Status, StatusRejected) {
			return apperr.InvalidState(fmt.Sprintf("cannot reject a %s transaction", b.Status))
		}
		b.Status = StatusRejected
		b.RejectionReason = sql.NullString{String: reason, Valid: true}
		return tx.UpdateBorrow(ctx, b)
	})
	if err != nil {
		return BorrowResponse{}, err
	}

	s.record(ctx, activity.Entry{
		Type:        activity.TypeBorrowRejected,
		ActorID:     adminID,
		Description: fmt.Sprintf("rejected borrow %s: %s", b.BorrowULID, reason),
		BorrowID:    &b.BorrowID,
		ItemID:      &b.ItemID,
	})
	return b.toDTO(), nil
}

// -------------- 2. Return verification --------------

// SubmitClaim records the borrower's assertion that quantity_returned units
// came back. Nothing is credited here; the claim first needs admin
// confirmation and then a physical inspection.
func (s *Service) SubmitClaim(ctx context.Context, in SubmitClaimRequest) (VerificationResponse, error) {
	if in.QuantityReturned <= 0 {
		return VerificationResponse{}, apperr.Invalid("quantity_returned must be > 0")
	}
	if strings.TrimSpace(in.ReturnedBy) == "" {
		return VerificationResponse{}, apperr.Invalid("returned_by is required")
	}

	now := s.clock.Now()
	var v *ReturnVerification
	err := s.store.InTx(ctx, func(tx TxStore) error {
		b, err := tx.BorrowForUpdate(ctx, in.BorrowID)
		if err != nil {
			return err
		}
		if !CanTransition(b.Status, StatusPendingReturnVerification) {
			return apperr.InvalidState(fmt.Sprintf("cannot claim a return on a %s transaction", b.Status))
		}
		if in.QuantityReturned > b.Quantity {
			return apperr.Invalidf("quantity_returned %d exceeds borrowed quantity %d", in.QuantityReturned, b.Quantity)
		}

		seq, err := tx.NextVerificationSeq(ctx, now.Year())
		if err != nil {
			return err
		}

		v = &ReturnVerification{
			VerificationCode: fmt.Sprintf("RV-%d-%03d", now.Year(), seq),
			BorrowID:         b.BorrowID,
			ItemID:           b.ItemID,
			Borrower:         b.Borrower,
			QuantityReturned: in.QuantityReturned,
			ReturnDate:       now,
			ReturnedBy:       in.ReturnedBy,
			Status:           VerificationPending,
		}
		if in.Notes != nil && *in.Notes != "" {
			v.Notes = sql.NullString{String: *in.Notes, Valid: true}
		}
		if err := tx.InsertVerification(ctx, v); err != nil {
			return err
		}

		b.Status = StatusPendingReturnVerification
		return tx.UpdateBorrow(ctx, b)
	})
	if err != nil {
		return VerificationResponse{}, err
	}

	s.record(ctx, activity.Entry{
		Type:           activity.TypeClaimSubmitted,
		ActorID:        v.Borrower.ID,
		ActorName:      v.Borrower.Name,
		Description:    fmt.Sprintf("return claim %s: %d unit(s) on borrow %d", v.VerificationCode, v.QuantityReturned, v.BorrowID),
		BorrowID:       &v.BorrowID,
		VerificationID: &v.VerificationID,
		ItemID:         &v.ItemID,
	})
	return v.toDTO(), nil
}

type VerifyResult struct {
	Verification VerificationResponse `json:"verification"`
	Return       ReturnResponse       `json:"return"`
}

// Verify confirms the claim and atomically creates the one return
// transaction for it, pending inspection. Inventory is NOT credited yet:
// crediting waits for the condition check so damaged or lost units never
// count as available.
func (s *Service) Verify(ctx context.Context, verificationID int64, adminID string, in VerifyClaimRequest) (VerifyResult, error) {
	if adminID == "" {
		return VerifyResult{}, apperr.Invalid("verifier id is required")
	}

	now := s.clock.Now()
	var (
		v *ReturnVerification
		r *ReturnTransaction
	)
	err := s.store.InTx(ctx, func(tx TxStore) error {
		var err error
		v, err = tx.VerificationForUpdate(ctx, verificationID)
		if err != nil {
			return err
		}
		if v.Status != VerificationPending {
			return apperr.InvalidState(fmt.Sprintf("verification is already %s", v.Status))
		}

		b, err := tx.BorrowForUpdate(ctx, v.BorrowID)
		if err != nil {
			return err
		}
		if b.Status != StatusPendingReturnVerification {
			return apperr.InvalidState(fmt.Sprintf("borrow transaction is %s, not awaiting verification", b.Status))
		}

		v.Status = VerificationVerified
		v.VerifiedBy = sql.NullString{String: adminID, Valid: true}
		v.VerifiedAt = sql.NullTime{Time: now, Valid: true}
		if in.Notes != nil && *in.Notes != "" {
			v.VerificationNotes = sql.NullString{String: *in.Notes, Valid: true}
		}
		if err := tx.UpdateVerification(ctx, v); err != nil {
			return err
		}

		r = &ReturnTransaction{
			ReturnULID:       s.id.NewULID(now),
			BorrowID:         v.BorrowID,
			VerificationID:   sql.NullInt64{Int64: v.VerificationID, Valid: true},
			ItemID:           v.ItemID,
			Quantity:         v.QuantityReturned,
			ReturnDate:       v.ReturnDate,
			Condition:        ConditionGood, // borrower's claim until inspected
			ReceivedBy:       sql.NullString{String: adminID, Valid: true},
			InspectionStatus: InspectionPending,
		}
		return tx.InsertReturn(ctx, r)
	})
	if err != nil {
		return VerifyResult{}, err
	}

	s.record(ctx, activity.Entry{
		Type:           activity.TypeClaimVerified,
		ActorID:        adminID,
		Description:    fmt.Sprintf("verified claim %s, return %s pending inspection", v.VerificationCode, r.ReturnULID),
		BorrowID:       &v.BorrowID,
		VerificationID: &v.VerificationID,
		ReturnID:       &r.ReturnID,
		ItemID:         &v.ItemID,
	})
	return VerifyResult{Verification: v.toDTO(), Return: r.toDTO()}, nil
}

// RejectClaim voids the claim; the loan is live again.
func (s *Service) RejectClaim(ctx context.Context, verificationID int64, adminID, reason string) (VerificationResponse, error) {
	if adminID == "" {
		return VerificationResponse{}, apperr.Invalid("rejecting admin id is required")
	}
	if strings.TrimSpace(reason) == "" {
		return VerificationResponse{}, apperr.Invalid("reason is required")
	}

	now := s.clock.Now()
	var v *ReturnVerification
	err := s.store.InTx(ctx, func(tx TxStore) error {
		var err error
		v, err = tx.VerificationForUpdate(ctx, verificationID)
		if err != nil {
			return err
		}
		if v.Status != VerificationPending {
			return apperr.InvalidState(fmt.Sprintf("verification is already %s", v.Status))
		}

		b, err := tx.BorrowForUpdate(ctx, v.BorrowID)
		if err != nil {
			return err
		}
		if !CanTransition(b.Status, StatusBorrowed) {
			return apperr.InvalidState(fmt.Sprintf("borrow transaction is %s, cannot revert", b.Status))
		}

		v.Status = VerificationRejected
		v.RejectionReason = sql.NullString{String: reason, Valid: true}
		v.VerifiedBy = sql.NullString{String: adminID, Valid: true}
		v.VerifiedAt = sql.NullTime{Time: now, Valid: true}
		if err := tx.UpdateVerification(ctx, v); err != nil {
			return err
		}

		b.Status = StatusBorrowed
		return tx.UpdateBorrow(ctx, b)
	})
	if err != nil {
		return VerificationResponse{}, err
	}

	s.record(ctx, activity.Entry{
		Type:           activity.TypeClaimRejected,
		ActorID:        adminID,
		Description:    fmt.Sprintf("rejected claim %s: %s", v.VerificationCode, reason),
		BorrowID:       &v.BorrowID,
		VerificationID: &v.VerificationID,
		ItemID:         &v.ItemID,
	})
	return v.toDTO(), nil
}

// -------------- 3. Inspection --------------

// Inspect finalizes the physical condition of a verified return. This is the
// single point where the borrow becomes returned and stock becomes available
// again; the credited amount comes from the policy table, not from the
// outcome being recorded at all.
func (s *Service) Inspect(ctx context.Context, returnID int64, adminID string, in InspectRequest) (ReturnResponse, error) {
	if adminID == "" {
		return ReturnResponse{}, apperr.Invalid("inspector id is required")
	}
	is := InspectionStatus(in.InspectionStatus)
	cond, ok := ConditionFor(is)
	if !ok {
		return ReturnResponse{}, apperr.Invalidf("invalid inspection_status %q", in.InspectionStatus)
	}
	fee := 0.0
	if in.DamageFee != nil {
		if *in.DamageFee < 0 {
			return ReturnResponse{}, apperr.Invalid("damage_fee must be >= 0")
		}
		fee = *in.DamageFee
	}

	now := s.clock.Now()
	var r *ReturnTransaction
	err := s.store.InTx(ctx, func(tx TxStore) error {
		var err error
		r, err = tx.ReturnForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if r.InspectionStatus != InspectionPending {
			return apperr.InvalidState(fmt.Sprintf("return already inspected as %s", r.InspectionStatus))
		}

		credit := 0
		if !r.Credited {
			credit = s.policy.CreditQuantity(is, r.Quantity)
		}
		if credit > 0 {
			stock, err := tx.ItemStockForUpdate(ctx, r.ItemID)
			if err != nil {
				return err
			}
			if stock.Available+credit > stock.Total {
				return apperr.Conflict("credit would exceed total quantity")
			}
			if err := tx.AddAvailable(ctx, r.ItemID, credit); err != nil {
				return err
			}
			r.Credited = true
		}

		r.InspectionStatus = is
		r.Condition = cond
		r.DamageFee = fee
		r.InspectedBy = sql.NullString{String: adminID, Valid: true}
		r.InspectedAt = sql.NullTime{Time: now, Valid: true}
		if in.Notes != nil && *in.Notes != "" {
			r.InspectionNotes = sql.NullString{String: *in.Notes, Valid: true}
		}
		if err := tx.UpdateReturn(ctx, r); err != nil {
			return err
		}

		b, err := tx.BorrowForUpdate(ctx, r.BorrowID)
		if err != nil {
			return err
		}
		if b.Status != StatusReturned { // legacy direct path already closed it
			if !CanTransition(b.Status, StatusReturned) {
				return apperr.InvalidState(fmt.Sprintf("borrow transaction is %s, cannot close", b.Status))
			}
			b.Status = StatusReturned
			b.ActualReturnDate = sql.NullTime{Time: r.ReturnDate, Valid: true}
			if err := tx.UpdateBorrow(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ReturnResponse{}, err
	}

	s.record(ctx, activity.Entry{
		Type:        activity.TypeReturnInspected,
		ActorID:     adminID,
		Description: fmt.Sprintf("inspected return %s as %s", r.ReturnULID, is),
		BorrowID:    &r.BorrowID,
		ReturnID:    &r.ReturnID,
		ItemID:      &r.ItemID,
	})
	return r.toDTO(), nil
}

// -------------- 4. Legacy direct return --------------

// MarkReturned is the pre-verification path: it closes the borrow and
// credits stock immediately, in one transaction. The created return still
// goes through inspection for condition bookkeeping, but Credited guards
// against a second credit there.
func (s *Service) MarkReturned(ctx context.Context, borrowID int64, adminID string, in MarkReturnedRequest) (ReturnResponse, error) {
	if adminID == "" {
		return ReturnResponse{}, apperr.Invalid("receiver id is required")
	}
	cond := ConditionGood
	if in.Condition != nil && *in.Condition != "" {
		switch c := Condition(*in.Condition); c {
		case ConditionGood, ConditionFair, ConditionPoor, ConditionDamaged, ConditionLost, ConditionSlightlyDamaged:
			cond = c
		default:
			return ReturnResponse{}, apperr.Invalidf("invalid condition %q", *in.Condition)
		}
	}

	now := s.clock.Now()
	var r *ReturnTransaction
	err := s.store.InTx(ctx, func(tx TxStore) error {
		b, err := tx.BorrowForUpdate(ctx, borrowID)
		if err != nil {
			return err
		}
		if !CanTransition(b.Status, StatusReturned) {
			return apperr.InvalidState(fmt.Sprintf("cannot mark a %s transaction returned", b.Status))
		}
		n, err := tx.CountReturnsForBorrow(ctx, b.BorrowID)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("a return already exists for this transaction")
		}

		stock, err := tx.ItemStockForUpdate(ctx, b.ItemID)
		if err != nil {
			return err
		}
		if stock.Available+b.Quantity > stock.Total {
			return apperr.Conflict("credit would exceed total quantity")
		}
		if err := tx.AddAvailable(ctx, b.ItemID, b.Quantity); err != nil {
			return err
		}

		r = &ReturnTransaction{
			ReturnULID:       s.id.NewULID(now),
			BorrowID:         b.BorrowID,
			ItemID:           b.ItemID,
			Quantity:         b.Quantity,
			ReturnDate:       now,
			Condition:        cond,
			ReceivedBy:       sql.NullString{String: adminID, Valid: true},
			InspectionStatus: InspectionPending,
			Credited:         true,
		}
		if in.Notes != nil && *in.Notes != "" {
			r.ReturnNotes = sql.NullString{String: *in.Notes, Valid: true}
		}
		if err := tx.InsertReturn(ctx, r); err != nil {
			return err
		}

		b.Status = StatusReturned
		b.ActualReturnDate = sql.NullTime{Time: now, Valid: true}
		return tx.UpdateBorrow(ctx, b)
	})
	if err != nil {
		return ReturnResponse{}, err
	}

	s.record(ctx, activity.Entry{
		Type:        activity.TypeMarkedReturned,
		ActorID:     adminID,
		Description: fmt.Sprintf("marked borrow %d returned, return %s", r.BorrowID, r.ReturnULID),
		BorrowID:    &r.BorrowID,
		ReturnID:    &r.ReturnID,
		ItemID:      &r.ItemID,
	})
	return r.toDTO(), nil
}

// -------------- Queries --------------

func (s *Service) GetBorrow(ctx context.Context, key string) (BorrowResponse, error) {
	b, err := s.getBorrowByKey(ctx, key)
	if err != nil {
		return BorrowResponse{}, err
	}
	return b.toDTO(), nil
}

func (s *Service) getBorrowByKey(ctx context.Context, key string) (*BorrowTransaction, error) {
	if key == "" {
		return nil, apperr.Invalid("id or ulid is required")
	}
	if id, ok := parseID(key); ok {
		return s.store.GetBorrow(ctx, id)
	}
	return s.store.GetBorrowByULID(ctx, key)
}

func (s *Service) ListBorrows(ctx context.Context, f BorrowFilter, p Page) ([]BorrowResponse, int64, error) {
	rows, total, err := s.store.ListBorrows(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]BorrowResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, total, nil
}

func (s *Service) GetVerification(ctx context.Context, verificationID int64) (VerificationResponse, error) {
	v, err := s.store.GetVerification(ctx, verificationID)
	if err != nil {
		return VerificationResponse{}, err
	}
	return v.toDTO(), nil
}

func (s *Service) ListVerifications(ctx context.Context, f VerificationFilter, p Page) ([]VerificationResponse, int64, error) {
	rows, total, err := s.store.ListVerifications(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]VerificationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, total, nil
}

func (s *Service) GetReturn(ctx context.Context, returnID int64) (ReturnResponse, error) {
	r, err := s.store.GetReturn(ctx, returnID)
	if err != nil {
		return ReturnResponse{}, err
	}
	return r.toDTO(), nil
}

func (s *Service) ListReturns(ctx context.Context, f ReturnFilter, p Page) ([]ReturnResponse, int64, error) {
	rows, total, err := s.store.ListReturns(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ReturnResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, total, nil
}

// -------------- Overdue sweep --------------

// SweepOverdue flips borrowed transactions whose expected return date has
// passed to overdue. Driven by a ticker in main; safe to run concurrently
// with request handling since it is a single guarded UPDATE.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	n, err := s.store.SweepOverdue(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.record(ctx, activity.Entry{
			Type:        activity.TypeOverdueSwept,
			ActorID:     "system",
			Description: fmt.Sprintf("%d transaction(s) marked overdue", n),
		})
	}
	return n, nil
}
