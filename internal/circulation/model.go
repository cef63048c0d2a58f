package circulation

import (
	"database/sql"
	"time"
)

// Status is the borrow transaction lifecycle state.
type Status string

const (
	StatusPending                   Status = "pending"
	StatusBorrowed                  Status = "borrowed"
	StatusOverdue                   Status = "overdue"
	StatusPendingReturnVerification Status = "pending_return_verification"
	StatusReturned                  Status = "returned"
	StatusRejected                  Status = "rejected"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending_verification"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

type InspectionStatus string

const (
	InspectionPending     InspectionStatus = "pending_inspection"
	InspectionGood        InspectionStatus = "good_condition"
	InspectionMinorDamage InspectionStatus = "minor_damage"
	InspectionMajorDamage InspectionStatus = "major_damage"
	InspectionLost        InspectionStatus = "lost"
	InspectionUnusable    InspectionStatus = "unusable"
)

type Condition string

const (
	ConditionGood            Condition = "good"
	ConditionFair            Condition = "fair"
	ConditionPoor            Condition = "poor"
	ConditionDamaged         Condition = "damaged"
	ConditionLost            Condition = "lost"
	ConditionSlightlyDamaged Condition = "slightly_damaged"
)

// BorrowerSnapshot is copied onto borrow and verification rows at creation
// time. Audit rows must stay stable even if the borrower record is later
// edited or purged, so these are plain columns, not joins.
type BorrowerSnapshot struct {
	Type     string // student | employee
	ID       string
	Name     string
	IDNumber string
	Email    string
	Contact  string
}

type BorrowTransaction struct {
	BorrowID           int64
	BorrowULID         string
	Borrower           BorrowerSnapshot
	ItemID             int64
	Quantity           int
	Purpose            sql.NullString
	BorrowDate         time.Time
	ExpectedReturnDate time.Time
	ActualReturnDate   sql.NullTime
	Status             Status
	RejectionReason    sql.NullString
	ApprovedBy         sql.NullString
	ApprovedAt         sql.NullTime
	CreatedAt          time.Time
}

type ReturnVerification struct {
	VerificationID    int64
	VerificationCode  string // RV-YYYY-NNN, sequence scoped per calendar year
	BorrowID          int64
	ItemID            int64
	Borrower          BorrowerSnapshot
	QuantityReturned  int
	ReturnDate        time.Time
	ReturnedBy        string
	Status            VerificationStatus
	Notes             sql.NullString // borrower's claim notes, immutable after submit
	VerificationNotes sql.NullString // admin's notes recorded at verification
	RejectionReason   sql.NullString
	VerifiedBy        sql.NullString
	VerifiedAt        sql.NullTime
	CreatedAt         time.Time
}

type ReturnTransaction struct {
	ReturnID         int64
	ReturnULID       string
	BorrowID         int64
	VerificationID   sql.NullInt64
	ItemID           int64
	Quantity         int
	ReturnDate       time.Time
	Condition        Condition
	ReturnNotes      sql.NullString
	ReceivedBy       sql.NullString
	DamageFee        float64
	InspectionStatus InspectionStatus
	// Credited records whether this return already put stock back.
	// The verification path credits at inspection, the legacy direct path at
	// creation; either way it happens at most once per return row.
	Credited        bool
	InspectedBy     sql.NullString
	InspectedAt     sql.NullTime
	InspectionNotes sql.NullString
	CreatedAt       time.Time
}

// ItemStock is the locked view of an inventory row inside a transaction.
type ItemStock struct {
	ItemID    int64
	Available int
	Total     int
	Archived  bool
}
