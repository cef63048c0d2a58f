package activity

import (
	"database/sql"
	"time"
)

// Activity type constants. One per lifecycle transition so the trail can be
// filtered by what happened, not by free text.
const (
	TypeBorrowRequested = "BORROW_REQUESTED"
	TypeBorrowApproved  = "BORROW_APPROVED"
	TypeBorrowRejected  = "BORROW_REJECTED"
	TypeClaimSubmitted  = "RETURN_CLAIM_SUBMITTED"
	TypeClaimVerified   = "RETURN_CLAIM_VERIFIED"
	TypeClaimRejected   = "RETURN_CLAIM_REJECTED"
	TypeReturnInspected = "RETURN_INSPECTED"
	TypeMarkedReturned  = "MARKED_RETURNED"
	TypeOverdueSwept    = "OVERDUE_SWEPT"
	TypeItemCreated     = "ITEM_CREATED"
	TypeItemUpdated     = "ITEM_UPDATED"
	TypeItemAdjusted    = "ITEM_ADJUSTED"
	TypeItemArchived    = "ITEM_ARCHIVED"
	TypeItemRestored    = "ITEM_RESTORED"
)

// Entry is what callers hand to the Recorder. All references are optional;
// a sweep entry, for example, points at nothing in particular.
type Entry struct {
	Type           string
	ActorID        string
	ActorName      string
	Description    string
	BorrowID       *int64
	VerificationID *int64
	ReturnID       *int64
	ItemID         *int64
	Metadata       map[string]any
}

// Log is one appended row. Rows are never updated or deleted by the
// application.
type Log struct {
	LogID          string // uuid
	Type           string
	ActorID        string
	ActorName      sql.NullString
	Description    string
	BorrowID       sql.NullInt64
	VerificationID sql.NullInt64
	ReturnID       sql.NullInt64
	ItemID         sql.NullInt64
	Metadata       sql.NullString // json
	CreatedAt      time.Time
}

type Filter struct {
	Type     *string
	ActorID  *string
	BorrowID *int64
	ItemID   *int64
	From     *time.Time
	To       *time.Time
}

type Page struct {
	Limit  int
	Offset int
}

type LogResponse struct {
	LogID          string         `json:"log_id"`
	Type           string         `json:"type"`
	ActorID        string         `json:"actor_id"`
	ActorName      *string        `json:"actor_name,omitempty"`
	Description    string         `json:"description"`
	BorrowID       *int64         `json:"borrow_id,omitempty"`
	VerificationID *int64         `json:"verification_id,omitempty"`
	ReturnID       *int64         `json:"return_id,omitempty"`
	ItemID         *int64         `json:"item_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
