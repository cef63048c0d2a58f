package circulation

import (
	"strconv"
	"time"
)

const (
	DateLayout       = "2006-01-02"
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type Page struct {
	Limit  int
	Offset int
	Order  string // asc | desc, by creation time
}

type BorrowerDTO struct {
	Type     string `json:"type" binding:"required"`
	ID       string `json:"id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	IDNumber string `json:"id_number,omitempty"`
	Email    string `json:"email,omitempty"`
	Contact  string `json:"contact,omitempty"`
}

type CreateBorrowRequest struct {
	Borrower           BorrowerDTO `json:"borrower" binding:"required"`
	ItemID             int64       `json:"item_id"`
	ItemULID           *string     `json:"item_ulid,omitempty"` // alternative to item_id
	Quantity           int         `json:"quantity" binding:"required"`
	ExpectedReturnDate string      `json:"expected_return_date" binding:"required"` // YYYY-MM-DD
	Purpose            *string     `json:"purpose,omitempty"`
}

type ApproveBorrowRequest struct {
	ExpectedReturnDate *string `json:"expected_return_date,omitempty"` // optional override
}

type RejectBorrowRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type SubmitClaimRequest struct {
	BorrowID         int64   `json:"borrow_id" binding:"required"`
	QuantityReturned int     `json:"quantity_returned" binding:"required"`
	ReturnedBy       string  `json:"returned_by" binding:"required"`
	Notes            *string `json:"notes,omitempty"`
}

type VerifyClaimRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type RejectClaimRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type InspectRequest struct {
	InspectionStatus string   `json:"inspection_status" binding:"required"`
	Notes            *string  `json:"notes,omitempty"`
	DamageFee        *float64 `json:"damage_fee,omitempty"`
}

type MarkReturnedRequest struct {
	Condition *string `json:"condition,omitempty"` // defaults to good
	Notes     *string `json:"notes,omitempty"`
}

type BorrowResponse struct {
	BorrowID           int64      `json:"borrow_id"`
	BorrowULID         string     `json:"borrow_ulid"`
	Borrower           BorrowerDTO `json:"borrower"`
	ItemID             int64      `json:"item_id"`
	Quantity           int        `json:"quantity"`
	Purpose            *string    `json:"purpose,omitempty"`
	BorrowDate         time.Time  `json:"borrow_date"`
	ExpectedReturnDate string     `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	Status             Status     `json:"status"`
	RejectionReason    *string    `json:"rejection_reason,omitempty"`
	ApprovedBy         *string    `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type VerificationResponse struct {
	VerificationID    int64              `json:"verification_id"`
	VerificationCode  string             `json:"verification_code"`
	BorrowID          int64              `json:"borrow_id"`
	ItemID            int64              `json:"item_id"`
	Borrower          BorrowerDTO        `json:"borrower"`
	QuantityReturned  int                `json:"quantity_returned"`
	ReturnDate        time.Time          `json:"return_date"`
	ReturnedBy        string             `json:"returned_by"`
	Status            VerificationStatus `json:"status"`
	Notes             *string            `json:"notes,omitempty"`
	VerificationNotes *string            `json:"verification_notes,omitempty"`
	RejectionReason   *string            `json:"rejection_reason,omitempty"`
	VerifiedBy        *string            `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time         `json:"verified_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

type ReturnResponse struct {
	ReturnID         int64            `json:"return_id"`
	ReturnULID       string           `json:"return_ulid"`
	BorrowID         int64            `json:"borrow_id"`
	VerificationID   *int64           `json:"verification_id,omitempty"`
	ItemID           int64            `json:"item_id"`
	Quantity         int              `json:"quantity"`
	ReturnDate       time.Time        `json:"return_date"`
	Condition        Condition        `json:"condition"`
	ReturnNotes      *string          `json:"return_notes,omitempty"`
	ReceivedBy       *string          `json:"received_by,omitempty"`
	DamageFee        float64          `json:"damage_fee"`
	InspectionStatus InspectionStatus `json:"inspection_status"`
	Credited         bool             `json:"credited"`
	InspectedBy      *string          `json:"inspected_by,omitempty"`
	InspectedAt      *time.Time       `json:"inspected_at,omitempty"`
	InspectionNotes  *string          `json:"inspection_notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

type BorrowFilter struct {
	Status     *Status
	BorrowerID *string
	ItemID     *int64
	From       *time.Time
	To         *time.Time
}

type VerificationFilter struct {
	Status     *VerificationStatus
	BorrowID   *int64
	BorrowerID *string
}

type ReturnFilter struct {
	InspectionStatus *InspectionStatus
	BorrowID         *int64
	ItemID           *int64
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// ---- model -> DTO ----

func snapshotDTO(b BorrowerSnapshot) BorrowerDTO {
	return BorrowerDTO{
		Type:     b.Type,
		ID:       b.ID,
		Name:     b.Name,
		IDNumber: b.IDNumber,
		Email:    b.Email,
		Contact:  b.Contact,
	}
}

func (b *BorrowTransaction) toDTO() BorrowResponse {
	resp := BorrowResponse{
		BorrowID:           b.BorrowID,
		BorrowULID:         b.BorrowULID,
		Borrower:           snapshotDTO(b.Borrower),
		ItemID:             b.ItemID,
		Quantity:           b.Quantity,
		BorrowDate:         b.BorrowDate,
		ExpectedReturnDate: b.ExpectedReturnDate.Format(DateLayout),
		Status:             b.Status,
		CreatedAt:          b.CreatedAt,
	}
	if b.Purpose.Valid {
		v := b.Purpose.String
		resp.Purpose = &v
	}
	if b.ActualReturnDate.Valid {
		v := b.ActualReturnDate.Time
		resp.ActualReturnDate = &v
	}
	if b.RejectionReason.Valid {
		v := b.RejectionReason.String
		resp.RejectionReason = &v
	}
	if b.ApprovedBy.Valid {
		v := b.ApprovedBy.String
		resp.ApprovedBy = &v
	}
	if b.ApprovedAt.Valid {
		v := b.ApprovedAt.Time
		resp.ApprovedAt = &v
	}
	return resp
}

func (v *ReturnVerification) toDTO() VerificationResponse {
	resp := VerificationResponse{
		VerificationID:   v.VerificationID,
		VerificationCode: v.VerificationCode,
		BorrowID:         v.BorrowID,
		ItemID:           v.ItemID,
		Borrower:         snapshotDTO(v.Borrower),
		QuantityReturned: v.QuantityReturned,
		ReturnDate:       v.ReturnDate,
		ReturnedBy:       v.ReturnedBy,
		Status:           v.Status,
		CreatedAt:        v.CreatedAt,
	}
	if v.Notes.Valid {
		s := v.Notes.String
		resp.Notes = &s
	}
	if v.VerificationNotes.Valid {
		s := v.VerificationNotes.String
		resp.VerificationNotes = &s
	}
	if v.RejectionReason.Valid {
		s := v.RejectionReason.String
		resp.RejectionReason = &s
	}
	if v.VerifiedBy.Valid {
		s := v.VerifiedBy.String
		resp.VerifiedBy = &s
	}
	if v.VerifiedAt.Valid {
		t := v.VerifiedAt.Time
		resp.VerifiedAt = &t
	}
	return resp
}

func (r *ReturnTransaction) toDTO() ReturnResponse {
	resp := ReturnResponse{
		ReturnID:         r.ReturnID,
		ReturnULID:       r.ReturnULID,
		BorrowID:         r.BorrowID,
		ItemID:           r.ItemID,
		Quantity:         r.Quantity,
		ReturnDate:       r.ReturnDate,
		Condition:        r.Condition,
		DamageFee:        r.DamageFee,
		InspectionStatus: r.InspectionStatus,
		Credited:         r.Credited,
		CreatedAt:        r.CreatedAt,
	}
	if r.VerificationID.Valid {
		v := r.VerificationID.Int64
		resp.VerificationID = &v
	}
	if r.ReturnNotes.Valid {
		s := r.ReturnNotes.String
		resp.ReturnNotes = &s
	}
	if r.ReceivedBy.Valid {
		s := r.ReceivedBy.String
		resp.ReceivedBy = &s
	}
	if r.InspectedBy.Valid {
		s := r.InspectedBy.String
		resp.InspectedBy = &s
	}
	if r.InspectedAt.Valid {
		t := r.InspectedAt.Time
		resp.InspectedAt = &t
	}
	if r.InspectionNotes.Valid {
		s := r.InspectionNotes.String
		resp.InspectionNotes = &s
	}
	return resp
}
