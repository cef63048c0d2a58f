package circulation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"CRIMS-backend/internal/platform/apperr"
	"CRIMS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// borrow lifecycle
	r.POST("/transactions/borrow-request", h.CreateRequest)
	r.POST("/transactions/approve/:id", h.Approve)
	r.POST("/transactions/reject/:id", h.Reject)
	r.POST("/transactions/mark-returned/:id", h.MarkReturned)
	r.GET("/transactions", h.ListBorrows)
	r.GET("/transactions/:id", h.GetBorrow)

	// return verification
	r.POST("/return-verifications/create", h.SubmitClaim)
	r.POST("/return-verifications/:id/verify", h.Verify)
	r.POST("/return-verifications/:id/reject", h.RejectClaim)
	r.GET("/return-verifications", h.ListVerifications)
	r.GET("/return-verifications/:id", h.GetVerification)

	// inspection
	r.POST("/return-inspections/:id/inspect", h.Inspect)
	r.GET("/return-transactions", h.ListReturns)
	r.GET("/return-transactions/:id", h.GetReturn)
}

func actorID(c *gin.Context) string {
	return c.GetString(auth.CtxUserIDKey)
}

func writeErr(c *gin.Context, err error) {
	c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFromErr(err))
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// ---------- borrow lifecycle ----------

func (h *Handler) CreateRequest(c *gin.Context) {
	var req CreateBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.CreateRequest(c.Request.Context(), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.Header("Location", "/transactions/"+res.BorrowULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ApproveBorrowRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
			return
		}
	}
	res, err := h.svc.Approve(c.Request.Context(), id, actorID(c), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req RejectBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "reason is required"))
		return
	}
	res, err := h.svc.Reject(c.Request.Context(), id, actorID(c), req.Reason)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) MarkReturned(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req MarkReturnedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
			return
		}
	}
	res, err := h.svc.MarkReturned(c.Request.Context(), id, actorID(c), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetBorrow(c *gin.Context) {
	res, err := h.svc.GetBorrow(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListBorrows(c *gin.Context) {
	f := BorrowFilter{}
	if v := c.Query("status"); v != "" {
		st := Status(v)
		if !ValidStatus(st) {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "unknown status"))
			return
		}
		f.Status = &st
	}
	if v := c.Query("borrower_id"); v != "" {
		f.BorrowerID = &v
	}
	if v := c.Query("item_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.ItemID = &id
		}
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = &t
		}
	}
	res, total, err := h.svc.ListBorrows(c.Request.Context(), f, pageFromQuery(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": total})
}

// ---------- verification ----------

func (h *Handler) SubmitClaim(c *gin.Context) {
	var req SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.SubmitClaim(c.Request.Context(), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Verify(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req VerifyClaimRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
			return
		}
	}
	res, err := h.svc.Verify(c.Request.Context(), id, actorID(c), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RejectClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req RejectClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "reason is required"))
		return
	}
	res, err := h.svc.RejectClaim(c.Request.Context(), id, actorID(c), req.Reason)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetVerification(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetVerification(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListVerifications(c *gin.Context) {
	f := VerificationFilter{}
	if v := c.Query("status"); v != "" {
		st := VerificationStatus(v)
		f.Status = &st
	}
	if v := c.Query("borrow_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.BorrowID = &id
		}
	}
	if v := c.Query("borrower_id"); v != "" {
		f.BorrowerID = &v
	}
	res, total, err := h.svc.ListVerifications(c.Request.Context(), f, pageFromQuery(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": total})
}

// ---------- inspection ----------

func (h *Handler) Inspect(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req InspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "inspection_status is required"))
		return
	}
	res, err := h.svc.Inspect(c.Request.Context(), id, actorID(c), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetReturn(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetReturn(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListReturns(c *gin.Context) {
	f := ReturnFilter{}
	if v := c.Query("inspection_status"); v != "" {
		st := InspectionStatus(v)
		f.InspectionStatus = &st
	}
	if v := c.Query("borrow_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.BorrowID = &id
		}
	}
	if v := c.Query("item_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.ItemID = &id
		}
	}
	res, total, err := h.svc.ListReturns(c.Request.Context(), f, pageFromQuery(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": total})
}

// ---------- helpers ----------

func pageFromQuery(c *gin.Context) Page {
	p := Page{Order: c.DefaultQuery("order", "desc")}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		p.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		p.Offset = v
	}
	return p
}
