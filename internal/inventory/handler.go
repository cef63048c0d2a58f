package inventory

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"CRIMS-backend/internal/platform/apperr"
	"CRIMS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/items", h.Create)
	r.GET("/items", h.List)
	r.GET("/items/summary", h.Summary)
	r.GET("/items/:id", h.Get)
	r.PUT("/items/:id", h.Update)
	r.PUT("/items/:id/total", h.AdjustTotal)
	r.POST("/items/:id/archive", h.Archive)
	r.POST("/items/:id/restore", h.Restore)
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

func (h *Handler) Create(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.CreateItem(c.Request.Context(), req, actorID(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.Header("Location", "/items/"+res.ItemULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c *gin.Context) {
	f := ItemFilter{}
	if v := c.Query("category"); v != "" {
		f.Category = &v
	}
	if v := c.Query("name"); v != "" {
		f.Name = &v
	}
	if v := c.Query("status"); v != "" {
		st := ItemStatus(v)
		switch st {
		case StatusAvailable, StatusLowStock, StatusOutOfStock:
			f.Status = &st
		default:
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "unknown status"))
			return
		}
	}
	if v := c.Query("include_archived"); v == "true" || v == "1" {
		f.IncludeArchived = true
	}
	p := Page{Order: c.DefaultQuery("order", "desc")}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		p.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		p.Offset = v
	}

	res, total, err := h.svc.ListItems(c.Request.Context(), f, p)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": total})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.UpdateItem(c.Request.Context(), id, req, actorID(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AdjustTotal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req AdjustTotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "total_quantity is required"))
		return
	}
	res, err := h.svc.AdjustTotal(c.Request.Context(), id, req, actorID(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Archive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.ArchiveItem(c.Request.Context(), id, actorID(c)); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "archived"})
}

func (h *Handler) Restore(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.RestoreItem(c.Request.Context(), id, actorID(c)); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "restored"})
}

func (h *Handler) Summary(c *gin.Context) {
	res, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
