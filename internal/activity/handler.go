package activity

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"CRIMS-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/activity-logs", h.List)
}

func (h *Handler) List(c *gin.Context) {
	f := Filter{}
	if v := c.Query("type"); v != "" {
		f.Type = &v
	}
	if v := c.Query("actor_id"); v != "" {
		f.ActorID = &v
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
	p := Page{}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		p.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		p.Offset = v
	}

	logs, total, err := h.svc.List(c.Request.Context(), f, p)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs, "total": total})
}
