package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterRoutes exposes login publicly; account management is mounted by
// main behind RequireAuth + RequireRole("admin").
func RegisterRoutes(public, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	public.POST("/auth/login", h.Login)
	admin.POST("/auth/register", h.Register)
	admin.DELETE("/auth/accounts/:id", h.DeleteAccount)
}

type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.ID, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id or password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "login successful",
	})
}

type RegisterRequest struct {
	ID       string  `json:"id" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Role     *string `json:"role,omitempty"` // defaults to staff
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	role := "staff"
	if req.Role != nil && *req.Role != "" {
		role = *req.Role
	}

	if err := h.svc.Register(c.Request.Context(), req.ID, req.Password, role); err != nil {
		if err == ErrAlreadyExists {
			c.JSON(http.StatusConflict, gin.H{"error": "id already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registered"})
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if err == ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
