package circulation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CRIMS-backend/internal/platform/auth"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// stand-in for the auth middleware
	r.Use(func(c *gin.Context) {
		c.Set(auth.CtxUserIDKey, "admin-1")
		c.Set(auth.CtxRoleKey, "admin")
	})
	RegisterRoutes(r.Group("/"), svc)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestBorrowRequestEndpoint(t *testing.T) {
	store := newMemStore()
	store.addItem(1, 10, 10, false)
	svc, _ := newTestService(store)
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/transactions/borrow-request", createRequest(1, 3))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := decode[BorrowResponse](t, w)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "/transactions/"+got.BorrowULID, w.Header().Get("Location"))
}

func TestBorrowRequestEndpointErrors(t *testing.T) {
	store := newMemStore()
	store.addItem(1, 2, 10, false)
	svc, _ := newTestService(store)
	r := newTestRouter(svc)

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/transactions/borrow-request", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("insufficient stock maps to 409", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/transactions/borrow-request", createRequest(1, 5))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "INSUFFICIENT_STOCK")
	})

	t.Run("unknown item maps to 404", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/transactions/borrow-request", createRequest(99, 1))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestApproveEndpoint(t *testing.T) {
	store := newMemStore()
	store.addItem(1, 10, 10, false)
	svc, _ := newTestService(store)
	r := newTestRouter(svc)

	created := decode[BorrowResponse](t, doJSON(t, r, http.MethodPost, "/transactions/borrow-request", createRequest(1, 3)))

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/transactions/approve/%d", created.BorrowID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[BorrowResponse](t, w)
	assert.Equal(t, StatusBorrowed, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "admin-1", *got.ApprovedBy)

	// second approval is a state conflict
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/transactions/approve/%d", created.BorrowID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_STATE")
}

func TestApproveEndpointBadID(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/transactions/approve/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/transactions/approve/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRejectEndpointRequiresReason(t *testing.T) {
	store := newMemStore()
	store.addItem(1, 10, 10, false)
	svc, _ := newTestService(store)
	r := newTestRouter(svc)

	created := decode[BorrowResponse](t, doJSON(t, r, http.MethodPost, "/transactions/borrow-request", createRequest(1, 1)))

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/transactions/reject/%d", created.BorrowID), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/transactions/reject/%d", created.BorrowID),
		RejectBorrowRequest{Reason: "term ended"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerificationEndpoints(t *testing.T) {
	store := newMemStore()
	store.addItem(1, 10, 10, false)
	svc, _ := newTestService(store)
	r := newTestRouter(svc)

	borrowID := createBorrowed(t, svc, 1, 2)

	w := doJSON(t, r, http.MethodPost, "/return-verifications/create", SubmitClaimRequest{
		BorrowID:         borrowID,
		QuantityReturned: 2,
		ReturnedBy:       "Dana Reyes",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	v := decode[VerificationResponse](t, w)
	assert.Equal(t, "RV-2026-001", v.VerificationCode)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/return-verifications/%d/verify", v.VerificationID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[VerifyResult](t, w)
	assert.Equal(t, VerificationVerified, res.Verification.Status)
	assert.Equal(t, InspectionPending, res.Return.InspectionStatus)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/return-inspections/%d/inspect", res.Return.ReturnID),
		InspectRequest{InspectionStatus: string(InspectionGood)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ret := decode[ReturnResponse](t, w)
	assert.True(t, ret.Credited)
	assert.Equal(t, 10, store.items[1].Available)
}

func TestListEndpoints(t *testing.T) {
	store := newMemStore()
	store.addItem(1, 10, 10, false)
	svc, _ := newTestService(store)
	r := newTestRouter(svc)

	createBorrowed(t, svc, 1, 1)
	createBorrowed(t, svc, 1, 1)

	w := doJSON(t, r, http.MethodGet, "/transactions?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items []BorrowResponse `json:"items"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 2)

	w = doJSON(t, r, http.MethodGet, "/transactions?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEndpointsNotFound(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)
	r := newTestRouter(svc)

	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/transactions/123", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/return-verifications/123", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/return-transactions/123", nil).Code)
}
