package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCode(t *testing.T) {
	err := NotFound("no such row")
	assert.True(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(err, CodeConflict))

	wrapped := fmt.Errorf("loading item: %w", InsufficientStock("requested 5, available 2"))
	assert.True(t, IsCode(wrapped, CodeInsufficientStock))

	assert.False(t, IsCode(errors.New("plain"), CodeInternal))
	assert.False(t, IsCode(nil, CodeNotFound))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Invalid("bad input"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{InvalidState("already returned"), http.StatusConflict},
		{InsufficientStock("short"), http.StatusConflict},
		{Conflict("duplicate"), http.StatusConflict},
		{Internal("boom"), http.StatusInternalServerError},
		{errors.New("untyped"), http.StatusInternalServerError},
		{fmt.Errorf("wrap: %w", NotFound("gone")), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestBodyFromErr(t *testing.T) {
	d := BodyFromErr(InvalidState("cannot approve a returned transaction"))
	assert.Equal(t, CodeInvalidState, d.Error.Code)
	assert.Equal(t, "cannot approve a returned transaction", d.Error.Message)

	d = BodyFromErr(errors.New("driver: bad connection"))
	assert.Equal(t, CodeInternal, d.Error.Code)
}

func TestInvalidf(t *testing.T) {
	err := Invalidf("quantity_returned %d exceeds borrowed quantity %d", 4, 3)
	assert.True(t, IsCode(err, CodeInvalidArgument))
	assert.Contains(t, err.Error(), "4 exceeds borrowed quantity 3")
}
