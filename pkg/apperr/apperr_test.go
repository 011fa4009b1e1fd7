package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(Validation("bad input")))
	assert.Equal(t, http.StatusConflict, StatusOf(InvalidTransition("no")))
	assert.Equal(t, http.StatusNotFound, StatusOf(NotFound("help request")))
	assert.Equal(t, http.StatusBadRequest, StatusOf(NotAssigned("no volunteer")))
	assert.Equal(t, http.StatusConflict, StatusOf(Conflict("dup")))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(Unauthorized("token")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(Internal("boom", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
}

func TestIsMatchesWrappedErrors(t *testing.T) {
	err := fmt.Errorf("handling claim: %w", InvalidTransition("already accepted"))

	assert.True(t, Is(err, CodeInvalidTransition))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(errors.New("plain"), CodeInternal))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("query users", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INTERNAL: query users", err.Error())
}
