package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrClassFull, "class c-1 is full")
	assert.True(t, errors.Is(err, ErrClassFull))
	assert.False(t, errors.Is(err, ErrDuplicateEnrollment))
	assert.Equal(t, "class c-1 is full", err.Message)
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	wrapped := fmt.Errorf("ctx: %w", WithDetails(ErrPrerequisiteNotMet, "", []string{"CS101"}))
	appErr = FromError(wrapped)
	assert.Equal(t, ErrPrerequisiteNotMet.Code, appErr.Code)
	assert.Equal(t, []string{"CS101"}, appErr.Details)
	assert.Nil(t, ErrPrerequisiteNotMet.Details)
}
