package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsundokudragon/dragon-server/internal/errors"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.CodeNotFound, http.StatusNotFound},
		{errors.CodeInvalidState, http.StatusBadRequest},
		{errors.CodeValidation, http.StatusBadRequest},
		{errors.CodeConflict, http.StatusConflict},
		{errors.CodeStorageUnavailable, http.StatusServiceUnavailable},
		{errors.CodePartialFailure, http.StatusInternalServerError},
		{errors.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := errors.InvalidState("cannot update archived book")

	assert.True(t, errors.Is(err, errors.ErrInvalidState))
	assert.False(t, errors.Is(err, errors.ErrNotFound))

	wrapped := fmt.Errorf("update book: %w", err)
	assert.True(t, errors.Is(wrapped, errors.ErrInvalidState))
}

func TestError_WrapsCause(t *testing.T) {
	cause := stderrors.New("disk gone")
	err := errors.StorageUnavailable(cause, "load book")

	assert.Contains(t, err.Error(), "load book")
	assert.Contains(t, err.Error(), "disk gone")
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, err.Code.Retryable())
}

func TestPartialFailure_CarriesDetails(t *testing.T) {
	details := map[string]any{"book_updated": true}
	err := errors.PartialFailure(stderrors.New("boom"), "battle recorded partially", details)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, errors.CodePartialFailure, domainErr.Code)
	assert.Equal(t, details, domainErr.Details)
	assert.False(t, errors.Is(err, errors.ErrNotFound))
	assert.False(t, errors.Is(err, errors.ErrInvalidState))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(fmt.Errorf("x: %w", errors.NotFound("book"))))
	assert.Equal(t, errors.CodeInternal, errors.CodeOf(stderrors.New("plain")))
}
