package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusOK, nil},
		{http.StatusNoContent, nil},
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrBadRequest},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusRequestTimeout, ErrUpstream},
		{http.StatusRequestEntityTooLarge, ErrBadRequest},
		{http.StatusTooManyRequests, ErrBadRequest},
		{http.StatusInternalServerError, ErrUpstream},
		{http.StatusBadGateway, ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStatus(tt.code))
		})
	}
}

func TestTranslate_GoogleAPIError(t *testing.T) {
	err := translate("rename", &googleapi.Error{Code: http.StatusNotFound, Message: "File not found: x."})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "rename", pe.Op)
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)
	assert.Equal(t, "File not found: x.", pe.Detail())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestTranslate_EmptyMessageUsesStatusText(t *testing.T) {
	err := translate("list", &googleapi.Error{Code: http.StatusBadGateway})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Bad Gateway", pe.Message)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestTranslate_Deadline(t *testing.T) {
	err := translate("list", fmt.Errorf("get: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestTranslate_NetworkFailure(t *testing.T) {
	cause := errors.New("connection refused")
	err := translate("delete", cause)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
}

func TestTranslate_MaxBytes(t *testing.T) {
	err := translate("upload", &http.MaxBytesError{Limit: 10})
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "10 byte limit")
}

func TestTranslate_PassesThroughClassified(t *testing.T) {
	orig := notFound("delete", "x")
	assert.Same(t, orig, translate("other", orig))
	assert.NoError(t, translate("noop", nil))
}

func TestValidateName(t *testing.T) {
	got, err := ValidateName("  Cafe\u0301 ")
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", got, "NFC-normalized and trimmed")

	_, err = ValidateName(" ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ValidateName("a\x00b")
	assert.ErrorIs(t, err, ErrValidation)

	long := make([]byte, maxNameLength+1)
	for i := range long {
		long[i] = 'a'
	}

	_, err = ValidateName(string(long))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidatePageSize(t *testing.T) {
	n, err := ValidatePageSize(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, n)

	n, err = ValidatePageSize(MaxPageSize)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, n)

	_, err = ValidatePageSize(-1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ValidatePageSize(MaxPageSize + 1)
	assert.ErrorIs(t, err, ErrValidation)
}
