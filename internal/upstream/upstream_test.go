package upstream

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestCheckStatus_OK(t *testing.T) {
	assert.NoError(t, CheckStatus(response(http.StatusOK, "")))
	assert.NoError(t, CheckStatus(response(http.StatusNoContent, "")))
}

func TestCheckStatus_Error(t *testing.T) {
	err := CheckStatus(response(http.StatusServiceUnavailable, "  busy \n"))
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "busy", apiErr.Message)
	assert.ErrorIs(t, err, ErrAPIRequestFailed)
}

// TestCheckStatus_EmptyBody はボディが空の場合ステータステキストを使うことをテスト
func TestCheckStatus_EmptyBody(t *testing.T) {
	err := CheckStatus(response(http.StatusNotFound, ""))
	assert.EqualError(t, err, "API error (status 404): Not Found")
}

func TestCheckStatus_TruncatesBody(t *testing.T) {
	err := CheckStatus(response(http.StatusInternalServerError, strings.Repeat("x", 2000)))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Len(t, apiErr.Message, maxErrorBody)
}
