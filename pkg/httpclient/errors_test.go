package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jfchinemerem/Threesixteen/pkg/errors"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func envelopeError(code, message string) string {
	return `{"error":{"code":"` + code + `","message":"` + message + `"}}`
}

func TestParseResponseError_NotFound(t *testing.T) {
	resp := makeResponse(http.StatusNotFound, envelopeError("NOT_FOUND", "transaction not found"))
	err := ParseResponseError(resp, "paystack")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestParseResponseError_PaymentFailed(t *testing.T) {
	resp := makeResponse(http.StatusUnprocessableEntity, envelopeError("PAYMENT_FAILED", "card declined"))
	err := ParseResponseError(resp, "paystack")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, errors.Is(err, apperrors.ErrPaymentFailed))
	assert.Contains(t, appErr.Message, "paystack")
}

func TestParseResponseError_FlatMessageBody(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, `{"status":false,"message":"Invalid key"}`)
	err := ParseResponseError(resp, "paystack")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, appErr.Message, "Invalid key")
}

func TestParseResponseError_ServerError(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, envelopeError("INTERNAL_ERROR", "boom"))
	err := ParseResponseError(resp, "paystack")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "paystack")
	assert.Contains(t, err.Error(), "500")
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "<html>502 Bad Gateway</html>")
	err := ParseResponseError(resp, "paystack")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestIsClientError(t *testing.T) {
	assert.False(t, IsClientError(399))
	assert.True(t, IsClientError(400))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(500))
}
