package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollaboratorError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewCollaboratorError("embedding", cause)

	assert.Equal(t, ErrCodeCollaborator, err.Code)
	assert.Equal(t, http.StatusBadGateway, err.HTTPCode)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "embedding collaborator failed")
}

func TestIsCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("load corpus: %w", NewConfigurationError("dimension mismatch"))

	assert.True(t, IsCode(err, ErrCodeConfiguration))
	assert.False(t, IsCode(err, ErrCodeTimeout))
	assert.False(t, IsCode(stderrors.New("plain"), ErrCodeConfiguration))
}

func TestGetAppError(t *testing.T) {
	appErr := NewTimeoutError("generation", nil)
	assert.Same(t, appErr, GetAppError(fmt.Errorf("wrap: %w", appErr)))

	wrapped := GetAppError(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternalServer, wrapped.Code)
	assert.Equal(t, http.StatusInternalServerError, wrapped.HTTPCode)
}

func TestResponse(t *testing.T) {
	resp := Response(NewValidationError("No question provided").WithRequestID("req-1"))

	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "req-1", resp["request_id"])
	body := resp["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, "validation", body["type"])

	resp = Response(NewCollaboratorError("generation", stderrors.New("secret upstream detail")))
	body = resp["error"].(map[string]interface{})
	_, hasDetails := body["details"]
	assert.False(t, hasDetails)
	assert.NotContains(t, body["message"], "secret")
}
