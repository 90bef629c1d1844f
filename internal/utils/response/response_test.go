package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/library-web/internal/types"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteJSON(rec, http.StatusOK, OK()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGeneralError(t *testing.T) {
	assert.Equal(t, Response{Status: StatusError, Error: "boom"}, GeneralError(errors.New("boom")))
}

func TestValidationError(t *testing.T) {
	err := validator.New().Struct(types.RegisterForm{Email: "not-an-email", Password: "abc"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	got := ValidationError(verrs)

	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "field Email must be a valid email address, field Password must be at least 6 characters", got.Error)
}

func TestValidationErrorRequired(t *testing.T) {
	err := validator.New().Struct(types.LoginForm{})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	assert.Equal(t, "field Email is required, field Password is required", ValidationError(verrs).Error)
}
