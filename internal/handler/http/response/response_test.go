package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vprep/preparator-backend-go/internal/domain/preparation"
	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
	"github.com/vprep/preparator-backend-go/internal/pkg/cron"
	"github.com/vprep/preparator-backend-go/internal/pkg/jwt"
	"github.com/vprep/preparator-backend-go/internal/pkg/validator"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, "Preparation started", map[string]string{"id": "p1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "Preparation started", body.Message)
	assert.Nil(t, body.Error)
}

func TestHandleError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", validator.ValidationErrors{{Field: "agency_id", Message: "is required"}}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"token", jwt.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrapped conflict", fmt.Errorf("clock in: %w", timesheet.ErrAlreadyClockedIn), http.StatusConflict, "CONFLICT"},
		{"bad step", preparation.ErrInvalidStepType, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown job", cron.ErrJobNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, c.err)

			assert.Equal(t, c.status, rec.Code)
			body := decode(t, rec)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, c.code, body.Error.Code)
		})
	}
}
