package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{NewError(ErrValidation, "bad"), http.StatusBadRequest, "bad"},
		{NewError(ErrDuplicate, "User with this email already exists"), http.StatusConflict, "User with this email already exists"},
		{ErrUnauthorized, http.StatusUnauthorized, "Authentication required"},
		{NewError(ErrForbidden, ""), http.StatusForbidden, "Insufficient permissions"},
		{NewError(ErrNotFound, "Report not found"), http.StatusNotFound, "Report not found"},
		{errors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, nil, tc.err)
		assert.Equal(t, tc.status, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.False(t, env.Success)
		assert.Equal(t, tc.msg, env.Message)
	}
}

func TestRespondErrorDoesNotLeakInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, nil, errors.New("pq: password authentication failed for user dashboard"))
	assert.NotContains(t, rr.Body.String(), "password authentication")
}

type registerBody struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,nodoubledot,email"`
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := NewValidator()
	err := Validate(v, registerBody{Name: "J", Email: "john..doe@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var httpErr *Error
	require.True(t, errors.As(err, &httpErr))
	fields := map[string]string{}
	for _, f := range httpErr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "name must be at least 2 characters", fields["name"])
	assert.Equal(t, "email cannot contain consecutive dots", fields["email"])

	assert.NoError(t, Validate(v, registerBody{Name: "John", Email: "john@example.com"}))
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var target map[string]any
	assert.ErrorIs(t, DecodeJSON(req, &target), ErrEmptyBody)
}

func TestDecodeJSONRejectsOversizedBody(t *testing.T) {
	payload := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	var target map[string]any
	err := DecodeJSON(req, &target)
	require.ErrorIs(t, err, ErrBodyTooLarge)

	var httpErr *Error
	require.True(t, errors.As(InvalidInput(err), &httpErr))
	assert.Equal(t, "Request body is too large", httpErr.Fields[0].Message)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "ok", target["name"])
}
