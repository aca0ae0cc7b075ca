package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{name: "valid values", page: 2, limit: 30, wantPage: 2, wantLimit: 30},
		{name: "zero page defaults", page: 0, limit: 30, wantPage: DefaultPage, wantLimit: 30},
		{name: "negative limit defaults", page: 1, limit: -5, wantPage: 1, wantLimit: DefaultLimit},
		{name: "limit capped", page: 1, limit: 1000, wantPage: 1, wantLimit: MaxLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
		})
	}
}

func TestPage_Offset(t *testing.T) {
	assert.Equal(t, 0, NewPage(1, 20).Offset())
	assert.Equal(t, 40, NewPage(3, 20).Offset())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(21, 20))
	assert.Equal(t, 0, TotalPages(10, 0))
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Generate(42, "owner@example.com")
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "owner@example.com", claims.Email)
}

func TestTokenIssuer_RejectsForeignSecret(t *testing.T) {
	token, err := NewTokenIssuer("one", time.Hour).Generate(1, "a@b.c")
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", -time.Minute)
	token, err := issuer.Generate(1, "a@b.c")
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestWebhookSignature(t *testing.T) {
	payload := []byte(`{"event":"payment.successful"}`)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	header := SignWebhook(payload, "secret", at)

	assert.True(t, strings.HasPrefix(header, fmt.Sprintf("t=%d,v1=", at.Unix())))
	assert.NoError(t, VerifyWebhook(payload, header, "secret", 5*time.Minute, at.Add(time.Minute)))
	assert.NoError(t, VerifyWebhook(payload, header, "secret", 0, at.Add(24*time.Hour)))

	tests := []struct {
		name    string
		payload []byte
		header  string
		secret  string
		now     time.Time
	}{
		{"wrong secret", payload, header, "other", at},
		{"tampered payload", []byte(`{"event":"invoice.paid"}`), header, "secret", at},
		{"expired", payload, header, "secret", at.Add(10 * time.Minute)},
		{"malformed", payload, "sha256=abc", "secret", at},
		{"bad timestamp", payload, "t=x,v1=abc", "secret", at},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyWebhook(tt.payload, tt.header, tt.secret, 5*time.Minute, tt.now)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestGenerateWebhookSecret(t *testing.T) {
	a, err := GenerateWebhookSecret()
	require.NoError(t, err)
	b, err := GenerateWebhookSecret()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "gd_secret_"))
	assert.NotEqual(t, a, b)
}

type signupForm struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=2"`
}

func TestValidateStruct(t *testing.T) {
	err := ValidateStruct(signupForm{Email: "nope", Name: "A"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "email must be a valid email address")
	assert.Contains(t, err.Error(), "name must be at least 2")

	assert.NoError(t, ValidateStruct(signupForm{Email: "a@b.co", Name: "Ada"}))
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err      error
		status   int
		wantCode string
	}{
		{err: fmt.Errorf("customer 9: %w", ErrNotFound), status: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{err: fmt.Errorf("email taken: %w", ErrDuplicate), status: http.StatusConflict, wantCode: "DUPLICATE"},
		{err: fmt.Errorf("bad: %w", ErrInvalidInput), status: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{err: ErrForbidden, status: http.StatusForbidden, wantCode: "FORBIDDEN"},
		{err: fmt.Errorf("boom"), status: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Set("request_id", "abc12345")

			RespondError(c, tt.err, "Failed")

			assert.Equal(t, tt.status, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "abc12345", resp.Meta.RequestID)
		})
	}
}
