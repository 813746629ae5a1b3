package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibook/internal/models"
)

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, IsStrongPassword("Str0ng!Pw"))
	assert.False(t, IsStrongPassword("weak"))
	assert.False(t, IsStrongPassword("alllowercase1!"))
	assert.False(t, IsStrongPassword("NoDigits!!"))
	assert.False(t, IsStrongPassword("NoSymbols123"))
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"email":"alice@example.com","otp":"123456","password":"Str0ng!Pw","confirmPassword":"Other!Pw1","role":"patient"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()

	var req models.ResetPasswordRequest
	err := DecodeAndValidate(w, r, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmPassword does not match")
}

func TestDecodeAndValidateRejectsGarbage(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	var req models.Login
	assert.EqualError(t, DecodeAndValidate(w, r, &req), "invalid request body")
}

func TestRegisterRequestDoctorFields(t *testing.T) {
	req := models.RegisterRequest{Name: "Dr Who", Email: "who@example.com", Password: "Str0ng!Pw", Role: "doctor"}
	err := ValidateStruct(&req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "specialization is required")

	req.Specialization = "Cardiology"
	req.LicenseNumber = "LIC-1"
	assert.NoError(t, ValidateStruct(&req))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:4321"
	assert.Equal(t, "10.0.0.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(r))
}

func TestParseDeviceInfoFromRequestUtils(t *testing.T) {
	info := ParseDeviceInfo("Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1")
	assert.Equal(t, "Mobile", info.Device)
	assert.Contains(t, info.Browser, "Safari")

	assert.Equal(t, "Unknown", ParseDeviceInfo("").Browser)
}
