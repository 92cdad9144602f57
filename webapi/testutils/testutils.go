// Package testutils holds helpers for the HTTP handler tests.
package testutils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/finplan/pkg/config"
	"github.com/amirasaad/finplan/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Jwt is the signing configuration used by handler tests.
var Jwt = &config.Jwt{Secret: "finplan-test-secret", Expiry: time.Hour, UserClaim: "user_id"}

// Token signs a token for userID with the test secret.
func Token(t testing.TB, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		Jwt.UserClaim: userID.String(),
		"exp":         time.Now().Add(Jwt.Expiry).Unix(),
	}).SignedString([]byte(Jwt.Secret))
	require.NoError(t, err)
	return token
}

// MakeRequestWithApp is a helper for making HTTP requests against app.
func MakeRequestWithApp(app *fiber.App, method, path, body, token string) *http.Response {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		panic(err) // For standalone tests, panic on error
	}
	return resp
}

// Decode reads the success envelope and unmarshals its data into out.
func Decode(t testing.TB, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close() //nolint: errcheck
	var envelope struct {
		common.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
}

// Problem reads an RFC 9457 error body.
func Problem(t testing.TB, resp *http.Response) common.ProblemDetails {
	t.Helper()
	defer resp.Body.Close() //nolint: errcheck
	var pd common.ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	return pd
}
