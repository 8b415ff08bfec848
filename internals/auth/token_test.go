package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/tenant-123/oauth2/v2.0/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-abc", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "https://management.azure.com/.default", r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-xyz","token_type":"Bearer","expires_in":3599}`))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	token, err := client.AcquireToken(context.Background(), server.URL, "tenant-123", "client-abc", "s3cret", "https://management.azure.com/.default")
	require.NoError(t, err)
	assert.Equal(t, "tok-xyz", token)
}

func TestAcquireTokenNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	token, err := client.AcquireToken(context.Background(), server.URL, "tenant-123", "client-abc", "s3cret", "scope")
	require.Error(t, err)
	assert.Empty(t, token)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Contains(t, authErr.Detail, "invalid_client")
	assert.NotContains(t, err.Error(), "s3cret")
}

func TestAcquireTokenTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	client := NewClient(1 * time.Second)
	_, err := client.AcquireToken(context.Background(), server.URL, "tenant-123", "client-abc", "s3cret", "scope")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, authErr.StatusCode)
}

func TestAcquireTokenMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	_, err := client.AcquireToken(context.Background(), server.URL, "tenant-123", "client-abc", "s3cret", "scope")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Detail, "access_token")
}
