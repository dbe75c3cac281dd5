package extrahop

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func config360Proxy() Config {
	return Config{Type: Deployment360, Tenant: "acme", APIID: "id", APISecret: "secret", UseProxy: true}
}

func config360Direct() Config {
	return Config{Type: Deployment360, Tenant: "acme", APIID: "id", APISecret: "secret"}
}

func configEnterprise() Config {
	return Config{Type: DeploymentEnterprise, Host: "eda.example.com", APIKey: "key"}
}

func TestConnectValidatesBeforeDialing(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		requests++
	}))
	defer server.Close()

	_, err := Connect(context.Background(), Config{Type: Deployment360}, WithProxyURL(server.URL), WithHTTPClient(server.Client()))

	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, []string{"tenant", "api_id", "api_secret"}, configErr.Missing)
	assert.Zero(t, requests)
}

func TestConnect360ViaProxy(t *testing.T) {
	var envelopes []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var envelope map[string]any
		json.NewDecoder(request.Body).Decode(&envelope)
		envelopes = append(envelopes, envelope)
		writer.Write([]byte(`{"access_token":"tok"}`))
	}))
	defer server.Close()

	session, err := Connect(context.Background(), config360Proxy(), WithProxyURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)
	assert.Equal(t, "tok", session.AccessToken())

	// A single envelope addressing the token endpoint, carrying the API
	// credentials but no access token
	require.Len(t, envelopes, 1)
	assert.Equal(t, "/oauth2/token", envelopes[0]["endpoint"])
	assert.Equal(t, http.MethodPost, envelopes[0]["method"])
	assert.Equal(t, "id", envelopes[0]["apiId"])
	assert.Equal(t, "secret", envelopes[0]["apiSecret"])
	assert.NotContains(t, envelopes[0], "accessToken")
}

func TestConnect360ViaProxyAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
		writer.Write([]byte(`{"error_message":"bad credentials"}`))
	}))
	defer server.Close()

	_, err := Connect(context.Background(), config360Proxy(), WithProxyURL(server.URL), WithHTTPClient(server.Client()))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Contains(t, authErr.Reason, "invalid API ID or secret")
	require.NotNil(t, authErr.Diagnostic)
	assert.Equal(t, server.URL, authErr.Diagnostic.URL)
	assert.Contains(t, authErr.Diagnostic.Response, "bad credentials")
}

func TestConnect360ViaProxyNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := server.Client()
	url := server.URL
	server.Close()

	_, err := Connect(context.Background(), config360Proxy(), WithProxyURL(url), WithHTTPClient(client))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, authErr.Status)
	require.NotNil(t, authErr.Diagnostic)
	assert.Equal(t, "Network Error", authErr.Diagnostic.Status)
}

func TestConnect360Direct(t *testing.T) {
	var gotPath string
	var gotGrant, gotClientID, gotClientSecret string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		gotPath = request.URL.Path
		request.ParseForm()
		gotGrant = request.Form.Get("grant_type")
		gotClientID = request.Form.Get("client_id")
		gotClientSecret = request.Form.Get("client_secret")
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"access_token":"tok","token_type":"Bearer"}`))
	}))
	defer server.Close()

	session, err := Connect(context.Background(), config360Direct(), WithHTTPClient(rewriteClient(server)))
	require.NoError(t, err)
	assert.Equal(t, "tok", session.AccessToken())

	// Form-encoded client-credentials grant against the tenant itself
	assert.Equal(t, "/oauth2/token", gotPath)
	assert.Equal(t, "client_credentials", gotGrant)
	assert.Equal(t, "id", gotClientID)
	assert.Equal(t, "secret", gotClientSecret)
}

func TestConnect360DirectAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
		writer.Write([]byte(`{"error_message":"nope"}`))
	}))
	defer server.Close()

	_, err := Connect(context.Background(), config360Direct(), WithHTTPClient(rewriteClient(server)))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Contains(t, authErr.Reason, "invalid API ID or secret")
}

func TestConnectEnterprise(t *testing.T) {
	var gotAuth, gotPath string
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requests++
		gotAuth = request.Header.Get("Authorization")
		gotPath = request.URL.Path
		writer.Write([]byte(`{"platform":"extrahop"}`))
	}))
	defer server.Close()

	session, err := Connect(context.Background(), configEnterprise(), WithHTTPClient(rewriteClient(server)))
	require.NoError(t, err)

	// A single authenticated probe, no token exchange
	assert.Equal(t, 1, requests)
	assert.Equal(t, "ExtraHop apikey=key", gotAuth)
	assert.Equal(t, "/api/v1/extrahop", gotPath)
	assert.Empty(t, session.AccessToken())
}

func TestConnectEnterpriseInvalidKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := Connect(context.Background(), configEnterprise(), WithHTTPClient(rewriteClient(server)))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Contains(t, authErr.Reason, "invalid API key")
	// The diagnostic never leaks the key
	require.NotNil(t, authErr.Diagnostic)
	assert.Equal(t, "ExtraHop apikey=***", authErr.Diagnostic.Headers["Authorization"])
}

func TestAuthFailureReasonClassification(t *testing.T) {
	tests := []struct {
		status     int
		deployment DeploymentType
		contains   string
	}{
		{http.StatusUnauthorized, Deployment360, "invalid API ID or secret"},
		{http.StatusUnauthorized, DeploymentEnterprise, "invalid API key"},
		{http.StatusForbidden, Deployment360, "forbidden"},
		{http.StatusNotFound, Deployment360, "tenant"},
		{http.StatusNotFound, DeploymentEnterprise, "hostname"},
		{http.StatusBadRequest, Deployment360, "bad request"},
		{http.StatusTeapot, Deployment360, "418"},
	}
	for _, test := range tests {
		assert.Contains(t, authFailureReason(test.status, "", test.deployment), test.contains)
	}
}

func TestRestore(t *testing.T) {
	var envelopes []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var envelope map[string]any
		json.NewDecoder(request.Body).Decode(&envelope)
		envelopes = append(envelopes, envelope)
		writer.Write([]byte(`{}`))
	}))
	defer server.Close()

	session, err := Restore(context.Background(), config360Proxy(), "stored-tok", WithProxyURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)
	assert.Equal(t, "stored-tok", session.AccessToken())

	// The stored token is validated with a probe, without a token exchange
	require.Len(t, envelopes, 1)
	assert.Equal(t, "/api/v1/extrahop", envelopes[0]["endpoint"])
	assert.Equal(t, "stored-tok", envelopes[0]["accessToken"])
	assert.NotContains(t, envelopes[0], "apiSecret")
}

func TestRestoreRejectsDeadToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var envelope map[string]any
		json.NewDecoder(request.Body).Decode(&envelope)
		if envelope["endpoint"] == "/oauth2/token" {
			// Restore must never fall back to a fresh token exchange
			t.Error("restore attempted a token exchange")
		}
		writer.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := Restore(context.Background(), configEnterprise(), "", WithProxyURL(server.URL), WithHTTPClient(rewriteClient(server)))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "session expired")
}

func TestDisconnectDropsToken(t *testing.T) {
	session := newSession(config360Proxy())
	session.setAccessToken("tok")
	session.Disconnect()
	assert.Empty(t, session.AccessToken())
	session.Disconnect()
}

func TestRefreshIsNoopForEnterprise(t *testing.T) {
	session := newSession(configEnterprise())
	require.NoError(t, session.Refresh(context.Background()))
}
