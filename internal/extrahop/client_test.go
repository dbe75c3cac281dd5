package extrahop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// token360Backend fakes the forwarding proxy of a 360 deployment. Every token
// exchange hands out a new, numbered token; data calls are delegated to serve.
type token360Backend struct {
	tokenExchanges int
	dataCalls      int
	serve          func(writer http.ResponseWriter, envelope map[string]any)
}

func (backend *token360Backend) handler() http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		var envelope map[string]any
		json.NewDecoder(request.Body).Decode(&envelope)
		if envelope["endpoint"] == "/oauth2/token" {
			backend.tokenExchanges++
			fmt.Fprintf(writer, `{"access_token":"tok%d"}`, backend.tokenExchanges)
			return
		}
		backend.dataCalls++
		backend.serve(writer, envelope)
	}
}

func TestDoRefreshesOnceOn401(t *testing.T) {
	backend := &token360Backend{}
	backend.serve = func(writer http.ResponseWriter, envelope map[string]any) {
		// The initial token is rejected once, the refreshed one is accepted
		if envelope["accessToken"] == "tok1" {
			writer.WriteHeader(http.StatusUnauthorized)
			writer.Write([]byte(`{"error_message":"token expired"}`))
			return
		}
		writer.Write([]byte(`{"ok":true}`))
	}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	session, err := Connect(context.Background(), config360Proxy(), WithProxyURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	result, err := session.Do(context.Background(), http.MethodGet, "/dashboards", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result))

	// Exactly one refresh and one replay happened
	assert.Equal(t, 2, backend.tokenExchanges)
	assert.Equal(t, 2, backend.dataCalls)
	assert.Equal(t, "tok2", session.AccessToken())
}

func TestDoReplayFailurePropagates(t *testing.T) {
	backend := &token360Backend{}
	backend.serve = func(writer http.ResponseWriter, _ map[string]any) {
		// Even fresh tokens are rejected; the replay must not trigger another refresh
		writer.WriteHeader(http.StatusUnauthorized)
		writer.Write([]byte(`{"error_message":"still expired"}`))
	}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	session, err := Connect(context.Background(), config360Proxy(), WithProxyURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = session.Do(context.Background(), http.MethodGet, "/dashboards", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "still expired", apiErr.Message)
	assert.Equal(t, 2, backend.tokenExchanges)
	assert.Equal(t, 2, backend.dataCalls)
}

func TestDoRefreshFailurePropagates(t *testing.T) {
	firstExchange := true
	dataCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var envelope map[string]any
		json.NewDecoder(request.Body).Decode(&envelope)
		if envelope["endpoint"] == "/oauth2/token" {
			if firstExchange {
				firstExchange = false
				writer.Write([]byte(`{"access_token":"tok"}`))
				return
			}
			// The credentials have been revoked since connecting
			writer.WriteHeader(http.StatusUnauthorized)
			return
		}
		dataCalls++
		writer.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	session, err := Connect(context.Background(), config360Proxy(), WithProxyURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = session.Do(context.Background(), http.MethodGet, "/dashboards", nil)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	// The identical request was not replayed with a dead token
	assert.Equal(t, 1, dataCalls)
}

func TestDoNoRefreshForEnterprise(t *testing.T) {
	dataCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/api/v1/extrahop" {
			writer.Write([]byte(`{}`))
			return
		}
		dataCalls++
		writer.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	session, err := Connect(context.Background(), configEnterprise(), WithHTTPClient(rewriteClient(server)))
	require.NoError(t, err)

	_, err = session.Do(context.Background(), http.MethodGet, "/dashboards", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, 1, dataCalls)
}

func TestDoPrefixesEndpoint(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		gotPath = request.URL.Path
		writer.Write([]byte(`{}`))
	}))
	defer server.Close()

	session, err := Connect(context.Background(), configEnterprise(), WithHTTPClient(rewriteClient(server)))
	require.NoError(t, err)

	_, err = session.Do(context.Background(), http.MethodGet, "/dashboards", nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/dashboards", gotPath)
}
