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

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"/dashboards", "/api/v1/dashboards"},
		{"/api/v1/dashboards", "/api/v1/dashboards"},
		{"/oauth2/token", "/oauth2/token"},
		{"/extrahop", "/api/v1/extrahop"},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, normalizeEndpoint(test.endpoint))
	}
}

func TestCloudDirectStrategySend(t *testing.T) {
	var gotAuth string
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		gotAuth = request.Header.Get("Authorization")
		gotPath = request.URL.Path
		writer.Write([]byte(`{"hello":"world"}`))
	}))
	defer server.Close()

	strategy := &cloudDirectStrategy{tenant: "acme", client: rewriteClient(server)}
	result, err := strategy.Send(context.Background(), Credentials{AccessToken: "tok"}, http.MethodGet, "/api/v1/dashboards", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world"}`, string(result))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/v1/dashboards", gotPath)
}

func TestApplianceStrategySend(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		gotAuth = request.Header.Get("Authorization")
		writer.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	strategy := &applianceStrategy{host: "eda.example.com", client: rewriteClient(server)}
	result, err := strategy.Send(context.Background(), Credentials{APIKey: "key"}, http.MethodGet, "/api/v1/extrahop", nil)
	require.NoError(t, err)
	assert.Equal(t, string(emptyObject), string(result))
	assert.Equal(t, "ExtraHop apikey=key", gotAuth)
}

func TestProxyStrategySend(t *testing.T) {
	var gotMethod string
	var gotEnvelope map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		gotMethod = request.Method
		json.NewDecoder(request.Body).Decode(&gotEnvelope)
		writer.Write([]byte(`[1,2,3]`))
	}))
	defer server.Close()

	strategy := &proxyStrategy{url: server.URL, deployment: Deployment360, tenant: "acme", client: server.Client()}
	result, err := strategy.Send(context.Background(), Credentials{AccessToken: "tok"}, http.MethodDelete, "/api/v1/dashboards/4", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(result))

	// The envelope is always POSTed; the real verb travels inside it
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "360", gotEnvelope["deploymentType"])
	assert.Equal(t, "acme", gotEnvelope["tenant"])
	assert.Equal(t, "tok", gotEnvelope["accessToken"])
	assert.Equal(t, http.MethodDelete, gotEnvelope["method"])
	assert.Equal(t, "/api/v1/dashboards/4", gotEnvelope["endpoint"])
	assert.Equal(t, map[string]any{"a": float64(1)}, gotEnvelope["requestBody"])
	assert.NotContains(t, gotEnvelope, "apiId")
	assert.NotContains(t, gotEnvelope, "apiSecret")
	assert.NotContains(t, gotEnvelope, "apiKey")
}

func TestNormalizeResponseOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		want        string
		wantStatus  int
		wantMessage string
	}{
		{name: "200 with body", status: http.StatusOK, body: `{"id":1}`, want: `{"id":1}`},
		{name: "204 no content", status: http.StatusNoContent, want: `{}`},
		{name: "200 empty body", status: http.StatusOK, body: "  ", want: `{}`},
		{
			name:        "error_message extraction",
			status:      http.StatusNotFound,
			body:        `{"error_message":"dashboard not found"}`,
			wantStatus:  http.StatusNotFound,
			wantMessage: "dashboard not found",
		},
		{
			name:        "plain text error body",
			status:      http.StatusBadGateway,
			body:        "upstream exploded",
			wantStatus:  http.StatusBadGateway,
			wantMessage: "upstream exploded",
		},
		{
			name:        "empty error body falls back to status line",
			status:      http.StatusInternalServerError,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "500 Internal Server Error",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(test.status)
				writer.Write([]byte(test.body))
			}))
			defer server.Close()

			strategy := &proxyStrategy{url: server.URL, deployment: Deployment360, tenant: "acme", client: server.Client()}
			result, err := strategy.Send(context.Background(), Credentials{}, http.MethodGet, "/api/v1/extrahop", nil)

			if test.wantStatus == 0 {
				require.NoError(t, err)
				assert.Equal(t, test.want, string(result))
				return
			}
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, test.wantStatus, apiErr.Status)
			assert.Equal(t, test.wantMessage, apiErr.Message)
		})
	}
}

func TestSendNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := server.Client()
	url := server.URL
	server.Close()

	strategy := &proxyStrategy{url: url, deployment: Deployment360, tenant: "acme", client: client}
	_, err := strategy.Send(context.Background(), Credentials{}, http.MethodGet, "/api/v1/extrahop", nil)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, url, netErr.URL)
}
