package extrahop

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// rewriteTransport redirects every outbound request to a local test server,
// regardless of the host the code under test dials. This keeps the hardcoded
// cloud and appliance hostnames out of the tests.
type rewriteTransport struct {
	target *httptest.Server
}

func (transport *rewriteTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	clone := request.Clone(request.Context())
	clone.URL.Scheme = "http"
	clone.URL.Host = transport.target.Listener.Addr().String()
	return http.DefaultTransport.RoundTrip(clone)
}

func rewriteClient(target *httptest.Server) *http.Client {
	return &http.Client{Transport: &rewriteTransport{target: target}}
}

func requireDecode(t *testing.T, request *http.Request, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(request.Body).Decode(target))
}
