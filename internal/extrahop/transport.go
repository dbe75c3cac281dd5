package extrahop

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const (
	// cloudDomain is the domain suffix every 360 tenant is reachable under
	cloudDomain = ".api.cloud.extrahop.com"

	// apiPrefix is the version segment every non-OAuth endpoint is prefixed with
	apiPrefix = "/api/v1"
)

// Credentials carries the per-request authentication material.
// Which field is populated depends on the deployment type; the strategies
// themselves hold no credential state.
type Credentials struct {
	AccessToken string
	APIKey      string
}

// Strategy performs a single vendor API call over one physical path.
// Implementations normalize every response into either a raw JSON body (2xx),
// an *APIError (non-2xx) or a *NetworkError (transport failure).
type Strategy interface {
	Send(ctx context.Context, creds Credentials, method, endpoint string, body []byte) (json.RawMessage, error)
}

// newStrategy resolves the physical path implied by the given configuration once.
// All later calls stay path-agnostic.
func newStrategy(config Config, proxyURL string, client *http.Client) Strategy {
	switch {
	case config.Type == Deployment360 && config.UseProxy:
		return &proxyStrategy{url: proxyURL, deployment: Deployment360, tenant: config.Tenant, client: client}
	case config.Type == Deployment360:
		return &cloudDirectStrategy{tenant: config.Tenant, client: client}
	default:
		return &applianceStrategy{host: config.Host, client: client}
	}
}

// cloudDirectStrategy calls the tenant's cloud API directly with a bearer token
type cloudDirectStrategy struct {
	tenant string
	client *http.Client
}

func (strategy *cloudDirectStrategy) Send(ctx context.Context, creds Credentials, method, endpoint string, body []byte) (json.RawMessage, error) {
	url := "https://" + strategy.tenant + cloudDomain + endpoint
	request, err := newJSONRequest(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	response, err := strategy.client.Do(request)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	return normalizeResponse(response)
}

// applianceStrategy calls an on-premises appliance directly with its static API key
type applianceStrategy struct {
	host   string
	client *http.Client
}

func (strategy *applianceStrategy) Send(ctx context.Context, creds Credentials, method, endpoint string, body []byte) (json.RawMessage, error) {
	url := "https://" + strategy.host + endpoint
	request, err := newJSONRequest(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Authorization", "ExtraHop apikey="+creds.APIKey)

	response, err := strategy.client.Do(request)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	return normalizeResponse(response)
}

// proxyEnvelope is the wire format of the stateless forwarding proxy.
// The envelope is always POSTed to the proxy URL; the Method field carries the
// real verb of the wrapped call. It is built per request and never persisted.
type proxyEnvelope struct {
	DeploymentType DeploymentType  `json:"deploymentType"`
	Tenant         string          `json:"tenant,omitempty"`
	Host           string          `json:"host,omitempty"`
	AccessToken    string          `json:"accessToken,omitempty"`
	APIID          string          `json:"apiId,omitempty"`
	APISecret      string          `json:"apiSecret,omitempty"`
	APIKey         string          `json:"apiKey,omitempty"`
	Method         string          `json:"method"`
	Endpoint       string          `json:"endpoint"`
	RequestBody    json.RawMessage `json:"requestBody,omitempty"`
}

// proxyStrategy wraps every call into a proxyEnvelope and posts it to the forwarding proxy
type proxyStrategy struct {
	url        string
	deployment DeploymentType
	tenant     string
	client     *http.Client
}

func (strategy *proxyStrategy) Send(ctx context.Context, creds Credentials, method, endpoint string, body []byte) (json.RawMessage, error) {
	envelope := &proxyEnvelope{
		DeploymentType: strategy.deployment,
		Tenant:         strategy.tenant,
		AccessToken:    creds.AccessToken,
		Method:         method,
		Endpoint:       endpoint,
		RequestBody:    body,
	}
	response, err := postEnvelope(ctx, strategy.client, strategy.url, envelope)
	if err != nil {
		return nil, err
	}
	return normalizeResponse(response)
}

// postEnvelope marshals the given envelope and posts it to the proxy URL.
// Failures of the proxy transport itself surface as *NetworkError; upstream API
// failures arrive as regular non-2xx responses relayed by the proxy.
func postEnvelope(ctx context.Context, client *http.Client, url string, envelope *proxyEnvelope) (*http.Response, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	request, err := newJSONRequest(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, err
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	return response, nil
}

func newJSONRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	return request, nil
}

var emptyObject = json.RawMessage("{}")

// normalizeResponse maps every physical path's response onto one contract:
// any 2xx with no payload (204 included) yields an empty object, any other 2xx
// yields the raw body, and any non-2xx yields an *APIError with the vendor
// error message extracted on a best-effort basis.
func normalizeResponse(response *http.Response) (json.RawMessage, error) {
	defer response.Body.Close()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &NetworkError{URL: response.Request.URL.String(), Err: err}
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		if response.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
			return emptyObject, nil
		}
		return data, nil
	}

	return nil, &APIError{
		Status:  response.StatusCode,
		Message: extractErrorMessage(data, response.Status),
		RawBody: string(data),
	}
}

// extractErrorMessage pulls the vendor's error_message field out of a JSON error
// body, falling back to the raw text or the HTTP status line
func extractErrorMessage(body []byte, statusLine string) string {
	var payload struct {
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.ErrorMessage != "" {
		return payload.ErrorMessage
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return statusLine
}
