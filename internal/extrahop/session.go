package extrahop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultProxyURL is the public forwarding proxy deployed alongside the hosted console
const DefaultProxyURL = "https://mdpg23urni.execute-api.us-east-2.amazonaws.com/default/extrahop-api-wrapper-proxy"

const (
	oauthTokenEndpoint = "/oauth2/token"

	// probeEndpoint is a cheap, always-available endpoint used to validate credentials
	probeEndpoint = "/extrahop"

	// defaultPageDelay paces paginated batch loads so they do not hammer the API
	defaultPageDelay = 100 * time.Millisecond
)

// Session is an authenticated connection to one deployment.
// It exclusively owns the access token (360 only; Enterprise sessions authenticate
// every request with the static key) and replaces it in place on refresh. Two
// concurrent requests observing an expired token may both trigger a refresh; the
// re-authentication is idempotent, so this race is benign.
type Session struct {
	config   Config
	strategy Strategy
	proxyURL string
	client   *http.Client

	mtx         sync.RWMutex
	accessToken string

	connectedAt time.Time
	pageDelay   time.Duration
}

// Option customizes a session before it authenticates
type Option func(*Session)

// WithHTTPClient replaces the HTTP client used for all outbound calls
func WithHTTPClient(client *http.Client) Option {
	return func(session *Session) {
		session.client = client
	}
}

// WithProxyURL replaces the forwarding proxy URL
func WithProxyURL(url string) Option {
	return func(session *Session) {
		session.proxyURL = url
	}
}

// WithPageDelay overrides the fixed delay between paginated batch requests
func WithPageDelay(delay time.Duration) Option {
	return func(session *Session) {
		session.pageDelay = delay
	}
}

func newSession(config Config, opts ...Option) *Session {
	session := &Session{
		config:    config.Normalized(),
		proxyURL:  DefaultProxyURL,
		client:    &http.Client{},
		pageDelay: defaultPageDelay,
	}
	for _, opt := range opts {
		opt(session)
	}
	session.strategy = newStrategy(session.config, session.proxyURL, session.client)
	return session
}

// Connect validates the given configuration, authenticates against the deployment
// and returns a ready-to-use session.
// 360 deployments perform an OAuth2 client-credentials exchange (directly or through
// the forwarding proxy); Enterprise deployments validate the API key with a single
// probe call instead.
func Connect(ctx context.Context, config Config, opts ...Option) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	session := newSession(config, opts...)
	if err := session.authenticate(ctx); err != nil {
		return nil, err
	}
	session.connectedAt = time.Now()
	return session, nil
}

// Restore rebuilds a session from a previously stored configuration and access token
// without re-prompting for credentials. The stored token is validated with a probe
// call; if that fails, an AuthError is returned and the caller must discard the
// stored state.
func Restore(ctx context.Context, config Config, accessToken string, opts ...Option) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	session := newSession(config, opts...)
	session.accessToken = accessToken

	if _, err := session.Do(ctx, http.MethodGet, probeEndpoint, nil); err != nil {
		return nil, &AuthError{Reason: fmt.Sprintf("session expired: %v", err)}
	}
	session.connectedAt = time.Now()
	return session, nil
}

// Config returns the session's deployment configuration
func (session *Session) Config() Config {
	return session.config
}

// ConnectedAt returns the time the session authenticated successfully
func (session *Session) ConnectedAt() time.Time {
	return session.connectedAt
}

// AccessToken returns the current access token.
// It is empty for Enterprise sessions.
func (session *Session) AccessToken() string {
	session.mtx.RLock()
	defer session.mtx.RUnlock()
	return session.accessToken
}

func (session *Session) setAccessToken(token string) {
	session.mtx.Lock()
	defer session.mtx.Unlock()
	session.accessToken = token
}

// Refresh re-runs the token exchange with the stored configuration and replaces the
// access token in place. Requests already in flight keep using the token they
// started with. Enterprise sessions have no refresh concept; calling Refresh on one
// is a no-op.
func (session *Session) Refresh(ctx context.Context) error {
	if session.config.Type != Deployment360 {
		return nil
	}
	return session.authenticate(ctx)
}

// Disconnect drops the in-memory access token. It is idempotent; clearing any
// durable session state is the responsibility of the owning store.
func (session *Session) Disconnect() {
	session.setAccessToken("")
}

func (session *Session) authenticate(ctx context.Context) error {
	switch {
	case session.config.Type == Deployment360 && session.config.UseProxy:
		return session.authenticateViaProxy(ctx)
	case session.config.Type == Deployment360:
		return session.authenticateDirect(ctx)
	default:
		return session.authenticateAppliance(ctx)
	}
}

// authenticateViaProxy performs the client-credentials exchange through the
// forwarding proxy: a single POST of an envelope addressing the OAuth token
// endpoint, carrying the API ID and secret instead of an access token.
func (session *Session) authenticateViaProxy(ctx context.Context) error {
	envelope := &proxyEnvelope{
		DeploymentType: Deployment360,
		Tenant:         session.config.Tenant,
		APIID:          session.config.APIID,
		APISecret:      session.config.APISecret,
		Method:         http.MethodPost,
		Endpoint:       oauthTokenEndpoint,
	}
	envelopeJSON, _ := json.Marshal(envelope)

	diagnostic := &Diagnostic{
		URL:     session.proxyURL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    string(envelopeJSON),
	}

	response, err := postEnvelope(ctx, session.client, session.proxyURL, envelope)
	if err != nil {
		diagnostic.Status = "Network Error"
		diagnostic.Response = err.Error()
		return &AuthError{
			Reason:     fmt.Sprintf("network error: %v; check the proxy URL %s", err, session.proxyURL),
			Diagnostic: diagnostic,
		}
	}
	defer response.Body.Close()
	body, _ := io.ReadAll(response.Body)
	diagnostic.Status = response.Status
	diagnostic.Response = string(body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &AuthError{
			Reason:     "authentication failed: " + authFailureReason(response.StatusCode, extractErrorMessage(body, response.Status), Deployment360),
			Status:     response.StatusCode,
			Diagnostic: diagnostic,
		}
	}

	token, err := parseAccessToken(body)
	if err != nil {
		return &AuthError{Reason: err.Error(), Status: response.StatusCode, Diagnostic: diagnostic}
	}
	session.setAccessToken(token)
	return nil
}

// authenticateDirect performs the client-credentials exchange against the tenant's
// own OAuth endpoint with a form-encoded grant. The forwarding proxy is never
// contacted on this path.
func (session *Session) authenticateDirect(ctx context.Context) error {
	tokenURL := "https://" + session.config.Tenant + cloudDomain + oauthTokenEndpoint
	exchange := &clientcredentials.Config{
		ClientID:     session.config.APIID,
		ClientSecret: session.config.APISecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	token, err := exchange.Token(context.WithValue(ctx, oauth2.HTTPClient, session.client))
	if err != nil {
		diagnostic := &Diagnostic{
			URL:     tokenURL,
			Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
			Body:    "grant_type=client_credentials",
		}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			diagnostic.Status = retrieveErr.Response.Status
			diagnostic.Response = string(retrieveErr.Body)
			return &AuthError{
				Reason:     "authentication failed: " + authFailureReason(retrieveErr.Response.StatusCode, extractErrorMessage(retrieveErr.Body, retrieveErr.Response.Status), Deployment360),
				Status:     retrieveErr.Response.StatusCode,
				Diagnostic: diagnostic,
			}
		}
		diagnostic.Status = "Network Error"
		diagnostic.Response = err.Error()
		return &AuthError{
			Reason:     fmt.Sprintf("direct 360 authentication failed: %v; ensure CORS is configured on the tenant", err),
			Diagnostic: diagnostic,
		}
	}

	session.setAccessToken(token.AccessToken)
	return nil
}

// authenticateAppliance validates the static API key with a single authenticated
// probe call. There is no token exchange; the key itself is the per-request
// credential.
func (session *Session) authenticateAppliance(ctx context.Context) error {
	endpoint := apiPrefix + probeEndpoint
	url := "https://" + session.config.Host + endpoint

	_, err := session.strategy.Send(ctx, session.credentials(), http.MethodGet, endpoint, nil)
	if err == nil {
		return nil
	}

	diagnostic := &Diagnostic{
		URL:     url,
		Headers: map[string]string{"Authorization": "ExtraHop apikey=***", "Accept": "application/json"},
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		diagnostic.Status = fmt.Sprintf("%d %s", apiErr.Status, http.StatusText(apiErr.Status))
		diagnostic.Response = apiErr.RawBody
		return &AuthError{
			Reason:     "authentication failed: " + authFailureReason(apiErr.Status, apiErr.Message, DeploymentEnterprise),
			Status:     apiErr.Status,
			Diagnostic: diagnostic,
		}
	}
	diagnostic.Status = "Network Error"
	diagnostic.Response = err.Error()
	return &AuthError{
		Reason:     fmt.Sprintf("network error: %v; this is usually a connectivity or CORS problem with the appliance", err),
		Diagnostic: diagnostic,
	}
}

func parseAccessToken(body []byte) (string, error) {
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.AccessToken == "" {
		return "", errors.New("authentication succeeded but the response carried no access_token")
	}
	return payload.AccessToken, nil
}
