package console

import (
	"net/http"
	"time"

	"github.com/revealx-tools/console/internal/api/schema"
	"github.com/revealx-tools/console/internal/extrahop"
	"github.com/revealx-tools/console/internal/session"
	"github.com/rs/zerolog/log"
)

// sessionView is the redacted session representation handed out to clients.
// Secrets (API secret, API key, vendor access token) never leave the server.
type sessionView struct {
	DeploymentType extrahop.DeploymentType `json:"deployment_type"`
	Tenant         string                  `json:"tenant,omitempty"`
	APIID          string                  `json:"api_id,omitempty"`
	UseProxy       bool                    `json:"use_proxy,omitempty"`
	Host           string                  `json:"host,omitempty"`
	ConnectedAt    int64                   `json:"connected_at"`
	Expires        int64                   `json:"expires,omitempty"`
}

func buildSessionView(config extrahop.Config, connectedAt, expires int64) *sessionView {
	return &sessionView{
		DeploymentType: config.Type,
		Tenant:         config.Tenant,
		APIID:          config.APIID,
		UseProxy:       config.UseProxy,
		Host:           config.Host,
		ConnectedAt:    connectedAt,
		Expires:        expires,
	}
}

type endpointCreateSessionRequestPayload struct {
	DeploymentType *string `json:"deployment_type" required:"true"`
	Tenant         string  `json:"tenant"`
	APIID          string  `json:"api_id"`
	APISecret      string  `json:"api_secret"`
	UseProxy       *bool   `json:"use_proxy"`
	Host           string  `json:"host"`
	APIKey         string  `json:"api_key"`
}

// EndpointCreateSession handles the 'POST /v1/session' endpoint.
// It authenticates against the configured deployment and hands out a console
// session token on success.
func (service *Service) EndpointCreateSession(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointCreateSessionRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	// RevealX 360 tenants go through the forwarding proxy unless explicitly disabled
	useProxy := true
	if payload.UseProxy != nil {
		useProxy = *payload.UseProxy
	}
	config := extrahop.Config{
		Type:      extrahop.DeploymentType(*payload.DeploymentType),
		Tenant:    payload.Tenant,
		APIID:     payload.APIID,
		APISecret: payload.APISecret,
		UseProxy:  useProxy,
		Host:      payload.Host,
		APIKey:    payload.APIKey,
	}

	// Authenticate against the deployment
	live, err := extrahop.Connect(request.Context(), config, service.sessionOptions()...)
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}

	// Persist the session and cache the live vendor session
	connectedAt := live.ConnectedAt().UnixMilli()
	expires := time.Now().Add(service.Config.SessionLifetime).UnixMilli()
	rawToken, stored, err := service.Sessions.Create(request.Context(), live.Config(), live.AccessToken(), connectedAt, expires)
	if err != nil {
		live.Disconnect()
		service.writer.WriteInternalError(writer, err)
		return
	}
	service.live.Set(stored.Token, live)

	log.Debug().Str("deployment_type", string(config.Type)).Msg("console session created")

	service.writer.WriteJSONCode(writer, http.StatusCreated, map[string]interface{}{
		"token":   rawToken,
		"session": buildSessionView(stored.Config, stored.ConnectedAt, stored.Expires),
	})
}

// EndpointGetSession handles the 'GET /v1/session' endpoint.
// Reaching it implies the middleware restored or found a live vendor session.
func (service *Service) EndpointGetSession(writer http.ResponseWriter, request *http.Request) {
	live, ok := requestSession(request)
	if !ok {
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
		return
	}

	expires := int64(0)
	if stored, err := service.Sessions.GetByRawToken(request.Context(), requestRawToken(request)); err == nil && stored != nil {
		expires = stored.Expires
	}

	service.writer.WriteJSON(writer, buildSessionView(live.Config(), live.ConnectedAt().UnixMilli(), expires))
}

// EndpointDeleteSession handles the 'DELETE /v1/session' endpoint
func (service *Service) EndpointDeleteSession(writer http.ResponseWriter, request *http.Request) {
	live, ok := requestSession(request)
	if !ok {
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
		return
	}

	rawToken := requestRawToken(request)
	live.Disconnect()
	service.live.Unset(session.HashToken(rawToken))
	if err := service.Sessions.TerminateByRawToken(request.Context(), rawToken); err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}
