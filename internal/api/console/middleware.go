package console

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/revealx-tools/console/internal/api/schema"
	"github.com/revealx-tools/console/internal/extrahop"
	"github.com/revealx-tools/console/internal/session"
	"github.com/rs/zerolog/log"
)

type contextValue string

const (
	contextValueSession  contextValue = "session"
	contextValueRawToken contextValue = "raw_token"
)

// MiddlewareVerifySession makes sure that the requesting client has provided a valid
// console session token. It resolves the live vendor session behind it, rebuilding it
// from the durable session storage if it is not cached, and injects it into the
// request context. A session whose vendor access is no longer valid is terminated.
func (service *Service) MiddlewareVerifySession(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		// Try to read the 'Authorization' header and verify it is of type 'Bearer'
		header := request.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer") {
			service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
			return
		}
		rawToken := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))

		// Resolve the live vendor session behind the token
		live, err := service.resolveSession(request.Context(), rawToken)
		if err != nil {
			service.writer.WriteInternalError(writer, err)
			return
		}
		if live == nil {
			service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrSessionExpired)
			return
		}

		// Delegate to the next handler
		ctx := context.WithValue(request.Context(), contextValueSession, live)
		ctx = context.WithValue(ctx, contextValueRawToken, rawToken)
		next(writer, request.WithContext(ctx))

		// Persist the access token if the handler triggered a transparent refresh
		service.syncAccessToken(request.Context(), rawToken, live)
	}
}

// resolveSession looks up the live vendor session for a raw console token.
// Returns (nil, nil) if the token is unknown, expired or its vendor access could
// not be restored.
func (service *Service) resolveSession(ctx context.Context, rawToken string) (*extrahop.Session, error) {
	tokenHash := session.HashToken(rawToken)

	// Fast path: the live session is cached
	if live, ok := service.live.Lookup(tokenHash); ok {
		return live, nil
	}

	// Slow path: rebuild the vendor session from the durable storage
	stored, err := service.Sessions.GetByRawToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Expires <= time.Now().UnixMilli() {
		return nil, nil
	}

	live, err := extrahop.Restore(ctx, stored.Config, stored.AccessToken, service.sessionOptions()...)
	if err != nil {
		// The stored credentials no longer grant access; terminate the session
		// so the client has to connect again.
		log.Debug().Err(err).Msg("stored session could not be restored; terminating it")
		if termErr := service.Sessions.TerminateByRawToken(ctx, rawToken); termErr != nil {
			return nil, termErr
		}
		return nil, nil
	}

	service.live.Set(tokenHash, live)
	return live, nil
}

// syncAccessToken writes a drifted access token back to the durable storage
func (service *Service) syncAccessToken(ctx context.Context, rawToken string, live *extrahop.Session) {
	stored, err := service.Sessions.GetByRawToken(ctx, rawToken)
	if err != nil || stored == nil {
		return
	}
	if current := live.AccessToken(); current != stored.AccessToken {
		if err := service.Sessions.UpdateAccessToken(ctx, rawToken, current); err != nil {
			log.Warn().Err(err).Msg("failed to persist a refreshed access token")
		}
	}
}

// sessionOptions assembles the vendor session options derived from the service configuration
func (service *Service) sessionOptions() []extrahop.Option {
	var opts []extrahop.Option
	if service.Config.ProxyURL != "" {
		opts = append(opts, extrahop.WithProxyURL(service.Config.ProxyURL))
	}
	return opts
}

// requestSession extracts the live vendor session out of the request context
func requestSession(request *http.Request) (*extrahop.Session, bool) {
	live, ok := request.Context().Value(contextValueSession).(*extrahop.Session)
	return live, ok
}

// requestRawToken extracts the raw console token out of the request context
func requestRawToken(request *http.Request) string {
	raw, _ := request.Context().Value(contextValueRawToken).(string)
	return raw
}
