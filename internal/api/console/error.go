package console

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/revealx-tools/console/internal/api/schema"
	"github.com/revealx-tools/console/internal/extrahop"
)

var (
	errConnectionMissingFields = func(missing []string) *schema.Error {
		return &schema.Error{
			Type:    "connection.config.missingFields",
			Message: "The deployment configuration misses required fields.",
			Details: map[string]interface{}{
				"missing": missing,
			},
		}
	}
	errConnectionAuthFailed = func(authErr *extrahop.AuthError) *schema.Error {
		details := map[string]interface{}{
			"reason": authErr.Reason,
		}
		if authErr.Status != 0 {
			details["upstream_status"] = authErr.Status
		}
		if authErr.Diagnostic != nil {
			details["diagnostic"] = authErr.Diagnostic
		}
		return &schema.Error{
			Type:    "connection.authenticationFailed",
			Message: fmt.Sprintf("Authentication against the deployment failed: %s.", authErr.Reason),
			Details: details,
		}
	}
	errVendorAPI = func(apiErr *extrahop.APIError) *schema.Error {
		return &schema.Error{
			Type:    "vendor.api.error",
			Message: apiErr.Message,
			Details: map[string]interface{}{
				"upstream_status": apiErr.Status,
			},
		}
	}
	errVendorUnreachable = func(netErr *extrahop.NetworkError) *schema.Error {
		return &schema.Error{
			Type:    "vendor.unreachable",
			Message: "The deployment could not be reached.",
			Details: map[string]interface{}{
				"url":   netErr.URL,
				"error": netErr.Err.Error(),
			},
		}
	}
)

// writeVendorError maps an error raised by the vendor API access layer to a unified
// API error response. Unknown error types fall through to an internal error.
func (service *Service) writeVendorError(writer http.ResponseWriter, err error) {
	var (
		configErr *extrahop.ConfigError
		authErr   *extrahop.AuthError
		apiErr    *extrahop.APIError
		netErr    *extrahop.NetworkError
	)
	switch {
	case errors.As(err, &configErr):
		service.writer.WriteErrors(writer, http.StatusBadRequest, errConnectionMissingFields(configErr.Missing))
	case errors.As(err, &authErr):
		service.writer.WriteErrors(writer, http.StatusUnauthorized, errConnectionAuthFailed(authErr))
	case errors.As(err, &apiErr):
		service.writer.WriteErrors(writer, apiErr.Status, errVendorAPI(apiErr))
	case errors.As(err, &netErr):
		service.writer.WriteErrors(writer, http.StatusBadGateway, errVendorUnreachable(netErr))
	default:
		service.writer.WriteInternalError(writer, err)
	}
}
