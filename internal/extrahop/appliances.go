package extrahop

import (
	"context"
	"net/http"
)

// Appliance represents a connected appliance (sensor, console or recordstore node)
type Appliance struct {
	ID              int64  `json:"id"`
	UUID            string `json:"uuid,omitempty"`
	DisplayName     string `json:"display_name"`
	Hostname        string `json:"hostname,omitempty"`
	Platform        string `json:"platform,omitempty"`
	LicensePlatform string `json:"license_platform,omitempty"`
	RecordType      string `json:"record_type,omitempty"`
	NodeID          int64  `json:"node_id,omitempty"`
}

// Appliances retrieves all appliances connected to the deployment
func (session *Session) Appliances(ctx context.Context) ([]Appliance, error) {
	return request[[]Appliance](ctx, session, http.MethodGet, "/appliances", nil)
}
