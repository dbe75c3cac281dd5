package extrahop

import (
	"context"
	"encoding/json"
	"net/http"
)

// defaultDeviceBatchSize is the page size used when collecting all devices
const defaultDeviceBatchSize = 1000

// DeviceSearch is the request document of the '/devices/search' endpoint
type DeviceSearch struct {
	Filter       json.RawMessage `json:"filter,omitempty"`
	ActiveFrom   int64           `json:"active_from,omitempty"`
	ActiveUntil  int64           `json:"active_until,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
	ResultFields []string        `json:"result_fields,omitempty"`
}

// Device represents a discovered device
type Device struct {
	ID            int64  `json:"id"`
	DisplayName   string `json:"display_name,omitempty"`
	IPAddr4       string `json:"ipaddr4,omitempty"`
	MACAddr       string `json:"macaddr,omitempty"`
	NodeID        int64  `json:"node_id,omitempty"`
	AnalysisLevel int    `json:"analysis_level,omitempty"`
	DiscoverTime  int64  `json:"discover_time,omitempty"`
}

// SearchDevices runs a single device search page
func (session *Session) SearchDevices(ctx context.Context, search *DeviceSearch) ([]Device, error) {
	return request[[]Device](ctx, session, http.MethodPost, "/devices/search", search)
}

// CollectDevices pages through the full device search result in increasing offset
// order, following the same pagination and cancellation contract as
// CollectAuditLog.
func (session *Session) CollectDevices(ctx context.Context, search *DeviceSearch, batchSize int) ([]Device, error) {
	if batchSize <= 0 {
		batchSize = defaultDeviceBatchSize
	}

	var devices []Device
	page := *search
	page.Limit = batchSize
	page.Offset = 0
	for {
		if ctx.Err() != nil {
			return devices, nil
		}

		batch, err := session.SearchDevices(ctx, &page)
		if err != nil {
			return devices, err
		}
		devices = append(devices, batch...)
		if len(batch) < batchSize {
			return devices, nil
		}
		page.Offset += batchSize

		session.betweenPages(ctx)
	}
}
