package extrahop

import (
	"context"
	"errors"
	"strconv"
)

// BulkFailure records one item of a bulk operation that could not be completed
type BulkFailure struct {
	Item    string `json:"item"`
	Message string `json:"message"`
}

// BulkReport summarizes a best-effort bulk operation.
// Bulk operations provide no exactly-once guarantee: each item is attempted
// sequentially, failures are recorded and processing continues.
type BulkReport struct {
	Succeeded int           `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

func (report *BulkReport) fail(item string, err error) {
	report.Failed = append(report.Failed, BulkFailure{Item: item, Message: err.Error()})
}

// errDeleteRejected is reported when the forwarding proxy relays a non-2xx for a deletion
var errDeleteRejected = errors.New("deletion rejected by the API")

// BulkChangeOwner assigns a new owner to each of the given dashboards. If
// grantPreviousOwner is set, the previous owner additionally receives edit access
// via the sharing document.
func (session *Session) BulkChangeOwner(ctx context.Context, dashboards []Dashboard, newOwner string, grantPreviousOwner bool) *BulkReport {
	report := &BulkReport{}
	for _, dashboard := range dashboards {
		item := strconv.FormatInt(dashboard.ID, 10)

		if err := session.UpdateDashboard(ctx, dashboard.ID, map[string]any{"owner": newOwner}); err != nil {
			report.fail(item, err)
			continue
		}
		if grantPreviousOwner && dashboard.Owner != "" {
			sharing := &Sharing{Users: map[string]string{dashboard.Owner: "editor"}}
			if err := session.UpdateDashboardSharing(ctx, dashboard.ID, sharing); err != nil {
				report.fail(item, err)
				continue
			}
		}
		report.Succeeded++
	}
	return report
}

// BulkModifySharing applies the given sharing document to each dashboard
func (session *Session) BulkModifySharing(ctx context.Context, ids []int64, sharing *Sharing) *BulkReport {
	report := &BulkReport{}
	for _, id := range ids {
		if err := session.UpdateDashboardSharing(ctx, id, sharing); err != nil {
			report.fail(strconv.FormatInt(id, 10), err)
			continue
		}
		report.Succeeded++
	}
	return report
}

// BulkDelete deletes each of the given dashboards
func (session *Session) BulkDelete(ctx context.Context, ids []int64) *BulkReport {
	report := &BulkReport{}
	for _, id := range ids {
		ok, err := session.DeleteDashboard(ctx, id)
		if err != nil {
			report.fail(strconv.FormatInt(id, 10), err)
			continue
		}
		if !ok {
			report.fail(strconv.FormatInt(id, 10), errDeleteRejected)
			continue
		}
		report.Succeeded++
	}
	return report
}
