package extrahop

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// NetworkLocality defines whether a set of subnets is considered internal or external
type NetworkLocality struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	External    bool     `json:"external"`
	Subnets     []string `json:"subnets,omitempty"`
	VLANIDs     []int64  `json:"vlan_ids,omitempty"`
}

// NetworkLocalities retrieves all network locality definitions
func (session *Session) NetworkLocalities(ctx context.Context) ([]NetworkLocality, error) {
	return request[[]NetworkLocality](ctx, session, http.MethodGet, "/networklocalities", nil)
}

// CreateNetworkLocality creates a new network locality definition
func (session *Session) CreateNetworkLocality(ctx context.Context, locality *NetworkLocality) error {
	_, err := request[struct{}](ctx, session, http.MethodPost, "/networklocalities", locality)
	return err
}

// UpdateNetworkLocality patches an existing network locality definition
func (session *Session) UpdateNetworkLocality(ctx context.Context, id int64, locality *NetworkLocality) error {
	patch := *locality
	patch.ID = 0
	_, err := request[struct{}](ctx, session, http.MethodPatch, fmt.Sprintf("/networklocalities/%d", id), &patch)
	return err
}

// DeleteNetworkLocality removes a network locality definition
func (session *Session) DeleteNetworkLocality(ctx context.Context, id int64) error {
	_, err := request[struct{}](ctx, session, http.MethodDelete, fmt.Sprintf("/networklocalities/%d", id), nil)
	return err
}

// SaveNetworkLocalities reconciles the deployment's locality definitions against
// the desired set: definitions absent from the desired set are deleted, entries
// with an ID are patched and the rest are created. Every item is processed best
// effort; failures are recorded in the report and do not halt the reconcile.
func (session *Session) SaveNetworkLocalities(ctx context.Context, desired []NetworkLocality) (*BulkReport, error) {
	existing, err := session.NetworkLocalities(ctx)
	if err != nil {
		return nil, err
	}

	keep := make(map[int64]bool, len(desired))
	for _, locality := range desired {
		if locality.ID != 0 {
			keep[locality.ID] = true
		}
	}

	report := &BulkReport{}
	for _, locality := range existing {
		if keep[locality.ID] {
			continue
		}
		if err := session.DeleteNetworkLocality(ctx, locality.ID); err != nil {
			report.fail("delete "+strconv.FormatInt(locality.ID, 10), err)
			continue
		}
		report.Succeeded++
	}

	for _, locality := range desired {
		locality := locality
		if locality.ID != 0 {
			if err := session.UpdateNetworkLocality(ctx, locality.ID, &locality); err != nil {
				report.fail("update "+locality.Name, err)
				continue
			}
		} else {
			if err := session.CreateNetworkLocality(ctx, &locality); err != nil {
				report.fail("create "+locality.Name, err)
				continue
			}
		}
		report.Succeeded++
	}
	return report, nil
}
