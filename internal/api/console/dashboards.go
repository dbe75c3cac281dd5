package console

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/revealx-tools/console/internal/api/schema"
	"github.com/revealx-tools/console/internal/api/validation"
	"github.com/revealx-tools/console/internal/extrahop"
)

var errDashboardIDInvalid = func(raw string) *schema.Error {
	return &schema.Error{
		Type:    "validation.path.dashboardID.invalid",
		Message: "The dashboard ID has to be a number.",
		Details: map[string]interface{}{
			"value": raw,
		},
	}
}

func dashboardID(request *http.Request) (int64, *schema.Error) {
	raw := chi.URLParam(request, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errDashboardIDInvalid(raw)
	}
	return id, nil
}

type dashboardWithSharing struct {
	extrahop.Dashboard
	Sharing *extrahop.Sharing `json:"sharing,omitempty"`
}

// EndpointGetDashboards handles the 'GET /v1/dashboards?include_sharing={bool?:false}' endpoint.
// With include_sharing the sharing documents of all dashboards are fetched concurrently;
// a dashboard whose sharing lookup fails is returned without one.
func (service *Service) EndpointGetDashboards(writer http.ResponseWriter, request *http.Request) {
	includeSharing, validationErr := validation.QueryBool(request, "include_sharing", false, false)
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	live, _ := requestSession(request)
	dashboards, err := live.Dashboards(request.Context())
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}

	result := make([]dashboardWithSharing, len(dashboards))
	for i, dashboard := range dashboards {
		result[i] = dashboardWithSharing{Dashboard: dashboard}
	}

	if includeSharing {
		var wg sync.WaitGroup
		for i := range result {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sharing, err := live.DashboardSharing(request.Context(), result[i].ID)
				if err == nil {
					result[i].Sharing = sharing
				}
			}(i)
		}
		wg.Wait()
	}

	service.writer.WriteJSON(writer, result)
}

type endpointEditDashboardRequestPayload struct {
	Name    *string `json:"name"`
	Owner   *string `json:"owner"`
	Comment *string `json:"comment"`
}

// EndpointEditDashboard handles the 'PATCH /v1/dashboards/{id}' endpoint
func (service *Service) EndpointEditDashboard(writer http.ResponseWriter, request *http.Request) {
	id, validationErr := dashboardID(request)
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	payload, validationErrs, err := schema.UnmarshalBody[endpointEditDashboardRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	fields := map[string]any{}
	if payload.Name != nil {
		fields["name"] = *payload.Name
	}
	if payload.Owner != nil {
		fields["owner"] = *payload.Owner
	}
	if payload.Comment != nil {
		fields["comment"] = *payload.Comment
	}

	live, _ := requestSession(request)
	if err := live.UpdateDashboard(request.Context(), id, fields); err != nil {
		service.writeVendorError(writer, err)
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}

// EndpointEditDashboardSharing handles the 'PATCH /v1/dashboards/{id}/sharing' endpoint
func (service *Service) EndpointEditDashboardSharing(writer http.ResponseWriter, request *http.Request) {
	id, validationErr := dashboardID(request)
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	sharing, validationErrs, err := schema.UnmarshalBody[extrahop.Sharing](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	if err := live.UpdateDashboardSharing(request.Context(), id, sharing); err != nil {
		service.writeVendorError(writer, err)
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}

// EndpointDeleteDashboard handles the 'DELETE /v1/dashboards/{id}' endpoint
func (service *Service) EndpointDeleteDashboard(writer http.ResponseWriter, request *http.Request) {
	id, validationErr := dashboardID(request)
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	live, _ := requestSession(request)
	ok, err := live.DeleteDashboard(request.Context(), id)
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}
	if !ok {
		service.writer.WriteErrors(writer, http.StatusBadGateway, &schema.Error{
			Type:    "vendor.api.deleteRejected",
			Message: "The deployment rejected the dashboard deletion.",
			Details: map[string]interface{}{"id": id},
		})
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}

type endpointBulkChangeOwnerRequestPayload struct {
	Dashboards         []extrahop.Dashboard `json:"dashboards" required:"true"`
	NewOwner           *string              `json:"new_owner" required:"true"`
	GrantPreviousOwner bool                 `json:"grant_previous_owner"`
}

// EndpointBulkChangeOwner handles the 'POST /v1/dashboards/bulk/owner' endpoint
func (service *Service) EndpointBulkChangeOwner(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointBulkChangeOwnerRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	report := live.BulkChangeOwner(request.Context(), payload.Dashboards, *payload.NewOwner, payload.GrantPreviousOwner)
	service.writer.WriteJSON(writer, report)
}

type endpointBulkModifySharingRequestPayload struct {
	IDs     []int64           `json:"ids" required:"true"`
	Sharing *extrahop.Sharing `json:"sharing" required:"true"`
}

// EndpointBulkModifySharing handles the 'POST /v1/dashboards/bulk/sharing' endpoint
func (service *Service) EndpointBulkModifySharing(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointBulkModifySharingRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	report := live.BulkModifySharing(request.Context(), payload.IDs, payload.Sharing)
	service.writer.WriteJSON(writer, report)
}

type endpointBulkDeleteRequestPayload struct {
	IDs []int64 `json:"ids" required:"true"`
}

// EndpointBulkDelete handles the 'POST /v1/dashboards/bulk/delete' endpoint
func (service *Service) EndpointBulkDelete(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointBulkDeleteRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	report := live.BulkDelete(request.Context(), payload.IDs)
	service.writer.WriteJSON(writer, report)
}
