package console

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/revealx-tools/console/internal/api/schema"
	"github.com/revealx-tools/console/internal/api/validation"
	"github.com/revealx-tools/console/internal/extrahop"
)

// EndpointGetUsers handles the 'GET /v1/users' endpoint.
// The underlying vendor call swallows errors; the endpoint never fails.
func (service *Service) EndpointGetUsers(writer http.ResponseWriter, request *http.Request) {
	live, _ := requestSession(request)
	service.writer.WriteJSON(writer, live.Users(request.Context()))
}

// EndpointGetAppliances handles the 'GET /v1/appliances' endpoint
func (service *Service) EndpointGetAppliances(writer http.ResponseWriter, request *http.Request) {
	live, _ := requestSession(request)
	appliances, err := live.Appliances(request.Context())
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, appliances)
}

// EndpointGetAuditLog handles the 'GET /v1/auditlog?offset={number?:0}&limit={number?:100}' endpoint
func (service *Service) EndpointGetAuditLog(writer http.ResponseWriter, request *http.Request) {
	var validationErrs []*schema.Error

	offset, validationErr := validation.QueryNumber(request, "offset", false, 0, 0, math.MaxInt64)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	limit, validationErr := validation.QueryNumber(request, "limit", false, 100, 1, 1000)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	entries, err := live.AuditLog(request.Context(), int(limit), int(offset))
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, schema.BuildPaginatedResponse(uint64(offset), uint64(limit), uint64(offset)+uint64(len(entries)), entries))
}

// EndpointCollectAuditLog handles the 'GET /v1/auditlog/collect' endpoint.
// It pages through the entire audit log; closing the request aborts the
// collection and returns nothing.
func (service *Service) EndpointCollectAuditLog(writer http.ResponseWriter, request *http.Request) {
	live, _ := requestSession(request)
	entries, err := live.CollectAuditLog(request.Context(), 0)
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, entries)
}

// EndpointQueryMetrics handles the 'POST /v1/metrics/query' endpoint
func (service *Service) EndpointQueryMetrics(writer http.ResponseWriter, request *http.Request) {
	query, validationErrs, err := schema.UnmarshalBody[extrahop.MetricsQuery](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	response, err := live.MetricsTotal(request.Context(), query)
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, response)
}

type endpointCollectApplianceMetricsRequestPayload struct {
	Cycle          string                `json:"cycle"`
	From           *int64                `json:"from" required:"true"`
	Until          *int64                `json:"until" required:"true"`
	MetricCategory *string               `json:"metric_category" required:"true"`
	MetricSpecs    []extrahop.MetricSpec `json:"metric_specs" required:"true"`
}

type applianceMetricView struct {
	Appliance extrahop.Appliance `json:"appliance"`
	Bytes     float64            `json:"bytes"`
	Error     string             `json:"error,omitempty"`
}

// EndpointCollectApplianceMetrics handles the 'POST /v1/metrics/appliances' endpoint.
// It runs the given totals query once per appliance, addressed by node ID, and
// reports one summed result per appliance.
func (service *Service) EndpointCollectApplianceMetrics(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointCollectApplianceMetricsRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	metrics, err := live.CollectApplianceMetrics(request.Context(), func(appliance extrahop.Appliance) *extrahop.MetricsQuery {
		return &extrahop.MetricsQuery{
			Cycle:          payload.Cycle,
			From:           *payload.From,
			Until:          *payload.Until,
			MetricCategory: *payload.MetricCategory,
			MetricSpecs:    payload.MetricSpecs,
			NodeIDs:        []int64{appliance.NodeID},
		}
	})
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}

	views := make([]applianceMetricView, len(metrics))
	for i, metric := range metrics {
		views[i] = applianceMetricView{
			Appliance: metric.Appliance,
			Bytes:     metric.Bytes,
		}
		if metric.Err != nil {
			views[i].Error = metric.Err.Error()
		}
	}
	service.writer.WriteJSON(writer, views)
}

// EndpointGetNetworkLocalities handles the 'GET /v1/localities' endpoint
func (service *Service) EndpointGetNetworkLocalities(writer http.ResponseWriter, request *http.Request) {
	live, _ := requestSession(request)
	localities, err := live.NetworkLocalities(request.Context())
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, localities)
}

type endpointSaveNetworkLocalitiesRequestPayload struct {
	Localities []extrahop.NetworkLocality `json:"localities" required:"true"`
}

// EndpointSaveNetworkLocalities handles the 'PUT /v1/localities' endpoint.
// The given set replaces the deployment's locality definitions; absent ones are
// deleted, known IDs are patched, the rest is created.
func (service *Service) EndpointSaveNetworkLocalities(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointSaveNetworkLocalitiesRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	report, err := live.SaveNetworkLocalities(request.Context(), payload.Localities)
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, report)
}

// EndpointSearchDevices handles the 'POST /v1/devices/search' endpoint
func (service *Service) EndpointSearchDevices(writer http.ResponseWriter, request *http.Request) {
	search, validationErrs, err := schema.UnmarshalBody[extrahop.DeviceSearch](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	devices, err := live.SearchDevices(request.Context(), search)
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, devices)
}

// EndpointCollectDevices handles the 'POST /v1/devices/collect' endpoint.
// Like the audit log collection, it pages through all matching devices and the
// request context acts as the abort flag.
func (service *Service) EndpointCollectDevices(writer http.ResponseWriter, request *http.Request) {
	search, validationErrs, err := schema.UnmarshalBody[extrahop.DeviceSearch](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	devices, err := live.CollectDevices(request.Context(), search, 0)
	if err != nil {
		service.writeVendorError(writer, err)
		return
	}
	service.writer.WriteJSON(writer, devices)
}

func localityID(request *http.Request) (int64, *schema.Error) {
	raw := chi.URLParam(request, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &schema.Error{
			Type:    "validation.path.localityID.invalid",
			Message: "The network locality ID has to be a number.",
			Details: map[string]interface{}{
				"value": raw,
			},
		}
	}
	return id, nil
}

// EndpointCreateNetworkLocality handles the 'POST /v1/localities' endpoint
func (service *Service) EndpointCreateNetworkLocality(writer http.ResponseWriter, request *http.Request) {
	locality, validationErrs, err := schema.UnmarshalBody[extrahop.NetworkLocality](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	if err := live.CreateNetworkLocality(request.Context(), locality); err != nil {
		service.writeVendorError(writer, err)
		return
	}
	writer.WriteHeader(http.StatusCreated)
}

// EndpointEditNetworkLocality handles the 'PATCH /v1/localities/{id}' endpoint
func (service *Service) EndpointEditNetworkLocality(writer http.ResponseWriter, request *http.Request) {
	id, validationErr := localityID(request)
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	locality, validationErrs, err := schema.UnmarshalBody[extrahop.NetworkLocality](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	live, _ := requestSession(request)
	if err := live.UpdateNetworkLocality(request.Context(), id, locality); err != nil {
		service.writeVendorError(writer, err)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

// EndpointDeleteNetworkLocality handles the 'DELETE /v1/localities/{id}' endpoint
func (service *Service) EndpointDeleteNetworkLocality(writer http.ResponseWriter, request *http.Request) {
	id, validationErr := localityID(request)
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	live, _ := requestSession(request)
	if err := live.DeleteNetworkLocality(request.Context(), id); err != nil {
		service.writeVendorError(writer, err)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}
