package extrahop

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricValueUnmarshal(t *testing.T) {
	var stat MetricStat
	require.NoError(t, json.Unmarshal([]byte(`{"oid":1,"time":1000,"values":[42,{"value":8.5}]}`), &stat))
	require.Len(t, stat.Values, 2)
	assert.Equal(t, float64(42), stat.Values[0].Value)
	assert.Equal(t, 8.5, stat.Values[1].Value)
	assert.Equal(t, 50.5, stat.Sum())
}

func TestMetricsTotal(t *testing.T) {
	var gotQuery MetricsQuery
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/api/v1/extrahop" {
			writer.Write([]byte(`{}`))
			return
		}
		assert.Equal(t, "/api/v1/metrics/total", request.URL.Path)
		requireDecode(t, request, &gotQuery)
		writer.Write([]byte(`{"cycle":"1hr","stats":[{"oid":0,"time":1000,"values":[10]}]}`))
	}))
	defer server.Close()

	session := connectEnterprise(t, server)
	response, err := session.MetricsTotal(context.Background(), &MetricsQuery{
		Cycle:          "1hr",
		From:           -1800000,
		MetricCategory: "net",
		MetricSpecs:    []MetricSpec{{Name: "bytes_in"}},
		ObjectType:     "device",
		ObjectIDs:      []int64{4},
	})
	require.NoError(t, err)
	require.Len(t, response.Stats, 1)
	assert.Equal(t, float64(10), response.Stats[0].Sum())
	assert.Equal(t, []int64{4}, gotQuery.ObjectIDs)
	assert.Equal(t, "device", gotQuery.ObjectType)
}

func TestCollectApplianceMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/api/v1/extrahop":
			writer.Write([]byte(`{}`))
		case "/api/v1/appliances":
			writer.Write([]byte(`[{"id":1,"display_name":"eda-1","node_id":1},{"id":2,"display_name":"eda-2","node_id":2}]`))
		default:
			var query MetricsQuery
			requireDecode(t, request, &query)
			require.Len(t, query.NodeIDs, 1)
			if query.NodeIDs[0] == 2 {
				// A single failing appliance must not fail the whole collection
				writer.WriteHeader(http.StatusInternalServerError)
				return
			}
			writer.Write([]byte(`{"stats":[{"oid":0,"time":1000,"values":[100,{"value":50}]}]}`))
		}
	}))
	defer server.Close()

	session := connectEnterprise(t, server)
	metrics, err := session.CollectApplianceMetrics(context.Background(), func(appliance Appliance) *MetricsQuery {
		return &MetricsQuery{
			MetricCategory: "net",
			MetricSpecs:    []MetricSpec{{Name: "bytes_in"}},
			NodeIDs:        []int64{appliance.NodeID},
		}
	})
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	assert.Equal(t, "eda-1", metrics[0].Appliance.DisplayName)
	assert.Equal(t, float64(150), metrics[0].Bytes)
	assert.NoError(t, metrics[0].Err)

	assert.Equal(t, "eda-2", metrics[1].Appliance.DisplayName)
	assert.Zero(t, metrics[1].Bytes)
	assert.Error(t, metrics[1].Err)
}

func TestCollectApplianceMetricsListFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/api/v1/extrahop" {
			writer.Write([]byte(`{}`))
			return
		}
		writer.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	session := connectEnterprise(t, server)
	_, err := session.CollectApplianceMetrics(context.Background(), func(Appliance) *MetricsQuery {
		return &MetricsQuery{}
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}
