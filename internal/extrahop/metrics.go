package extrahop

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

// MetricSpec names a single metric within a query
type MetricSpec struct {
	Name string `json:"name"`
}

// MetricsQuery is the request document of the '/metrics/total' endpoint.
// Depending on the metric category, objects are addressed either by node IDs or by
// object type plus object IDs; unused fields stay empty.
type MetricsQuery struct {
	Cycle          string       `json:"cycle,omitempty"`
	From           int64        `json:"from"`
	Until          int64        `json:"until"`
	MetricCategory string       `json:"metric_category"`
	MetricSpecs    []MetricSpec `json:"metric_specs"`
	ObjectType     string       `json:"object_type,omitempty"`
	ObjectIDs      []int64      `json:"object_ids,omitempty"`
	NodeIDs        []int64      `json:"node_ids,omitempty"`
	Limit          int          `json:"limit,omitempty"`
}

// MetricValue is a single sample within a metric stat.
// The vendor serializes values either as bare numbers or as objects carrying a
// 'value' field, depending on the metric; both shapes decode into Value.
type MetricValue struct {
	Value float64
}

func (value *MetricValue) UnmarshalJSON(data []byte) error {
	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		value.Value = number
		return nil
	}
	var wrapped struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	value.Value = wrapped.Value
	return nil
}

func (value MetricValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(value.Value)
}

// MetricStat is one object's series of samples within a metrics response
type MetricStat struct {
	OID    int64         `json:"oid"`
	Time   int64         `json:"time"`
	Values []MetricValue `json:"values"`
}

// Sum returns the sum of all sample values of the stat
func (stat *MetricStat) Sum() float64 {
	var total float64
	for _, value := range stat.Values {
		total += value.Value
	}
	return total
}

// MetricsResponse is the response document of the '/metrics/total' endpoint
type MetricsResponse struct {
	Cycle string       `json:"cycle,omitempty"`
	From  int64        `json:"from,omitempty"`
	Until int64        `json:"until,omitempty"`
	Stats []MetricStat `json:"stats"`
}

// MetricsTotal runs an aggregated metrics query
func (session *Session) MetricsTotal(ctx context.Context, query *MetricsQuery) (*MetricsResponse, error) {
	response, err := request[MetricsResponse](ctx, session, http.MethodPost, "/metrics/total", query)
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// ApplianceMetric pairs an appliance with the summed result of its metrics query.
// Err records a per-appliance failure; Bytes stays zero in that case.
type ApplianceMetric struct {
	Appliance Appliance `json:"appliance"`
	Bytes     float64   `json:"bytes"`
	Err       error     `json:"-"`
}

// CollectApplianceMetrics fans out one totals query per appliance and joins the
// results. The queries run concurrently and each one catches its own failure,
// substituting a zero value, so a single slow or failing appliance never blocks
// the rest. Only the initial appliance listing can fail the whole call.
func (session *Session) CollectApplianceMetrics(ctx context.Context, buildQuery func(Appliance) *MetricsQuery) ([]ApplianceMetric, error) {
	appliances, err := session.Appliances(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]ApplianceMetric, len(appliances))
	var wg sync.WaitGroup
	for i, appliance := range appliances {
		wg.Add(1)
		go func(i int, appliance Appliance) {
			defer wg.Done()
			results[i] = ApplianceMetric{Appliance: appliance}

			response, err := session.MetricsTotal(ctx, buildQuery(appliance))
			if err != nil {
				log.Warn().Err(err).Str("appliance", appliance.DisplayName).Msg("could not fetch appliance metrics")
				results[i].Err = err
				return
			}
			for _, stat := range response.Stats {
				results[i].Bytes += stat.Sum()
			}
		}(i, appliance)
	}
	wg.Wait()
	return results, nil
}
