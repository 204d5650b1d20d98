package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// JourneyMetrics represents aggregated transition metrics over a window.
// Errors counts every failed transition attempt regardless of cause
// (criteria gate, missing buyer, persistence failure).
type JourneyMetrics struct {
	Advances int64 `json:"advances"`
	Retreats int64 `json:"retreats"`
	Jumps    int64 `json:"jumps"`
	Errors   int64 `json:"errors"`
	Toggles  int64 `json:"toggles"`
}

// QueryService provides methods to query journey metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetJourneyMetrics retrieves aggregated transition and toggle counts.
func (q *QueryService) GetJourneyMetrics(ctx context.Context) (*JourneyMetrics, error) {
	metrics := &JourneyMetrics{}

	queries := []struct {
		expr string
		dest *int64
	}{
		{`sum(journey_transitions_total{direction="forward", status="success"})`, &metrics.Advances},
		{`sum(journey_transitions_total{direction="backward", status="success"})`, &metrics.Retreats},
		{`sum(journey_transitions_total{direction="jump", status="success"})`, &metrics.Jumps},
		{`sum(journey_transitions_total{status="error"})`, &metrics.Errors},
		{`sum(journey_criteria_toggles_total)`, &metrics.Toggles},
	}

	for _, query := range queries {
		result, _, err := q.queryAPI.Query(ctx, query.expr, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", query.expr, err)
		}
		if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
			*query.dest = int64(vector[0].Value)
		}
	}

	return metrics, nil
}
