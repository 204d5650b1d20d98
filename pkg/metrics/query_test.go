package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakePrometheus serves the instant-query API with canned vector values
// keyed by label selector.
func fakePrometheus(t *testing.T, values map[string]int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse query form: %v", err)
		}
		expr := r.Form.Get("query")

		value := 0
		for selector, v := range values {
			if strings.Contains(expr, selector) {
				value = v
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1693526400,"%d"]}]}}`, value)
	}))
}

func TestGetJourneyMetrics(t *testing.T) {
	server := fakePrometheus(t, map[string]int{
		`direction="forward", status="success"`:     7,
		`direction="backward", status="success"`:    2,
		`direction="jump", status="success"`:        3,
		`journey_transitions_total{status="error"}`: 4,
		`journey_criteria_toggles_total`:            19,
	})
	defer server.Close()

	qs, err := NewQueryService(server.URL)
	if err != nil {
		t.Fatalf("Failed to create query service: %v", err)
	}

	got, err := qs.GetJourneyMetrics(context.Background())
	if err != nil {
		t.Fatalf("Failed to query journey metrics: %v", err)
	}

	if got.Advances != 7 {
		t.Errorf("Expected 7 advances, got %d", got.Advances)
	}
	if got.Retreats != 2 {
		t.Errorf("Expected 2 retreats, got %d", got.Retreats)
	}
	if got.Jumps != 3 {
		t.Errorf("Expected 3 jumps, got %d", got.Jumps)
	}
	if got.Errors != 4 {
		t.Errorf("Expected 4 errors, got %d", got.Errors)
	}
	if got.Toggles != 19 {
		t.Errorf("Expected 19 toggles, got %d", got.Toggles)
	}
}

func TestGetJourneyMetricsServerDown(t *testing.T) {
	server := fakePrometheus(t, nil)
	server.Close()

	qs, err := NewQueryService(server.URL)
	if err != nil {
		t.Fatalf("Failed to create query service: %v", err)
	}

	if _, err := qs.GetJourneyMetrics(context.Background()); err == nil {
		t.Error("Expected an error when Prometheus is unreachable")
	}
}
