package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はレジストリから指定メトリクスのカウンタ値を取り出す。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() == name {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordTaskOperation_IncrementsPerOperation は操作種別ごとにカウンタが増加することを検証する。
func TestRecordTaskOperation_IncrementsPerOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTaskOperation("create")
	c.RecordTaskOperation("create")
	c.RecordTaskOperation("delete")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() != "todoman_task_operations_total" {
			continue
		}
		found = true
		for _, m := range mf.GetMetric() {
			var operation string
			for _, label := range m.GetLabel() {
				if label.GetName() == "operation" {
					operation = label.GetValue()
				}
			}
			val := m.GetCounter().GetValue()
			switch operation {
			case "create":
				if val != 2 {
					t.Errorf("create = %v, want 2", val)
				}
			case "delete":
				if val != 1 {
					t.Errorf("delete = %v, want 1", val)
				}
			}
		}
	}
	if !found {
		t.Error("todoman_task_operations_total metric not found")
	}
}

// TestRecordSuggestCounters はAI提案関連カウンタの増加を検証する。
func TestRecordSuggestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSuggestFallback()
	c.RecordSuggestUpstreamFailure()
	c.RecordSuggestUpstreamFailure()
	c.RecordSuggestLatency(120 * time.Millisecond)

	if got := counterValue(t, reg, "todoman_suggest_fallback_total"); got != 1 {
		t.Errorf("fallback_total = %v, want 1", got)
	}
	if got := counterValue(t, reg, "todoman_suggest_upstream_fail_total"); got != 2 {
		t.Errorf("upstream_fail_total = %v, want 2", got)
	}
}

// TestRecordSessionsCleaned は削除セッション数が加算されることを検証する。
func TestRecordSessionsCleaned(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionsCleaned(3)
	c.RecordSessionsCleaned(2)

	if got := counterValue(t, reg, "todoman_sessions_cleaned_total"); got != 5 {
		t.Errorf("sessions_cleaned_total = %v, want 5", got)
	}
}

// TestHandler_ServesMetrics は/metricsハンドラーが登録済みメトリクスを返すことを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(http.StatusOK)

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	if !strings.Contains(string(body), "todoman_http_status_total") {
		t.Error("scrape output should contain todoman_http_status_total")
	}
}
