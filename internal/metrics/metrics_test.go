package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveTaskDuration("css", time.Second)
	r.IncTaskResult("css", ResultSuccess)
	r.IncTaskCoalesced("css")
	r.IncWatchTrigger("css")
	r.ObservePages(1, 0)
	r.SetLiveReloadClients(2)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveTaskDuration("pages", 150*time.Millisecond)
	pr.IncTaskResult("pages", ResultSuccess)
	pr.IncTaskResult("pages", ResultFailed)
	pr.IncTaskCoalesced("pages")
	pr.IncWatchTrigger("css")
	pr.ObservePages(3, 1)
	pr.SetLiveReloadClients(2)

	assert.InDelta(t, 1, gathered(t, reg, "sitebuilder_task_results_total", map[string]string{"task": "pages", "result": "failed"}), 0)
	assert.InDelta(t, 3, gathered(t, reg, "sitebuilder_pages_written_total", nil), 0)
	assert.InDelta(t, 1, gathered(t, reg, "sitebuilder_pages_failed_total", nil), 0)
	assert.InDelta(t, 2, gathered(t, reg, "sitebuilder_livereload_clients", nil), 0)
	assert.InDelta(t, 1, gathered(t, reg, "sitebuilder_watch_triggers_total", map[string]string{"group": "css"}), 0)
}

// gathered returns the value of the counter or gauge sample matching labels.
func gathered(t *testing.T, reg *prom.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestPrometheusRecorder_NilReceiver(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncTaskResult("x", ResultSuccess)
	pr.ObservePages(1, 1)
}

func TestResultFor(t *testing.T) {
	assert.Equal(t, ResultSuccess, ResultFor(nil, false))
	assert.Equal(t, ResultFailed, ResultFor(errors.New("x"), false))
	assert.Equal(t, ResultCanceled, ResultFor(errors.New("x"), true))
}

func TestHTTPHandler(t *testing.T) {
	reg := NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncTaskResult("css", ResultSuccess)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `sitebuilder_task_results_total{result="success",task="css"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
