package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.TicksTotal.Inc()
	m.FramesInTotal.WithLabelValues("0").Add(3)
	m.ActiveStreams.Set(2)
	m.DrawDuration.Observe(0.004)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"compositor_ticks_total 1",
		`compositor_frames_uploaded_total{stream="0"} 3`,
		"compositor_active_streams 2",
		"compositor_draw_duration_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition is missing %q", want)
		}
	}
}

func TestIsolatedRegistries(t *testing.T) {
	a, b := New(), New()
	a.TicksTotal.Inc()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), "compositor_ticks_total 1") {
		t.Error("registries share state")
	}
}
