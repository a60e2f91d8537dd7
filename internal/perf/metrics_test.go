package perf

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveFrame(16)
	m.ObserveFrame(20)
	m.SetPixelRatio(1.25)
	m.SetPointBudget("stars", 700)
	m.SetReveal(0.5, 0)
	m.EphemerisFetch("fallback")

	if got := testutil.ToFloat64(m.ticksTotal); got != 2 {
		t.Errorf("ticks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pixelRatio); got != 1.25 {
		t.Errorf("pixel ratio = %v", got)
	}
	if got := testutil.ToFloat64(m.pointBudget.WithLabelValues("stars")); got != 700 {
		t.Errorf("stars budget = %v", got)
	}
	if got := testutil.ToFloat64(m.ephemeris.WithLabelValues("fallback")); got != 1 {
		t.Errorf("fallback fetches = %v", got)
	}

	// A second instance must not collide with the first.
	_ = NewMetrics()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `orrery_reveal_factor{context="galaxy"} 0.5`) {
		t.Errorf("metrics output missing reveal factor:\n%s", body)
	}
}
