package endpoints

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/projectcalico/netcheck/common/stats"
)

func TestAdminServerRoutes(t *testing.T) {
	stat := stats.DefaultStatsReceiver()
	stat.Counter("offers").Inc(4)
	s := NewAdminServer("localhost:0", stat, func() interface{} {
		return map[string]string{"Same-Host Same-Netgroups Can Ping": "PASS"}
	})
	h := s.Handler()

	cases := []struct {
		path, contains string
		code           int
	}{
		{"/health", "ok", http.StatusOK},
		{"/admin/metrics.json", `"offers":4`, http.StatusOK},
		{"/report", `"Same-Host Same-Netgroups Can Ping":"PASS"`, http.StatusOK},
		{"/nope", "Common paths", http.StatusNotImplemented},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", c.path, nil))
		if rec.Code != c.code {
			t.Errorf("%s: got code %d, expected %d", c.path, rec.Code, c.code)
		}
		if !strings.Contains(rec.Body.String(), c.contains) {
			t.Errorf("%s: body %q does not contain %q", c.path, rec.Body.String(), c.contains)
		}
	}
}

func TestReportMissing(t *testing.T) {
	rec := httptest.NewRecorder()
	NewAdminServer("", stats.NilStatsReceiver(), nil).Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/report", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
