package endpoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netcheck/common/stats"
)

// ReportFunc returns a JSON-encodable view of the current test run.
type ReportFunc func() interface{}

// AdminServer serves health, metrics and the live run report.
type AdminServer struct {
	Addr   string
	Stats  stats.StatsReceiver
	Report ReportFunc
}

func NewAdminServer(addr string, stat stats.StatsReceiver, report ReportFunc) *AdminServer {
	return &AdminServer{Addr: addr, Stats: stat, Report: report}
}

func (s *AdminServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", helpHandler)
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/admin/metrics.json", s.statsHandler)
	mux.HandleFunc("/report", s.reportHandler)
	return mux
}

// Serve blocks until the listener fails.
func (s *AdminServer) Serve() error {
	log.WithFields(log.Fields{"addr": s.Addr}).Info("Serving http & stats")
	return http.ListenAndServe(s.Addr, s.Handler())
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Common paths: '/health', '/admin/metrics.json', '/report'", http.StatusNotImplemented)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "ok")
}

const contentTypeHdr = "Content-Type"
const contentTypeVal = "application/json; charset=utf-8"

func (s *AdminServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(contentTypeHdr, contentTypeVal)
	pretty := r.URL.Query().Get("pretty") == "true"
	if _, err := io.Copy(w, bytes.NewBuffer(s.Stats.Render(pretty))); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *AdminServer) reportHandler(w http.ResponseWriter, r *http.Request) {
	if s.Report == nil {
		http.Error(w, "no report available", http.StatusNotFound)
		return
	}
	w.Header().Set(contentTypeHdr, contentTypeVal)
	enc := json.NewEncoder(w)
	if r.URL.Query().Get("pretty") == "true" {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(s.Report()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
