package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/james-see/octatools/pkg/octatrack"
	"github.com/james-see/octatools/pkg/transplant"
)

type metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	bankCopies  *prometheus.CounterVec
	slotsAdded  *prometheus.CounterVec
	filesCopied prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octatools_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		bankCopies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octatools_bank_copies_total",
			Help: "Bank copies by final state and the step that failed.",
		}, []string{"state", "failed_at"}),
		slotsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octatools_slots_added_total",
			Help: "Sample slots added to destination projects by type.",
		}, []string{"type"}),
		filesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "octatools_files_copied_total",
			Help: "Audio and attributes files copied into destination projects.",
		}),
	}
	m.registry.MustRegister(m.requests, m.bankCopies, m.slotsAdded, m.filesCopied)
	return m
}

func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (m *metrics) observeCopy(r *transplant.Report) {
	if r == nil {
		return
	}
	m.bankCopies.WithLabelValues(string(r.State), string(r.FailedAt)).Inc()
	if r.State != transplant.StateDone || r.Plan == nil {
		return
	}
	for _, t := range []octatrack.SampleType{octatrack.Static, octatrack.Flex} {
		m.slotsAdded.WithLabelValues(t.String()).Add(float64(r.Plan.Count(t, transplant.NewSlot)))
	}
	if r.Transfer != nil {
		m.filesCopied.Add(float64(len(r.Transfer.Copied)))
	}
}
