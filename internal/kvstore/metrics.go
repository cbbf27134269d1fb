package kvstore

import (
	"github.com/prometheus/client_golang/prometheus"

	"NetShop/pkg/kit"
)

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultCorrupt = "corrupt"
	resultError   = "error"
	resultOK      = "ok"
	resultQuota   = "quota"
)

type Metrics struct {
	Reads  *prometheus.CounterVec
	Writes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: kit.Namespace,
			Subsystem: "kv",
			Name:      "reads_total",
			Help:      "Store reads by outcome",
		}, []string{"result"}),
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: kit.Namespace,
			Subsystem: "kv",
			Name:      "writes_total",
			Help:      "Store writes by outcome",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Reads, m.Writes)
	return m
}

func (m *Metrics) read(result string) {
	if m != nil {
		m.Reads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) write(result string) {
	if m != nil {
		m.Writes.WithLabelValues(result).Inc()
	}
}
