package cart

import (
	"github.com/prometheus/client_golang/prometheus"

	"NetShop/pkg/kit"
)

type Metrics struct {
	Mutations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: kit.Namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and outcome.",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(m.Mutations)
	return m
}

func (m *Metrics) observe(op string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.Mutations.WithLabelValues(op, result).Inc()
}
