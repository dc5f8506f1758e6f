package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultOK      = "ok"
	resultError   = "error"
	resultSkipped = "skipped"
)

var operations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chat",
	Subsystem: "read_cache",
	Name:      "operations_total",
	Help:      "Read cache operations by kind and result.",
}, []string{"op", "result"})

func observe(op, result string) {
	operations.WithLabelValues(op, result).Inc()
}
