package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var flowOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "users_auth_flow_total",
		Help: "Auth flow attempts by flow and outcome",
	},
	[]string{"flow", "outcome"},
)

// observe counts one run of flow. The outcome is "ok", the error kind, or
// "error" for unexpected failures.
func observe(flow string, err error) {
	outcome := "ok"
	if err != nil {
		if k := KindOf(err); k != 0 {
			outcome = k.String()
		} else {
			outcome = "error"
		}
	}
	flowOutcomes.WithLabelValues(flow, outcome).Inc()
}
