package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signal pulses emitted"},
		[]string{"reason"},
	)
	ClustersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "clusters_total", Help: "Cluster state transitions"},
		[]string{"status"},
	)
	ParamSwapsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "param_swaps_total", Help: "Bandit parameter swaps applied"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, SignalsTotal, ClustersTotal, ParamSwapsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
