package configstore

import "github.com/prometheus/client_golang/prometheus"

var (
	httpHandle = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meshdash",
		Subsystem: "configstore",
		Name:      "http_handled_seconds",
		Help:      "Handled HTTP request latency",
	}, []string{"path"})

	configSaves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meshdash",
		Subsystem: "configstore",
		Name:      "config_saves_total",
		Help:      "Dashboard config save attempts by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(httpHandle, configSaves)
}
