package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mcpdeck/internal/domain"
)

type PrometheusMetrics struct {
	serverStarts     *prometheus.CounterVec
	serverStops      *prometheus.CounterVec
	healthChecks     *prometheus.CounterVec
	reconnects       *prometheus.CounterVec
	connectedServers prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		serverStarts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpdeck_server_starts_total",
				Help: "Total number of server start attempts",
			},
			[]string{"server", "status"},
		),
		serverStops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpdeck_server_stops_total",
				Help: "Total number of server stops",
			},
			[]string{"server"},
		),
		healthChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpdeck_health_checks_total",
				Help: "Total number of health check probes",
			},
			[]string{"server", "result"},
		),
		reconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpdeck_reconnect_attempts_total",
				Help: "Total number of automatic reconnect attempts",
			},
			[]string{"server"},
		),
		connectedServers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpdeck_connected_servers",
				Help: "Current number of connected servers",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveServerStart(server string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.serverStarts.WithLabelValues(server, status).Inc()
}

func (p *PrometheusMetrics) ObserveServerStop(server string) {
	p.serverStops.WithLabelValues(server).Inc()
}

func (p *PrometheusMetrics) ObserveHealthCheck(server string, healthy bool) {
	result := "healthy"
	if !healthy {
		result = "unhealthy"
	}
	p.healthChecks.WithLabelValues(server, result).Inc()
}

func (p *PrometheusMetrics) ObserveReconnect(server string) {
	p.reconnects.WithLabelValues(server).Inc()
}

func (p *PrometheusMetrics) SetConnectedServers(count int) {
	p.connectedServers.Set(float64(count))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
