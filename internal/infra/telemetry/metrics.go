package telemetry

import "mcpdeck/internal/domain"

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveServerStart(_ string, _ error) {}

func (n *NoopMetrics) ObserveServerStop(_ string) {}

func (n *NoopMetrics) ObserveHealthCheck(_ string, _ bool) {}

func (n *NoopMetrics) ObserveReconnect(_ string) {}

func (n *NoopMetrics) SetConnectedServers(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
