package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/guardian/internal/core/domain"
)

// StateReader reports the current control loop state.
type StateReader interface {
	CurrentState() domain.SessionState
}

// Collector exports the control loop state as guardian_state{state}.
// Exactly one state has value 1.
type Collector struct {
	src  StateReader
	desc *prometheus.Desc
}

// NewCollector creates a state collector reading from src.
func NewCollector(src StateReader) *Collector {
	return &Collector{
		src: src,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "state"),
			"Current control loop state.",
			[]string{"state"}, nil,
		),
	}
}

var allStates = []domain.SessionState{
	domain.StateIdle,
	domain.StateWaitingForDevice,
	domain.StateInitializing,
	domain.StateAuthenticating,
	domain.StateCommandLoop,
	domain.StateDisconnecting,
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	current := c.src.CurrentState()
	for _, s := range allStates {
		v := 0.0
		if s == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, v, s.String())
	}
}
