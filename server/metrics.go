package server

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks turn outcomes and latency.
type Metrics struct {
	registry     *prometheus.Registry
	turnsTotal   *prometheus.CounterVec
	turnDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	turnsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aide",
		Name:      "turns_total",
		Help:      "Handled conversation turns by outcome.",
	}, []string{"outcome"})

	turnDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aide",
		Name:      "turn_duration_seconds",
		Help:      "Turn handling latency including LLM and calendar calls.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	registry.MustRegister(turnsTotal, turnDuration)

	return &Metrics{
		registry:     registry,
		turnsTotal:   turnsTotal,
		turnDuration: turnDuration,
	}
}

func (m *Metrics) ObserveTurn(outcome string, elapsed time.Duration) {
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
