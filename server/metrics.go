package main

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meikuraledutech/dagedit"
)

type metrics struct {
	mutations        *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dagedit_mutations_total",
			Help: "Graph mutations by operation and outcome (committed, rejected, over_limit, error).",
		}, []string{"op", "outcome"}),
		validationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dagedit_validation_errors_total",
			Help: "Validation errors reported on rejected mutations, by kind.",
		}, []string{"kind"}),
	}
}

// observe counts one mutation attempt.
func (m *metrics) observe(op string, err error) {
	var rej *dagedit.RejectedError
	switch {
	case err == nil:
		m.mutations.WithLabelValues(op, "committed").Inc()
	case errors.Is(err, errTooLarge):
		m.mutations.WithLabelValues(op, "over_limit").Inc()
	case errors.As(err, &rej):
		m.mutations.WithLabelValues(op, "rejected").Inc()
		for _, ve := range rej.Result.Errors {
			m.validationErrors.WithLabelValues(string(ve.Kind)).Inc()
		}
	default:
		m.mutations.WithLabelValues(op, "error").Inc()
	}
}
