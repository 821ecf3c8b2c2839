// Package otel provides OpenTelemetry metric instruments for the council
// pipeline and the meter provider setup.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "councild"

// Metrics holds all council metric instruments.
type Metrics struct {
	EvaluationsStarted   metric.Int64Counter
	EvaluationsCompleted metric.Int64Counter
	EvaluationsFailed    metric.Int64Counter
	OracleFailures       metric.Int64Counter
	RevisionsAccepted    metric.Int64Counter
	ObservationsDrafted  metric.Int64Counter
	EvaluationDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.EvaluationsStarted, err = meter.Int64Counter("councild.evaluations.started",
		metric.WithDescription("Number of evaluation runs started"))
	if err != nil {
		return nil, err
	}

	m.EvaluationsCompleted, err = meter.Int64Counter("councild.evaluations.completed",
		metric.WithDescription("Number of evaluation runs completed"))
	if err != nil {
		return nil, err
	}

	m.EvaluationsFailed, err = meter.Int64Counter("councild.evaluations.failed",
		metric.WithDescription("Number of evaluation runs failed"))
	if err != nil {
		return nil, err
	}

	m.OracleFailures, err = meter.Int64Counter("councild.oracle.failures",
		metric.WithDescription("Number of oracle calls that fell back to a placeholder position"))
	if err != nil {
		return nil, err
	}

	m.RevisionsAccepted, err = meter.Int64Counter("councild.deliberation.revisions",
		metric.WithDescription("Number of material position revisions accepted during deliberation"))
	if err != nil {
		return nil, err
	}

	m.ObservationsDrafted, err = meter.Int64Counter("councild.observations.drafted",
		metric.WithDescription("Number of draft observations produced by the learning loop"))
	if err != nil {
		return nil, err
	}

	m.EvaluationDuration, err = meter.Float64Histogram("councild.evaluation.duration_seconds",
		metric.WithDescription("End-to-end evaluation run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
