package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("uicrawler.internal.telemetry")

// MeterAPI mirrors reports into otel instruments before passing them on to
// Inner. Without a configured meter provider the instruments are no-ops.
type MeterAPI struct {
	Inner API

	broken   metric.Int64Counter
	warnings metric.Int64Counter
	counts   metric.Int64Gauge
}

func NewMeterAPI(inner API) MeterAPI {
	broken, _ := meter.Int64Counter("reports_broken")
	warnings, _ := meter.Int64Counter("reports_warning")
	counts, _ := meter.Int64Gauge("report_count")
	return MeterAPI{Inner: inner, broken: broken, warnings: warnings, counts: counts}
}

func (m MeterAPI) ReportBroken(id string, params ...any) {
	if m.broken != nil {
		m.broken.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	}
	m.Inner.ReportBroken(id, params...)
}

func (m MeterAPI) ReportWarning(id string, params ...any) {
	if m.warnings != nil {
		m.warnings.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	}
	m.Inner.ReportWarning(id, params...)
}

func (m MeterAPI) ReportCount(id string, count int64) {
	if m.counts != nil {
		m.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	}
	m.Inner.ReportCount(id, count)
}
