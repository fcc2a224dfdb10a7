package telemetry

import (
	"log/slog"
)

// SlogAPI implements API using the log/slog package, params are expected
// as key value pairs.
type SlogAPI struct{}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error(id, params...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn(id, params...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Debug("count", "id", id, "n", count)
}
